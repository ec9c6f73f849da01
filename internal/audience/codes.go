package audience

import (
	"slices"
	"strings"
)

// Category prefixes of the audience taxonomy.
const (
	PrefixVertical   = "V_"
	PrefixFunctional = "F_"
	PrefixHorizontal = "X_"
	PrefixSector     = "S_"
)

// Code is a single taxonomy token, compared by exact string equality.
type Code string

// HasPrefix reports whether the code belongs to the category with the given prefix.
func (c Code) HasPrefix(prefix string) bool {
	return strings.HasPrefix(string(c), prefix)
}

// CodeSet is an unordered set of audience codes.
type CodeSet map[Code]struct{}

// NewCodeSet builds a set from the given codes. Empty codes are ignored.
func NewCodeSet(codes ...Code) CodeSet {
	set := make(CodeSet, len(codes))
	for _, code := range codes {
		if code == "" {
			continue
		}
		set[code] = struct{}{}
	}
	return set
}

func (s CodeSet) Len() int {
	return len(s)
}

func (s CodeSet) Contains(code Code) bool {
	_, ok := s[code]
	return ok
}

// Intersect returns the codes present in both sets.
func (s CodeSet) Intersect(other CodeSet) CodeSet {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}

	overlap := make(CodeSet)
	for code := range small {
		if large.Contains(code) {
			overlap[code] = struct{}{}
		}
	}
	return overlap
}

// Any reports whether at least one code satisfies fn.
func (s CodeSet) Any(fn func(Code) bool) bool {
	for code := range s {
		if fn(code) {
			return true
		}
	}
	return false
}

// Sorted returns the codes in lexical order, mostly for logs and tests.
func (s CodeSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for code := range s {
		out = append(out, string(code))
	}
	slices.Sort(out)
	return out
}
