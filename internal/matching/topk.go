package matching

import (
	"container/heap"
	"slices"
)

// ranked is a match together with its encounter sequence, used as tie-break.
type ranked struct {
	result MatchResult
	seq    int
}

// better orders by score descending, then by encounter order.
func better(a, b ranked) bool {
	if a.result.MatchScore != b.result.MatchScore {
		return a.result.MatchScore > b.result.MatchScore
	}
	return a.seq < b.seq
}

// worstFirst is a heap whose root is the weakest kept match.
type worstFirst []ranked

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return better(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *worstFirst) Push(x any)        { *h = append(*h, x.(ranked)) }
func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// topK keeps the best k matches seen so far.
type topK struct {
	limit int
	items worstFirst
}

func newTopK(limit int) *topK {
	return &topK{limit: limit, items: make(worstFirst, 0, limit+1)}
}

func (t *topK) push(item ranked) {
	if len(t.items) == t.limit && !better(item, t.items[0]) {
		return
	}
	heap.Push(&t.items, item)
	if len(t.items) > t.limit {
		heap.Pop(&t.items)
	}
}

func (t *topK) merge(other *topK) {
	for _, item := range other.items {
		t.push(item)
	}
}

// sorted returns the kept matches, best first.
func (t *topK) sorted() []ranked {
	out := slices.Clone([]ranked(t.items))
	slices.SortFunc(out, func(a, b ranked) int {
		switch {
		case better(a, b):
			return -1
		case better(b, a):
			return 1
		default:
			return 0
		}
	})
	return out
}
