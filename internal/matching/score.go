package matching

import (
	"fmt"
	"math"

	"github.com/spigell/prospect-matcher/internal/audience"
)

// OverlapType labels the strongest category found in a code overlap.
type OverlapType string

const (
	OverlapVertical   OverlapType = "VERTICAL"
	OverlapFunctional OverlapType = "FUNCTIONAL"
	OverlapHorizontal OverlapType = "HORIZONTAL"
	// OverlapUnknown is returned when codes overlap but none of them carries
	// a scored prefix, e.g. only sector codes are shared. The score is zero.
	OverlapUnknown OverlapType = "Unknown"
	OverlapNone    OverlapType = "No Overlap"
)

// PartnerAttributes are the partner values feeding the score boosts.
// NaN and infinite values are treated as absent.
type PartnerAttributes struct {
	EvaluationScore float64
	AvgLeadsPerDay  float64
}

// Scorer computes match scores with a fixed set of weights.
type Scorer struct {
	weights   Weights
	regulated audience.CodeSet
}

// NewScorer validates the weights and freezes them into a Scorer.
func NewScorer(w Weights) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matching weights: %w", err)
	}

	w.RegulatedCodes = append([]string(nil), w.RegulatedCodes...)

	return &Scorer{
		weights:   w,
		regulated: w.regulatedSet(),
	}, nil
}

var defaultScorer = mustScorer(DefaultWeights())

func mustScorer(w Weights) *Scorer {
	s, err := NewScorer(w)
	if err != nil {
		panic(err)
	}
	return s
}

// Weights returns a copy of the weights the scorer was built with.
func (s *Scorer) Weights() Weights {
	w := s.weights
	w.RegulatedCodes = append([]string(nil), w.RegulatedCodes...)
	return w
}

// CalculateMatchScore scores a prospect/partner pair with the default weights.
func CalculateMatchScore(prospect, partner audience.CodeSet, attrs PartnerAttributes) (float64, OverlapType) {
	return defaultScorer.Score(prospect, partner, attrs)
}

// Score returns the match score and overlap label for a pair of code sets.
// Vertical overlap wins over functional, functional over horizontal.
func (s *Scorer) Score(prospect, partner audience.CodeSet, attrs PartnerAttributes) (float64, OverlapType) {
	overlap := prospect.Intersect(partner)
	if overlap.Len() == 0 {
		return 0, OverlapNone
	}

	base, label := s.base(overlap)

	score := base
	if eval, ok := finite(attrs.EvaluationScore); ok && eval > s.weights.EvaluationThreshold {
		score *= 1 + eval*s.weights.EvaluationBoost
	}
	if leads, ok := finite(attrs.AvgLeadsPerDay); ok && leads > s.weights.LeadThreshold {
		score *= 1 + s.weights.LeadBoost
	}

	return score, label
}

func (s *Scorer) base(overlap audience.CodeSet) (float64, OverlapType) {
	switch {
	case overlap.Any(hasPrefix(audience.PrefixVertical)):
		if overlap.Any(s.regulated.Contains) {
			return s.weights.RegulatedVertical, OverlapVertical
		}
		return s.weights.Vertical, OverlapVertical
	case overlap.Any(hasPrefix(audience.PrefixFunctional)):
		return s.weights.Functional, OverlapFunctional
	case overlap.Any(hasPrefix(audience.PrefixHorizontal)):
		return s.weights.Horizontal, OverlapHorizontal
	default:
		return 0, OverlapUnknown
	}
}

func hasPrefix(prefix string) func(audience.Code) bool {
	return func(c audience.Code) bool {
		return c.HasPrefix(prefix)
	}
}

func finite(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
