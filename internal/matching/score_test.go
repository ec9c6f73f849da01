package matching

import (
	"math"
	"strings"
	"testing"

	"github.com/spigell/prospect-matcher/internal/audience"
)

const epsilon = 1e-9

func codes(c ...audience.Code) audience.CodeSet {
	return audience.NewCodeSet(c...)
}

func TestCalculateMatchScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		prospect  audience.CodeSet
		partner   audience.CodeSet
		attrs     PartnerAttributes
		wantScore float64
		wantType  OverlapType
	}{
		{
			name:      "no overlap",
			prospect:  codes("F_HR"),
			partner:   codes("F_SALES", "V_RETAIL"),
			attrs:     PartnerAttributes{EvaluationScore: 9, AvgLeadsPerDay: 100},
			wantScore: 0,
			wantType:  OverlapNone,
		},
		{
			name:      "empty prospect",
			prospect:  codes(),
			partner:   codes("F_HR"),
			wantScore: 0,
			wantType:  OverlapNone,
		},
		{
			name:      "functional with both boosts",
			prospect:  codes("F_HR"),
			partner:   codes("F_HR", "S_SW"),
			attrs:     PartnerAttributes{EvaluationScore: 3, AvgLeadsPerDay: 60},
			wantScore: 0.8 * 1.3 * 1.05,
			wantType:  OverlapFunctional,
		},
		{
			name:      "vertical regulated",
			prospect:  codes("V_FIN", "FIN_BANK"),
			partner:   codes("V_FIN", "FIN_BANK"),
			wantScore: 1.2,
			wantType:  OverlapVertical,
		},
		{
			name:      "vertical not regulated",
			prospect:  codes("V_RETAIL"),
			partner:   codes("V_RETAIL"),
			wantScore: 1.0,
			wantType:  OverlapVertical,
		},
		{
			name:      "regulated code outside overlap does not count",
			prospect:  codes("V_FIN", "FIN_BANK"),
			partner:   codes("V_FIN"),
			wantScore: 1.0,
			wantType:  OverlapVertical,
		},
		{
			name:      "vertical beats functional",
			prospect:  codes("V_RETAIL", "F_HR"),
			partner:   codes("V_RETAIL", "F_HR"),
			wantScore: 1.0,
			wantType:  OverlapVertical,
		},
		{
			name:      "functional beats horizontal",
			prospect:  codes("X_SME", "F_OPS"),
			partner:   codes("X_SME", "F_OPS"),
			wantScore: 0.8,
			wantType:  OverlapFunctional,
		},
		{
			name:      "horizontal",
			prospect:  codes("X_HORIZ"),
			partner:   codes("X_HORIZ", "S_CS"),
			wantScore: 0.5,
			wantType:  OverlapHorizontal,
		},
		{
			name:      "sector only overlap",
			prospect:  codes("S_MFG"),
			partner:   codes("S_MFG"),
			attrs:     PartnerAttributes{EvaluationScore: 5, AvgLeadsPerDay: 80},
			wantScore: 0,
			wantType:  OverlapUnknown,
		},
		{
			name:      "lead threshold is exclusive",
			prospect:  codes("X_SME"),
			partner:   codes("X_SME"),
			attrs:     PartnerAttributes{AvgLeadsPerDay: 50},
			wantScore: 0.5,
			wantType:  OverlapHorizontal,
		},
		{
			name:      "lead boost just above threshold",
			prospect:  codes("X_SME"),
			partner:   codes("X_SME"),
			attrs:     PartnerAttributes{AvgLeadsPerDay: 50.01},
			wantScore: 0.5 * 1.05,
			wantType:  OverlapHorizontal,
		},
		{
			name:      "negative evaluation score skips boost",
			prospect:  codes("F_HR"),
			partner:   codes("F_HR"),
			attrs:     PartnerAttributes{EvaluationScore: -2},
			wantScore: 0.8,
			wantType:  OverlapFunctional,
		},
		{
			name:      "nan attributes are ignored",
			prospect:  codes("F_HR"),
			partner:   codes("F_HR"),
			attrs:     PartnerAttributes{EvaluationScore: math.NaN(), AvgLeadsPerDay: math.Inf(1)},
			wantScore: 0.8,
			wantType:  OverlapFunctional,
		},
		{
			name:      "codes are case sensitive",
			prospect:  codes("f_hr"),
			partner:   codes("F_HR"),
			wantScore: 0,
			wantType:  OverlapNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			score, label := CalculateMatchScore(tt.prospect, tt.partner, tt.attrs)
			if math.Abs(score-tt.wantScore) > epsilon {
				t.Fatalf("expected score %v, got %v", tt.wantScore, score)
			}
			if label != tt.wantType {
				t.Fatalf("expected overlap %q, got %q", tt.wantType, label)
			}
		})
	}
}

func TestCalculateMatchScoreConcreteScenario(t *testing.T) {
	score, label := CalculateMatchScore(codes("F_HR"), codes("F_HR", "S_SW"), PartnerAttributes{EvaluationScore: 3, AvgLeadsPerDay: 60})
	if label != OverlapFunctional {
		t.Fatalf("expected FUNCTIONAL, got %q", label)
	}
	if math.Abs(score-1.092) > 1e-6 {
		t.Fatalf("expected score close to 1.092, got %v", score)
	}
}

func TestCalculateMatchScoreIsMonotonicInEvaluation(t *testing.T) {
	prospect := codes("V_RETAIL")
	partner := codes("V_RETAIL")

	prev := 0.0
	for eval := 0.0; eval <= 10; eval += 0.5 {
		score, _ := CalculateMatchScore(prospect, partner, PartnerAttributes{EvaluationScore: eval})
		if eval > 0 && score <= prev {
			t.Fatalf("expected score to increase at eval %v: prev %v, got %v", eval, prev, score)
		}
		prev = score
	}
}

func TestCalculateMatchScoreIsIdempotent(t *testing.T) {
	prospect := codes("V_FIN", "FIN_INS", "F_HR")
	partner := codes("V_FIN", "FIN_INS")
	attrs := PartnerAttributes{EvaluationScore: 4.5, AvgLeadsPerDay: 75}

	s1, l1 := CalculateMatchScore(prospect, partner, attrs)
	s2, l2 := CalculateMatchScore(prospect, partner, attrs)
	if s1 != s2 || l1 != l2 {
		t.Fatalf("expected identical output, got (%v, %q) and (%v, %q)", s1, l1, s2, l2)
	}
}

func TestScorerUsesCustomWeights(t *testing.T) {
	w := DefaultWeights()
	w.Functional = 2
	w.LeadThreshold = 10
	w.LeadBoost = 0.5
	w.RegulatedCodes = []string{"GOV"}

	scorer, err := NewScorer(w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	score, label := scorer.Score(codes("F_HR"), codes("F_HR"), PartnerAttributes{AvgLeadsPerDay: 11})
	if label != OverlapFunctional || math.Abs(score-3) > epsilon {
		t.Fatalf("unexpected result: %v %q", score, label)
	}

	score, _ = scorer.Score(codes("V_PUB", "GOV"), codes("V_PUB", "GOV"), PartnerAttributes{})
	if math.Abs(score-1.2) > epsilon {
		t.Fatalf("expected custom regulated set to apply, got %v", score)
	}

	score, _ = scorer.Score(codes("V_FIN", "FIN_BANK"), codes("V_FIN", "FIN_BANK"), PartnerAttributes{})
	if math.Abs(score-1.0) > epsilon {
		t.Fatalf("expected default regulated codes to be replaced, got %v", score)
	}
}

func TestScorerIsIsolatedFromCallerMutation(t *testing.T) {
	w := DefaultWeights()
	scorer, err := NewScorer(w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w.RegulatedCodes[0] = "CHANGED"
	got := scorer.Weights()
	if got.RegulatedCodes[0] != "FIN_BANK" {
		t.Fatalf("expected scorer weights to be frozen, got %v", got.RegulatedCodes)
	}

	got.RegulatedCodes[0] = "CHANGED"
	if scorer.Weights().RegulatedCodes[0] != "FIN_BANK" {
		t.Fatal("expected Weights to return a copy")
	}
}

func TestWeightsValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(w *Weights)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Weights) {}},
		{name: "negative vertical", mutate: func(w *Weights) { w.Vertical = -1 }, wantErr: "vertical"},
		{name: "nan boost", mutate: func(w *Weights) { w.LeadBoost = math.NaN() }, wantErr: "lead-boost"},
		{name: "zero top-n", mutate: func(w *Weights) { w.TopN = 0 }, wantErr: "top-n"},
		{name: "empty regulated code", mutate: func(w *Weights) { w.RegulatedCodes = []string{" "} }, wantErr: "regulated-codes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := DefaultWeights()
			tt.mutate(&w)

			_, err := NewScorer(w)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}
