package matching

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/spigell/prospect-matcher/internal/audience"
)

const defaultTopN = 5

// Weights holds every tunable of the score calculation.
type Weights struct {
	Vertical          float64 `mapstructure:"vertical"`
	Horizontal        float64 `mapstructure:"horizontal"`
	Functional        float64 `mapstructure:"functional"`
	RegulatedVertical float64 `mapstructure:"regulated-vertical"`

	// EvaluationBoost is applied per point of partner evaluation score above EvaluationThreshold.
	EvaluationBoost     float64 `mapstructure:"evaluation-boost"`
	EvaluationThreshold float64 `mapstructure:"evaluation-threshold"`

	// LeadBoost is applied once when average leads per day exceed LeadThreshold.
	LeadBoost     float64 `mapstructure:"lead-boost"`
	LeadThreshold float64 `mapstructure:"lead-threshold"`

	RegulatedCodes []string `mapstructure:"regulated-codes"`

	// TopN caps the number of matches kept per prospect.
	TopN int `mapstructure:"top-n"`
}

func DefaultWeights() Weights {
	return Weights{
		Vertical:            1.0,
		Horizontal:          0.5,
		Functional:          0.8,
		RegulatedVertical:   1.2,
		EvaluationBoost:     0.1,
		EvaluationThreshold: 0,
		LeadBoost:           0.05,
		LeadThreshold:       50,
		RegulatedCodes:      []string{"FIN_BANK", "FIN_INS", "HC_HOSP", "HC_PHARM"},
		TopN:                defaultTopN,
	}
}

// Validate checks that all weights and rates are finite and non-negative.
func (w Weights) Validate() error {
	values := []struct {
		name  string
		value float64
	}{
		{"vertical", w.Vertical},
		{"horizontal", w.Horizontal},
		{"functional", w.Functional},
		{"regulated-vertical", w.RegulatedVertical},
		{"evaluation-boost", w.EvaluationBoost},
		{"evaluation-threshold", w.EvaluationThreshold},
		{"lead-boost", w.LeadBoost},
		{"lead-threshold", w.LeadThreshold},
	}

	var errs []error
	for _, v := range values {
		if math.IsNaN(v.value) || math.IsInf(v.value, 0) || v.value < 0 {
			errs = append(errs, fmt.Errorf("%s must be a non-negative number, got %v", v.name, v.value))
		}
	}

	if w.TopN < 1 {
		errs = append(errs, fmt.Errorf("top-n must be at least 1, got %d", w.TopN))
	}

	for _, code := range w.RegulatedCodes {
		if strings.TrimSpace(code) == "" {
			errs = append(errs, errors.New("regulated-codes must not contain empty codes"))
			break
		}
	}

	return errors.Join(errs...)
}

func (w Weights) regulatedSet() audience.CodeSet {
	codes := make([]audience.Code, 0, len(w.RegulatedCodes))
	for _, code := range w.RegulatedCodes {
		codes = append(codes, audience.Code(strings.TrimSpace(code)))
	}
	return audience.NewCodeSet(codes...)
}
