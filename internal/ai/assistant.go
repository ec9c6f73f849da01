package ai

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"
)

// Generator sends a single prompt to an LLM and returns its text response.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

var ErrEmptyResponse = errors.New("llm returned empty response")

// RateLimited delays calls to the wrapped generator so that no more than the
// limiter allows reach the provider.
type RateLimited struct {
	next    Generator
	limiter *rate.Limiter
}

// NewRateLimited wraps next with a limit of rps requests per second. A
// non-positive rps returns next unchanged.
func NewRateLimited(next Generator, rps float64, burst int) Generator {
	if rps <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *RateLimited) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("wait for rate limiter: %w", err)
	}
	return r.next.GenerateContent(ctx, prompt)
}

func (r *RateLimited) Model() string {
	return r.next.Model()
}
