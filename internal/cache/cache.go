package cache

import (
	"context"
	"errors"

	"github.com/spigell/prospect-matcher/internal/audience"
)

var ErrNotFound = errors.New("cache entry not found")

// Store memoizes classification records keyed by the exact description text.
type Store interface {
	Get(ctx context.Context, key string) (audience.Record, error)
	Set(ctx context.Context, key string, record audience.Record) error
}

// Nop never holds anything.
type Nop struct{}

func (Nop) Get(context.Context, string) (audience.Record, error) {
	return audience.Record{}, ErrNotFound
}

func (Nop) Set(context.Context, string, audience.Record) error {
	return nil
}
