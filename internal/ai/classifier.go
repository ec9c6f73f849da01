package ai

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/prospect-matcher/internal/audience"
	"github.com/spigell/prospect-matcher/internal/cache"
	"github.com/spigell/prospect-matcher/internal/utils"
)

// Classifier maps company descriptions onto taxonomy codes.
type Classifier struct {
	generator Generator
	taxonomy  string
	store     cache.Store
	logger    *zap.Logger
	maxLogLen int
}

// NewClassifier renders the taxonomy once. A nil store disables memoization.
func NewClassifier(generator Generator, taxonomy audience.Taxonomy, store cache.Store, logger *zap.Logger, maxLogLength int) (*Classifier, error) {
	if generator == nil {
		return nil, errors.New("generator is required")
	}

	rendered, err := taxonomy.Render()
	if err != nil {
		return nil, err
	}

	if store == nil {
		store = cache.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Classifier{
		generator: generator,
		taxonomy:  rendered,
		store:     store,
		logger:    logger,
		maxLogLen: maxLogLength,
	}, nil
}

// Classify returns the record for description. Records are memoized by the
// exact description text; failed attempts are never cached.
func (c *Classifier) Classify(ctx context.Context, description string) (audience.Record, error) {
	record, err := c.store.Get(ctx, description)
	switch {
	case err == nil:
		c.logger.Debug("classification cache hit")
		return record, nil
	case !errors.Is(err, cache.ErrNotFound):
		c.logger.Warn("classification cache lookup failed", zap.Error(err))
	default:
		c.logger.Debug("classification cache miss")
	}

	prompt := buildClassifyPrompt(c.taxonomy, description)
	c.logger.Debug("classify request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("description_preview", utils.TruncateForLog(description, c.maxLogLen)),
	)

	raw, err := c.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return audience.Record{}, fmt.Errorf("llm call failed: %w", err)
	}

	c.logger.Debug("classify response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, c.maxLogLen)),
	)

	record, err = audience.ParseRecord(extractJSON(raw))
	if err != nil {
		return audience.Record{}, fmt.Errorf("parse llm response: %w", err)
	}
	if record.Primary == "" {
		return audience.Record{}, fmt.Errorf("parse llm response: %w: missing primary code", audience.ErrMalformedRecord)
	}

	if err := c.store.Set(ctx, description, record); err != nil {
		c.logger.Warn("failed to cache classification", zap.Error(err))
	}

	return record, nil
}
