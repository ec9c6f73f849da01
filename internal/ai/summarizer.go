package ai

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/prospect-matcher/internal/utils"
)

const (
	defaultMaxLogLength = 200
	// maxSummaryInput bounds the page text sent to the model.
	maxSummaryInput = 20000
)

// Summarizer condenses scraped website text into a short business summary.
type Summarizer struct {
	generator Generator
	logger    *zap.Logger
	maxLogLen int
}

func NewSummarizer(generator Generator, logger *zap.Logger, maxLogLength int) *Summarizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &Summarizer{generator: generator, logger: logger, maxLogLen: maxLogLength}
}

// Summarize returns the summary for text. Failures are logged and yield an
// empty summary.
func (s *Summarizer) Summarize(ctx context.Context, text string) string {
	text = utils.TruncateRunes(strings.TrimSpace(text), maxSummaryInput, "")
	prompt := buildSummarizePrompt(text)

	s.logger.Debug("summarize request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("text_preview", utils.TruncateForLog(text, s.maxLogLen)),
	)

	summary, err := s.generator.GenerateContent(ctx, prompt)
	if err != nil {
		s.logger.Warn("failed to summarize text", zap.Error(err))
		return ""
	}

	summary = strings.TrimSpace(summary)
	s.logger.Debug("summarize response", zap.String("summary", utils.TruncateForLog(summary, s.maxLogLen)))
	return summary
}
