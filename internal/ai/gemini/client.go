package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/prospect-matcher/internal/ai"
	"github.com/spigell/prospect-matcher/internal/utils"
)

const (
	Provider = "gemini"

	defaultModel         = "gemini-2.0-flash"
	defaultMaxAttempts   = 3
	defaultBaseDelay     = 2 * time.Second
	defaultMaxRetryDelay = 30 * time.Second
)

var wait = utils.WaitFor

var retryDelayPattern = regexp.MustCompile(`(?i)retry (?:after|in) ([0-9]+(?:\.[0-9]+)?)\s*s`)

type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Config struct {
	APIKey string `mapstructure:"-"`
	Model  string `mapstructure:"model"`
	// MaxAttempts bounds the number of calls made for a single prompt.
	MaxAttempts int `mapstructure:"max-attempts"`
	// MaxRetryDelay is the longest server-requested delay the generator waits for.
	MaxRetryDelay time.Duration `mapstructure:"max-retry-delay"`
}

// Generator wraps the Google GenAI client to provide simple prompt-based interactions.
type Generator struct {
	models        modelsAPI
	model         string
	maxAttempts   int
	baseDelay     time.Duration
	maxRetryDelay time.Duration
	logger        *zap.Logger
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, cfg Config, logger *zap.Logger) (*Generator, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(client.Models, cfg, logger), nil
}

func newGenerator(models modelsAPI, cfg Config, logger *zap.Logger) *Generator {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.MaxRetryDelay <= 0 {
		cfg.MaxRetryDelay = defaultMaxRetryDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		models:        models,
		model:         model,
		maxAttempts:   cfg.MaxAttempts,
		baseDelay:     defaultBaseDelay,
		maxRetryDelay: cfg.MaxRetryDelay,
		logger:        logger,
	}
}

// GenerateContent sends the prompt to Gemini and returns the first textual
// response. Server errors and rate limits are retried with backoff.
func (g *Generator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	config := &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0)}

	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
		if err == nil {
			return responseText(resp)
		}
		lastErr = err

		if attempt == g.maxAttempts || !isTemporary(err) {
			break
		}

		delay := g.baseDelay * time.Duration(1<<(attempt-1))
		if requested, ok := requestedDelay(err); ok {
			if requested > g.maxRetryDelay {
				g.logger.Warn("gemini asked to retry later than allowed, giving up",
					zap.Duration("requested_delay", requested),
					zap.Duration("max_delay", g.maxRetryDelay),
				)
				break
			}
			delay = requested
		}

		g.logger.Debug("retrying gemini request",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := wait(ctx, delay); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("generate content: %w", lastErr)
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("gemini api: %w", ai.ErrEmptyResponse)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", fmt.Errorf("gemini api: %w", ai.ErrEmptyResponse)
	}

	return output, nil
}

func isTemporary(err error) bool {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
}

func requestedDelay(err error) (time.Duration, bool) {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return 0, false
	}

	match := retryDelayPattern.FindStringSubmatch(apiErr.Message)
	if match == nil {
		return 0, false
	}

	seconds, parseErr := strconv.ParseFloat(match[1], 64)
	if parseErr != nil {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}
