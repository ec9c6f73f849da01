package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/spigell/prospect-matcher/internal/ai"
)

const (
	Provider = "openai"

	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 60 * time.Second

	systemPrompt = "You are a precise assistant for B2B market research. Follow the output format requested by the user exactly."
)

type chatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

type Config struct {
	APIKey  string        `mapstructure:"-"`
	BaseURL string        `mapstructure:"base-url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Generator talks to any OpenAI-compatible chat completion endpoint.
type Generator struct {
	chat   chatModel
	model  string
	logger *zap.Logger
}

func NewGenerator(ctx context.Context, cfg Config, logger *zap.Logger) (*Generator, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	modelName := strings.TrimSpace(cfg.Model)
	if modelName == "" {
		modelName = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	chat, err := einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{
		BaseURL: strings.TrimSpace(cfg.BaseURL),
		APIKey:  apiKey,
		Model:   modelName,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create openai chat model: %w", err)
	}

	return newGenerator(chat, modelName, logger), nil
}

func newGenerator(chat chatModel, modelName string, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{chat: chat, model: modelName, logger: logger}
}

func (g *Generator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.chat == nil {
		return "", errors.New("openai generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(prompt),
	}

	resp, err := g.chat.Generate(ctx, messages, model.WithTemperature(0))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("openai api: %w", ai.ErrEmptyResponse)
	}

	if resp.ResponseMeta != nil && resp.ResponseMeta.Usage != nil {
		g.logger.Debug("openai usage",
			zap.Int("prompt_tokens", resp.ResponseMeta.Usage.PromptTokens),
			zap.Int("completion_tokens", resp.ResponseMeta.Usage.CompletionTokens),
		)
	}

	return strings.TrimSpace(resp.Content), nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}
