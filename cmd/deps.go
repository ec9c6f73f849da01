package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/prospect-matcher/internal/ai"
	"github.com/spigell/prospect-matcher/internal/ai/gemini"
	"github.com/spigell/prospect-matcher/internal/ai/openai"
	"github.com/spigell/prospect-matcher/internal/audience"
	"github.com/spigell/prospect-matcher/internal/cache"
	"github.com/spigell/prospect-matcher/internal/logger"
	"github.com/spigell/prospect-matcher/internal/secrets"
)

const (
	cacheBackendFile  = "file"
	cacheBackendRedis = "redis"
	cacheBackendNone  = "none"
)

var noClose io.Closer = io.NopCloser(nil)

var providerKeyEnv = map[string]string{
	gemini.Provider: "GEMINI_API_KEY",
	openai.Provider: "OPENAI_API_KEY",
}

// setup creates the logger and loads the config shared by every command.
func setup(command string) (*zap.Logger, *Config) {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	l, runID := logger.WithRunID(l)

	config, err := getConfig()
	if err != nil {
		l.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		l.Fatal("config is required")
	}

	l.Info("starting the "+app, zap.String("command", command), zap.String("version", resolveVersion()), zap.String("run", runID))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	l.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return l, config
}

func redacted(config *Config) Config {
	c := *config
	if c.AI != nil {
		aiCfg := *c.AI
		if aiCfg.APIKey != "" {
			aiCfg.APIKey = "***"
		}
		c.AI = &aiCfg
	}
	if c.Cache != nil {
		cacheCfg := *c.Cache
		if cacheCfg.Redis.Password != "" {
			cacheCfg.Redis.Password = "***"
		}
		c.Cache = &cacheCfg
	}
	return c
}

func newGenerator(ctx context.Context, cfg *AIConfig, l *zap.Logger) (ai.Generator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("ai configuration is required")
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	envName, ok := providerKeyEnv[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  provider + " api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
		Env:   envName,
	})
	if err != nil {
		return nil, err
	}

	var generator ai.Generator
	switch provider {
	case gemini.Provider:
		gcfg := cfg.Gemini
		gcfg.APIKey = apiKey
		generator, err = gemini.NewGenerator(ctx, gcfg, logger.WithProvider(l, provider, gcfg.Model))
	case openai.Provider:
		ocfg := cfg.OpenAI
		ocfg.APIKey = apiKey
		generator, err = openai.NewGenerator(ctx, ocfg, logger.WithProvider(l, provider, ocfg.Model))
	}
	if err != nil {
		return nil, err
	}

	l.Info("ai provider configured",
		append(logger.ProviderFields(provider, generator.Model()), zap.Float64("requests_per_second", cfg.RequestsPerSecond))...,
	)

	return ai.NewRateLimited(generator, cfg.RequestsPerSecond, cfg.Burst), nil
}

func openCache(ctx context.Context, cfg *CacheConfig, l *zap.Logger) (cache.Store, io.Closer, error) {
	if cfg == nil {
		return cache.Nop{}, noClose, nil
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", cacheBackendFile:
		store, err := cache.OpenFile(cfg.File, l)
		if err != nil {
			return nil, nil, err
		}
		l.Info("using file cache", zap.String("path", cfg.File), zap.Int("entries", store.Len()), zap.Int("invalid_entries", store.Invalid()))
		return store, noClose, nil
	case cacheBackendRedis:
		store, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		l.Info("using redis cache", zap.String("address", cfg.Redis.Address))
		return store, store, nil
	case cacheBackendNone:
		l.Info("classification cache disabled")
		return cache.Nop{}, noClose, nil
	default:
		return nil, nil, fmt.Errorf("unsupported cache backend: %s", cfg.Backend)
	}
}

// newClassifier wires the generator, the taxonomy and the cache together.
func newClassifier(ctx context.Context, config *Config, generator ai.Generator, l *zap.Logger) (*ai.Classifier, io.Closer, error) {
	taxonomy, err := audience.LoadTaxonomy(config.Taxonomy)
	if err != nil {
		return nil, nil, fmt.Errorf("loading taxonomy: %w", err)
	}

	store, closer, err := openCache(ctx, config.Cache, l)
	if err != nil {
		return nil, nil, fmt.Errorf("opening cache: %w", err)
	}

	classifier, err := ai.NewClassifier(generator, taxonomy, store, l, config.AI.MaxLogLength)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}

	return classifier, closer, nil
}
