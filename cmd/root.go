package cmd

import (
	"errors"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/prospect-matcher/internal/ai/gemini"
	"github.com/spigell/prospect-matcher/internal/ai/openai"
	"github.com/spigell/prospect-matcher/internal/cache"
	"github.com/spigell/prospect-matcher/internal/filtering"
	"github.com/spigell/prospect-matcher/internal/matching"
	"github.com/spigell/prospect-matcher/internal/scraper"
	"github.com/spigell/prospect-matcher/internal/tabular"
)

const (
	app       = "prospect-matcher"
	envPrefix = "PROSPECT_MATCHER"
)

type Config struct {
	Taxonomy  string           `mapstructure:"taxonomy"`
	Prospects *ProspectsConfig `mapstructure:"prospects"`
	Partners  *PartnersConfig  `mapstructure:"partners"`
	Match     *MatchConfig     `mapstructure:"match"`
	AI        *AIConfig        `mapstructure:"ai"`
	Cache     *CacheConfig     `mapstructure:"cache"`
	Scraper   scraper.Config   `mapstructure:"scraper"`
}

type ProspectsConfig struct {
	Input      string           `mapstructure:"input"`
	Output     string           `mapstructure:"output"`
	UnknownLog string           `mapstructure:"unknown-log"`
	Encoding   string           `mapstructure:"encoding"`
	Filters    filtering.Config `mapstructure:"filters"`
}

type PartnersConfig struct {
	Input    string `mapstructure:"input"`
	Output   string `mapstructure:"output"`
	Encoding string `mapstructure:"encoding"`
}

type MatchConfig struct {
	Prospects string           `mapstructure:"prospects"`
	Partners  string           `mapstructure:"partners"`
	Output    string           `mapstructure:"output"`
	Workers   int              `mapstructure:"workers"`
	Weights   matching.Weights `mapstructure:"weights"`
}

type AIConfig struct {
	Provider          string        `mapstructure:"provider"`
	APIKey            string        `mapstructure:"api-key"`
	APIKeyFile        string        `mapstructure:"api-key-file"`
	RequestsPerSecond float64       `mapstructure:"requests-per-second"`
	Burst             int           `mapstructure:"burst"`
	MaxLogLength      int           `mapstructure:"max-log-length"`
	Gemini            gemini.Config `mapstructure:"gemini"`
	OpenAI            openai.Config `mapstructure:"openai"`
}

type CacheConfig struct {
	Backend string            `mapstructure:"backend"`
	File    string            `mapstructure:"file"`
	Redis   cache.RedisConfig `mapstructure:"redis"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "prospect-matcher enriches sales prospects and partners with audience codes and ranks partner matches",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is prospect-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("taxonomy", "", "path to the audience taxonomy (json or yaml)")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("taxonomy", rootCmd.PersistentFlags().Lookup("taxonomy"))

	setDefaults()
}

func setDefaults() {
	viper.SetDefault("taxonomy", "audience_taxonomy.json")

	viper.SetDefault("prospects.input", "data/prospects.csv")
	viper.SetDefault("prospects.output", "output/prospects_with_codes.csv")
	viper.SetDefault("prospects.unknown-log", "logs/unknown_log.csv")
	viper.SetDefault("prospects.encoding", tabular.EncodingLatin1)
	viper.SetDefault("prospects.filters.excluded-companies", []string{})
	viper.SetDefault("prospects.filters.exclude-file", "")

	viper.SetDefault("partners.input", "data/partners.csv")
	viper.SetDefault("partners.output", "output/partners_with_codes.csv")
	viper.SetDefault("partners.encoding", tabular.EncodingLatin1)

	w := matching.DefaultWeights()
	viper.SetDefault("match.prospects", "output/prospects_with_codes.csv")
	viper.SetDefault("match.partners", "output/partners_with_codes.csv")
	viper.SetDefault("match.output", "output/matches_v1.csv")
	viper.SetDefault("match.workers", 0)
	viper.SetDefault("match.weights.vertical", w.Vertical)
	viper.SetDefault("match.weights.horizontal", w.Horizontal)
	viper.SetDefault("match.weights.functional", w.Functional)
	viper.SetDefault("match.weights.regulated-vertical", w.RegulatedVertical)
	viper.SetDefault("match.weights.evaluation-boost", w.EvaluationBoost)
	viper.SetDefault("match.weights.evaluation-threshold", w.EvaluationThreshold)
	viper.SetDefault("match.weights.lead-boost", w.LeadBoost)
	viper.SetDefault("match.weights.lead-threshold", w.LeadThreshold)
	viper.SetDefault("match.weights.regulated-codes", w.RegulatedCodes)
	viper.SetDefault("match.weights.top-n", w.TopN)

	viper.SetDefault("ai.provider", gemini.Provider)
	viper.SetDefault("ai.api-key", "")
	viper.SetDefault("ai.api-key-file", "")
	viper.SetDefault("ai.requests-per-second", 1.0)
	viper.SetDefault("ai.burst", 1)
	viper.SetDefault("ai.max-log-length", 200)
	viper.SetDefault("ai.gemini.model", "gemini-2.0-flash")
	viper.SetDefault("ai.gemini.max-attempts", 3)
	viper.SetDefault("ai.gemini.max-retry-delay", 30*time.Second)
	viper.SetDefault("ai.openai.base-url", "")
	viper.SetDefault("ai.openai.model", "gpt-4o-mini")
	viper.SetDefault("ai.openai.timeout", time.Minute)

	viper.SetDefault("cache.backend", cacheBackendFile)
	viper.SetDefault("cache.file", "cache.json")
	viper.SetDefault("cache.redis.address", "localhost:6379")
	viper.SetDefault("cache.redis.password", "")
	viper.SetDefault("cache.redis.db", 0)
	viper.SetDefault("cache.redis.prefix", cache.DefaultRedisPrefix)
	viper.SetDefault("cache.redis.ttl", time.Duration(0))

	viper.SetDefault("scraper.timeout", scraper.DefaultTimeout)
	viper.SetDefault("scraper.user-agent", scraper.DefaultUserAgent)
	viper.SetDefault("scraper.requests-per-second", 2.0)
	viper.SetDefault("scraper.burst", 1)
	viper.SetDefault("scraper.max-bytes", 4<<20)
}

func initConfig() {
	// .env is optional; values already present in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("loading .env: %v", err)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("ai.api-key-file", envPrefix+"_AI_API_KEY_FILE", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("cache.redis.address", envPrefix+"_CACHE_REDIS_ADDRESS", "REDIS_ADDR"); err != nil {
		log.Fatalf("binding REDIS_ADDR environment variable: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicitly requested config must exist and parse.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
