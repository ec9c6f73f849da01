package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/prospect-matcher/internal/ai"
	"github.com/spigell/prospect-matcher/internal/enrichment"
	"github.com/spigell/prospect-matcher/internal/filtering"
	"github.com/spigell/prospect-matcher/internal/scraper"
	"github.com/spigell/prospect-matcher/internal/tabular"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Scrape, summarize and classify the prospects export",
	Run: func(cmd *cobra.Command, _ []string) {
		enrich(cmd)
	},
}

func init() {
	rootCmd.AddCommand(enrichCmd)

	enrichCmd.Flags().StringP("input", "i", "", "prospects export (columns firma, url)")
	enrichCmd.Flags().StringP("output", "o", "", "classified prospects output file")
	enrichCmd.Flags().String("unknown-log", "", "file for prospects classified as UNKNOWN or OTHER")
	enrichCmd.Flags().String("encoding", "", "input encoding (utf-8 or latin-1)")
	enrichCmd.Flags().StringP("exclude-file", "e", "", "special file with prospects to exclude. Default is unset.")

	viper.BindPFlag("prospects.input", enrichCmd.Flags().Lookup("input"))
	viper.BindPFlag("prospects.output", enrichCmd.Flags().Lookup("output"))
	viper.BindPFlag("prospects.unknown-log", enrichCmd.Flags().Lookup("unknown-log"))
	viper.BindPFlag("prospects.encoding", enrichCmd.Flags().Lookup("encoding"))
	viper.BindPFlag("prospects.filters.exclude-file", enrichCmd.Flags().Lookup("exclude-file"))
}

func enrich(_ *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, config := setup("enrich")
	defer logger.Sync()

	pc := config.Prospects
	if pc == nil {
		logger.Fatal("prospects section is required")
	}

	rows, err := tabular.ReadProspectInputs(pc.Input, pc.Encoding)
	if err != nil {
		logger.Fatal("reading prospects", zap.Error(err))
	}
	logger.Info("prospects loaded", zap.String("path", pc.Input), zap.Int("count", len(rows)))

	if len(rows) == 0 {
		logger.Info("exiting", zap.String("reason", "no prospects found"))
		return
	}

	generator, err := newGenerator(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("building ai generator", zap.Error(err))
	}

	classifier, closer, err := newClassifier(ctx, config, generator, logger)
	if err != nil {
		logger.Fatal("building classifier", zap.Error(err))
	}
	defer closer.Close()

	out, err := tabular.Create(pc.Output, tabular.EnrichedProspectsHeader)
	if err != nil {
		logger.Fatal("creating output file", zap.Error(err))
	}
	defer out.Close()

	unknown, err := tabular.Create(pc.UnknownLog, tabular.UnknownLogHeader)
	if err != nil {
		logger.Fatal("creating unknown log", zap.Error(err))
	}
	defer unknown.Close()

	pipeline := &enrichment.Pipeline{
		Extractor:    scraper.New(config.Scraper, logger.Named("scraper")),
		Summarizer:   ai.NewSummarizer(generator, logger.Named("summarizer"), config.AI.MaxLogLength),
		Classifier:   classifier,
		Filters:      filtering.Default(),
		FilterConfig: &pc.Filters,
		Logger:       logger,
	}

	counters, err := pipeline.Prospects(ctx, rows, out, unknown)
	if err != nil {
		// Rows written so far are already flushed.
		logger.Error("prospect enrichment stopped", append(counters.Fields(), zap.Error(err))...)
		return
	}

	logger.Info("results saved",
		zap.String("output", pc.Output),
		zap.String("unknown_log", pc.UnknownLog),
	)
}
