package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/prospect-matcher/internal/enrichment"
	"github.com/spigell/prospect-matcher/internal/tabular"
)

var partnersCmd = &cobra.Command{
	Use:   "partners",
	Short: "Classify the partner list",
	Run: func(cmd *cobra.Command, _ []string) {
		partners(cmd)
	},
}

func init() {
	rootCmd.AddCommand(partnersCmd)

	partnersCmd.Flags().StringP("input", "i", "", "partner export")
	partnersCmd.Flags().StringP("output", "o", "", "classified partners output file")
	partnersCmd.Flags().String("encoding", "", "input encoding (utf-8 or latin-1)")

	viper.BindPFlag("partners.input", partnersCmd.Flags().Lookup("input"))
	viper.BindPFlag("partners.output", partnersCmd.Flags().Lookup("output"))
	viper.BindPFlag("partners.encoding", partnersCmd.Flags().Lookup("encoding"))
}

func partners(_ *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, config := setup("partners")
	defer logger.Sync()

	pc := config.Partners
	if pc == nil {
		logger.Fatal("partners section is required")
	}

	rows, err := tabular.ReadPartnerInputs(pc.Input, pc.Encoding)
	if err != nil {
		logger.Fatal("reading partners", zap.Error(err))
	}
	logger.Info("partners loaded", zap.String("path", pc.Input), zap.Int("count", len(rows)))

	if len(rows) == 0 {
		logger.Info("exiting", zap.String("reason", "no partners found"))
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

	out, err := tabular.Create(pc.Output, tabular.EnrichedPartnersHeader)
	if err != nil {
		logger.Fatal("creating output file", zap.Error(err))
	}
	defer out.Close()

	pipeline := &enrichment.Pipeline{Classifier: classifier, Logger: logger}

	counters, err := pipeline.Partners(ctx, rows, out)
	if err != nil {
		logger.Error("partner classification stopped", append(counters.Fields(), zap.Error(err))...)
		return
	}

	logger.Info("results saved", zap.String("output", pc.Output))
}
