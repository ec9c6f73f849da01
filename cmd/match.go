package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/prospect-matcher/internal/matching"
	"github.com/spigell/prospect-matcher/internal/tabular"
)

const (
	PromptWriteReport       = "Write report"
	PromptNo                = "No"
	PromptReportByProspects = "Report by prospects"
	PromptReportToTmpFile   = "Dump report to tmp file"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "Proceed?",
	Items: []string{PromptWriteReport, PromptNo, PromptReportByProspects, PromptReportToTmpFile},
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Score classified prospects against classified partners and write the report",
	Run: func(cmd *cobra.Command, _ []string) {
		match(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().String("prospects", "", "classified prospects file")
	matchCmd.Flags().String("partners", "", "classified partners file")
	matchCmd.Flags().StringP("output", "o", "", "match report file")
	matchCmd.Flags().IntP("workers", "w", 0, "prospects scored concurrently (0 = number of CPUs)")
	matchCmd.Flags().IntP("top", "n", 0, "matches kept per prospect")
	matchCmd.Flags().BoolP("auto-approve", "y", false, "write the report without asking for confirmation")

	viper.BindPFlag("match.prospects", matchCmd.Flags().Lookup("prospects"))
	viper.BindPFlag("match.partners", matchCmd.Flags().Lookup("partners"))
	viper.BindPFlag("match.output", matchCmd.Flags().Lookup("output"))
	viper.BindPFlag("match.workers", matchCmd.Flags().Lookup("workers"))
	viper.BindPFlag("match.weights.top-n", matchCmd.Flags().Lookup("top"))
}

func match(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, config := setup("match")
	defer logger.Sync()

	mc := config.Match
	if mc == nil {
		logger.Fatal("match section is required")
	}

	scorer, err := matching.NewScorer(mc.Weights)
	if err != nil {
		logger.Fatal("invalid weights", zap.Error(err))
	}

	prospects, diag, err := tabular.ReadProspects(mc.Prospects)
	if err != nil {
		logger.Fatal("reading prospects", zap.Error(err))
	}
	logDiagnostics(logger, "prospects", mc.Prospects, diag)

	partners, diag, err := tabular.ReadPartners(mc.Partners)
	if err != nil {
		logger.Fatal("reading partners", zap.Error(err))
	}
	logDiagnostics(logger, "partners", mc.Partners, diag)

	report, err := scorer.Report(ctx, prospects, partners, matching.ReportOptions{Workers: mc.Workers})
	if err != nil {
		logger.Fatal("building report", zap.Error(err))
	}

	logger.Info("matching finished",
		zap.Int("pairs", report.Stats.Pairs),
		zap.Int("matches", report.Stats.Matches),
		zap.Int("zero_score_overlaps", report.Stats.ZeroScoreOverlaps),
		zap.Int("matched_prospects", report.Stats.Prospects),
		zap.Int("rows", report.Stats.Rows),
	)

	if report.Empty() {
		logger.Info("exiting", zap.String("reason", "no matches"))
		return
	}

	action := PromptWriteReport
	for {
		if cmd.Flag("auto-approve").Value.String() == "false" {
			_, action, err = prompt.Run()
			if err != nil {
				logger.Fatal("exiting", zap.Error(err))
			}
		}

		if err := handleAction(action, logger, mc.Output, &report); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(action string, logger *zap.Logger, output string, report *matching.Report) error {
	switch action {
	case PromptWriteReport:
		if err := tabular.WriteReport(output, report.Rows); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		logger.Info("report saved", zap.String("filename", output), zap.Int("rows", len(report.Rows)))
		return errExit
	case PromptNo:
		logger.Info("exiting", zap.String("reason", "got no from prompt"))
		return errExit
	case PromptReportByProspects:
		pretty, _ := json.MarshalIndent(report.ByProspect(), "", "  ")
		logger.Info(string(pretty), zap.Int("rows", len(report.Rows)))
		return nil
	case PromptReportToTmpFile:
		filename, err := dumpToTmpFile(report.Rows)
		if err != nil {
			return fmt.Errorf("dump report to file: %w", err)
		}
		logger.Info("dumping report to file", zap.String("filename", filename))
		return nil
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func dumpToTmpFile(rows []matching.MatchResult) (string, error) {
	f, err := os.CreateTemp("", app+"-report-*.csv")
	if err != nil {
		return "", err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		return "", err
	}

	return name, tabular.WriteReport(name, rows)
}

func logDiagnostics(logger *zap.Logger, kind, path string, diag tabular.Diagnostics) {
	fields := []zap.Field{
		zap.String("kind", kind),
		zap.String("path", path),
		zap.Int("rows", diag.Rows),
	}

	if diag.MalformedClassifications == 0 && diag.InvalidNumericAttributes == 0 {
		logger.Info("input loaded", fields...)
		return
	}

	logger.Warn("input loaded with repaired rows", append(fields,
		zap.Int("malformed_classifications", diag.MalformedClassifications),
		zap.Int("invalid_numeric_attributes", diag.InvalidNumericAttributes),
	)...)
}
