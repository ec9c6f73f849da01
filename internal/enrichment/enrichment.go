package enrichment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/prospect-matcher/internal/audience"
	"github.com/spigell/prospect-matcher/internal/filtering"
	"github.com/spigell/prospect-matcher/internal/logger"
	"github.com/spigell/prospect-matcher/internal/tabular"
)

const noDescriptionExplanation = "No description was available to classify."

type Extractor interface {
	Extract(ctx context.Context, url string) string
}

type Summarizer interface {
	Summarize(ctx context.Context, text string) string
}

type Classifier interface {
	Classify(ctx context.Context, description string) (audience.Record, error)
}

// RowWriter receives output rows in input order.
type RowWriter interface {
	Write(values ...string) error
}

// Counters summarise a pipeline run.
type Counters struct {
	Processed  int
	Skipped    int
	Unresolved int
	Failed     int
}

func (c Counters) Fields() []zap.Field {
	return []zap.Field{
		zap.Int("processed", c.Processed),
		zap.Int("skipped", c.Skipped),
		zap.Int("unresolved", c.Unresolved),
		zap.Int("failed", c.Failed),
	}
}

// Pipeline turns raw prospect and partner rows into classified rows.
type Pipeline struct {
	Extractor  Extractor
	Summarizer Summarizer
	Classifier Classifier

	Filters      []filtering.Filter
	FilterConfig *filtering.Config

	Logger *zap.Logger
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

// Prospects filters rows, then scrapes, summarizes and classifies each one.
// Every processed row is written to out; rows the classifier could not place
// are also written to unknown together with their summary.
func (p *Pipeline) Prospects(ctx context.Context, rows []tabular.ProspectInput, out, unknown RowWriter) (Counters, error) {
	if p.Extractor == nil || p.Summarizer == nil || p.Classifier == nil {
		return Counters{}, errors.New("extractor, summarizer and classifier are required")
	}

	log := p.logger()

	filters := p.Filters
	if filters == nil {
		filters = filtering.Default()
	}

	kept, err := filtering.Run(ctx, p.FilterConfig, filtering.Deps{Logger: log}, filters, filtering.NewProspects(rows))
	if err != nil {
		return Counters{}, fmt.Errorf("filter prospects: %w", err)
	}

	counters := Counters{Skipped: len(rows) - kept.Len()}

	for i, row := range kept.Items {
		if err := ctx.Err(); err != nil {
			return counters, err
		}

		rowLog := log.With(logger.CompanyFields(row.Firma, row.URL)...)
		rowLog.Info("enriching prospect", zap.Int("row", i+1), zap.Int("total", kept.Len()))

		text := p.Extractor.Extract(ctx, row.URL)
		summary := ""
		if text != "" {
			summary = p.Summarizer.Summarize(ctx, text)
		}

		record := p.classify(ctx, rowLog, summary, &counters)

		if record.IsUnresolved() && unknown != nil {
			if err := unknown.Write(row.Firma, row.URL, summary); err != nil {
				return counters, err
			}
		}

		if err := out.Write(row.Firma, row.URL, record.JSON()); err != nil {
			return counters, err
		}
		counters.Processed++
	}

	log.Info("prospect enrichment finished", counters.Fields()...)
	return counters, nil
}

// Partners classifies each partner by a description composed from its profile.
func (p *Pipeline) Partners(ctx context.Context, rows []tabular.PartnerInput, out RowWriter) (Counters, error) {
	if p.Classifier == nil {
		return Counters{}, errors.New("classifier is required")
	}

	log := p.logger()
	var counters Counters

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return counters, err
		}

		rowLog := log.With(logger.CompanyFields(row.CompanyName, "")...)
		rowLog.Info("classifying partner", zap.Int("row", i+1), zap.Int("total", len(rows)))

		record := p.classify(ctx, rowLog, PartnerBlurb(row), &counters)

		if err := out.Write(row.CompanyName, row.EvaluationScore, row.AvgLeadsPerDay, record.JSON()); err != nil {
			return counters, err
		}
		counters.Processed++
	}

	log.Info("partner classification finished", counters.Fields()...)
	return counters, nil
}

func (p *Pipeline) classify(ctx context.Context, log *zap.Logger, description string, counters *Counters) audience.Record {
	var record audience.Record
	if strings.TrimSpace(description) == "" {
		log.Warn("no description to classify")
		record = audience.Record{Primary: audience.CodeUnknown, Explanation: noDescriptionExplanation}
	} else {
		var err error
		record, err = p.Classifier.Classify(ctx, description)
		if err != nil {
			log.Warn("classification failed", zap.Error(err))
			counters.Failed++
			return audience.Failed(err)
		}
	}

	if record.IsUnresolved() {
		counters.Unresolved++
		log.Info("classification unresolved", zap.String("primary", string(record.Primary)))
	} else {
		log.Debug("classified", zap.String("primary", string(record.Primary)), zap.Int("codes", record.CodeSet().Len()))
	}
	return record
}

// PartnerBlurb describes a partner in a single paragraph for the classifier.
func PartnerBlurb(row tabular.PartnerInput) string {
	return fmt.Sprintf(
		"%s is a company in the %s sector. They offer %s. Their unique selling proposition is: %s",
		row.CompanyName, row.Industry, row.Products, row.USP,
	)
}
