package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spigell/prospect-matcher/internal/matching"
)

var ErrEmptyReport = errors.New("report has no rows")

var (
	EnrichedProspectsHeader = []string{ColumnFirma, ColumnURL, ColumnAudienceCodes}
	EnrichedPartnersHeader  = []string{ColumnCompanyName, ColumnEvaluationScore, ColumnAvgLeadsPerDay, ColumnAudienceCodes}
	UnknownLogHeader        = []string{ColumnFirma, ColumnURL, ColumnSummary}
	ReportHeader            = []string{
		"prospect_firma",
		"prospect_url",
		"partner_name",
		"partner_evaluation_score",
		"partner_avg_leads",
		"match_score",
		"overlap_type",
	}
)

// RowWriter streams rows into a CSV file.
type RowWriter struct {
	file *os.File
	csv  *csv.Writer
}

// Create creates the file and its parent directories and writes the header.
func Create(path string, header []string) (*RowWriter, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory for %s: %w", path, err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := &RowWriter{file: file, csv: csv.NewWriter(file)}
	if err := w.Write(header...); err != nil {
		file.Close()
		return nil, err
	}
	return w, nil
}

// Write appends a single row. Rows are flushed immediately so partial output
// survives an interrupted run.
func (w *RowWriter) Write(values ...string) error {
	if err := w.csv.Write(values); err != nil {
		return fmt.Errorf("write row to %s: %w", w.file.Name(), err)
	}
	w.csv.Flush()
	return w.csv.Error()
}

func (w *RowWriter) Close() error {
	w.csv.Flush()
	flushErr := w.csv.Error()
	closeErr := w.file.Close()
	return errors.Join(flushErr, closeErr)
}

// WriteReport writes the match report. No file is created for an empty report.
func WriteReport(path string, rows []matching.MatchResult) error {
	if len(rows) == 0 {
		return ErrEmptyReport
	}

	w, err := Create(path, ReportHeader)
	if err != nil {
		return err
	}

	for _, row := range rows {
		if err := w.Write(ReportRow(row)...); err != nil {
			w.Close()
			return err
		}
	}

	return w.Close()
}

// ReportRow flattens a match into the report columns. Partner attributes are
// echoed as they appeared in the input when available.
func ReportRow(r matching.MatchResult) []string {
	eval := r.PartnerRawEvaluation
	if eval == "" && r.PartnerEvaluationScore != 0 {
		eval = formatFloat(r.PartnerEvaluationScore)
	}
	leads := r.PartnerRawAvgLeads
	if leads == "" && r.PartnerAvgLeads != 0 {
		leads = formatFloat(r.PartnerAvgLeads)
	}

	return []string{
		r.ProspectID,
		r.ProspectURL,
		r.PartnerID,
		eval,
		leads,
		formatFloat(r.MatchScore),
		string(r.OverlapType),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
