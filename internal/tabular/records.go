package tabular

import (
	"math"
	"strconv"

	"github.com/spigell/prospect-matcher/internal/audience"
	"github.com/spigell/prospect-matcher/internal/matching"
)

// Column names of the input and intermediate files.
const (
	ColumnFirma         = "firma"
	ColumnURL           = "url"
	ColumnAudienceCodes = "audience_codes"
	ColumnSummary       = "summary"

	ColumnCompanyName     = "Company Name"
	ColumnIndustry        = "Industry"
	ColumnProducts        = "Products/Services Offered"
	ColumnUSP             = "USP (Unique Selling Proposition) / Key Selling Points"
	ColumnEvaluationScore = "Evaluation Score"
	ColumnAvgLeadsPerDay  = "Avg Leads Per Day"
)

const (
	unknownProspect = "Unknown Prospect"
	unknownPartner  = "Unknown Partner"
)

// Diagnostics counts rows that were repaired while loading.
type Diagnostics struct {
	Rows int
	// MalformedClassifications counts rows whose audience_codes cell could not be parsed.
	MalformedClassifications int
	// InvalidNumericAttributes counts non-empty numeric cells that were not usable numbers.
	InvalidNumericAttributes int
}

// ProspectInput is a raw prospect row before enrichment.
type ProspectInput struct {
	Firma string
	URL   string
}

// PartnerInput is a raw partner row before classification.
type PartnerInput struct {
	CompanyName     string
	Industry        string
	Products        string
	USP             string
	EvaluationScore string
	AvgLeadsPerDay  string
}

// ReadProspectInputs loads the raw prospects export.
func ReadProspectInputs(path, encoding string) ([]ProspectInput, error) {
	t, err := readTable(path, encoding)
	if err != nil {
		return nil, err
	}
	if err := t.require(ColumnFirma, ColumnURL); err != nil {
		return nil, err
	}

	out := make([]ProspectInput, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, ProspectInput{
			Firma: t.cell(row, ColumnFirma),
			URL:   t.cell(row, ColumnURL),
		})
	}
	return out, nil
}

// ReadPartnerInputs loads the raw partner export.
func ReadPartnerInputs(path, encoding string) ([]PartnerInput, error) {
	t, err := readTable(path, encoding)
	if err != nil {
		return nil, err
	}
	if err := t.require(ColumnCompanyName); err != nil {
		return nil, err
	}

	out := make([]PartnerInput, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, PartnerInput{
			CompanyName:     t.cell(row, ColumnCompanyName),
			Industry:        t.cell(row, ColumnIndustry),
			Products:        t.cell(row, ColumnProducts),
			USP:             t.cell(row, ColumnUSP),
			EvaluationScore: t.cell(row, ColumnEvaluationScore),
			AvgLeadsPerDay:  t.cell(row, ColumnAvgLeadsPerDay),
		})
	}
	return out, nil
}

// ReadProspects loads classified prospects. Rows with a malformed
// classification get an empty code set and never match.
func ReadProspects(path string) ([]matching.Prospect, Diagnostics, error) {
	var diag Diagnostics

	t, err := readTable(path, EncodingUTF8)
	if err != nil {
		return nil, diag, err
	}
	if err := t.require(ColumnAudienceCodes); err != nil {
		return nil, diag, err
	}

	out := make([]matching.Prospect, 0, len(t.rows))
	for _, row := range t.rows {
		diag.Rows++

		id := t.cell(row, ColumnFirma)
		if id == "" {
			id = unknownProspect
		}

		out = append(out, matching.Prospect{
			ID:    id,
			URL:   t.cell(row, ColumnURL),
			Codes: codesFromCell(t.cell(row, ColumnAudienceCodes), &diag),
		})
	}
	return out, diag, nil
}

// ReadPartners loads classified partners. Unusable numeric attributes are
// read as 0 so the dependent boosts are skipped.
func ReadPartners(path string) ([]matching.Partner, Diagnostics, error) {
	var diag Diagnostics

	t, err := readTable(path, EncodingUTF8)
	if err != nil {
		return nil, diag, err
	}
	if err := t.require(ColumnAudienceCodes); err != nil {
		return nil, diag, err
	}

	out := make([]matching.Partner, 0, len(t.rows))
	for _, row := range t.rows {
		diag.Rows++

		id := t.cell(row, ColumnCompanyName)
		if id == "" {
			id = unknownPartner
		}

		rawEval := t.cell(row, ColumnEvaluationScore)
		rawLeads := t.cell(row, ColumnAvgLeadsPerDay)

		out = append(out, matching.Partner{
			ID:                 id,
			EvaluationScore:    parseAttribute(rawEval, &diag),
			AvgLeadsPerDay:     parseAttribute(rawLeads, &diag),
			RawEvaluationScore: rawEval,
			RawAvgLeadsPerDay:  rawLeads,
			Codes:              codesFromCell(t.cell(row, ColumnAudienceCodes), &diag),
		})
	}
	return out, diag, nil
}

func codesFromCell(raw string, diag *Diagnostics) audience.CodeSet {
	record, err := audience.ParseRecord(raw)
	if err != nil {
		diag.MalformedClassifications++
		return audience.NewCodeSet()
	}
	return record.CodeSet()
}

func parseAttribute(raw string, diag *Diagnostics) float64 {
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		diag.InvalidNumericAttributes++
		return 0
	}
	return v
}
