package tabular

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spigell/prospect-matcher/internal/matching"
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestReadProspects(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "prospects.csv", []byte(strings.Join([]string{
		"\ufefffirma,url,audience_codes",
		`Acme,https://acme.example,"{""primary"": ""F_HR"", ""secondary"": [""S_SW""], ""explanation"": ""x""}"`,
		`Broken,https://broken.example,"{not json"`,
		`,https://anon.example,"{""primary"": ""X_SME""}"`,
		`Short`,
	}, "\n")))

	prospects, diag, err := ReadProspects(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(prospects) != 4 {
		t.Fatalf("expected 4 prospects, got %d", len(prospects))
	}

	if got := prospects[0].Codes.Sorted(); strings.Join(got, ",") != "F_HR,S_SW" {
		t.Fatalf("unexpected codes: %v", got)
	}
	if prospects[1].Codes.Len() != 0 {
		t.Fatalf("expected malformed row to have no codes")
	}
	if prospects[2].ID != unknownProspect {
		t.Fatalf("expected default prospect id, got %q", prospects[2].ID)
	}
	if prospects[3].ID != "Short" || prospects[3].Codes.Len() != 0 {
		t.Fatalf("unexpected short row: %+v", prospects[3])
	}

	if diag.Rows != 4 || diag.MalformedClassifications != 2 {
		t.Fatalf("unexpected diagnostics: %+v", diag)
	}
}

func TestReadPartners(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "partners.csv", []byte(strings.Join([]string{
		"Company Name,Evaluation Score,Avg Leads Per Day,audience_codes",
		`Good,3,60,"{""primary"": ""F_HR""}"`,
		`Dirty,n/a,-4,"{""primary"": ""F_HR""}"`,
		`Blank,,,"{""primary"": ""F_HR""}"`,
	}, "\n")))

	partners, diag, err := ReadPartners(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if partners[0].EvaluationScore != 3 || partners[0].AvgLeadsPerDay != 60 || partners[0].RawEvaluationScore != "3" {
		t.Fatalf("unexpected partner: %+v", partners[0])
	}
	if partners[1].EvaluationScore != 0 || partners[1].AvgLeadsPerDay != 0 || partners[1].RawEvaluationScore != "n/a" {
		t.Fatalf("unexpected dirty partner: %+v", partners[1])
	}
	if diag.InvalidNumericAttributes != 2 {
		t.Fatalf("expected 2 invalid numeric attributes, got %+v", diag)
	}
}

func TestReadRequiresColumns(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "partners.csv", []byte("Company Name,Evaluation Score\nA,1\n"))

	if _, _, err := ReadPartners(path); !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected missing column error, got %v", err)
	}
}

func TestReadProspectInputsLatin1(t *testing.T) {
	dir := t.TempDir()
	// "Müller GmbH" encoded as ISO-8859-1.
	content := append([]byte("firma,url\nM"), 0xfc)
	content = append(content, []byte("ller GmbH,https://mueller.example\n")...)
	path := writeFile(t, dir, "export.csv", content)

	inputs, err := ReadProspectInputs(path, EncodingLatin1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inputs) != 1 || inputs[0].Firma != "Müller GmbH" {
		t.Fatalf("unexpected inputs: %+v", inputs)
	}

	if _, err := ReadProspectInputs(path, "ebcdic"); !errors.Is(err, ErrUnsupportedEncoding) {
		t.Fatalf("expected unsupported encoding error, got %v", err)
	}
}

func TestReadPartnerInputs(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "partners.csv", []byte(strings.Join([]string{
		`Company Name,Industry,Products/Services Offered,USP (Unique Selling Proposition) / Key Selling Points,Evaluation Score,Avg Leads Per Day`,
		`Acme,Software,HR suite,Fast onboarding,4,12`,
	}, "\n")))

	inputs, err := ReadPartnerInputs(path, EncodingUTF8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := PartnerInput{CompanyName: "Acme", Industry: "Software", Products: "HR suite", USP: "Fast onboarding", EvaluationScore: "4", AvgLeadsPerDay: "12"}
	if len(inputs) != 1 || inputs[0] != want {
		t.Fatalf("unexpected inputs: %+v", inputs)
	}
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "matches.csv")

	if err := WriteReport(path, nil); !errors.Is(err, ErrEmptyReport) {
		t.Fatalf("expected empty report error, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no report file for empty report")
	}

	rows := []matching.MatchResult{
		{
			ProspectID:           "Acme",
			ProspectURL:          "https://acme.example",
			PartnerID:            "HR Partner",
			PartnerRawEvaluation: "3",
			PartnerRawAvgLeads:   "60",
			MatchScore:           1.5,
			OverlapType:          matching.OverlapFunctional,
		},
		{
			ProspectID:             "Acme",
			PartnerID:              "Computed",
			PartnerEvaluationScore: 2.5,
			MatchScore:             0.5,
			OverlapType:            matching.OverlapHorizontal,
		},
	}

	if err := WriteReport(path, rows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}

	want := strings.Join([]string{
		"prospect_firma,prospect_url,partner_name,partner_evaluation_score,partner_avg_leads,match_score,overlap_type",
		"Acme,https://acme.example,HR Partner,3,60,1.5,FUNCTIONAL",
		"Acme,,Computed,2.5,,0.5,HORIZONTAL",
		"",
	}, "\n")
	if string(data) != want {
		t.Fatalf("unexpected report:\n%s", data)
	}
}
