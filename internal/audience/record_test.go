package audience

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseRecord(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		raw       string
		wantCodes []string
		wantErr   bool
	}{
		{
			name:      "primary and secondary",
			raw:       `{"primary": "F_HR", "secondary": ["S_SW"], "explanation": "HR software"}`,
			wantCodes: []string{"F_HR", "S_SW"},
		},
		{
			name:      "duplicates collapse",
			raw:       `{"primary": "V_FIN", "secondary": ["V_FIN", "FIN_BANK"]}`,
			wantCodes: []string{"FIN_BANK", "V_FIN"},
		},
		{
			name:      "scalar secondary",
			raw:       `{"primary": "X_HORIZ", "secondary": "X_SME"}`,
			wantCodes: []string{"X_HORIZ", "X_SME"},
		},
		{
			name:      "missing primary",
			raw:       `{"secondary": ["F_OPS"]}`,
			wantCodes: []string{"F_OPS"},
		},
		{
			name:      "error record has no codes",
			raw:       `{"error": "Failed to parse LLM response."}`,
			wantCodes: []string{},
		},
		{
			name:      "padded codes are kept verbatim",
			raw:       `{"primary": "F_HR ", "secondary": [" S_SW"]}`,
			wantCodes: []string{" S_SW", "F_HR "},
		},
		{
			name:    "invalid json",
			raw:     `{"primary": `,
			wantErr: true,
		},
		{
			name:    "array payload",
			raw:     `["F_HR"]`,
			wantErr: true,
		},
		{
			name:    "null payload",
			raw:     `null`,
			wantErr: true,
		},
		{
			name:    "empty",
			raw:     "  ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			record, err := ParseRecord(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedRecord) {
					t.Fatalf("expected malformed record error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got := record.CodeSet().Sorted()
			if strings.Join(got, ",") != strings.Join(tt.wantCodes, ",") {
				t.Fatalf("expected codes %v, got %v", tt.wantCodes, got)
			}
		})
	}
}

func TestRecordJSONRoundTripsThroughParse(t *testing.T) {
	record := Record{Primary: "V_HC", Explanation: "hospital group"}

	raw := record.JSON()
	if !strings.Contains(raw, `"secondary":[]`) {
		t.Fatalf("expected empty secondary list, got %s", raw)
	}
	if strings.Contains(raw, "error") {
		t.Fatalf("expected no error key, got %s", raw)
	}

	parsed, err := ParseRecord(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.Primary != "V_HC" || parsed.Explanation != "hospital group" {
		t.Fatalf("unexpected record: %+v", parsed)
	}
}

func TestFailedRecordJSON(t *testing.T) {
	raw := Failed(errors.New("llm call failed: quota")).JSON()
	if raw != `{"error":"llm call failed: quota"}` {
		t.Fatalf("unexpected failed record json: %s", raw)
	}

	parsed, err := ParseRecord(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.CodeSet().Len() != 0 {
		t.Fatalf("expected failed record to carry no codes, got %v", parsed.CodeSet().Sorted())
	}
}

func TestRecordIsUnresolved(t *testing.T) {
	if !(Record{Primary: CodeUnknown}).IsUnresolved() {
		t.Fatal("expected UNKNOWN to be unresolved")
	}
	if !(Record{Primary: CodeOther}).IsUnresolved() {
		t.Fatal("expected OTHER to be unresolved")
	}
	if (Record{Primary: "F_HR"}).IsUnresolved() {
		t.Fatal("expected F_HR to be resolved")
	}
}

func TestCodeSetIntersect(t *testing.T) {
	a := NewCodeSet("F_HR", "S_SW", "")
	b := NewCodeSet("F_HR", "X_SME")

	if a.Len() != 2 {
		t.Fatalf("expected empty code to be dropped, got %v", a.Sorted())
	}

	overlap := a.Intersect(b)
	if got := overlap.Sorted(); len(got) != 1 || got[0] != "F_HR" {
		t.Fatalf("unexpected overlap: %v", got)
	}

	if NewCodeSet("F_HR ").Intersect(b).Len() != 0 {
		t.Fatal("expected codes to match by exact text only")
	}

	if NewCodeSet().Intersect(b).Len() != 0 {
		t.Fatal("expected empty overlap for empty set")
	}
}

func TestLoadTaxonomy(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "taxonomy.json")
	if err := os.WriteFile(jsonPath, []byte(`{"F_HR": "Functional > Human Resources"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	yamlPath := filepath.Join(dir, "taxonomy.yaml")
	if err := os.WriteFile(yamlPath, []byte("V_FIN:\n  label: Vertical > Finance\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	emptyPath := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(emptyPath, []byte(`{}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	fromJSON, err := LoadTaxonomy(jsonPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rendered, err := fromJSON.Render()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rendered, `"F_HR": "Functional > Human Resources"`) {
		t.Fatalf("unexpected rendering: %s", rendered)
	}

	fromYAML, err := LoadTaxonomy(yamlPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rendered, err = fromYAML.Render()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rendered, `"label": "Vertical > Finance"`) {
		t.Fatalf("unexpected rendering: %s", rendered)
	}

	if _, err := LoadTaxonomy(emptyPath); !errors.Is(err, ErrEmptyTaxonomy) {
		t.Fatalf("expected empty taxonomy error, got %v", err)
	}

	if _, err := LoadTaxonomy(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
