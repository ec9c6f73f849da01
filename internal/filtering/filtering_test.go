package filtering

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/prospect-matcher/internal/tabular"
)

func firmas(p *Prospects) []string {
	out := make([]string, 0, p.Len())
	for _, item := range p.Items {
		out = append(out, item.Firma)
	}
	return out
}

func sampleProspects() []tabular.ProspectInput {
	return []tabular.ProspectInput{
		{Firma: "Acme GmbH", URL: "https://www.acme.example"},
		{Firma: "No Site", URL: ""},
		{Firma: "Beta AG", URL: "https://beta.example/about"},
		{Firma: "Gamma KG", URL: "gamma.example"},
		{Firma: "Delta", URL: "https://delta.example"},
	}
}

func TestRunDefaultChain(t *testing.T) {
	dir := t.TempDir()
	excludePath := filepath.Join(dir, "exclude.json")
	if err := os.WriteFile(excludePath, []byte(`{"companies": ["  gamma   kg "], "urls": ["beta.example"]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	core, logs := observer.New(zap.InfoLevel)
	deps := Deps{Logger: zap.New(core)}
	cfg := &Config{ExcludedCompanies: []string{"ACME gmbh"}, ExcludeFile: excludePath}

	input := sampleProspects()
	got, err := Run(context.Background(), cfg, deps, Default(), NewProspects(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if want := []string{"Delta"}; !reflect.DeepEqual(firmas(got), want) {
		t.Fatalf("expected %v, got %v", want, firmas(got))
	}
	if input[1].Firma != "No Site" {
		t.Fatalf("input slice was modified: %+v", input)
	}

	steps := logs.FilterMessage("filter step").All()
	if len(steps) != 3 {
		t.Fatalf("expected 3 step logs, got %d", len(steps))
	}

	wantDropped := []int64{1, 1, 2}
	for i, entry := range steps {
		if dropped := entry.ContextMap()["dropped"]; dropped != wantDropped[i] {
			t.Fatalf("step %d: expected %d dropped, got %v", i, wantDropped[i], dropped)
		}
	}
}

func TestRunSkipsDisabledFilters(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	steps := Default()
	DisableByName(steps, "missing_url", "scraping disabled")

	got, err := Run(context.Background(), &Config{}, Deps{Logger: zap.New(core)}, steps, NewProspects(sampleProspects()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Len() != 5 {
		t.Fatalf("expected all rows to stay, got %v", firmas(got))
	}
	if logs.FilterMessage("filter disabled").Len() != 1 {
		t.Fatalf("expected disabled filter to be logged")
	}

	statuses := Describe(steps)
	if statuses[0].Enabled || statuses[0].Reason != "scraping disabled" {
		t.Fatalf("unexpected status: %+v", statuses[0])
	}
}

func TestRunFailsOnUnreadableExcludeFile(t *testing.T) {
	cfg := &Config{ExcludeFile: filepath.Join(t.TempDir(), "missing.json")}

	_, err := Run(context.Background(), cfg, Deps{}, Default(), NewProspects(sampleProspects()))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected missing file error, got %v", err)
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Run(ctx, &Config{}, Deps{}, Default(), NewProspects(sampleProspects())); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestHostOf(t *testing.T) {
	tests := map[string]string{
		"https://www.Acme.example/path": "acme.example",
		"acme.example":                  "acme.example",
		"http://acme.example:8080":      "acme.example",
		"":                              "",
	}
	for in, want := range tests {
		if got := hostOf(in); got != want {
			t.Fatalf("hostOf(%q) = %q, want %q", in, got, want)
		}
	}
}
