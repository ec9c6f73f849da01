package filtering

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/prospect-matcher/internal/tabular"
)

type missingURLFilter struct {
	disabled bool
	reason   string
}

// NewMissingURL creates a filter that removes rows without a website to scrape.
func NewMissingURL() Filter {
	return &missingURLFilter{}
}

func (f *missingURLFilter) Name() string { return "missing_url" }

func (f *missingURLFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *missingURLFilter) IsEnabled() bool { return !f.disabled }

func (f *missingURLFilter) Validate(*Config) error { return nil }

func (f *missingURLFilter) Apply(_ context.Context, deps Deps, p *Prospects) (*Prospects, Step, error) {
	initial := p.Len()
	excluded := p.Exclude(func(item tabular.ProspectInput) bool {
		return strings.TrimSpace(item.URL) == ""
	})
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("skipping prospects without url",
			zap.Strings("excluded_prospects", excluded),
			zap.Int("prospects_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(excluded), Left: p.Len()}, nil
}

func (f *missingURLFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}

type excludedCompaniesFilter struct {
	companies map[string]struct{}
	names     []string
}

// NewExcludedCompanies creates a filter that removes prospects listed in the config.
func NewExcludedCompanies() Filter {
	return &excludedCompaniesFilter{}
}

func (f *excludedCompaniesFilter) Name() string { return "excluded_companies" }

func (f *excludedCompaniesFilter) Disable(string) {}

func (f *excludedCompaniesFilter) IsEnabled() bool { return true }

func (f *excludedCompaniesFilter) Validate(cfg *Config) error {
	f.companies = make(map[string]struct{})
	f.names = nil
	if cfg == nil {
		return nil
	}
	for _, name := range cfg.ExcludedCompanies {
		key := normalizeName(name)
		if key == "" {
			continue
		}
		f.companies[key] = struct{}{}
		f.names = append(f.names, strings.TrimSpace(name))
	}
	return nil
}

func (f *excludedCompaniesFilter) Apply(_ context.Context, deps Deps, p *Prospects) (*Prospects, Step, error) {
	initial := p.Len()
	if len(f.companies) == 0 {
		return p, Step{Initial: initial, Dropped: 0, Left: p.Len()}, nil
	}

	excluded := p.Exclude(func(item tabular.ProspectInput) bool {
		_, ok := f.companies[normalizeName(item.Firma)]
		return ok
	})
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding prospects by company name",
			zap.Strings("excluded_companies", f.names),
			zap.Strings("excluded_prospects", excluded),
			zap.Int("prospects_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(excluded), Left: p.Len()}, nil
}

func (f *excludedCompaniesFilter) Status() Status {
	details := map[string]string{}
	if len(f.names) > 0 {
		details["companies"] = strings.Join(f.names, ",")
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}

type excludeFileFilter struct {
	path string
}

// NewExcludeFile creates a filter that removes prospects contained in an exclude file.
func NewExcludeFile() Filter {
	return &excludeFileFilter{}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Disable(string) {}

func (f *excludeFileFilter) IsEnabled() bool { return true }

func (f *excludeFileFilter) Validate(cfg *Config) error {
	f.path = ""
	if cfg != nil {
		f.path = strings.TrimSpace(cfg.ExcludeFile)
	}
	return nil
}

func (f *excludeFileFilter) Apply(_ context.Context, deps Deps, p *Prospects) (*Prospects, Step, error) {
	initial := p.Len()
	if f.path == "" {
		return p, Step{Initial: initial, Dropped: 0, Left: p.Len()}, nil
	}

	excluded, err := LoadExcludedProspects(f.path)
	if err != nil {
		return p, Step{}, fmt.Errorf("getting excluded prospects from file: %w", err)
	}

	removed := p.Exclude(excluded.Contains)
	if deps.Logger != nil && len(removed) > 0 {
		deps.Logger.Info("excluding prospects based on exclude file",
			zap.String("path", f.path),
			zap.Strings("excluded_prospects", removed),
			zap.Int("prospects_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(removed), Left: p.Len()}, nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}

// ExcludedProspects is the content of an exclude file. Entries match by
// company name or by website host.
type ExcludedProspects struct {
	Companies []string `json:"companies"`
	URLs      []string `json:"urls"`

	names map[string]struct{}
	hosts map[string]struct{}
}

func LoadExcludedProspects(path string) (*ExcludedProspects, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var excluded ExcludedProspects
	if err := json.Unmarshal(data, &excluded); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	excluded.names = make(map[string]struct{}, len(excluded.Companies))
	for _, name := range excluded.Companies {
		if key := normalizeName(name); key != "" {
			excluded.names[key] = struct{}{}
		}
	}
	excluded.hosts = make(map[string]struct{}, len(excluded.URLs))
	for _, raw := range excluded.URLs {
		if host := hostOf(raw); host != "" {
			excluded.hosts[host] = struct{}{}
		}
	}

	return &excluded, nil
}

func (e *ExcludedProspects) Contains(item tabular.ProspectInput) bool {
	if _, ok := e.names[normalizeName(item.Firma)]; ok && item.Firma != "" {
		return true
	}
	if host := hostOf(item.URL); host != "" {
		_, ok := e.hosts[host]
		return ok
	}
	return false
}

func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// hostOf returns the lower-cased host of raw without a leading "www.".
// Scheme-less values such as "acme.example/about" are accepted.
func hostOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
