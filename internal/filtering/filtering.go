package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/prospect-matcher/internal/tabular"
)

// Filter represents a single filtering step applied to prospect rows.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(cfg *Config) error
	Apply(ctx context.Context, deps Deps, p *Prospects) (*Prospects, Step, error)
}

// Deps aggregates dependencies shared across all filtering steps.
type Deps struct {
	Logger *zap.Logger
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Config contains configuration settings consumed by the filters.
type Config struct {
	ExcludedCompanies []string `mapstructure:"excluded-companies"`
	ExcludeFile       string   `mapstructure:"exclude-file"`
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// statusProvider is implemented by filters that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// Default returns the standard filter chain for the prospects export.
func Default() []Filter {
	return []Filter{NewMissingURL(), NewExcludedCompanies(), NewExcludeFile()}
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run executes the supplied filters sequentially and returns the rows left.
func Run(ctx context.Context, cfg *Config, deps Deps, steps []Filter, p *Prospects) (*Prospects, error) {
	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			if deps.Logger != nil {
				deps.Logger.Info("filter disabled", zap.String("name", step.Name()))
			}
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next, info, err := step.Apply(ctx, deps, p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		if deps.Logger != nil {
			deps.Logger.Info("filter step",
				zap.String("name", step.Name()),
				zap.Int("initial", info.Initial),
				zap.Int("dropped", info.Dropped),
				zap.Int("left", info.Left),
			)
		}

		p = next
	}

	return p, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

// Prospects is the working set of prospect rows passed between filters.
type Prospects struct {
	Items []tabular.ProspectInput
}

// NewProspects copies items so filters never modify the caller's slice.
func NewProspects(items []tabular.ProspectInput) *Prospects {
	return &Prospects{Items: append([]tabular.ProspectInput(nil), items...)}
}

func (p *Prospects) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Items)
}

// Exclude drops every row matching drop and returns the firma of each dropped row.
func (p *Prospects) Exclude(drop func(tabular.ProspectInput) bool) []string {
	kept := p.Items[:0]
	var excluded []string
	for _, item := range p.Items {
		if drop(item) {
			excluded = append(excluded, item.Firma)
			continue
		}
		kept = append(kept, item)
	}
	p.Items = kept
	return excluded
}
