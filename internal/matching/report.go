package matching

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/spigell/prospect-matcher/internal/audience"
)

// Prospect is a company we want to find partners for.
type Prospect struct {
	ID    string
	URL   string
	Codes audience.CodeSet
}

// Partner is a company prospects can be matched with.
type Partner struct {
	ID              string
	EvaluationScore float64
	AvgLeadsPerDay  float64
	// Raw values as found in the input, echoed into the report.
	RawEvaluationScore string
	RawAvgLeadsPerDay  string
	Codes              audience.CodeSet
}

func (p Partner) Attributes() PartnerAttributes {
	return PartnerAttributes{
		EvaluationScore: p.EvaluationScore,
		AvgLeadsPerDay:  p.AvgLeadsPerDay,
	}
}

// MatchResult is one scored prospect/partner pair. MatchScore is always positive.
type MatchResult struct {
	ProspectID             string      `json:"prospect_firma"`
	ProspectURL            string      `json:"prospect_url,omitempty"`
	PartnerID              string      `json:"partner_name"`
	PartnerEvaluationScore float64     `json:"partner_evaluation_score"`
	PartnerAvgLeads        float64     `json:"partner_avg_leads"`
	PartnerRawEvaluation   string      `json:"-"`
	PartnerRawAvgLeads     string      `json:"-"`
	MatchScore             float64     `json:"match_score"`
	OverlapType            OverlapType `json:"overlap_type"`
}

// Stats describes a report run.
type Stats struct {
	Pairs int
	// Matches counts pairs with a positive score, before truncation.
	Matches int
	// ZeroScoreOverlaps counts pairs whose codes overlapped without any scored category.
	ZeroScoreOverlaps int
	Prospects         int
	Rows              int
}

type Report struct {
	Rows  []MatchResult
	Stats Stats
}

// Empty reports whether no prospect matched any partner.
func (r *Report) Empty() bool {
	return len(r.Rows) == 0
}

// ByProspect groups rows per prospect id, keeping the report order within each group.
func (r *Report) ByProspect() map[string][]MatchResult {
	grouped := make(map[string][]MatchResult)
	for _, row := range r.Rows {
		grouped[row.ProspectID] = append(grouped[row.ProspectID], row)
	}
	return grouped
}

type ReportOptions struct {
	// Workers bounds the number of prospects scored concurrently. Zero means GOMAXPROCS.
	Workers int
}

// BuildReport matches every prospect against every partner with the default
// weights and keeps the best matches per prospect.
func BuildReport(prospects []Prospect, partners []Partner) []MatchResult {
	report, _ := defaultScorer.Report(context.Background(), prospects, partners, ReportOptions{Workers: 1})
	return report.Rows
}

// partial is the reduced output for a single prospect.
type partial struct {
	best  *topK
	stats Stats
}

// Report scores the full cross product of prospects and partners.
//
// Rows are grouped per prospect id in the order prospects first produced a
// match, sorted by score descending and truncated to TopN. Equal scores keep
// prospect input order, then partner input order. The result does not depend
// on the number of workers.
func (s *Scorer) Report(ctx context.Context, prospects []Prospect, partners []Partner, opts ReportOptions) (Report, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	partials := make([]partial, len(prospects))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range prospects {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			partials[i] = s.scoreProspect(i, prospects[i], partners)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	var (
		stats   Stats
		order   []string
		buckets = make(map[string]*topK)
	)

	for _, p := range partials {
		stats.Pairs += p.stats.Pairs
		stats.Matches += p.stats.Matches
		stats.ZeroScoreOverlaps += p.stats.ZeroScoreOverlaps

		if p.best == nil || len(p.best.items) == 0 {
			continue
		}

		id := p.best.items[0].result.ProspectID
		bucket, ok := buckets[id]
		if !ok {
			bucket = newTopK(s.weights.TopN)
			buckets[id] = bucket
			order = append(order, id)
		}
		bucket.merge(p.best)
	}

	rows := make([]MatchResult, 0, len(order)*s.weights.TopN)
	for _, id := range order {
		for _, item := range buckets[id].sorted() {
			rows = append(rows, item.result)
		}
	}

	stats.Prospects = len(order)
	stats.Rows = len(rows)

	return Report{Rows: rows, Stats: stats}, nil
}

func (s *Scorer) scoreProspect(idx int, prospect Prospect, partners []Partner) partial {
	out := partial{stats: Stats{Pairs: len(partners)}}

	for j, partner := range partners {
		score, label := s.Score(prospect.Codes, partner.Codes, partner.Attributes())
		if label == OverlapUnknown {
			out.stats.ZeroScoreOverlaps++
		}
		if score <= 0 {
			continue
		}

		if out.best == nil {
			out.best = newTopK(s.weights.TopN)
		}
		out.stats.Matches++
		out.best.push(ranked{
			seq: idx*len(partners) + j,
			result: MatchResult{
				ProspectID:             prospect.ID,
				ProspectURL:            prospect.URL,
				PartnerID:              partner.ID,
				PartnerEvaluationScore: partner.EvaluationScore,
				PartnerAvgLeads:        partner.AvgLeadsPerDay,
				PartnerRawEvaluation:   partner.RawEvaluationScore,
				PartnerRawAvgLeads:     partner.RawAvgLeadsPerDay,
				MatchScore:             score,
				OverlapType:            label,
			},
		})
	}

	return out
}
