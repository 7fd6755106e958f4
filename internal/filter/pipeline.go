package filter

import (
	"go.uber.org/zap"

	"github.com/chrissnell/gliderprofile/internal/profile"
)

// Stats counts what a pipeline run removed.
type Stats struct {
	Removed    map[Reason]int `json:"removed"`
	Merged     int            `json:"merged"`     // failing profiles folded into a neighbor (PolicyMerge)
	Total      int            `json:"total"`      // profiles removed or merged across all filters
	Kept       int            `json:"kept"`       // profiles in the output
	Unassigned int            `json:"unassigned"` // input rows excluded for having no profile
}

// Pipeline applies filters in order, renumbering surviving profiles after each one.
type Pipeline struct {
	filters []Filter
	policy  Policy
	logger  *zap.SugaredLogger
}

// New builds the default depth → points → time → distance pipeline.
func New(params Params, logger *zap.SugaredLogger) *Pipeline {
	return NewPipeline(params.Policy, logger, params.Filters()...)
}

// NewPipeline builds a pipeline from an explicit list of filters.
func NewPipeline(policy Policy, logger *zap.SugaredLogger, filters ...Filter) *Pipeline {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Pipeline{filters: filters, policy: policy, logger: logger}
}

// Apply returns a new table holding only rows of surviving profiles, with ids
// renumbered densely from 0. The input table is not modified.
func (p *Pipeline) Apply(tbl *profile.Table) (*profile.Table, Stats) {
	stats := Stats{Removed: make(map[Reason]int, len(p.filters))}

	assigned := make([]int, 0, tbl.Len())
	for i, id := range tbl.Profile {
		if id != profile.NoProfile {
			assigned = append(assigned, i)
		}
	}
	stats.Unassigned = tbl.Len() - len(assigned)

	out := tbl.Subset(assigned)
	profile.Renumber(out.Profile, 0)

	for _, f := range p.filters {
		var failed, merged int
		out, failed, merged = p.step(out, f)
		stats.Removed[f.Reason] += failed
		stats.Total += failed
		stats.Merged += merged
		p.logger.Debugf("%s filter rejected %d profiles", f.Reason, failed)
	}

	stats.Kept = len(profile.Spans(out.Profile))
	return out, stats
}

// step returns the filtered table, the number of failing profiles and how many of
// those were merged. Under PolicyMerge a step where every profile fails has no
// neighbor to merge into, so its rows are dropped.
func (p *Pipeline) step(tbl *profile.Table, f Filter) (*profile.Table, int, int) {
	spans := profile.Spans(tbl.Profile)
	pass := make([]bool, len(spans))
	failed := 0
	firstPass := -1
	for i, sp := range spans {
		pass[i] = f.Keep(tbl.T[sp.Start:sp.End], tbl.Z[sp.Start:sp.End])
		if !pass[i] {
			failed++
		} else if firstPass < 0 {
			firstPass = i
		}
	}
	if failed == 0 {
		return tbl, 0, 0
	}

	if p.policy == PolicyMerge && firstPass >= 0 {
		target := spans[firstPass].ID
		for i, sp := range spans {
			if pass[i] {
				target = sp.ID
				continue
			}
			for r := sp.Start; r < sp.End; r++ {
				tbl.Profile[r] = target
			}
		}
		profile.Renumber(tbl.Profile, 0)
		return tbl, failed, failed
	}
	if p.policy == PolicyMerge {
		p.logger.Debugf("%s filter rejected all %d profiles, nothing to merge into", f.Reason, failed)
	}

	keep := make([]int, 0, tbl.Len())
	for i, sp := range spans {
		if !pass[i] {
			continue
		}
		for r := sp.Start; r < sp.End; r++ {
			keep = append(keep, r)
		}
	}
	out := tbl.Subset(keep)
	profile.Renumber(out.Profile, 0)
	return out, failed, 0
}
