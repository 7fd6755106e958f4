// Package pipeline segments one telemetry table into profiles and applies the
// quality filters.
package pipeline

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/chrissnell/gliderprofile/internal/filter"
	"github.com/chrissnell/gliderprofile/internal/profile"
)

// Result is the outcome of processing one table.
type Result struct {
	// Table holds only the rows of surviving profiles, numbered densely from the
	// processor's base id. When no profile was found it is the input table.
	Table    *profile.Table
	Assign   profile.AssignResult
	Filter   filter.Stats
	Profiles []profile.Summary
}

// Processor runs assignment, reassignment and filtering on a table.
type Processor struct {
	assigner *profile.Assigner
	filters  *filter.Pipeline
	base     int
	logger   *zap.SugaredLogger
}

// NewProcessor builds a processor. base is the id given to the first surviving
// profile; 0 keeps the internal numbering, 1 matches the historical file convention.
func NewProcessor(assign profile.AssignParams, filters filter.Params, base int, logger *zap.SugaredLogger) *Processor {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Processor{
		assigner: profile.NewAssigner(assign, logger),
		filters:  filter.New(filters, logger),
		base:     base,
		logger:   logger,
	}
}

// Process segments tbl. The input table's profile column is overwritten with the
// unfiltered assignment.
//
// A table without enough usable depth samples is not an error for the batch: the
// returned Result carries the unmodified table with every row unassigned, and the
// error wraps profile.ErrInsufficientData so callers can tell the cases apart.
func (p *Processor) Process(tbl *profile.Table) (*Result, error) {
	params := p.assigner.Params()
	p.logger.Debugf("segmenting %d rows on a %s grid, look-ahead %d", tbl.Len(), params.Interval, params.LookAhead)

	assigned, err := p.assigner.Assign(tbl)
	if err != nil {
		if errors.Is(err, profile.ErrInsufficientData) {
			return &Result{Table: tbl, Assign: assigned, Filter: filter.Stats{Unassigned: tbl.Len()}}, err
		}
		return nil, fmt.Errorf("assigning profiles: %w", err)
	}

	out, stats := p.filters.Apply(tbl)
	profile.Renumber(out.Profile, p.base)

	res := &Result{
		Table:    out,
		Assign:   assigned,
		Filter:   stats,
		Profiles: profile.Summarize(out),
	}

	p.logger.Infof("%d candidate profiles, %d kept, %d removed (depth %d, points %d, time %d, distance %d), %d rows reassigned, %d rows unassigned",
		assigned.Profiles, stats.Kept, stats.Total,
		stats.Removed[filter.ReasonDepth], stats.Removed[filter.ReasonPoints],
		stats.Removed[filter.ReasonTime], stats.Removed[filter.ReasonDistance],
		assigned.Reassigned, assigned.Unassigned)
	if assigned.Unassigned > 0 {
		p.logger.Debugf("%d rows outside any profile", assigned.Unassigned)
	}

	return res, nil
}
