package profile

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
)

// AssignParams defines parameters for profile segmentation.
type AssignParams struct {
	// Interval is the spacing of the uniform resampling grid (e.g., 5s)
	Interval time.Duration

	// SmoothingWindow is the boxcar width applied to resampled depth.
	// Zero derives it from Interval as max(1, seconds/2).
	SmoothingWindow int

	// Edge is the boxcar boundary policy used for both depth and direction smoothing
	Edge EdgePolicy

	// Interpolation selects linear or monotone cubic resampling
	Interpolation Interpolation

	// DespikeKernel is an optional odd running-median width applied to raw depth
	DespikeKernel int

	// BoundaryWindow is how far either side of a grid inflection the raw extremum is
	// searched for. Zero means 2 × Interval.
	BoundaryWindow time.Duration

	// LookAhead is the number of raw rows the reassignment pass inspects (e.g., 50)
	LookAhead int

	// MaxGridPoints caps the resampling grid; see ResampleParams.
	MaxGridPoints int
}

// DefaultAssignParams returns the parameters used for Slocum glider data.
func DefaultAssignParams() AssignParams {
	return AssignParams{
		Interval:      5 * time.Second,
		Edge:          EdgeTruncate,
		Interpolation: InterpLinear,
		LookAhead:     DefaultLookAhead,
		MaxGridPoints: DefaultMaxGridPoints,
	}
}

func (p AssignParams) smoothingWindow() int {
	if p.SmoothingWindow > 0 {
		return p.SmoothingWindow
	}
	return max(1, int(p.Interval.Seconds())/2)
}

func (p AssignParams) boundaryWindow() float64 {
	if p.BoundaryWindow > 0 {
		return p.BoundaryWindow.Seconds()
	}
	return 2 * p.Interval.Seconds()
}

// AssignResult reports what the assigner did to a table.
type AssignResult struct {
	Profiles    int // profiles after reassignment
	Inflections int // inflections detected on the grid
	GridPoints  int
	Reassigned  int // rows whose id the reassignment pass changed
	Unassigned  int // rows left outside every profile
}

// Assigner assigns profile ids to the rows of a Table.
type Assigner struct {
	params AssignParams
	logger *zap.SugaredLogger
}

// NewAssigner creates an Assigner.
func NewAssigner(params AssignParams, logger *zap.SugaredLogger) *Assigner {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Assigner{params: params, logger: logger}
}

// Params returns the assigner's parameters.
func (a *Assigner) Params() AssignParams {
	return a.params
}

// Assign writes a profile id to every row of tbl between the first and last usable
// depth sample, then runs the reassignment pass and renumbers ids densely from 0.
//
// When the table has fewer than two usable samples, every row is left as NoProfile
// and the returned error wraps ErrInsufficientData. Ids that come out of the
// reassignment pass out of order fail the table with ErrMalformedInput.
func (a *Assigner) Assign(tbl *Table) (AssignResult, error) {
	tbl.ResetProfiles()
	result := AssignResult{Unassigned: tbl.Len()}

	if err := tbl.Validate(); err != nil {
		return result, err
	}

	grid, err := Resample(tbl.T, tbl.Z, ResampleParams{
		Interval:      a.params.Interval,
		Method:        a.params.Interpolation,
		DespikeKernel: a.params.DespikeKernel,
		MaxGridPoints: a.params.MaxGridPoints,
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientData) {
			a.logger.Debugf("no profiles: %v", err)
		}
		return result, err
	}
	result.GridPoints = len(grid.T)

	smoothed, err := Boxcar(grid.Z, a.params.smoothingWindow(), a.params.Edge)
	if err != nil {
		return result, fmt.Errorf("smoothing resampled depth: %w", err)
	}
	dirs := Directions(smoothed)
	smoothedDirs, err := Boxcar(dirs, 2, a.params.Edge)
	if err != nil {
		return result, fmt.Errorf("smoothing directions: %w", err)
	}
	inflections := Inflections(smoothedDirs)
	result.Inflections = len(inflections)

	starts := a.profileStarts(grid, dirs, inflections)
	end := grid.Rows[len(grid.Rows)-1]
	for p, start := range starts {
		stop := end
		if p+1 < len(starts) {
			stop = starts[p+1] - 1
		}
		for r := start; r <= stop; r++ {
			tbl.Profile[r] = p
		}
	}

	result.Reassigned = Reassign(tbl.Z, tbl.Profile, a.params.LookAhead)
	if err := ValidateProfiles(tbl.Profile); err != nil {
		a.logger.Errorf("profile ids out of order after reassignment: %v", err)
		tbl.ResetProfiles()
		return result, fmt.Errorf("reassigning profiles: %w", err)
	}
	result.Profiles = Renumber(tbl.Profile, 0)
	result.Unassigned = Unassigned(tbl.Profile)

	a.logger.Debugf("%d grid points, %d inflections, %d profiles, %d rows reassigned, %d unassigned",
		result.GridPoints, result.Inflections, result.Profiles, result.Reassigned, result.Unassigned)

	return result, nil
}

// profileStarts maps grid inflections to the table row where each profile begins.
// The raw extremum row nearest each inflection closes the profile before it.
func (a *Assigner) profileStarts(g *Grid, dirs []float64, inflections []int) []int {
	starts := []int{g.Rows[0]}
	w := a.params.boundaryWindow()

	for _, b := range inflections {
		k := extremumSource(g, g.T[b], w, IsPeak(dirs, b))
		if k+1 >= len(g.Rows) {
			continue
		}
		if r := g.Rows[k] + 1; r > starts[len(starts)-1] {
			starts = append(starts, r)
		} else {
			a.logger.Debugf("inflection at t=%.1f collapses onto row %d, skipped", g.T[b], g.Rows[k])
		}
	}
	return starts
}

// extremumSource returns the index of the deepest (peak) or shallowest (valley)
// clean source sample within [tb-w, tb+w], or the sample nearest tb when none fall
// inside the window.
func extremumSource(g *Grid, tb, w float64, peak bool) int {
	ts, zs := g.SourceT, g.SourceZ
	lo := sort.SearchFloat64s(ts, tb-w)
	hi := sort.Search(len(ts), func(i int) bool { return ts[i] > tb+w })

	if lo >= hi {
		k := min(sort.SearchFloat64s(ts, tb), len(ts)-1)
		if k > 0 && math.Abs(ts[k-1]-tb) <= math.Abs(ts[k]-tb) {
			k--
		}
		return k
	}

	best := lo
	for j := lo + 1; j < hi; j++ {
		if (peak && zs[j] > zs[best]) || (!peak && zs[j] < zs[best]) {
			best = j
		}
	}
	return best
}
