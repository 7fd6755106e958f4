package profile

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Span is one profile expressed as a half-open row range [Start, End).
type Span struct {
	ID    int
	Start int
	End   int
}

// Len returns the number of rows in the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Spans returns the contiguous runs of assigned rows, in row order.
func Spans(ids []int) []Span {
	var spans []Span
	for i, id := range ids {
		if id == NoProfile {
			continue
		}
		if n := len(spans); n > 0 && spans[n-1].ID == id && spans[n-1].End == i {
			spans[n-1].End = i + 1
			continue
		}
		spans = append(spans, Span{ID: id, Start: i, End: i + 1})
	}
	return spans
}

// Renumber rewrites profile ids as a dense sequence starting at base, in row order,
// and returns the number of profiles. Renumbering an already dense sequence with the
// same base is a no-op.
func Renumber(ids []int, base int) int {
	next := base - 1
	prevOld := NoProfile
	for i, id := range ids {
		if id == NoProfile {
			continue
		}
		if id != prevOld {
			next++
			prevOld = id
		}
		ids[i] = next
	}
	return next - base + 1
}

// ValidateProfiles checks that ids never decrease in row order and that no id is
// interrupted by a different id and later resumed.
func ValidateProfiles(ids []int) error {
	last := NoProfile
	lastRow := -1
	for i, id := range ids {
		if id == NoProfile {
			continue
		}
		if last != NoProfile && id < last {
			return fmt.Errorf("%w: profile %d at row %d follows profile %d at row %d",
				ErrMalformedInput, id, i, last, lastRow)
		}
		last, lastRow = id, i
	}
	return nil
}

// Unassigned counts rows without a profile.
func Unassigned(ids []int) int {
	n := 0
	for _, id := range ids {
		if id == NoProfile {
			n++
		}
	}
	return n
}

// Summary describes one profile of a table.
type Summary struct {
	ID        int       `json:"id"`
	StartRow  int       `json:"start_row"`
	EndRow    int       `json:"end_row"`
	Rows      int       `json:"rows"`
	StartTime float64   `json:"start_time"`
	EndTime   float64   `json:"end_time"`
	MinDepth  float64   `json:"min_depth"`
	MaxDepth  float64   `json:"max_depth"`
	MeanDepth float64   `json:"mean_depth"`
	Direction Direction `json:"direction"`
}

// Summarize computes per-profile bounds. Missing and fill values are ignored; a
// profile with no valid depth reports NaN depth bounds.
func Summarize(tbl *Table) []Summary {
	spans := Spans(tbl.Profile)
	out := make([]Summary, 0, len(spans))
	for _, sp := range spans {
		ts := Finite(tbl.T[sp.Start:sp.End])
		zs := ValidDepths(tbl.Z[sp.Start:sp.End])

		s := Summary{
			ID:        sp.ID,
			StartRow:  sp.Start,
			EndRow:    sp.End - 1,
			Rows:      sp.Len(),
			StartTime: math.NaN(),
			EndTime:   math.NaN(),
			MinDepth:  math.NaN(),
			MaxDepth:  math.NaN(),
			MeanDepth: math.NaN(),
		}
		if len(ts) > 0 {
			s.StartTime = floats.Min(ts)
			s.EndTime = floats.Max(ts)
		}
		if len(zs) > 0 {
			s.MinDepth = floats.Min(zs)
			s.MaxDepth = floats.Max(zs)
			s.MeanDepth = stat.Mean(zs, nil)
			s.Direction = step(zs[0], zs[len(zs)-1])
		}
		out = append(out, s)
	}
	return out
}

// Finite returns the values of v that are neither NaN nor infinite.
func Finite(v []float64) []float64 {
	out := make([]float64, 0, len(v))
	for _, x := range v {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			out = append(out, x)
		}
	}
	return out
}
