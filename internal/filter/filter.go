// Package filter drops or merges profiles that fail quality thresholds.
package filter

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/chrissnell/gliderprofile/internal/profile"
)

// Reason names the predicate that rejected a profile.
type Reason string

const (
	ReasonDepth    Reason = "depth"
	ReasonPoints   Reason = "points"
	ReasonTime     Reason = "time"
	ReasonDistance Reason = "distance"
)

// Filter is a per-profile predicate. Keep receives the timestamps and depths of one
// profile's rows.
type Filter struct {
	Reason Reason
	Keep   func(t, z []float64) bool
}

// Depth keeps profiles whose deepest valid sample is at least below.
func Depth(below float64) Filter {
	return Filter{
		Reason: ReasonDepth,
		Keep: func(_, z []float64) bool {
			zs := profile.ValidDepths(z)
			return len(zs) > 0 && floats.Max(zs) >= below
		},
	}
}

// Points keeps profiles with at least n rows, counting rows with missing depth.
func Points(n int) Filter {
	return Filter{
		Reason: ReasonPoints,
		Keep: func(t, _ []float64) bool {
			return len(t) >= n
		},
	}
}

// TimeSpan keeps profiles lasting at least seconds.
func TimeSpan(seconds float64) Filter {
	return Filter{
		Reason: ReasonTime,
		Keep: func(t, _ []float64) bool {
			ts := profile.Finite(t)
			return len(ts) > 0 && floats.Max(ts)-floats.Min(ts) >= seconds
		},
	}
}

// Distance keeps profiles whose vertical travel (max z - min z) is at least d.
func Distance(d float64) Filter {
	return Filter{
		Reason: ReasonDistance,
		Keep: func(_, z []float64) bool {
			zs := profile.ValidDepths(z)
			return len(zs) > 0 && floats.Max(zs)-floats.Min(zs) >= d
		},
	}
}

// Policy decides what happens to the rows of a failing profile.
type Policy int

const (
	// PolicyDrop removes the rows of failing profiles from the output.
	PolicyDrop Policy = iota
	// PolicyMerge folds a failing profile into the preceding surviving profile, or
	// into the following one when nothing precedes it. When no profile survives a
	// filter the rows are dropped as under PolicyDrop.
	PolicyMerge
)

// ParsePolicy maps a configuration string to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "drop":
		return PolicyDrop, nil
	case "merge":
		return PolicyMerge, nil
	default:
		return PolicyDrop, fmt.Errorf("unknown filter policy %q", s)
	}
}

func (p Policy) String() string {
	if p == PolicyMerge {
		return "merge"
	}
	return "drop"
}

// Params holds the thresholds of the default pipeline.
type Params struct {
	MinDepth    float64 // deepest sample must reach this depth (m)
	MinPoints   int     // rows per profile
	MinSeconds  float64 // duration of a profile
	MinDistance float64 // vertical travel (m)
	Policy      Policy
}

// DefaultParams returns the thresholds used for Slocum glider profiles.
func DefaultParams() Params {
	return Params{
		MinDepth:    1,
		MinPoints:   3,
		MinSeconds:  10,
		MinDistance: 1,
		Policy:      PolicyDrop,
	}
}

// Filters returns the default chain: depth, points, time, distance.
func (p Params) Filters() []Filter {
	return []Filter{
		Depth(p.MinDepth),
		Points(p.MinPoints),
		TimeSpan(p.MinSeconds),
		Distance(p.MinDistance),
	}
}
