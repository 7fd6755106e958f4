package profile

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/interp"
)

// Interpolation selects how depth is carried onto the uniform grid.
type Interpolation int

const (
	// InterpLinear is piecewise linear interpolation.
	InterpLinear Interpolation = iota
	// InterpMonotoneCubic is the Fritsch-Butland monotone cubic; it follows curvature
	// near turns without overshooting between samples.
	InterpMonotoneCubic
)

// ParseInterpolation maps a configuration string to an Interpolation.
func ParseInterpolation(s string) (Interpolation, error) {
	switch s {
	case "", "linear":
		return InterpLinear, nil
	case "monotone-cubic", "pchip":
		return InterpMonotoneCubic, nil
	default:
		return InterpLinear, fmt.Errorf("unknown interpolation %q", s)
	}
}

func (m Interpolation) String() string {
	if m == InterpMonotoneCubic {
		return "monotone-cubic"
	}
	return "linear"
}

// DefaultMaxGridPoints bounds the uniform grid: about 115 days at a 5s interval.
const DefaultMaxGridPoints = 2_000_000

// ResampleParams configures the uniform grid.
type ResampleParams struct {
	Interval time.Duration

	Method Interpolation

	// DespikeKernel, when > 1, runs an odd-sized running median over the raw source
	// depths before fitting.
	DespikeKernel int

	// MaxGridPoints rejects time spans that would need a larger grid, which is what
	// an unsynced clock produces. Zero means DefaultMaxGridPoints.
	MaxGridPoints int
}

func (p ResampleParams) maxGridPoints() int {
	if p.MaxGridPoints > 0 {
		return p.MaxGridPoints
	}
	return DefaultMaxGridPoints
}

// Grid is a depth series on a uniform time grid plus the clean source points it was
// fitted from.
type Grid struct {
	T []float64
	Z []float64

	// Rows holds the table row index of every clean source point, aligned with
	// SourceT and SourceZ.
	Rows    []int
	SourceT []float64
	SourceZ []float64
}

// CleanSource returns the rows usable for interpolation: timestamp present, depth
// valid (see IsValidDepth), and timestamp strictly greater than the previous kept row.
// Duplicate timestamps keep the first row.
func CleanSource(t, z []float64) (rows []int, ts, zs []float64) {
	for i := range t {
		if math.IsNaN(t[i]) || !IsValidDepth(z[i]) {
			continue
		}
		if n := len(ts); n > 0 && t[i] <= ts[n-1] {
			continue
		}
		rows = append(rows, i)
		ts = append(ts, t[i])
		zs = append(zs, z[i])
	}
	return rows, ts, zs
}

// Resample interpolates valid depths onto t0 + k*interval for k = 0..floor((tmax-t0)/interval).
// Values outside the source span are clamped to the first/last known depth.
func Resample(t, z []float64, params ResampleParams) (*Grid, error) {
	if len(t) != len(z) {
		return nil, fmt.Errorf("%w: %d timestamps but %d depths", ErrMalformedInput, len(t), len(z))
	}
	step := params.Interval.Seconds()
	if step <= 0 {
		return nil, fmt.Errorf("resample interval must be positive, got %s", params.Interval)
	}

	rows, ts, zs := CleanSource(t, z)
	if len(ts) < 2 {
		return nil, fmt.Errorf("%w: %d usable depth samples", ErrInsufficientData, len(ts))
	}

	if params.DespikeKernel > 1 {
		despiked, err := MedFilt(zs, params.DespikeKernel)
		if err != nil {
			return nil, fmt.Errorf("despiking depth: %w", err)
		}
		zs = despiked
	}

	span := ts[len(ts)-1] - ts[0]
	if points := math.Floor(span/step) + 1; points > float64(params.maxGridPoints()) {
		return nil, fmt.Errorf("%w: %.0fs between first and last sample needs %.0f grid points at %s, limit is %d",
			ErrMalformedInput, span, points, params.Interval, params.maxGridPoints())
	}
	n := int(math.Floor(span/step)) + 1
	if n < 2 {
		return nil, fmt.Errorf("%w: %.1fs of data is shorter than one %s interval",
			ErrInsufficientData, span, params.Interval)
	}

	predictor, err := fit(params.Method, ts, zs)
	if err != nil {
		return nil, err
	}

	g := &Grid{
		T:       make([]float64, n),
		Z:       make([]float64, n),
		Rows:    rows,
		SourceT: ts,
		SourceZ: zs,
	}
	for k := range g.T {
		g.T[k] = ts[0] + float64(k)*step
		g.Z[k] = predictor.Predict(g.T[k])
	}
	return g, nil
}

func fit(method Interpolation, xs, ys []float64) (interp.Predictor, error) {
	var fp interp.FittablePredictor = &interp.PiecewiseLinear{}
	if method == InterpMonotoneCubic && len(xs) >= 3 {
		fp = &interp.FritschButland{}
	}
	if err := fp.Fit(xs, ys); err != nil {
		return nil, errors.Join(ErrMalformedInput, fmt.Errorf("fitting %s interpolant: %w", method, err))
	}
	return fp, nil
}
