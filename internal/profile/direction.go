package profile

// Direction is the vertical sense of motion. Depth is positive down, so a
// descending glider has increasing depth.
type Direction int

const (
	Unknown    Direction = 0
	Ascending  Direction = -1
	Descending Direction = 1
)

func (d Direction) String() string {
	switch d {
	case Ascending:
		return "ascending"
	case Descending:
		return "descending"
	default:
		return "unknown"
	}
}

// step classifies the move from a to b; equal depths are Unknown.
func step(a, b float64) Direction {
	switch {
	case b > a:
		return Descending
	case b < a:
		return Ascending
	default:
		return Unknown
	}
}

// Directions binarizes the first differences of z into -1 (ascending) and +1
// (descending). A zero difference repeats the previous direction; a leading zero
// difference counts as descending. The result has len(z)-1 elements.
func Directions(z []float64) []float64 {
	if len(z) < 2 {
		return nil
	}
	dirs := make([]float64, len(z)-1)
	prev := Descending
	for i := range dirs {
		if d := step(z[i], z[i+1]); d != Unknown {
			prev = d
		}
		dirs[i] = float64(prev)
	}
	return dirs
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// Inflections returns the ascending indices of depth extrema given a direction
// sequence smoothed with a 2-sample boxcar.
//
// The 2-sample boxcar turns every reversal into a zero midpoint, so a raw
// diff != 0 test reports each reversal twice. Instead, each change of sign between
// non-zero smoothed values yields one boundary at the extremum: if the new sign
// first appears at i, the extremum is depth index i-1. A zero run with the same sign
// on both sides is single-sample jitter and yields nothing.
func Inflections(smoothed []float64) []int {
	if len(smoothed) == 0 {
		return nil
	}
	var out []int
	last := sign(smoothed[0])
	for i := 1; i < len(smoothed); i++ {
		s := sign(smoothed[i])
		if s == 0 {
			continue
		}
		if last != 0 && s != last {
			out = append(out, i-1)
		}
		last = s
	}
	return out
}

// IsPeak reports whether the extremum at inflection b of the direction sequence dirs
// is a local depth maximum (descent turning into ascent).
func IsPeak(dirs []float64, b int) bool {
	return b < len(dirs) && dirs[b] < 0
}

// LookAhead runs the inflection logic over the raw valid depths in z[start:start+n].
// It returns the first direction that holds for more than one sample, and whether
// exactly one inflection (a curve) lies inside the window.
func LookAhead(z []float64, start, n int) (Direction, bool) {
	end := min(start+n, len(z))
	vals := make([]float64, 0, max(end-start, 0))
	for i := start; i < end; i++ {
		if IsValidDepth(z[i]) {
			vals = append(vals, z[i])
		}
	}
	if len(vals) < 2 {
		return Unknown, false
	}

	// Cannot fail: window 2 is valid and dirs is non-empty.
	smoothed, _ := Boxcar(Directions(vals), 2, EdgeTruncate)
	curve := len(Inflections(smoothed)) == 1

	dir := sign(smoothed[0])
	for _, v := range smoothed[1:] {
		if s := sign(v); s != 0 {
			dir = s
			break
		}
	}
	return Direction(dir), curve
}
