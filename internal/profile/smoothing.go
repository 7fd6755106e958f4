package profile

import "fmt"

// EdgePolicy controls how the boxcar handles samples near the ends of a series.
type EdgePolicy int

const (
	// EdgeTruncate averages only the in-range samples of a window.
	EdgeTruncate EdgePolicy = iota
	// EdgeZeroPad treats out-of-range samples as zero and always divides by the window
	// size, like a same-length convolution.
	EdgeZeroPad
)

// ParseEdgePolicy maps a configuration string to an EdgePolicy.
func ParseEdgePolicy(s string) (EdgePolicy, error) {
	switch s {
	case "", "truncate":
		return EdgeTruncate, nil
	case "zero", "zeropad":
		return EdgeZeroPad, nil
	default:
		return EdgeTruncate, fmt.Errorf("unknown edge policy %q", s)
	}
}

func (e EdgePolicy) String() string {
	if e == EdgeZeroPad {
		return "zero"
	}
	return "truncate"
}

// Boxcar applies a moving average with a rectangular kernel and returns a series of
// the same length. Output i averages inputs [i-(w-1-s), i+s] with s = (w-1)/2, which
// is the alignment of a "same" convolution; for w=2 that is the pair (i-1, i).
func Boxcar(data []float64, window int, edge EdgePolicy) ([]float64, error) {
	if window < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWindow, window)
	}
	n := len(data)
	if n == 0 {
		return nil, ErrEmptySeries
	}

	after := (window - 1) / 2
	before := window - 1 - after

	// Prefix sums keep this O(n) regardless of window size.
	prefix := make([]float64, n+1)
	for i, v := range data {
		prefix[i+1] = prefix[i] + v
	}

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		lo := max(i-before, 0)
		hi := min(i+after, n-1)
		sum := prefix[hi+1] - prefix[lo]
		if edge == EdgeZeroPad {
			out[i] = sum / float64(window)
		} else {
			out[i] = sum / float64(hi-lo+1)
		}
	}
	return out, nil
}
