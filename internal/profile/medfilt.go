package profile

import (
	"fmt"
	"sort"
)

// MedFilt applies a running median with a truncated window at the edges. It is used
// to knock single-sample pressure spikes out of raw depth before interpolation.
// kernelSize must be a positive odd integer.
func MedFilt(data []float64, kernelSize int) ([]float64, error) {
	if kernelSize < 1 || kernelSize%2 == 0 {
		return nil, fmt.Errorf("%w: median kernel must be odd, got %d", ErrInvalidWindow, kernelSize)
	}
	n := len(data)
	if n == 0 {
		return nil, ErrEmptySeries
	}

	half := kernelSize / 2
	result := make([]float64, n)
	window := make([]float64, 0, kernelSize)

	for i := 0; i < n; i++ {
		window = window[:0]
		for j := max(i-half, 0); j <= min(i+half, n-1); j++ {
			window = append(window, data[j])
		}
		sort.Float64s(window)

		m := len(window)
		if m%2 == 1 {
			result[i] = window[m/2]
		} else {
			result[i] = (window[m/2-1] + window[m/2]) / 2
		}
	}
	return result, nil
}
