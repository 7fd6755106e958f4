// Package profile segments a glider depth time series into dive and climb profiles.
//
// A Table holds the telemetry as flat, row-aligned arrays: timestamps, depths, the
// assigned profile id and any number of optional sensor columns. The Assigner
// resamples and smooths depth onto a uniform grid, detects inflections, and maps
// them back onto the original rows as an exact partition.
package profile

import (
	"fmt"
	"math"
)

// NoProfile marks a row that does not belong to any profile.
const NoProfile = -1

// FillValue is the NetCDF default fill for doubles; sensors that report it have no data.
const FillValue = 9.969209968386869e36

// Table is a time-ordered telemetry table. T and Z are always present; other sensor
// channels live in a side table keyed by column name.
type Table struct {
	T       []float64 // seconds since epoch, NaN when missing
	Z       []float64 // depth in meters, positive down, NaN when missing
	Profile []int     // profile id per row, NoProfile when unassigned

	columns map[string][]float64
	units   map[string]string
	order   []string
}

// NewTable builds a table from timestamps and depths. Every row starts unassigned.
func NewTable(t, z []float64) (*Table, error) {
	if len(t) != len(z) {
		return nil, fmt.Errorf("%w: %d timestamps but %d depths", ErrMalformedInput, len(t), len(z))
	}
	tbl := &Table{
		T:       t,
		Z:       z,
		Profile: make([]int, len(t)),
		columns: make(map[string][]float64),
		units:   make(map[string]string),
	}
	for i := range tbl.Profile {
		tbl.Profile[i] = NoProfile
	}
	if err := tbl.Validate(); err != nil {
		return nil, err
	}
	return tbl, nil
}

// Validate checks column lengths and that non-missing timestamps never decrease.
func (tbl *Table) Validate() error {
	n := len(tbl.T)
	if len(tbl.Z) != n || len(tbl.Profile) != n {
		return fmt.Errorf("%w: column lengths t=%d z=%d profile=%d", ErrMalformedInput, n, len(tbl.Z), len(tbl.Profile))
	}
	for _, name := range tbl.order {
		if len(tbl.columns[name]) != n {
			return fmt.Errorf("%w: column %q has %d rows, want %d", ErrMalformedInput, name, len(tbl.columns[name]), n)
		}
	}

	last := math.Inf(-1)
	for i, t := range tbl.T {
		if math.IsNaN(t) {
			continue
		}
		if t < last {
			return fmt.Errorf("%w: timestamp %.3f at row %d precedes %.3f", ErrMalformedInput, t, i, last)
		}
		last = t
	}
	return nil
}

// Len returns the number of rows.
func (tbl *Table) Len() int {
	return len(tbl.T)
}

// AddColumn attaches an optional sensor channel. The values must be row-aligned.
func (tbl *Table) AddColumn(name, units string, values []float64) error {
	if len(values) != tbl.Len() {
		return fmt.Errorf("%w: column %q has %d rows, want %d", ErrMalformedInput, name, len(values), tbl.Len())
	}
	if _, exists := tbl.columns[name]; !exists {
		tbl.order = append(tbl.order, name)
	}
	tbl.columns[name] = values
	tbl.units[name] = units
	return nil
}

// Column returns the named sensor channel.
func (tbl *Table) Column(name string) ([]float64, bool) {
	values, ok := tbl.columns[name]
	return values, ok
}

// Units returns the units recorded for a column, if any.
func (tbl *Table) Units(name string) string {
	return tbl.units[name]
}

// Columns lists the optional channel names in insertion order.
func (tbl *Table) Columns() []string {
	return append([]string(nil), tbl.order...)
}

// Subset copies the given rows, in order, into a new table.
func (tbl *Table) Subset(rows []int) *Table {
	out := &Table{
		T:       make([]float64, len(rows)),
		Z:       make([]float64, len(rows)),
		Profile: make([]int, len(rows)),
		columns: make(map[string][]float64, len(tbl.columns)),
		units:   make(map[string]string, len(tbl.units)),
		order:   append([]string(nil), tbl.order...),
	}
	for i, r := range rows {
		out.T[i] = tbl.T[r]
		out.Z[i] = tbl.Z[r]
		out.Profile[i] = tbl.Profile[r]
	}
	for _, name := range tbl.order {
		src := tbl.columns[name]
		dst := make([]float64, len(rows))
		for i, r := range rows {
			dst[i] = src[r]
		}
		out.columns[name] = dst
		out.units[name] = tbl.units[name]
	}
	return out
}

// ResetProfiles marks every row unassigned.
func (tbl *Table) ResetProfiles() {
	for i := range tbl.Profile {
		tbl.Profile[i] = NoProfile
	}
}

// IsValidDepth reports whether z is a usable depth sample: finite, positive and not fill.
func IsValidDepth(z float64) bool {
	return !math.IsNaN(z) && z > 0 && z < 1e30
}

// ValidDepths returns the samples of z that pass IsValidDepth.
func ValidDepths(z []float64) []float64 {
	out := make([]float64, 0, len(z))
	for _, v := range z {
		if IsValidDepth(v) {
			out = append(out, v)
		}
	}
	return out
}
