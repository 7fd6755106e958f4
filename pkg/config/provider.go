package config

import (
	"errors"
	"fmt"
	"time"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetSegmentation() (*SegmentationData, error)
	GetFilters() (*FilterData, error)
	GetOutput() (*OutputData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Segmentation SegmentationData `json:"segmentation"`
	Filters      FilterData       `json:"filters"`
	Merge        MergeData        `json:"merge"`
	Output       OutputData       `json:"output"`
	Ledger       LedgerData       `json:"ledger"`
	Workers      int              `json:"workers"`
}

// SegmentationData holds the profile assignment parameters
type SegmentationData struct {
	Interval        string `json:"interval"`
	SmoothingWindow int    `json:"smoothing_window,omitempty"`
	Edge            string `json:"edge,omitempty"`
	Interpolation   string `json:"interpolation,omitempty"`
	LookAhead       int    `json:"look_ahead,omitempty"`
	DespikeKernel   int    `json:"despike_kernel,omitempty"`
	MaxGridPoints   int    `json:"max_grid_points,omitempty"`
}

// FilterData holds the profile quality thresholds
type FilterData struct {
	MinDepth    float64 `json:"min_depth"`
	MinPoints   int     `json:"min_points"`
	MinSeconds  float64 `json:"min_seconds"`
	MinDistance float64 `json:"min_distance"`
	Policy      string  `json:"policy,omitempty"`
}

// MergeData configures the flight/science stream merge
type MergeData struct {
	Tolerance float64 `json:"tolerance"`
	Dbd2asc   string  `json:"dbd2asc,omitempty"`
	CacheDir  string  `json:"cache_dir,omitempty"`
}

// OutputData configures the profile export
type OutputData struct {
	Dir         string `json:"dir"`
	Format      string `json:"format,omitempty"`
	ProfileBase int    `json:"profile_base"`
}

// LedgerData configures the run ledger. An empty path disables it.
type LedgerData struct {
	Path string `json:"path,omitempty"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *ConfigData {
	return &ConfigData{
		Segmentation: SegmentationData{
			Interval:      "5s",
			Edge:          "truncate",
			Interpolation: "linear",
			LookAhead:     50,
			MaxGridPoints: 2000000,
		},
		Filters: FilterData{
			MinDepth:    1,
			MinPoints:   3,
			MinSeconds:  10,
			MinDistance: 1,
			Policy:      "drop",
		},
		Merge:   MergeData{Tolerance: 1},
		Output:  OutputData{Dir: "profiles", Format: "json", ProfileBase: 1},
		Workers: 4,
	}
}

// IntervalDuration parses the resampling interval.
func (s SegmentationData) IntervalDuration() (time.Duration, error) {
	d, err := time.ParseDuration(s.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid segmentation interval %q: %w", s.Interval, err)
	}
	return d, nil
}

// Validate reports every invalid setting.
func (c *ConfigData) Validate() error {
	var errs []error

	d, err := c.Segmentation.IntervalDuration()
	if err != nil {
		errs = append(errs, err)
	} else if d <= 0 {
		errs = append(errs, fmt.Errorf("segmentation interval must be positive, got %s", d))
	}
	if c.Segmentation.SmoothingWindow < 0 {
		errs = append(errs, fmt.Errorf("smoothing_window must not be negative"))
	}
	switch c.Segmentation.Edge {
	case "", "truncate", "zero", "zeropad":
	default:
		errs = append(errs, fmt.Errorf("unknown edge policy %q", c.Segmentation.Edge))
	}
	switch c.Segmentation.Interpolation {
	case "", "linear", "monotone-cubic", "pchip":
	default:
		errs = append(errs, fmt.Errorf("unknown interpolation %q", c.Segmentation.Interpolation))
	}
	if c.Segmentation.LookAhead < 0 {
		errs = append(errs, fmt.Errorf("look_ahead must not be negative"))
	}
	if c.Segmentation.MaxGridPoints < 0 {
		errs = append(errs, fmt.Errorf("max_grid_points must not be negative"))
	}
	if k := c.Segmentation.DespikeKernel; k < 0 || (k > 0 && k%2 == 0) {
		errs = append(errs, fmt.Errorf("despike_kernel must be zero or odd, got %d", k))
	}

	if c.Filters.MinPoints < 0 || c.Filters.MinSeconds < 0 || c.Filters.MinDistance < 0 {
		errs = append(errs, fmt.Errorf("filter thresholds must not be negative"))
	}
	switch c.Filters.Policy {
	case "", "drop", "merge":
	default:
		errs = append(errs, fmt.Errorf("unknown filter policy %q", c.Filters.Policy))
	}

	if c.Merge.Tolerance < 0 {
		errs = append(errs, fmt.Errorf("merge tolerance must not be negative"))
	}

	switch c.Output.Format {
	case "", "json", "msgpack":
	default:
		errs = append(errs, fmt.Errorf("unknown output format %q", c.Output.Format))
	}
	if c.Output.Dir == "" {
		errs = append(errs, fmt.Errorf("output dir is required"))
	}

	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}

	return errors.Join(errs...)
}
