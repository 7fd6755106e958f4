package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from YAML file. Keys missing from the
// file keep their DefaultConfig values.
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	if y.config != nil {
		return y.config, nil
	}

	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	def := DefaultConfig()

	// Load into temporary struct with YAML tags
	yamlConfig := struct {
		Segmentation SegmentationYAML `yaml:"segmentation"`
		Filters      FilterYAML       `yaml:"filters"`
		Merge        MergeYAML        `yaml:"merge"`
		Output       OutputYAML       `yaml:"output"`
		Ledger       LedgerYAML       `yaml:"ledger"`
		Workers      int              `yaml:"workers"`
	}{
		Segmentation: SegmentationYAML(def.Segmentation),
		Filters:      FilterYAML(def.Filters),
		Merge:        MergeYAML(def.Merge),
		Output:       OutputYAML(def.Output),
		Ledger:       LedgerYAML(def.Ledger),
		Workers:      def.Workers,
	}

	if err := yaml.UnmarshalStrict(cfgFile, &yamlConfig); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", y.filename, err)
	}

	// Convert to our internal format
	y.config = &ConfigData{
		Segmentation: SegmentationData(yamlConfig.Segmentation),
		Filters:      FilterData(yamlConfig.Filters),
		Merge:        MergeData(yamlConfig.Merge),
		Output:       OutputData(yamlConfig.Output),
		Ledger:       LedgerData(yamlConfig.Ledger),
		Workers:      yamlConfig.Workers,
	}
	return y.config, nil
}

// GetSegmentation returns segmentation configuration
func (y *YAMLProvider) GetSegmentation() (*SegmentationData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return &config.Segmentation, nil
}

// GetFilters returns filter configuration
func (y *YAMLProvider) GetFilters() (*FilterData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return &config.Filters, nil
}

// GetOutput returns output configuration
func (y *YAMLProvider) GetOutput() (*OutputData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return &config.Output, nil
}

// IsReadOnly returns true for YAML files (read-only)
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// YAML-specific structs with yaml tags

type SegmentationYAML struct {
	Interval        string `yaml:"interval"`
	SmoothingWindow int    `yaml:"smoothing_window,omitempty"`
	Edge            string `yaml:"edge,omitempty"`
	Interpolation   string `yaml:"interpolation,omitempty"`
	LookAhead       int    `yaml:"look_ahead,omitempty"`
	DespikeKernel   int    `yaml:"despike_kernel,omitempty"`
	MaxGridPoints   int    `yaml:"max_grid_points,omitempty"`
}

type FilterYAML struct {
	MinDepth    float64 `yaml:"min_depth"`
	MinPoints   int     `yaml:"min_points"`
	MinSeconds  float64 `yaml:"min_seconds"`
	MinDistance float64 `yaml:"min_distance"`
	Policy      string  `yaml:"policy,omitempty"`
}

type MergeYAML struct {
	Tolerance float64 `yaml:"tolerance"`
	Dbd2asc   string  `yaml:"dbd2asc,omitempty"`
	CacheDir  string  `yaml:"cache_dir,omitempty"`
}

type OutputYAML struct {
	Dir         string `yaml:"dir"`
	Format      string `yaml:"format,omitempty"`
	ProfileBase int    `yaml:"profile_base"`
}

type LedgerYAML struct {
	Path string `yaml:"path,omitempty"`
}
