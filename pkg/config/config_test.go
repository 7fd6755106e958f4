package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	d, err := cfg.Segmentation.IntervalDuration()
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, d)
}

func TestYAMLProvider(t *testing.T) {
	path := writeFile(t, "config.yaml", `
segmentation:
  interval: 2s
  interpolation: monotone-cubic
  max_grid_points: 500000
filters:
  min_points: 5
  policy: merge
output:
  dir: /tmp/profiles
  format: msgpack
ledger:
  path: /tmp/ledger.db
workers: 8
`)
	p := NewYAMLProvider(path)
	defer p.Close()

	cfg, err := p.LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, "2s", cfg.Segmentation.Interval)
	require.Equal(t, "monotone-cubic", cfg.Segmentation.Interpolation)
	require.Equal(t, 500000, cfg.Segmentation.MaxGridPoints)
	require.Equal(t, 50, cfg.Segmentation.LookAhead, "unset keys keep defaults")
	require.Equal(t, 5, cfg.Filters.MinPoints)
	require.Equal(t, 10.0, cfg.Filters.MinSeconds)
	require.Equal(t, "merge", cfg.Filters.Policy)
	require.Equal(t, 1.0, cfg.Merge.Tolerance)
	require.Equal(t, "msgpack", cfg.Output.Format)
	require.Equal(t, 1, cfg.Output.ProfileBase)
	require.Equal(t, "/tmp/ledger.db", cfg.Ledger.Path)
	require.Equal(t, 8, cfg.Workers)

	filters, err := p.GetFilters()
	require.NoError(t, err)
	require.Equal(t, 5, filters.MinPoints)
	require.True(t, p.IsReadOnly())
}

func TestYAMLProviderErrors(t *testing.T) {
	_, err := NewYAMLProvider(filepath.Join(t.TempDir(), "missing.yaml")).LoadConfig()
	require.Error(t, err)

	path := writeFile(t, "bad.yaml", "segmentation:\n  intervall: 2s\n")
	_, err = NewYAMLProvider(path).LoadConfig()
	require.Error(t, err, "unknown keys are rejected")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*ConfigData)
	}{
		{"bad interval", func(c *ConfigData) { c.Segmentation.Interval = "soon" }},
		{"zero interval", func(c *ConfigData) { c.Segmentation.Interval = "0s" }},
		{"even despike kernel", func(c *ConfigData) { c.Segmentation.DespikeKernel = 4 }},
		{"unknown edge", func(c *ConfigData) { c.Segmentation.Edge = "mirror" }},
		{"unknown interpolation", func(c *ConfigData) { c.Segmentation.Interpolation = "spline" }},
		{"unknown policy", func(c *ConfigData) { c.Filters.Policy = "keep" }},
		{"negative grid limit", func(c *ConfigData) { c.Segmentation.MaxGridPoints = -1 }},
		{"negative points", func(c *ConfigData) { c.Filters.MinPoints = -1 }},
		{"unknown format", func(c *ConfigData) { c.Output.Format = "netcdf" }},
		{"no output dir", func(c *ConfigData) { c.Output.Dir = "" }},
		{"no workers", func(c *ConfigData) { c.Workers = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestApplyEnv(t *testing.T) {
	envFile := writeFile(t, "test.env", "GLIDERPROFILE_OUTPUT_DIR=/data/out\nGLIDERPROFILE_WORKERS=2\n")
	t.Setenv("GLIDERPROFILE_OUTPUT_DIR", "")
	t.Setenv("GLIDERPROFILE_WORKERS", "")
	os.Unsetenv("GLIDERPROFILE_OUTPUT_DIR")
	os.Unsetenv("GLIDERPROFILE_WORKERS")
	t.Setenv("GLIDERPROFILE_INTERVAL", "3s")
	t.Setenv("GLIDERPROFILE_MIN_DEPTH", "2.5")

	require.NoError(t, LoadEnv(envFile))

	cfg := DefaultConfig()
	require.NoError(t, ApplyEnv(cfg))
	require.Equal(t, "/data/out", cfg.Output.Dir)
	require.Equal(t, 2, cfg.Workers)
	require.Equal(t, "3s", cfg.Segmentation.Interval)
	require.Equal(t, 2.5, cfg.Filters.MinDepth)

	t.Setenv("GLIDERPROFILE_MIN_POINTS", "many")
	require.Error(t, ApplyEnv(DefaultConfig()))
}

func TestLoadEnvMissingDefaultFile(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })

	require.NoError(t, LoadEnv())
}
