package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GLIDERPROFILE_"

// LoadEnv loads .env files into the process environment without overriding
// variables that are already set. With no arguments it loads ./.env if present.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("loading env files: %w", err)
	}
	return nil
}

// ApplyEnv overrides configuration values from GLIDERPROFILE_* environment variables.
func ApplyEnv(c *ConfigData) error {
	var errs []error

	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(EnvPrefix + key)); v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		v := strings.TrimSpace(os.Getenv(EnvPrefix + key))
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err))
			return
		}
		*dst = n
	}
	float := func(key string, dst *float64) {
		v := strings.TrimSpace(os.Getenv(EnvPrefix + key))
		if v == "" {
			return
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err))
			return
		}
		*dst = f
	}

	str("INTERVAL", &c.Segmentation.Interval)
	integer("SMOOTHING_WINDOW", &c.Segmentation.SmoothingWindow)
	str("EDGE", &c.Segmentation.Edge)
	str("INTERPOLATION", &c.Segmentation.Interpolation)
	integer("LOOK_AHEAD", &c.Segmentation.LookAhead)
	integer("DESPIKE_KERNEL", &c.Segmentation.DespikeKernel)
	integer("MAX_GRID_POINTS", &c.Segmentation.MaxGridPoints)

	float("MIN_DEPTH", &c.Filters.MinDepth)
	integer("MIN_POINTS", &c.Filters.MinPoints)
	float("MIN_SECONDS", &c.Filters.MinSeconds)
	float("MIN_DISTANCE", &c.Filters.MinDistance)
	str("FILTER_POLICY", &c.Filters.Policy)

	float("MERGE_TOLERANCE", &c.Merge.Tolerance)
	str("DBD2ASC", &c.Merge.Dbd2asc)
	str("CACHE_DIR", &c.Merge.CacheDir)

	str("OUTPUT_DIR", &c.Output.Dir)
	str("OUTPUT_FORMAT", &c.Output.Format)
	integer("PROFILE_BASE", &c.Output.ProfileBase)

	str("LEDGER_PATH", &c.Ledger.Path)
	integer("WORKERS", &c.Workers)

	return errors.Join(errs...)
}
