package gbdr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Converter runs the vendor dbd2asc tool to turn binary glider files into ASCII.
type Converter struct {
	binary   string
	cacheDir string
	logger   *zap.SugaredLogger
}

// NewConverter creates a Converter. cacheDir holds the sensor-list cache files
// dbd2asc needs to decode compressed headers; it may be empty.
func NewConverter(binary, cacheDir string, logger *zap.SugaredLogger) *Converter {
	if binary == "" {
		binary = "dbd2asc"
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Converter{binary: binary, cacheDir: cacheDir, logger: logger}
}

// Convert decodes one binary file and returns a Reader over the ASCII output.
func (c *Converter) Convert(ctx context.Context, path string) (*Reader, error) {
	var args []string
	if c.cacheDir != "" {
		args = append(args, "-c", c.cacheDir)
	}
	args = append(args, path)

	cmd := exec.CommandContext(ctx, c.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.Debugf("running %s %s", c.binary, strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s %s: %w: %s", c.binary, path, err, strings.TrimSpace(stderr.String()))
	}

	rd, err := NewReader(&stdout)
	if err != nil {
		return nil, fmt.Errorf("parsing %s output for %s: %w", c.binary, path, err)
	}
	return rd, nil
}

// MergePair converts a flight file and its science counterpart and returns a reader
// over the merged stream.
func (c *Converter) MergePair(ctx context.Context, flightPath, sciencePath string, tolerance float64) (*MergedReader, error) {
	flight, err := c.Convert(ctx, flightPath)
	if err != nil {
		return nil, err
	}
	science, err := c.Convert(ctx, sciencePath)
	if err != nil {
		return nil, err
	}
	return NewMergedReader(flight, science, tolerance), nil
}
