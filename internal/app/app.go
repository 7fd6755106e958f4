// Package app runs the batch profile segmentation over a set of input files.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chrissnell/gliderprofile/internal/export"
	"github.com/chrissnell/gliderprofile/internal/filter"
	"github.com/chrissnell/gliderprofile/internal/ledger"
	"github.com/chrissnell/gliderprofile/internal/pipeline"
	"github.com/chrissnell/gliderprofile/internal/profile"
	"github.com/chrissnell/gliderprofile/internal/slocum"
	"github.com/chrissnell/gliderprofile/pkg/config"
)

// FileResult is the outcome of one input file.
type FileResult struct {
	Path     string
	Status   string // ledger.FileOK, ledger.FileEmpty or ledger.FileFailed
	Err      error
	Profiles int
	Outputs  []string
}

// Report summarises a run.
type Report struct {
	RunID     string
	Status    string
	Files     []FileResult
	Processed int
	Empty     int
	Failed    int
	Profiles  int
}

// App represents the batch application
type App struct {
	cfg     *config.ConfigData
	assign  profile.AssignParams
	filters filter.Params
	writer  *export.Writer
	logger  *zap.SugaredLogger
}

// New validates the configuration and creates a new application instance
func New(cfg *config.ConfigData, logger *zap.SugaredLogger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	assign, err := AssignParams(cfg.Segmentation)
	if err != nil {
		return nil, err
	}
	filters, err := FilterParams(cfg.Filters)
	if err != nil {
		return nil, err
	}
	format, err := OutputFormat(cfg.Output)
	if err != nil {
		return nil, err
	}
	writer, err := export.NewWriter(cfg.Output.Dir, format, logger)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:     cfg,
		assign:  assign,
		filters: filters,
		writer:  writer,
		logger:  logger,
	}, nil
}

// Run processes files with at most cfg.Workers in flight. A file that cannot be
// read or segmented is recorded as failed and the run continues; ledger errors and
// cancellation (including SIGINT/SIGTERM) stop the run.
func (a *App) Run(ctx context.Context, files []string) (*Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case <-sigs:
			a.logger.Info("shutdown signal received, finishing files in progress...")
			cancel()
		case <-ctx.Done():
		}
	}()

	report := &Report{RunID: uuid.NewString(), Files: make([]FileResult, len(files))}
	logger := a.logger.With("run", report.RunID)

	// Ledger writes outlive cancellation so the record of finished files stays complete.
	lctx := context.WithoutCancel(ctx)

	var led *ledger.Ledger
	if a.cfg.Ledger.Path != "" {
		var err error
		led, err = ledger.Open(a.cfg.Ledger.Path, logger)
		if err != nil {
			return nil, err
		}
		defer led.Close()

		cfgJSON, _ := json.Marshal(a.cfg)
		err = led.StartRun(lctx, ledger.Run{
			ID:        report.RunID,
			StartedAt: time.Now(),
			Files:     len(files),
			Config:    string(cfgJSON),
		})
		if err != nil {
			return nil, err
		}
	}

	logger.Infof("processing %d files with %d workers", len(files), a.cfg.Workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Workers)

	scheduled := 0
	for i, path := range files {
		if gctx.Err() != nil {
			break
		}
		scheduled++
		i, path := i, path
		g.Go(func() error {
			if gctx.Err() != nil {
				report.Files[i] = FileResult{Path: path, Status: ledger.FileFailed, Err: gctx.Err()}
				return nil
			}
			res, rec, profiles := a.processFile(logger.With("file", path), report.RunID, path)
			report.Files[i] = res
			if led == nil {
				return nil
			}
			if _, err := led.RecordFile(lctx, rec, profiles); err != nil {
				return fmt.Errorf("recording %s: %w", path, err)
			}
			return nil
		})
	}
	runErr := g.Wait()
	report.Files = report.Files[:scheduled]

	for _, f := range report.Files {
		switch f.Status {
		case ledger.FileOK:
			report.Processed++
		case ledger.FileEmpty:
			report.Empty++
		default:
			report.Failed++
		}
		report.Profiles += f.Profiles
	}

	switch {
	case runErr != nil:
		report.Status = ledger.RunFailed
	case ctx.Err() != nil:
		report.Status = ledger.RunCancelled
	default:
		report.Status = ledger.RunCompleted
	}

	if led != nil {
		if err := led.FinishRun(lctx, report.RunID, report.Status, time.Now()); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}

	logger.Infof("run %s: %d files processed, %d without profiles, %d failed, %d profiles written",
		report.Status, report.Processed, report.Empty, report.Failed, report.Profiles)

	if runErr == nil && report.Status == ledger.RunCancelled {
		runErr = context.Cause(ctx)
	}
	return report, runErr
}

// processFile reads, segments and exports one file. Errors are reported in the
// result, never returned.
func (a *App) processFile(logger *zap.SugaredLogger, runID, path string) (FileResult, ledger.File, []ledger.Profile) {
	res := FileResult{Path: path, Status: ledger.FileFailed}
	rec := ledger.File{RunID: runID, Path: path, Status: ledger.FileFailed, ProcessedAt: time.Now()}

	fail := func(err error) (FileResult, ledger.File, []ledger.Profile) {
		logger.Errorf("%v", err)
		res.Err = err
		rec.Error = err.Error()
		return res, rec, nil
	}

	ds, err := slocum.ReadFile(path)
	if err != nil {
		return fail(err)
	}
	if ds.Skipped > 0 {
		logger.Warnf("%d lines without a timestamp skipped", ds.Skipped)
	}

	meta := export.Meta{
		RunID:  runID,
		Source: filepath.Base(path),
		Glider: gliderName(ds),
		Mode:   string(ds.Mode),
	}
	rec.Glider, rec.Mode, rec.Rows = meta.Glider, meta.Mode, ds.Table.Len()

	out, err := pipeline.NewProcessor(a.assign, a.filters, a.cfg.Output.ProfileBase, logger).Process(ds.Table)
	if errors.Is(err, profile.ErrInsufficientData) {
		logger.Warnf("no profiles: %v", err)
		res.Status, rec.Status = ledger.FileEmpty, ledger.FileEmpty
		rec.Unassigned = ds.Table.Len()
		return res, rec, nil
	}
	if err != nil {
		return fail(err)
	}

	rec.Candidates = out.Assign.Profiles
	rec.Kept = out.Filter.Kept
	rec.Reassigned = out.Assign.Reassigned
	rec.Unassigned = out.Assign.Unassigned
	rec.RemovedDepth = out.Filter.Removed[filter.ReasonDepth]
	rec.RemovedPoints = out.Filter.Removed[filter.ReasonPoints]
	rec.RemovedTime = out.Filter.Removed[filter.ReasonTime]
	rec.RemovedDistance = out.Filter.Removed[filter.ReasonDistance]
	rec.Merged = out.Filter.Merged

	paths, err := a.writer.WriteProfiles(meta, out.Table, out.Profiles)
	if err != nil {
		return fail(err)
	}

	profiles := make([]ledger.Profile, len(out.Profiles))
	for i, s := range out.Profiles {
		profiles[i] = ledger.Profile{
			ProfileID: s.ID,
			Rows:      s.Rows,
			StartTime: s.StartTime,
			EndTime:   s.EndTime,
			MinDepth:  s.MinDepth,
			MaxDepth:  s.MaxDepth,
			Direction: s.Direction.String(),
			Output:    paths[i],
		}
	}

	status := ledger.FileOK
	if len(out.Profiles) == 0 {
		status = ledger.FileEmpty
	}
	res.Status, rec.Status = status, status
	res.Profiles = len(out.Profiles)
	res.Outputs = paths
	return res, rec, profiles
}

// gliderName prefers the segment filename, then the full_filename header that
// dbd2asc writes when files were renamed to 8.3 names.
func gliderName(ds *slocum.Dataset) string {
	if ds.Info.Glider != "" {
		return ds.Info.Glider
	}
	if full := strings.TrimSpace(ds.Metadata["full_filename"]); full != "" {
		if info, err := slocum.ParseSegmentName(full); err == nil {
			return info.Glider
		}
	}
	return ""
}
