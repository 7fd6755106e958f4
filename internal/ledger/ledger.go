// Package ledger records batch runs, the files each run processed and the profiles
// exported from them in a SQLite database.
package ledger

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/chrissnell/gliderprofile/pkg/migrate"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("not found")

// Run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunCancelled = "cancelled"
	RunFailed    = "failed"
)

// File statuses.
const (
	FileOK     = "ok"
	FileEmpty  = "empty"
	FileFailed = "failed"
)

// Run is one invocation of the batch processor.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	Status     string
	Files      int
	Config     string
}

// File is the outcome of processing one input file.
type File struct {
	ID              int64
	RunID           string
	Path            string
	Glider          string
	Mode            string
	Status          string
	Error           string
	Rows            int
	Candidates      int
	Kept            int
	Reassigned      int
	Unassigned      int
	RemovedDepth    int
	RemovedPoints   int
	RemovedTime     int
	RemovedDistance int
	Merged          int
	ProcessedAt     time.Time
}

// Profile is one exported profile.
type Profile struct {
	ProfileID int
	Rows      int
	StartTime float64
	EndTime   float64
	MinDepth  float64
	MaxDepth  float64
	Direction string
	Output    string
}

// Ledger is a handle on the run database.
type Ledger struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// OpenDB opens the SQLite database at path without migrating it.
func OpenDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	return db, nil
}

// NewMigrator returns a migrator over the ledger's embedded schema migrations.
func NewMigrator(db *sql.DB, logger *zap.SugaredLogger) *migrate.Migrator {
	return migrate.NewMigrator(db, migrate.NewFSProvider(migrationsFS, "migrations", ""), logger)
}

// Open opens (creating if needed) the ledger at path and applies pending migrations.
func Open(path string, logger *zap.SugaredLogger) (*Ledger, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := NewMigrator(db, logger).MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating ledger: %w", err)
	}

	return &Ledger{db: db, logger: logger}, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// StartRun records a new running run.
func (l *Ledger) StartRun(ctx context.Context, run Run) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, status, files, config) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.Unix(), RunRunning, run.Files, nullString(run.Config))
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun sets the final status of a run.
func (l *Ledger) FinishRun(ctx context.Context, id, status string, finishedAt time.Time) error {
	res, err := l.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`,
		status, finishedAt.Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

// RecordFile stores the outcome of one file together with its exported profiles.
func (l *Ledger) RecordFile(ctx context.Context, f File, profiles []Profile) (int64, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO files (run_id, path, glider, mode, status, error, row_count, candidates, kept,
		                   reassigned, unassigned, removed_depth, removed_points, removed_time,
		                   removed_distance, merged, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.RunID, f.Path, nullString(f.Glider), nullString(f.Mode), f.Status, nullString(f.Error),
		f.Rows, f.Candidates, f.Kept, f.Reassigned, f.Unassigned,
		f.RemovedDepth, f.RemovedPoints, f.RemovedTime, f.RemovedDistance, f.Merged,
		f.ProcessedAt.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to insert file %s: %w", f.Path, err)
	}
	fileID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get file id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO profiles (file_id, profile_id, row_count, start_time, end_time, min_depth, max_depth, direction, output)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare profile insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range profiles {
		_, err := stmt.ExecContext(ctx, fileID, p.ProfileID, p.Rows,
			nullFloat64(p.StartTime), nullFloat64(p.EndTime),
			nullFloat64(p.MinDepth), nullFloat64(p.MaxDepth),
			nullString(p.Direction), nullString(p.Output))
		if err != nil {
			return 0, fmt.Errorf("failed to insert profile %d of %s: %w", p.ProfileID, f.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit file %s: %w", f.Path, err)
	}
	l.logger.Debugf("recorded %s (%s) with %d profiles", f.Path, f.Status, len(profiles))
	return fileID, nil
}

// GetRun returns a run by id.
func (l *Ledger) GetRun(ctx context.Context, id string) (Run, error) {
	var (
		run      Run
		started  int64
		finished sql.NullInt64
		config   sql.NullString
	)
	err := l.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, status, files, config FROM runs WHERE id = ?`, id).
		Scan(&run.ID, &started, &finished, &run.Status, &run.Files, &config)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("failed to query run %s: %w", id, err)
	}
	run.StartedAt = time.Unix(started, 0)
	if finished.Valid {
		run.FinishedAt = time.Unix(finished.Int64, 0)
	}
	run.Config = config.String
	return run, nil
}

// GetFiles returns the files recorded for a run in insertion order.
func (l *Ledger) GetFiles(ctx context.Context, runID string) ([]File, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, run_id, path, glider, mode, status, error, row_count, candidates, kept, reassigned,
		       unassigned, removed_depth, removed_points, removed_time, removed_distance, merged,
		       processed_at
		FROM files WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		var (
			f                    File
			glider, mode, errMsg sql.NullString
			processed            int64
		)
		if err := rows.Scan(&f.ID, &f.RunID, &f.Path, &glider, &mode, &f.Status, &errMsg,
			&f.Rows, &f.Candidates, &f.Kept, &f.Reassigned, &f.Unassigned,
			&f.RemovedDepth, &f.RemovedPoints, &f.RemovedTime, &f.RemovedDistance, &f.Merged,
			&processed); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		f.Glider, f.Mode, f.Error = glider.String, mode.String, errMsg.String
		f.ProcessedAt = time.Unix(processed, 0)
		files = append(files, f)
	}
	return files, rows.Err()
}

// GetProfiles returns the profiles recorded for a file ordered by profile id.
func (l *Ledger) GetProfiles(ctx context.Context, fileID int64) ([]Profile, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT profile_id, row_count, start_time, end_time, min_depth, max_depth, direction, output
		FROM profiles WHERE file_id = ? ORDER BY profile_id`, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		var (
			p                            Profile
			start, end, minDepth, maxDep sql.NullFloat64
			direction, output            sql.NullString
		)
		if err := rows.Scan(&p.ProfileID, &p.Rows, &start, &end, &minDepth, &maxDep, &direction, &output); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		p.StartTime, p.EndTime = fromNull(start), fromNull(end)
		p.MinDepth, p.MaxDepth = fromNull(minDepth), fromNull(maxDep)
		p.Direction, p.Output = direction.String, output.String
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// Helper functions for handling nullable fields
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat64(f float64) sql.NullFloat64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return sql.NullFloat64{Valid: false}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

func fromNull(f sql.NullFloat64) float64 {
	if !f.Valid {
		return math.NaN()
	}
	return f.Float64
}
