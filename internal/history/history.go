package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"image-collage/internal/logging"
	"image-collage/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// DefaultLimit is the page size when Recent is called with limit <= 0.
const DefaultLimit = 20

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("run not found")

// Store is the run log.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the run log at path. The parent directory
// must already exist.
func Open(ctx context.Context, path string) (*Store, error) {
	logging.Info("History database path: %s", path)

	// busy_timeout helps prevent "database is locked" errors
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", path)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close history database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, path: path}
	if err := s.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close history database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	logging.Debug("History database ready at %s", path)
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		status TEXT NOT NULL,
		inputs INTEGER NOT NULL DEFAULT 0,
		loaded INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		survivors INTEGER NOT NULL DEFAULT 0,
		duplicates INTEGER NOT NULL DEFAULT 0,
		cols INTEGER NOT NULL DEFAULT 0,
		rows INTEGER NOT NULL DEFAULT 0,
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0,
		output_path TEXT,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
	`

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Record appends a run.
func (s *Store) Record(ctx context.Context, run Run) (err error) {
	start := time.Now()
	defer func() { recordQuery("insert_run", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = s.db.ExecContext(ctx, `
	INSERT INTO runs (id, started_at, duration_ms, status, inputs, loaded, failed, survivors,
		duplicates, cols, rows, width, height, output_path, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UnixMilli(), run.Duration.Milliseconds(), string(run.Status),
		run.Inputs, run.Loaded, run.Failed, run.Survivors, run.Duplicates,
		run.Cols, run.Rows, run.Width, run.Height,
		nullString(run.OutputPath), nullString(run.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return nil
}

const selectRun = `
	SELECT id, started_at, duration_ms, status, inputs, loaded, failed, survivors,
		duplicates, cols, rows, width, height, output_path, error
	FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run                  Run
		startedAt, duration  int64
		status               string
		outputPath, errorMsg sql.NullString
	)
	err := row.Scan(&run.ID, &startedAt, &duration, &status,
		&run.Inputs, &run.Loaded, &run.Failed, &run.Survivors, &run.Duplicates,
		&run.Cols, &run.Rows, &run.Width, &run.Height, &outputPath, &errorMsg)
	if err != nil {
		return Run{}, err
	}
	run.StartedAt = time.UnixMilli(startedAt)
	run.Duration = time.Duration(duration) * time.Millisecond
	run.Status = Status(status)
	run.OutputPath = outputPath.String
	run.Error = errorMsg.String
	return run, nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) (runs []Run, err error) {
	start := time.Now()
	defer func() { recordQuery("recent_runs", start, err) }()

	if limit <= 0 {
		limit = DefaultLimit
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, selectRun+` ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Warn("failed to close rows: %v", closeErr)
		}
	}()

	for rows.Next() {
		run, scanErr := scanRun(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get returns a single run.
func (s *Store) Get(ctx context.Context, id string) (run *Run, err error) {
	start := time.Now()
	defer func() {
		queryErr := err
		if errors.Is(err, ErrNotFound) {
			queryErr = nil
		}
		recordQuery("get_run", start, queryErr)
	}()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	r, err := scanRun(s.db.QueryRowContext(ctx, selectRun+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CountByStatus returns the number of runs per status.
func (s *Store) CountByStatus(ctx context.Context) (counts map[string]int, err error) {
	start := time.Now()
	defer func() { recordQuery("count_by_status", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM runs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Warn("failed to close rows: %v", closeErr)
		}
	}()

	counts = map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// CountBefore returns how many runs started before cutoff.
func (s *Store) CountBefore(ctx context.Context, cutoff time.Time) (n int, err error) {
	start := time.Now()
	defer func() { recordQuery("count_before", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE started_at < ?`, cutoff.UnixMilli()).Scan(&n)
	return n, err
}

// Prune deletes runs that started before cutoff and returns how many were
// removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (removed int64, err error) {
	start := time.Now()
	defer func() { recordQuery("prune", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	removed, err = res.RowsAffected()
	if err != nil {
		return 0, err
	}
	logging.Info("Pruned %d runs older than %s", removed, cutoff.Format(time.RFC3339))
	return removed, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.HistoryQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.HistoryQueryDuration.WithLabelValues(operation).Observe(duration)
}
