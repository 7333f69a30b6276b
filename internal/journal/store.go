package journal

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Run statuses.
const (
	RunRunning     = "running"
	RunCompleted   = "completed"
	RunInterrupted = "interrupted"
	RunFailed      = "failed"
)

// Store records pipeline runs and classification calls in SQLite.
type Store struct {
	db   *sqlx.DB
	path string
}

// Open creates or migrates the journal database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure journal directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps the pragmas below in force for every statement.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if err := migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func migrate(db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if _, err := provider.Up(context.Background()); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// StartRun inserts a run in the running state.
func (s *Store) StartRun(ctx context.Context, run Run) error {
	if run.Status == "" {
		run.Status = RunRunning
	}
	if run.StartedAt == 0 {
		run.StartedAt = time.Now().UnixMilli()
	}
	const query = `INSERT INTO runs (id, task, input_path, output_path, model, status, started_at)
		VALUES (:id, :task, :input_path, :output_path, :model, :status, :started_at)`
	return s.namedExec(ctx, query, run)
}

// FinishRun stores the final counters and status of a run.
func (s *Store) FinishRun(ctx context.Context, run Run) error {
	if run.FinishedAt.Int64 == 0 {
		run.FinishedAt = sql.NullInt64{Int64: time.Now().UnixMilli(), Valid: true}
	}
	const query = `UPDATE runs SET status = :status, finished_at = :finished_at,
		rows_total = :rows_total, rows_skipped = :rows_skipped, rows_processed = :rows_processed,
		rows_failed = :rows_failed, records = :records, error = :error
		WHERE id = :id`
	return s.namedExec(ctx, query, run)
}

// RecordCall appends one classification call.
func (s *Store) RecordCall(ctx context.Context, call Call) error {
	if call.CreatedAt == 0 {
		call.CreatedAt = time.Now().UnixMilli()
	}
	const query = `INSERT INTO calls (run_id, row_id, task, call, attempts, ok, error, duration_ms, created_at)
		VALUES (:run_id, :row_id, :task, :call, :attempts, :ok, :error, :duration_ms, :created_at)`
	return s.namedExec(ctx, query, call)
}

// Run fetches one run by id.
func (s *Store) Run(ctx context.Context, id string) (Run, error) {
	var run Run
	err := s.db.GetContext(ctx, &run, `SELECT * FROM runs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// RecentRuns lists the newest runs first, optionally filtered by task.
func (s *Store) RecentRuns(ctx context.Context, task string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	var (
		runs []Run
		err  error
	)
	if task == "" {
		err = s.db.SelectContext(ctx, &runs, `SELECT * FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	} else {
		err = s.db.SelectContext(ctx, &runs, `SELECT * FROM runs WHERE task = ? ORDER BY started_at DESC LIMIT ?`, task, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// CallStats aggregates calls by task and call name, for one run or all runs
// when runID is empty.
func (s *Store) CallStats(ctx context.Context, runID string) ([]CallStat, error) {
	query := `SELECT task, call,
			COUNT(*) AS total,
			SUM(CASE WHEN ok = 0 THEN 1 ELSE 0 END) AS failed,
			AVG(attempts) AS avg_attempts,
			AVG(duration_ms) AS avg_duration_ms
		FROM calls`
	args := []any{}
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` GROUP BY task, call ORDER BY task, call`

	var stats []CallStat
	if err := s.db.SelectContext(ctx, &stats, query, args...); err != nil {
		return nil, fmt.Errorf("call stats: %w", err)
	}
	return stats, nil
}

// FailedCalls lists failed calls of a run in insertion order.
func (s *Store) FailedCalls(ctx context.Context, runID string, limit int) ([]Call, error) {
	if limit <= 0 {
		limit = 50
	}
	var calls []Call
	err := s.db.SelectContext(ctx, &calls,
		`SELECT run_id, row_id, task, call, attempts, ok, error, duration_ms, created_at
		 FROM calls WHERE run_id = ? AND ok = 0 ORDER BY id LIMIT ?`, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed calls: %w", err)
	}
	return calls, nil
}

func (s *Store) namedExec(ctx context.Context, query string, arg any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return retryOnBusy(ctx, func() error {
		_, err := s.db.NamedExecContext(ctx, query, arg)
		return err
	})
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil || !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
