package journal

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("not found")

// Run is one invocation of a task over an input file.
type Run struct {
	ID            string        `db:"id"`
	Task          string        `db:"task"`
	InputPath     string        `db:"input_path"`
	OutputPath    string        `db:"output_path"`
	Model         string        `db:"model"`
	Status        string        `db:"status"`
	StartedAt     int64         `db:"started_at"`
	FinishedAt    sql.NullInt64 `db:"finished_at"`
	RowsTotal     int           `db:"rows_total"`
	RowsSkipped   int           `db:"rows_skipped"`
	RowsProcessed int           `db:"rows_processed"`
	RowsFailed    int           `db:"rows_failed"`
	Records       int           `db:"records"`
	Error         string        `db:"error"`
}

// Started returns the start time.
func (r Run) Started() time.Time { return time.UnixMilli(r.StartedAt) }

// Duration returns the elapsed run time, or zero while the run is open.
func (r Run) Duration() time.Duration {
	if !r.FinishedAt.Valid {
		return 0
	}
	return time.Duration(r.FinishedAt.Int64-r.StartedAt) * time.Millisecond
}

// Call is one classification call, after retries.
type Call struct {
	RunID      string `db:"run_id"`
	RowID      string `db:"row_id"`
	Task       string `db:"task"`
	Call       string `db:"call"`
	Attempts   int    `db:"attempts"`
	OK         bool   `db:"ok"`
	Error      string `db:"error"`
	DurationMS int64  `db:"duration_ms"`
	CreatedAt  int64  `db:"created_at"`
}

// CallStat aggregates calls sharing a task and call name.
type CallStat struct {
	Task          string  `db:"task"`
	Call          string  `db:"call"`
	Total         int     `db:"total"`
	Failed        int     `db:"failed"`
	AvgAttempts   float64 `db:"avg_attempts"`
	AvgDurationMS float64 `db:"avg_duration_ms"`
}
