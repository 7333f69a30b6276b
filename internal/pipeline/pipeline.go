package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"eventcoder/internal/journal"
	"eventcoder/internal/logging"
	"eventcoder/internal/metrics"
	"eventcoder/internal/retry"
	"eventcoder/internal/services"
	"eventcoder/internal/sink"
	"eventcoder/internal/source"
	"eventcoder/internal/tasks"
)

// Journal records runs and calls. *journal.Store satisfies it.
type Journal interface {
	StartRun(ctx context.Context, run journal.Run) error
	FinishRun(ctx context.Context, run journal.Run) error
	RecordCall(ctx context.Context, call journal.Call) error
}

// Options configures one pipeline run.
type Options struct {
	Task       tasks.Task
	InputPath  string
	OutputPath string
	Columns    source.Columns
	// RunID identifies the run; a random UUID is used when empty.
	RunID string
	// Model is recorded in the journal only.
	Model string
	// Limit caps the rows classified by this run. Zero means no cap.
	Limit int
	// RowDelay pauses between classified rows.
	RowDelay time.Duration
	Sleeper  retry.Sleeper

	Logger          *slog.Logger
	Journal         Journal
	Metrics         *metrics.Recorder
	MetricsTextfile string
}

// Summary reports what a run did.
type Summary struct {
	RunID      string
	Task       string
	OutputPath string
	Status     string
	// Total counts input rows read.
	Total int
	// Skipped counts rows already present in the output.
	Skipped int
	// Empty counts rows without an identifier or content.
	Empty int
	// Processed counts rows classified and written by this run.
	Processed int
	// Failed counts processed rows whose primary call failed.
	Failed int
	// NoDetections counts processed rows without a positive finding.
	NoDetections int
	Records      int
	Duration     time.Duration
}

// Run classifies every pending row of the input table and appends the
// results to the output table. Rows already present in the output are never
// classified again. If ctx is cancelled mid-row that row is not written and
// Run returns the context error alongside the partial summary.
func Run(ctx context.Context, opts Options) (Summary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Task == nil {
		return Summary{}, services.Wrap(services.ErrConfiguration, "pipeline", "run", "task required", nil)
	}
	logger := logging.NewComponentLogger(opts.Logger, "pipeline")
	sleeper := opts.Sleeper
	if sleeper == nil {
		sleeper = retry.Sleep
	}

	if _, err := os.Stat(opts.InputPath); err != nil {
		return Summary{}, services.Wrap(services.ErrInput, "pipeline", "open input", opts.InputPath, err)
	}
	reader, err := source.Open(opts.InputPath, opts.Columns)
	if err != nil {
		return Summary{}, services.Wrap(services.ErrInput, "pipeline", "open input", "", err)
	}
	defer reader.Close()

	out, err := sink.Open(opts.OutputPath, opts.Task.Columns(), sink.Options{IDColumn: tasks.IDColumn})
	if err != nil {
		return Summary{}, services.Wrap(services.ErrOutput, "pipeline", "open output", "", err)
	}
	defer out.Close()

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	taskName := opts.Task.Name()
	ctx = services.WithTask(services.WithRunID(ctx, runID), taskName)
	runLogger := logging.WithContext(ctx, logger)

	summary := Summary{RunID: runID, Task: taskName, OutputPath: opts.OutputPath, Status: journal.RunRunning}
	started := time.Now()
	record := journal.Run{
		ID:         runID,
		Task:       taskName,
		InputPath:  opts.InputPath,
		OutputPath: opts.OutputPath,
		Model:      opts.Model,
		StartedAt:  started.UnixMilli(),
	}
	if opts.Journal != nil {
		if err := opts.Journal.StartRun(ctx, record); err != nil {
			runLogger.Warn("journal start failed; continuing without run record", logging.Error(err))
		}
	}

	runLogger.Info("run started",
		logging.String("input", opts.InputPath),
		logging.String("output", opts.OutputPath),
		logging.Int("resume_ids", out.Len()),
		logging.Bool("created", out.Created()),
	)
	if repaired := out.Repaired(); repaired > 0 {
		runLogger.Warn("truncated incomplete trailing line in output", logging.Int("bytes", int(repaired)))
	}

	runErr := loop(ctx, opts, reader, out, sleeper, runLogger, &summary)

	summary.Duration = time.Since(started)
	switch {
	case runErr == nil:
		summary.Status = journal.RunCompleted
	case errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded):
		summary.Status = journal.RunInterrupted
	default:
		summary.Status = journal.RunFailed
	}
	finish(opts, summary, record, runErr, runLogger)
	return summary, runErr
}

func loop(ctx context.Context, opts Options, reader *source.Reader, out *sink.Sink, sleeper retry.Sleeper, logger *slog.Logger, summary *Summary) error {
	taskName := opts.Task.Name()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return services.Wrap(services.ErrInput, "pipeline", "read row", "", err)
		}
		summary.Total++

		if row.ID == "" || row.Content == "" {
			summary.Empty++
			opts.Metrics.Row(taskName, metrics.RowEmpty)
			logger.Debug("skipping row without id or content", logging.Int("line", row.Line))
			continue
		}
		if out.Processed(row.ID) {
			summary.Skipped++
			opts.Metrics.Row(taskName, metrics.RowSkipped)
			continue
		}
		if opts.Limit > 0 && summary.Processed >= opts.Limit {
			logger.Info("row limit reached", logging.Int("limit", opts.Limit))
			return nil
		}
		if opts.RowDelay > 0 && summary.Processed > 0 {
			if err := sleeper(ctx, opts.RowDelay); err != nil {
				return err
			}
		}

		rowCtx := services.WithRowID(ctx, row.ID)
		outcome := opts.Task.Process(rowCtx, row)
		if err := ctx.Err(); err != nil {
			logging.WithContext(rowCtx, logger).Warn("row interrupted; not written")
			return err
		}

		records := outcome.Records
		if len(records) == 0 {
			blank := make(sink.Record, len(out.Columns()))
			blank[0] = row.ID
			records = []sink.Record{blank}
		}
		if err := out.Append(row.ID, records...); err != nil {
			return services.Wrap(services.ErrOutput, "pipeline", "append", row.ID, err)
		}

		summary.Processed++
		summary.Records += len(records)
		disposition := metrics.RowWritten
		switch outcome.Status {
		case tasks.StatusFailed:
			summary.Failed++
			disposition = metrics.RowFailed
		case tasks.StatusNoDetections:
			summary.NoDetections++
		}
		opts.Metrics.Row(taskName, disposition)
		opts.Metrics.Records(taskName, len(records))

		rowLogger := logging.WithContext(rowCtx, logger)
		attrs := []logging.Attr{
			logging.String("status", string(outcome.Status)),
			logging.Int("records", len(records)),
		}
		if outcome.Err != "" {
			attrs = append(attrs, logging.String("error", outcome.Err))
			rowLogger.Warn("row written with errors", logging.Args(attrs...)...)
		} else {
			rowLogger.Info("row written", logging.Args(attrs...)...)
		}
	}
}

func finish(opts Options, summary Summary, record journal.Run, runErr error, logger *slog.Logger) {
	// The run context may already be cancelled; bookkeeping still has to land.
	ctx := context.Background()
	if opts.Journal != nil {
		record.Status = summary.Status
		record.FinishedAt.Int64 = time.Now().UnixMilli()
		record.FinishedAt.Valid = true
		record.RowsTotal = summary.Total
		record.RowsSkipped = summary.Skipped + summary.Empty
		record.RowsProcessed = summary.Processed
		record.RowsFailed = summary.Failed
		record.Records = summary.Records
		if runErr != nil {
			record.Error = runErr.Error()
		}
		if err := opts.Journal.FinishRun(ctx, record); err != nil {
			logger.Warn("journal finish failed", logging.Error(err))
		}
	}
	opts.Metrics.Finished(summary.Task, summary.Status, time.Now())
	if err := opts.Metrics.WriteTextfile(opts.MetricsTextfile); err != nil {
		logger.Warn("metrics textfile write failed", logging.Error(err))
	}

	attrs := []logging.Attr{
		logging.String("status", summary.Status),
		logging.Int("processed", summary.Processed),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed),
		logging.Int("records", summary.Records),
		logging.Duration("duration", summary.Duration),
	}
	if runErr != nil {
		logger.Warn("run stopped", logging.Args(append(attrs, logging.Error(runErr))...)...)
		return
	}
	logger.Info("run finished", logging.Args(attrs...)...)
}

// String renders a one-line summary.
func (s Summary) String() string {
	return fmt.Sprintf("%s: %d processed (%d failed, %d without detections), %d skipped, %d empty, %d records in %s",
		s.Task, s.Processed, s.Failed, s.NoDetections, s.Skipped, s.Empty, s.Records, s.Duration.Round(time.Millisecond))
}
