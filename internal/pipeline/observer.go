package pipeline

import (
	"context"
	"log/slog"

	"eventcoder/internal/classify"
	"eventcoder/internal/journal"
	"eventcoder/internal/logging"
	"eventcoder/internal/metrics"
	"eventcoder/internal/services"
)

// CallObserver returns a classify.Observer that records every call in the
// journal and in metrics. The run identifier is read from the call context,
// so calls made outside Run are counted in metrics only.
func CallObserver(task string, j Journal, rec *metrics.Recorder, logger *slog.Logger) classify.Observer {
	count := rec.Observer(task)
	logger = logging.NewComponentLogger(logger, "journal")
	return func(ctx context.Context, result classify.Result) {
		count(ctx, result)
		if j == nil {
			return
		}
		runID, ok := services.RunIDFromContext(ctx)
		if !ok {
			return
		}
		call := journal.Call{
			RunID:      runID,
			RowID:      result.RowID,
			Task:       task,
			Call:       result.Call,
			Attempts:   result.Attempts,
			OK:         result.OK(),
			Error:      result.ErrorText(),
			DurationMS: result.Duration.Milliseconds(),
		}
		if err := j.RecordCall(context.WithoutCancel(ctx), call); err != nil {
			logging.WithContext(ctx, logger).Warn("record call failed", logging.Error(err))
		}
	}
}
