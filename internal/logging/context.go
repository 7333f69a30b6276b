package logging

import (
	"context"
	"log/slog"

	"eventcoder/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized structured logging key for pipeline run identifiers.
	FieldRunID = "run_id"
	// FieldRowID is the standardized structured logging key for input row identifiers.
	FieldRowID = "row_id"
	// FieldTask is the standardized structured logging key for task names.
	FieldTask = "task"
	// FieldCall is the standardized structured logging key for classification call names.
	FieldCall = "call"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if id, ok := services.RowIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRowID, id))
	}
	if task, ok := services.TaskFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldTask, task))
	}
	if call, ok := services.CallFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCall, call))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
