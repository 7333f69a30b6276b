package services

import "context"

type contextKey string

const (
	runIDKey contextKey = "run_id"
	rowIDKey contextKey = "row_id"
	taskKey  contextKey = "task"
	callKey  contextKey = "call"
)

// WithRunID annotates context with the pipeline run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the pipeline run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, runIDKey)
}

// WithRowID annotates context with the input row identifier being classified.
func WithRowID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, rowIDKey, id)
}

// RowIDFromContext returns the row identifier if present.
func RowIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, rowIDKey)
}

// WithTask annotates context with the task name (cameo, relevance, ...).
func WithTask(ctx context.Context, task string) context.Context {
	if task == "" {
		return ctx
	}
	return context.WithValue(ctx, taskKey, task)
}

// TaskFromContext returns the task name if present.
func TaskFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, taskKey)
}

// WithCall annotates context with the name of a single classification call
// within a task (events, summary, topics).
func WithCall(ctx context.Context, call string) context.Context {
	if call == "" {
		return ctx
	}
	return context.WithValue(ctx, callKey, call)
}

// CallFromContext returns the classification call name if present.
func CallFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, callKey)
}

func stringValue(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v, ok := ctx.Value(key).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
