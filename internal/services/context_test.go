package services_test

import (
	"context"
	"testing"

	"eventcoder/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithRowID(ctx, "42")
	ctx = services.WithTask(ctx, "cameo")
	ctx = services.WithCall(ctx, "events")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if id, ok := services.RowIDFromContext(ctx); !ok || id != "42" {
		t.Fatalf("unexpected row id: %v %v", id, ok)
	}
	if task, ok := services.TaskFromContext(ctx); !ok || task != "cameo" {
		t.Fatalf("unexpected task: %v %v", task, ok)
	}
	if call, ok := services.CallFromContext(ctx); !ok || call != "events" {
		t.Fatalf("unexpected call: %v %v", call, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithTask(ctx, "")
	ctx = services.WithRowID(ctx, "")
	if _, ok := services.TaskFromContext(ctx); ok {
		t.Fatal("expected no task value")
	}
	if _, ok := services.RowIDFromContext(ctx); ok {
		t.Fatal("expected no row id value")
	}
}
