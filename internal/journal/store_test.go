package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run := Run{ID: "run-1", Task: "cameo", InputPath: "in.csv", OutputPath: "out.csv", Model: "gpt-4.1", StartedAt: 1000}
	if err := store.StartRun(ctx, run); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	got, err := store.Run(ctx, "run-1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.Status != RunRunning || got.FinishedAt.Valid {
		t.Fatalf("unexpected open run: %+v", got)
	}

	run.Status = RunCompleted
	run.RowsTotal = 3
	run.RowsProcessed = 2
	run.RowsSkipped = 1
	run.Records = 5
	run.FinishedAt.Int64 = 4000
	run.FinishedAt.Valid = true
	if err := store.FinishRun(ctx, run); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	got, err = store.Run(ctx, "run-1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.Status != RunCompleted || got.Records != 5 || got.RowsSkipped != 1 {
		t.Fatalf("unexpected finished run: %+v", got)
	}
	if got.Duration().Milliseconds() != 3000 {
		t.Fatalf("expected 3s duration, got %s", got.Duration())
	}
}

func TestRunNotFound(t *testing.T) {
	store := openTestStore(t)
	_, err := store.Run(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCallStatsAndFailures(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		if err := store.StartRun(ctx, Run{ID: id, Task: "cameo", InputPath: "in", OutputPath: "out"}); err != nil {
			t.Fatalf("StartRun: %v", err)
		}
	}
	calls := []Call{
		{RunID: "a", RowID: "1", Task: "cameo", Call: "events", Attempts: 1, OK: true, DurationMS: 100},
		{RunID: "a", RowID: "2", Task: "cameo", Call: "events", Attempts: 4, OK: false, Error: "boom", DurationMS: 300},
		{RunID: "a", RowID: "1", Task: "cameo", Call: "summary", Attempts: 1, OK: true, DurationMS: 50},
		{RunID: "b", RowID: "9", Task: "cameo", Call: "events", Attempts: 1, OK: true, DurationMS: 10},
	}
	for _, call := range calls {
		if err := store.RecordCall(ctx, call); err != nil {
			t.Fatalf("RecordCall: %v", err)
		}
	}

	stats, err := store.CallStats(ctx, "a")
	if err != nil {
		t.Fatalf("CallStats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 stat rows, got %+v", stats)
	}
	events := stats[0]
	if events.Call != "events" || events.Total != 2 || events.Failed != 1 {
		t.Fatalf("unexpected events stat: %+v", events)
	}
	if events.AvgAttempts != 2.5 || events.AvgDurationMS != 200 {
		t.Fatalf("unexpected averages: %+v", events)
	}

	all, err := store.CallStats(ctx, "")
	if err != nil {
		t.Fatalf("CallStats all: %v", err)
	}
	if all[0].Total != 3 {
		t.Fatalf("expected 3 events calls across runs, got %+v", all[0])
	}

	failed, err := store.FailedCalls(ctx, "a", 0)
	if err != nil {
		t.Fatalf("FailedCalls: %v", err)
	}
	if len(failed) != 1 || failed[0].RowID != "2" || failed[0].Error != "boom" || failed[0].OK {
		t.Fatalf("unexpected failed calls: %+v", failed)
	}
}

func TestRecentRunsOrderAndFilter(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	runs := []Run{
		{ID: "1", Task: "cameo", StartedAt: 100},
		{ID: "2", Task: "sentiment", StartedAt: 200},
		{ID: "3", Task: "cameo", StartedAt: 300},
	}
	for _, run := range runs {
		if err := store.StartRun(ctx, run); err != nil {
			t.Fatalf("StartRun: %v", err)
		}
	}
	got, err := store.RecentRuns(ctx, "", 2)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(got) != 2 || got[0].ID != "3" || got[1].ID != "2" {
		t.Fatalf("unexpected order: %+v", got)
	}
	got, err = store.RecentRuns(ctx, "cameo", 0)
	if err != nil {
		t.Fatalf("RecentRuns filtered: %v", err)
	}
	if len(got) != 2 || got[0].ID != "3" || got[1].ID != "1" {
		t.Fatalf("unexpected filtered runs: %+v", got)
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.StartRun(context.Background(), Run{ID: "x", Task: "filter"}); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	_ = store.Close()

	store, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	if _, err := store.Run(context.Background(), "x"); err != nil {
		t.Fatalf("expected run after reopen: %v", err)
	}
}
