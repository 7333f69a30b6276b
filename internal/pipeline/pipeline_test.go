package pipeline_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"eventcoder/internal/classify"
	"eventcoder/internal/journal"
	"eventcoder/internal/metrics"
	"eventcoder/internal/pipeline"
	"eventcoder/internal/retry"
	"eventcoder/internal/services"
	"eventcoder/internal/services/llm"
	"eventcoder/internal/sink"
	"eventcoder/internal/source"
	"eventcoder/internal/tasks"
)

type fakeCompleter struct {
	calls  int
	users  []string
	fail   bool
	onCall func(ctx context.Context, req llm.Request) error
}

func (f *fakeCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.calls++
	f.users = append(f.users, req.User)
	if f.onCall != nil {
		if err := f.onCall(ctx, req); err != nil {
			return "", err
		}
	}
	if f.fail {
		return "", errors.New("service unavailable")
	}
	switch {
	case strings.Contains(req.System, "CAMEO 1.1b3"):
		if strings.Contains(req.User, "two events") {
			return `{"events":[{"event_order":2,"source_actor":"TUR"},{"event_order":1,"source_actor":"ISR"}]}`, nil
		}
		return `{"events": []}`, nil
	case strings.Contains(req.System, "summary"):
		return "summary of " + req.User, nil
	}
	return "", errors.New("unexpected request")
}

func instantPolicy() retry.Policy {
	policy := retry.DefaultPolicy()
	policy.Sleeper = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return policy
}

var inputHeader = []string{"NewsID", "Source", "Date", "Title", "Content"}

func writeInput(t *testing.T, dir string, rows ...[]string) string {
	t.Helper()
	path := filepath.Join(dir, "input.csv")
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(inputHeader)
	for _, row := range rows {
		_ = w.Write(row)
	}
	w.Flush()
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func readOutput(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(string(data), "\ufeff"))).ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	return records
}

func defaultColumns() source.Columns {
	return source.Columns{ID: "NewsID", Content: "Content", Source: "Source", Date: "Date", Title: "Title"}
}

func cameoOptions(completer classify.Completer, input, output string, opts ...classify.Option) pipeline.Options {
	classifier := classify.New(completer, instantPolicy(), opts...)
	return pipeline.Options{
		Task:       tasks.NewCameo(classifier, tasks.CameoOptions{Language: "English"}),
		InputPath:  input,
		OutputPath: output,
		Columns:    defaultColumns(),
	}
}

func twoRowInput(t *testing.T, dir string) string {
	return writeInput(t, dir,
		[]string{"A", "Wire", "2010-01-01", "Quiet", "nothing happened"},
		[]string{"B", "Daily", "2010-01-02", "Busy", "two events happen"},
	)
}

func TestRunEndToEndTwoRows(t *testing.T) {
	dir := t.TempDir()
	input := twoRowInput(t, dir)
	output := filepath.Join(dir, "out.csv")

	summary, err := pipeline.Run(context.Background(), cameoOptions(&fakeCompleter{}, input, output))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Processed != 2 || summary.Records != 3 || summary.NoDetections != 1 || summary.Status != journal.RunCompleted {
		t.Fatalf("unexpected summary %+v", summary)
	}

	rows := readOutput(t, output)
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 records, got %d", len(rows))
	}
	header := rows[0]
	col := func(row []string, name string) string {
		for i, h := range header {
			if h == name {
				return row[i]
			}
		}
		t.Fatalf("missing column %s", name)
		return ""
	}

	a := rows[1]
	if col(a, "NewsID") != "A" || col(a, "event_order") != "" || col(a, "status") != "no_detections" {
		t.Fatalf("unexpected blank record %v", a)
	}
	b1, b2 := rows[2], rows[3]
	for _, rec := range [][]string{b1, b2} {
		if col(rec, "NewsID") != "B" || col(rec, "Source") != "Daily" || col(rec, "Date") != "2010-01-02" {
			t.Fatalf("record lost row fields: %v", rec)
		}
		if col(rec, "summary") != "summary of two events happen" || col(rec, "status") != "ok" {
			t.Fatalf("record lost summary: %v", rec)
		}
	}
	if col(b1, "source_actor") != "ISR" || col(b2, "source_actor") != "TUR" {
		t.Fatalf("events not ordered: %v / %v", b1, b2)
	}
}

func TestRunResumeIssuesNoCalls(t *testing.T) {
	dir := t.TempDir()
	input := twoRowInput(t, dir)
	output := filepath.Join(dir, "out.csv")

	if _, err := pipeline.Run(context.Background(), cameoOptions(&fakeCompleter{}, input, output)); err != nil {
		t.Fatalf("first run: %v", err)
	}
	before, _ := os.ReadFile(output)

	second := &fakeCompleter{}
	summary, err := pipeline.Run(context.Background(), cameoOptions(second, input, output))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.calls != 0 {
		t.Fatalf("expected no calls on resume, got %d", second.calls)
	}
	if summary.Skipped != 2 || summary.Processed != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	after, _ := os.ReadFile(output)
	if !bytes.Equal(before, after) {
		t.Fatal("output changed on resume")
	}
	if strings.Count(string(after), "NewsID,Source") != 1 {
		t.Fatal("header repeated")
	}
}

func TestRunAlwaysFailingClassifierStillWrites(t *testing.T) {
	dir := t.TempDir()
	input := twoRowInput(t, dir)
	output := filepath.Join(dir, "out.csv")

	failing := &fakeCompleter{fail: true}
	summary, err := pipeline.Run(context.Background(), cameoOptions(failing, input, output))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// two rows, two calls per row, four attempts per call
	if failing.calls != 16 {
		t.Fatalf("expected 16 attempts, got %d", failing.calls)
	}
	if summary.Failed != 2 || summary.Records != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	rows := readOutput(t, output)
	if len(rows) != 3 {
		t.Fatalf("expected one record per row, got %d rows", len(rows))
	}
	statusIdx := len(rows[0]) - 2
	for _, rec := range rows[1:] {
		if rec[statusIdx] != "failed" || !strings.Contains(rec[statusIdx+1], "events: failed after 4 attempts: service unavailable") {
			t.Fatalf("unexpected failed record %v", rec)
		}
	}

	ids, err := sink.LoadIDs(output, tasks.IDColumn)
	if err != nil {
		t.Fatalf("LoadIDs: %v", err)
	}
	if !ids.Has("A") || !ids.Has("B") {
		t.Fatalf("failed rows missing from resume set: %v", ids)
	}
	again := &fakeCompleter{}
	if _, err := pipeline.Run(context.Background(), cameoOptions(again, input, output)); err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if again.calls != 0 {
		t.Fatalf("failed rows were reclassified: %d calls", again.calls)
	}
}

func TestRunCancelledRowIsNotWritten(t *testing.T) {
	dir := t.TempDir()
	input := twoRowInput(t, dir)
	output := filepath.Join(dir, "out.csv")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	interrupting := &fakeCompleter{onCall: func(ctx context.Context, req llm.Request) error {
		if strings.Contains(req.User, "two events") {
			cancel()
			return ctx.Err()
		}
		return nil
	}}
	summary, err := pipeline.Run(ctx, cameoOptions(interrupting, input, output))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if summary.Status != journal.RunInterrupted || summary.Processed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if rows := readOutput(t, output); len(rows) != 2 || rows[1][0] != "A" {
		t.Fatalf("expected only row A, got %v", rows)
	}

	resumed := &fakeCompleter{}
	summary, err = pipeline.Run(context.Background(), cameoOptions(resumed, input, output))
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if summary.Processed != 1 || summary.Skipped != 1 {
		t.Fatalf("unexpected resume summary %+v", summary)
	}
	for _, user := range resumed.users {
		if !strings.Contains(user, "two events") {
			t.Fatalf("resumed run reclassified another row: %q", user)
		}
	}
}

func TestRunMissingInputWritesNothing(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "out.csv")
	_, err := pipeline.Run(context.Background(), cameoOptions(&fakeCompleter{}, filepath.Join(dir, "missing.csv"), output))
	if !errors.Is(err, services.ErrInput) || !services.IsFatal(err) {
		t.Fatalf("expected fatal input error, got %v", err)
	}
	if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
		t.Fatalf("output should not exist: %v", statErr)
	}
}

func TestRunSkipsEmptyAndDuplicateRowsAndHonoursLimit(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir,
		[]string{"", "Wire", "", "", "orphan text"},
		[]string{"C", "Wire", "", "", "   "},
		[]string{"A", "Wire", "", "", "first"},
		[]string{"A", "Wire", "", "", "duplicate"},
		[]string{"B", "Wire", "", "", "second"},
	)
	output := filepath.Join(dir, "out.csv")

	opts := cameoOptions(&fakeCompleter{}, input, output)
	opts.Limit = 1
	summary, err := pipeline.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Empty != 2 || summary.Processed != 1 || summary.Skipped != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	rows := readOutput(t, output)
	if len(rows) != 2 || rows[1][0] != "A" {
		t.Fatalf("unexpected output %v", rows)
	}
}

func TestRunPausesBetweenRows(t *testing.T) {
	dir := t.TempDir()
	input := twoRowInput(t, dir)
	opts := cameoOptions(&fakeCompleter{}, input, filepath.Join(dir, "out.csv"))
	var sleeps []time.Duration
	opts.RowDelay = 500 * time.Millisecond
	opts.Sleeper = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	if _, err := pipeline.Run(context.Background(), opts); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sleeps) != 1 || sleeps[0] != 500*time.Millisecond {
		t.Fatalf("unexpected sleeps %v", sleeps)
	}
}

func TestRunRecordsJournalAndMetrics(t *testing.T) {
	dir := t.TempDir()
	input := twoRowInput(t, dir)
	store, err := journal.Open(filepath.Join(dir, "journal.db"))
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	defer store.Close()
	rec := metrics.New()

	opts := cameoOptions(&fakeCompleter{}, input, filepath.Join(dir, "out.csv"),
		classify.WithObserver(pipeline.CallObserver(tasks.NameCameo, store, rec, nil)))
	opts.Journal = store
	opts.Metrics = rec
	opts.Model = "gpt-4.1"
	opts.MetricsTextfile = filepath.Join(dir, "eventcoder.prom")

	summary, err := pipeline.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	run, err := store.Run(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("journal run: %v", err)
	}
	if run.Status != journal.RunCompleted || run.RowsProcessed != 2 || run.Records != 3 || run.Model != "gpt-4.1" {
		t.Fatalf("unexpected journal run %+v", run)
	}
	stats, err := store.CallStats(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("CallStats: %v", err)
	}
	if len(stats) != 2 || stats[0].Total != 2 || stats[1].Total != 2 {
		t.Fatalf("unexpected call stats %+v", stats)
	}
	data, err := os.ReadFile(opts.MetricsTextfile)
	if err != nil {
		t.Fatalf("metrics textfile: %v", err)
	}
	if !strings.Contains(string(data), `eventcoder_rows_total{disposition="written",task="cameo"} 2`) {
		t.Fatalf("unexpected metrics:\n%s", data)
	}
}

func TestRunRequiresTask(t *testing.T) {
	if _, err := pipeline.Run(context.Background(), pipeline.Options{}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
