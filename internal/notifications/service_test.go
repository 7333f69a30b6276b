package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"eventcoder/internal/config"
	"eventcoder/internal/notifications"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, *[]captured) {
	t.Helper()
	var got []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = append(got, captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func serviceFor(url string) notifications.Service {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = url
	return notifications.NewService(&cfg)
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyRunCompleted(context.Background(), notifications.RunReport{Task: "cameo"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := notifications.NewService(nil).TestNotification(context.Background()); err != nil {
		t.Fatalf("expected nil config to yield noop, got %v", err)
	}
}

func TestNotifyRunCompleted(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusOK)
	svc := serviceFor(srv.URL)

	err := svc.NotifyRunCompleted(context.Background(), notifications.RunReport{
		Task:      "relevance",
		Status:    "completed",
		Output:    "/data/out.csv",
		Processed: 10,
		Skipped:   2,
		Records:   10,
		Duration:  90 * time.Second,
	})
	if err != nil {
		t.Fatalf("NotifyRunCompleted: %v", err)
	}
	if len(*got) != 1 {
		t.Fatalf("expected one request, got %d", len(*got))
	}
	msg := (*got)[0]
	if msg.title != "eventcoder - relevance completed" {
		t.Fatalf("unexpected title %q", msg.title)
	}
	if msg.tags != "eventcoder,relevance,completed" {
		t.Fatalf("unexpected tags %q", msg.tags)
	}
	if msg.priority != "" {
		t.Fatalf("expected default priority, got %q", msg.priority)
	}
	if !strings.Contains(msg.body, "10 rows processed, 2 skipped, 10 records in 1m30s") ||
		!strings.Contains(msg.body, "Output: /data/out.csv") {
		t.Fatalf("unexpected body %q", msg.body)
	}
}

func TestNotifyRunCompletedWithFailures(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusOK)
	svc := serviceFor(srv.URL)

	if err := svc.NotifyRunCompleted(context.Background(), notifications.RunReport{
		Task: "cameo", Status: "completed", Processed: 3, Failed: 1,
	}); err != nil {
		t.Fatalf("NotifyRunCompleted: %v", err)
	}
	msg := (*got)[0]
	if !strings.HasSuffix(msg.title, "(with failures)") || msg.priority != "high" {
		t.Fatalf("unexpected failure formatting: %+v", msg)
	}
	if !strings.Contains(msg.body, "(1 failed)") {
		t.Fatalf("unexpected body %q", msg.body)
	}
}

func TestNotifyRunFailed(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusOK)
	svc := serviceFor(srv.URL)

	if err := svc.NotifyRunFailed(context.Background(), "sentiment", errors.New("open input: no such file")); err != nil {
		t.Fatalf("NotifyRunFailed: %v", err)
	}
	msg := (*got)[0]
	if msg.body != "Run of sentiment stopped: open input: no such file" {
		t.Fatalf("unexpected body %q", msg.body)
	}
	if msg.priority != "high" {
		t.Fatalf("unexpected priority %q", msg.priority)
	}
}

func TestSendReportsServerErrors(t *testing.T) {
	srv, _ := newCaptureServer(t, http.StatusForbidden)
	svc := serviceFor(srv.URL)
	err := svc.TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "ntfy returned 403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
