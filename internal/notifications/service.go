package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"eventcoder/internal/config"
)

const userAgent = "eventcoder"

// RunReport describes a finished classification run.
type RunReport struct {
	Task      string
	Status    string
	Output    string
	Processed int
	Failed    int
	Skipped   int
	Records   int
	Duration  time.Duration
}

// Service defines the notification surface used by the CLI.
type Service interface {
	NotifyRunCompleted(ctx context.Context, report RunReport) error
	NotifyRunFailed(ctx context.Context, task string, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, report RunReport) error {
	duration := report.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	title := fmt.Sprintf("eventcoder - %s %s", report.Task, report.Status)
	message := fmt.Sprintf("%d rows processed, %d skipped, %d records in %s",
		report.Processed, report.Skipped, report.Records, duration)
	priority := ""
	if report.Failed > 0 {
		title += " (with failures)"
		message = fmt.Sprintf("%d rows processed (%d failed), %d skipped, %d records in %s",
			report.Processed, report.Failed, report.Skipped, report.Records, duration)
		priority = "high"
	}
	if output := strings.TrimSpace(report.Output); output != "" {
		message += "\nOutput: " + output
	}

	return n.send(ctx, payload{
		title:    title,
		message:  message,
		tags:     []string{"eventcoder", report.Task, report.Status},
		priority: priority,
	})
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, task string, err error) error {
	var builder strings.Builder
	builder.WriteString("Run")
	if task = strings.TrimSpace(task); task != "" {
		builder.WriteString(" of ")
		builder.WriteString(task)
	}
	builder.WriteString(" stopped: ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown error")
	}

	return n.send(ctx, payload{
		title:    "eventcoder - Error",
		message:  builder.String(),
		tags:     []string{"eventcoder", "error"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "eventcoder - Test",
		message:  "Notification system test",
		tags:     []string{"eventcoder", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, RunReport) error   { return nil }
func (noopService) NotifyRunFailed(context.Context, string, error) error { return nil }
func (noopService) TestNotification(context.Context) error               { return nil }
