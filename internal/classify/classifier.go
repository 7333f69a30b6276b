package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"eventcoder/internal/logging"
	"eventcoder/internal/retry"
	"eventcoder/internal/services/llm"
)

// Completer performs a single chat completion round trip.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Call describes one classification call for one row.
type Call struct {
	// Name identifies the call within a task (e.g. "events", "summary").
	Name   string
	RowID  string
	System string
	Primer string
	// Content is the row text; it is truncated to MaxChars runes when MaxChars > 0.
	Content     string
	MaxChars    int
	Temperature float64
	MaxTokens   int
	JSON        bool
}

// Result is the outcome of one classification call. A failed call carries
// Err; Raw holds whatever text the service returned, if any.
type Result struct {
	Call     string
	RowID    string
	Raw      string
	Attempts int
	Duration time.Duration
	Err      error
}

// OK reports whether the call produced a usable payload.
func (r Result) OK() bool {
	return r.Err == nil
}

// ErrorText returns the failure reason, or "" for successful results.
func (r Result) ErrorText() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Observer is notified after every call completes, successfully or not.
type Observer func(ctx context.Context, result Result)

// Classifier sends classification calls through the retry policy. It never
// returns an error past its boundary: failures are carried in Result.
type Classifier struct {
	completer Completer
	policy    retry.Policy
	logger    *slog.Logger
	observers []Observer
}

// Option customizes a Classifier.
type Option func(*Classifier)

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver registers a callback invoked after each call.
func WithObserver(observer Observer) Option {
	return func(c *Classifier) {
		if observer != nil {
			c.observers = append(c.observers, observer)
		}
	}
}

// New constructs a Classifier around an explicitly supplied completer.
func New(completer Completer, policy retry.Policy, opts ...Option) *Classifier {
	c := &Classifier{
		completer: completer,
		policy:    policy,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify runs call and returns the raw text result.
func (c *Classifier) Classify(ctx context.Context, call Call) Result {
	return c.run(ctx, call, nil)
}

// ClassifyJSON runs call with the JSON output hint and decodes the reply into
// target. A reply that does not decode is reported as a failed result.
func (c *Classifier) ClassifyJSON(ctx context.Context, call Call, target any) Result {
	call.JSON = true
	return c.run(ctx, call, func(raw string) error {
		if err := llm.DecodeJSON(raw, target); err != nil {
			return fmt.Errorf("parse payload: %w", err)
		}
		return nil
	})
}

func (c *Classifier) run(ctx context.Context, call Call, decode func(string) error) Result {
	started := time.Now()
	result := Result{Call: call.Name, RowID: call.RowID}

	if c == nil || c.completer == nil {
		result.Err = errors.New("classify: no completer configured")
		result.Duration = time.Since(started)
		c.notify(ctx, result)
		return result
	}

	req := llm.Request{
		System:      call.System,
		Primer:      call.Primer,
		User:        Truncate(call.Content, call.MaxChars),
		Temperature: call.Temperature,
		MaxTokens:   call.MaxTokens,
		JSON:        call.JSON,
	}

	policy := c.policy
	userHook := policy.OnRetry
	policy.OnRetry = func(attempt int, wait time.Duration, err error) {
		logging.WithContext(ctx, c.logger).Warn("classification attempt failed; retrying",
			logging.String("call", call.Name),
			logging.String("row_id", call.RowID),
			logging.Int("attempt", attempt),
			logging.Duration("wait", wait),
			logging.Error(err),
		)
		if userHook != nil {
			userHook(attempt, wait, err)
		}
	}

	var attempts int
	raw, err := retry.Value(ctx, policy, func(ctx context.Context) (string, error) {
		attempts++
		return c.completer.Complete(ctx, req)
	})
	result.Raw = strings.TrimSpace(raw)
	result.Attempts = attempts
	result.Err = err
	if err == nil && result.Raw == "" {
		result.Err = errors.New("classify: empty response")
	}
	if result.Err == nil && decode != nil {
		result.Err = decode(result.Raw)
	}
	result.Duration = time.Since(started)
	if result.Err != nil {
		logging.WithContext(ctx, c.logger).Warn("classification call failed",
			logging.String("call", call.Name),
			logging.String("row_id", call.RowID),
			logging.Int("attempts", attempts),
			logging.Error(result.Err),
		)
	}
	c.notify(ctx, result)
	return result
}

func (c *Classifier) notify(ctx context.Context, result Result) {
	if c == nil {
		return
	}
	for _, observer := range c.observers {
		observer(ctx, result)
	}
}

// Truncate limits content to maxChars runes. A non-positive limit disables
// truncation.
func Truncate(content string, maxChars int) string {
	if maxChars <= 0 {
		return content
	}
	if len(content) <= maxChars {
		return content
	}
	runes := []rune(content)
	if len(runes) <= maxChars {
		return content
	}
	return string(runes[:maxChars])
}
