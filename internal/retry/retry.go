package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultMaxAttempts is the attempt budget used when a Policy leaves it unset.
	DefaultMaxAttempts = 4
	// DefaultBackoff is the linear backoff base used when a Policy leaves it unset.
	DefaultBackoff = 5 * time.Second
)

// Sleeper blocks for the supplied duration or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Policy describes how many times an operation is attempted and how long to
// wait between attempts. The wait before attempt n+1 is Backoff*n.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
	Sleeper     Sleeper
	// OnRetry is invoked after a failed attempt that will be retried.
	OnRetry func(attempt int, wait time.Duration, err error)
}

// DefaultPolicy returns the policy used by the classification pipeline.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Backoff: DefaultBackoff}
}

// ExhaustedError is returned once every attempt has failed. It unwraps to the
// error returned by the final attempt.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Attempts reports how many attempts produced err. Errors that did not come
// from Do count as a single attempt.
func Attempts(err error) int {
	var exhausted *ExhaustedError
	if errors.As(err, &exhausted) {
		return exhausted.Attempts
	}
	if err == nil {
		return 0
	}
	return 1
}

// Do invokes op until it succeeds or the attempt budget is spent. Every error
// is retried; only cancellation of ctx stops the loop early.
func Do(ctx context.Context, policy Policy, op func(ctx context.Context) error) error {
	_, err := Value(ctx, policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Value is Do for operations that return a result. The attempt count of a
// successful call is returned alongside the value.
func Value[T any](ctx context.Context, policy Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if ctx == nil {
		ctx = context.Background()
	}
	attempts := policy.attempts()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		value, err := op(ctx)
		if err == nil {
			return value, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if attempt == attempts {
			break
		}
		wait := policy.delay(attempt)
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, wait, err)
		}
		if err := policy.sleep(ctx, wait); err != nil {
			return zero, err
		}
	}
	return zero, &ExhaustedError{Attempts: attempts, Err: lastErr}
}

func (p Policy) attempts() int {
	if p.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return p.MaxAttempts
}

func (p Policy) delay(attempt int) time.Duration {
	if p.Backoff < 0 {
		return 0
	}
	return p.Backoff * time.Duration(attempt)
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleeper != nil {
		return p.Sleeper(ctx, d)
	}
	return Sleep(ctx, d)
}

// Sleep waits for d unless ctx is cancelled first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
