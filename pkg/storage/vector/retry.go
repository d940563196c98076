package vector

import (
	"context"
	"strings"
	"time"

	sharederrors "github.com/opportumatch/matcher/pkg/shared/errors"
)

// RetryConfig tunes a Retrier's backoff.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig is a sensible general-purpose backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
	}
}

// DatabaseRetryConfig is tuned for retrying transient Postgres/pgvector
// errors: more attempts, a shorter initial delay.
func DatabaseRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  5,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     3 * time.Second,
		Multiplier:   2.0,
	}
}

// postgresRetryableSubstrings are additional transient-error markers not
// covered by the generic sharederrors.IsRetryable substrings: pgconn
// connection drops and Postgres's own "too many connections" condition.
var postgresRetryableSubstrings = []string{
	"connection reset",
	"broken pipe",
	"too many connections",
	"deadlock detected",
}

// IsRetryableError reports whether err looks like a transient failure
// worth retrying, combining the generic substring check with
// Postgres-specific ones.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if sharederrors.IsRetryable(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range postgresRetryableSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// RetryableError wraps err to mark it explicitly retryable regardless of
// message content, for callers that already know the classification
// (e.g. a typed driver error).
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retrier executes an operation with exponential backoff, honoring
// context cancellation and stopping immediately on a non-retryable error.
type Retrier struct {
	Config RetryConfig
}

// NewRetrier constructs a Retrier with the given config.
func NewRetrier(config RetryConfig) *Retrier {
	return &Retrier{Config: config}
}

// NewDatabaseRetrier constructs a Retrier tuned for database operations.
func NewDatabaseRetrier() *Retrier {
	return &Retrier{Config: DatabaseRetryConfig()}
}

// Execute runs fn, retrying on retryable errors until it succeeds, the
// context is done, or MaxAttempts is exhausted.
func (r *Retrier) Execute(ctx context.Context, fn func() error) error {
	delay := r.Config.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= r.Config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		var retryable bool
		if _, ok := err.(*RetryableError); ok {
			retryable = true
		} else {
			retryable = IsRetryableError(err)
		}
		if !retryable || attempt == r.Config.MaxAttempts {
			return lastErr
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * r.Config.Multiplier)
		if delay > r.Config.MaxDelay {
			delay = r.Config.MaxDelay
		}
	}

	return lastErr
}

// RetryIfNeeded runs fn once, and only engages Retrier.Execute if the first
// attempt fails, avoiding the backoff-timer setup cost on the hot path.
func RetryIfNeeded(ctx context.Context, r *Retrier, fn func() error) error {
	if err := fn(); err == nil {
		return nil
	}
	return r.Execute(ctx, fn)
}
