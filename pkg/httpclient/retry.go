// Package httpclient provides the transport-level building blocks of the
// A2A client: a bounded retry manager with exponential backoff and a
// connection pool with scoped acquisition.
package httpclient

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// DefaultMaxAttempts is the default total number of attempts.
const DefaultMaxAttempts = 3

// RetryPolicy configures a Retryer.
type RetryPolicy struct {
	// MaxAttempts bounds the total attempts, first try included.
	MaxAttempts int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration

	// JitterFactor adds randomness to delays (0.0-1.0).
	JitterFactor float64
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  DefaultMaxAttempts,
		BaseDelay:    500 * time.Millisecond,
		MaxDelay:     15 * time.Second,
		JitterFactor: 0.1,
	}
}

// Retryer re-runs an operation on transient failures. Whether a failure is
// transient is decided by the caller-supplied predicate; permanent failures
// return immediately. After the attempt budget is spent the last error is
// returned as-is, preserving its type.
type Retryer struct {
	policy    RetryPolicy
	retryable func(error) bool
	sleep     func(ctx context.Context, d time.Duration) error
}

// RetryerOption configures a Retryer.
type RetryerOption func(*Retryer)

// WithPolicy overrides the retry policy.
func WithPolicy(policy RetryPolicy) RetryerOption {
	return func(r *Retryer) {
		r.policy = policy
	}
}

// WithMaxAttempts overrides only the attempt budget.
func WithMaxAttempts(n int) RetryerOption {
	return func(r *Retryer) {
		r.policy.MaxAttempts = n
	}
}

// WithSleep overrides the sleep function, for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) RetryerOption {
	return func(r *Retryer) {
		r.sleep = sleep
	}
}

// NewRetryer creates a Retryer with the given transient-error predicate.
func NewRetryer(retryable func(error) bool, opts ...RetryerOption) *Retryer {
	r := &Retryer{
		policy:    DefaultRetryPolicy(),
		retryable: retryable,
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.policy.MaxAttempts < 1 {
		r.policy.MaxAttempts = 1
	}
	return r
}

// Do runs fn until it succeeds, fails permanently, or the attempt budget
// is exhausted.
func (r *Retryer) Do(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < r.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := r.delay(attempt - 1)
			slog.Debug("retrying after transient failure",
				"op", op, "attempt", attempt+1, "max", r.policy.MaxAttempts, "delay", delay)
			if err := r.sleep(ctx, delay); err != nil {
				return lastErr
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !r.retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (r *Retryer) delay(retry int) time.Duration {
	d := time.Duration(math.Pow(2, float64(retry))) * r.policy.BaseDelay
	if r.policy.MaxDelay > 0 && d > r.policy.MaxDelay {
		d = r.policy.MaxDelay
	}
	if r.policy.JitterFactor > 0 {
		jitter := time.Duration(rand.Float64() * r.policy.JitterFactor * float64(d))
		d += jitter
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
