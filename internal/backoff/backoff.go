// Package backoff retries transient failures with exponential backoff. The
// request pipeline handles its own 401 retry and quota waits; this package
// covers the edges around it, like token bootstrap and persistence writes.
package backoff

import (
	"context"
	"fmt"
	"time"
)

// Policy controls how many attempts are made and how long to wait between
// them. The delay doubles after every failed attempt.
type Policy struct {
	Attempts int
	Initial  time.Duration
	OnRetry  func(attempt int, err error, delay time.Duration)
}

// Retryable reports whether an error is worth another attempt. Returning
// false aborts immediately with the error as-is.
type Retryable func(err error) bool

// Do runs op until it succeeds, the error is not retryable, attempts run out,
// or ctx is done.
func Do[T any](ctx context.Context, p Policy, retryable Retryable, op func() (T, error)) (T, error) {
	delay := p.Initial

	for attempt := 1; attempt <= p.Attempts; attempt++ {
		val, err := op()
		if err == nil {
			return val, nil
		}

		var zero T
		if !retryable(err) {
			return zero, err
		}
		if attempt == p.Attempts {
			return zero, fmt.Errorf("failed after %d attempts: %w", p.Attempts, err)
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}

		select {
		case <-time.After(delay):
			delay *= 2
		case <-ctx.Done():
			return zero, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}
	}

	panic("unreachable: Attempts must be >= 1")
}

// DoVoid is Do for operations without a return value.
func DoVoid(ctx context.Context, p Policy, retryable Retryable, op func() error) error {
	_, err := Do(ctx, p, retryable, func() (struct{}, error) { return struct{}{}, op() })
	return err
}

// Always treats every error as retryable.
func Always(error) bool { return true }
