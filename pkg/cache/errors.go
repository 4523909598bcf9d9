package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNetwork marks failures to reach a cache backend.
var ErrNetwork = errors.New("network error")

// RetryableError marks an error that [Backoff.Retry] should try again.
type RetryableError struct{ Err error }

// Retryable wraps err so that it is retried. A nil err stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err was wrapped with [Retryable].
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// Backoff is an exponential retry policy.
type Backoff struct {
	Attempts int           // total calls, at least 1
	Delay    time.Duration // wait before the second call, doubled after each retry
	MaxDelay time.Duration // cap on a single wait; zero means no cap
}

// DefaultBackoff is used for Redis connects: 3 attempts, 1s then 2s apart.
var DefaultBackoff = Backoff{Attempts: 3, Delay: time.Second, MaxDelay: 5 * time.Second}

// Retry calls fn until it succeeds, returns an error not marked with
// [Retryable], or the attempts run out. The last error is returned.
func (b Backoff) Retry(ctx context.Context, fn func() error) error {
	attempts := max(b.Attempts, 1)
	delay := b.Delay
	var err error
	for i := range attempts {
		if err = fn(); err == nil || !IsRetryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if b.MaxDelay > 0 {
			delay = min(delay, b.MaxDelay)
		}
	}
	return err
}
