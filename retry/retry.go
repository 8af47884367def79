// Package retry runs an operation under a bounded retry policy.
package retry

import (
	"context"
	"time"
)

// Backoff returns the delay before retry number attempt (1-based: the delay
// after the first failure is Backoff(1)).
type Backoff func(attempt int) time.Duration

// Constant waits d between every attempt.
func Constant(d time.Duration) Backoff {
	return func(int) time.Duration { return d }
}

// Exponential waits base, 2*base, 4*base, ... capped at limit (0 = no cap).
func Exponential(base, limit time.Duration) Backoff {
	return func(attempt int) time.Duration {
		d := base << uint(attempt-1)
		if d <= 0 || (limit > 0 && d > limit) {
			return limit
		}
		return d
	}
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real-clock SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Policy bounds how often and how patiently an operation is retried.
type Policy struct {
	MaxAttempts int
	Backoff     Backoff
	Sleep       SleepFunc

	// Retryable classifies errors; nil retries everything.
	Retryable func(error) bool

	// OnRetry is called before each wait, with the attempt that just failed.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Default is three attempts two seconds apart.
func Default() Policy {
	return Policy{MaxAttempts: 3, Backoff: Constant(2 * time.Second)}
}

// Do calls fn until it succeeds, returns a non-retryable error, the attempts
// run out, or ctx is cancelled. It returns the last error from fn (or the
// context error) and the number of attempts made.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) (attempts int, err error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil {
			return attempt, nil
		}
		if attempt >= maxAttempts || ctx.Err() != nil {
			return attempt, err
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return attempt, err
		}

		var wait time.Duration
		if p.Backoff != nil {
			wait = p.Backoff(attempt)
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}
		if serr := sleep(ctx, wait); serr != nil {
			return attempt, err
		}
	}
}
