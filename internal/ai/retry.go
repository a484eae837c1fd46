package ai

import (
	"context"
	"time"
)

// SleepFunc pauses between attempts. Injected so tests can observe the
// backoff schedule without waiting it out.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy bounds retries of a failing operation. Backoff is fully serial and
// doubles after each failed attempt, with no jitter.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	Retryable      func(error) bool
	Sleep          SleepFunc
}

// Do runs op until it succeeds, fails with a non-retryable error, or the
// attempt budget is exhausted. The last observed error is returned.
func (p Policy) Do(ctx context.Context, op func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepWithContext
	}

	backoff := p.InitialBackoff
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		if sleepErr := sleep(ctx, backoff); sleepErr != nil {
			return sleepErr
		}
		backoff *= 2
	}
	return err
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
