package backoff

import (
	"context"
	"time"
)

// Sleep blocks for duration or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return nil
	}
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SleepAttempt sleeps for the policy's delay at the given attempt number,
// or returns ctx.Err() if the context is cancelled first.
func SleepAttempt(ctx context.Context, p RetryPolicy, attempt int) error {
	return Sleep(ctx, NextDelay(p, attempt))
}
