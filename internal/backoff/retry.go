package backoff

import (
	"context"
	"errors"
)

// ErrAttemptsExhausted is returned once a retry loop runs out of attempts
// without a successful call.
var ErrAttemptsExhausted = errors.New("backoff: retry attempts exhausted")

// Outcome records how a retried call resolved.
type Outcome[T any] struct {
	Value    T
	Attempts int
	LastErr  error
}

// Do runs fn up to maxAttempts times under policy, sleeping between
// failures. fn receives the 1-indexed attempt number. The loop stops early
// on context cancellation or as soon as fn succeeds.
func Do[T any](
	ctx context.Context,
	policy RetryPolicy,
	maxAttempts int,
	fn func(attempt int) (T, error),
) (Outcome[T], error) {
	var out Outcome[T]

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		out.Attempts = attempt

		if err := ctx.Err(); err != nil {
			return out, err
		}

		value, err := fn(attempt)
		if err == nil {
			out.Value = value
			return out, nil
		}
		out.LastErr = err

		if attempt < maxAttempts {
			if sleepErr := SleepAttempt(ctx, policy, attempt); sleepErr != nil {
				return out, sleepErr
			}
		}
	}

	return out, ErrAttemptsExhausted
}

// DoProvider retries fn using the provider policy, returning just the
// value and error for call sites that don't need attempt bookkeeping.
func DoProvider[T any](ctx context.Context, maxAttempts int, fn func(attempt int) (T, error)) (T, error) {
	out, err := Do(ctx, ProviderRetryPolicy(), maxAttempts, fn)
	return out.Value, err
}

// Retry is a convenience wrapper around Do for operations with no return
// value beyond success/failure.
func Retry(ctx context.Context, policy RetryPolicy, maxAttempts int, fn func() error) error {
	_, err := Do(ctx, policy, maxAttempts, func(_ int) (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
