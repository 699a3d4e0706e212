package providers

import (
	"context"
	"time"

	"github.com/finqa/ragqa/internal/backoff"
)

// BaseProvider holds shared retry configuration for LLM providers that don't
// implement their own inline retry loop (Azure OpenAI, Google Gemini).
// OpenAI and Anthropic retry inline since their SDKs surface retry-relevant
// detail (Retry-After headers, stream-reset semantics) that a generic helper
// can't see.
type BaseProvider struct {
	name       string
	maxRetries int
	retryDelay time.Duration
}

// NewBaseProvider creates a base provider with sane defaults.
func NewBaseProvider(name string, maxRetries int, retryDelay time.Duration) BaseProvider {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return BaseProvider{
		name:       name,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// Retry executes op with linear backoff (attempt * retryDelay) if
// isRetryable returns true for the failure.
func (b *BaseProvider) Retry(ctx context.Context, isRetryable func(error) bool, op func() error) error {
	if op == nil {
		return nil
	}
	var lastErr error
	for attempt := 1; attempt <= b.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := op(); err == nil {
			return nil
		} else {
			lastErr = err
			if isRetryable == nil || !isRetryable(err) {
				return err
			}
			if attempt >= b.maxRetries {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(b.retryDelay * time.Duration(attempt)):
			}
		}
	}
	return lastErr
}

// RetryWithBackoff executes op, retrying on a retryable failure with a
// caller-supplied delay schedule (attempt number -> wait duration) instead
// of the fixed linear schedule Retry uses. Google's streaming Complete call
// uses this to apply backoff.ProviderRetryPolicy's exponential curve between
// reconnect attempts on a dropped stream.
func (b *BaseProvider) RetryWithBackoff(ctx context.Context, isRetryable func(error) bool, op func() error, delay func(attempt int) time.Duration) error {
	if op == nil {
		return nil
	}
	var lastErr error
	for attempt := 1; attempt <= b.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := op(); err == nil {
			return nil
		} else {
			lastErr = err
			if isRetryable == nil || !isRetryable(err) {
				return err
			}
			if attempt >= b.maxRetries {
				break
			}
			wait := b.retryDelay
			if delay != nil {
				wait = delay(attempt)
			}
			if err := backoff.Sleep(ctx, wait); err != nil {
				return err
			}
		}
	}
	return lastErr
}
