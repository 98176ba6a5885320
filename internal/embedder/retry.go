package embedder

import (
	"context"
	"time"
)

// RetryConfig tunes how embedding backend calls are retried. Backends
// are remote HTTP services, so transient failures are expected and a
// short exponential backoff usually rides them out.
type RetryConfig struct {
	MaxRetries int           // total attempts, not additional retries
	BaseDelay  time.Duration // delay before the second attempt
	MaxDelay   time.Duration // backoff growth stops here
	Multiplier float64       // delay growth factor between attempts
}

// DefaultRetryConfig matches the provider-level backoff constants
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: MaxRetries,
		BaseDelay:  InitialBackoffMs * time.Millisecond,
		MaxDelay:   MaxBackoffMs * time.Millisecond,
		Multiplier: BackoffMultiplier,
	}
}

// retryWithBackoff calls fn until it succeeds or MaxRetries attempts
// are spent, sleeping with exponential backoff in between. A canceled
// context wins over remaining attempts: the context error is returned
// and fn is not called again.
func retryWithBackoff[T any](ctx context.Context, config RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	delay := config.BaseDelay

	for attempt := 1; attempt <= config.MaxRetries; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if attempt == config.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * config.Multiplier)
		if delay > config.MaxDelay {
			delay = config.MaxDelay
		}
	}

	return zero, lastErr
}
