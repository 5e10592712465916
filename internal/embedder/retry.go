package embedder

import (
	"context"
	"time"
)

// Retry configuration for provider calls.
const (
	maxRetries        = 3
	initialBackoffMs  = 100
	maxBackoffMs      = 5000
	backoffMultiplier = 2.0
)

// retryConfig configures exponential backoff behavior.
type retryConfig struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	multiplier float64
}

func defaultRetryConfig() retryConfig {
	return retryConfig{
		maxRetries: maxRetries,
		baseDelay:  time.Duration(initialBackoffMs) * time.Millisecond,
		maxDelay:   time.Duration(maxBackoffMs) * time.Millisecond,
		multiplier: backoffMultiplier,
	}
}

// retryWithBackoff executes fn with exponential backoff. Retry stops on
// context cancellation.
func retryWithBackoff[T any](ctx context.Context, cfg retryConfig, fn func() (T, error)) (T, error) {
	var lastErr error
	var zero T
	backoff := cfg.baseDelay

	for attempt := 0; attempt < cfg.maxRetries; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		if attempt < cfg.maxRetries-1 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
				backoff = time.Duration(float64(backoff) * cfg.multiplier)
				if backoff > cfg.maxDelay {
					backoff = cfg.maxDelay
				}
			}
		}
	}
	return zero, lastErr
}
