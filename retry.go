package ferry

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
)

// RetryConfig configures how often a failed transfer job is re-run.
type RetryConfig struct {
	// MaxRetries is the number of additional attempts after the first one.
	MaxRetries int

	// Delay is the pause between attempts. Zero retries immediately.
	Delay time.Duration
}

// DefaultRetryConfig retries three times without delay.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3}
}

// NoRetryConfig returns a config with retries disabled.
func NoRetryConfig() RetryConfig {
	return RetryConfig{}
}

// RetryableFunc is a function that can be retried.
type RetryableFunc func() error

// Retry runs fn until it succeeds or the attempts are exhausted. Any error is
// considered retryable. It returns the number of attempts made and the last
// error, wrapped with the operation name.
func Retry(ctx context.Context, config RetryConfig, operation string, fn RetryableFunc) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%s cancelled after 0 attempts: %w", operation, err)
	}

	var lastErr error
	attempts := 0

	err := retry.Do(
		func() error {
			attempts++
			lastErr = fn()
			return lastErr
		},
		retry.Context(ctx),
		retry.Attempts(uint(max(config.MaxRetries, 0)+1)),
		retry.Delay(config.Delay),
		retry.DelayType(retry.FixedDelay),
		retry.RetryIf(func(error) bool { return ctx.Err() == nil }),
		retry.LastErrorOnly(true),
	)
	if err == nil {
		return attempts, nil
	}
	if lastErr == nil {
		lastErr = err
	}

	if ctx.Err() != nil {
		return attempts, fmt.Errorf("%s cancelled after %d attempts: %w", operation, attempts, lastErr)
	}
	if attempts == 1 {
		return attempts, lastErr
	}
	return attempts, fmt.Errorf("%s failed after %d attempts: %w", operation, attempts, lastErr)
}
