package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// RetryConfig holds the parameters for the retry strategy.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      zerolog.Logger
}

// Do executes fn with exponential back-off retry logic. Canceling the
// context aborts both the wait between attempts and any further attempts.
func (r *RetryConfig) Do(ctx context.Context, operationName string, fn func() error) error {
	var lastErr error
	delay := r.BaseDelay

	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt < r.MaxAttempts {
			r.Logger.Warn().
				Str("operation", operationName).
				Int("attempt", attempt).
				Int("max_attempts", r.MaxAttempts).
				Dur("retry_in", delay).
				Err(lastErr).
				Msg("operation failed, retrying")

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("%s canceled: %w", operationName, ctx.Err())
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, r.MaxAttempts, lastErr)
}
