package retry

import (
	"context"
	"fmt"
	"time"
)

// Config controls the retry loop.
type Config struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     bool // linear backoff: attempt * Delay

	// Retryable, when set, limits retries to errors it accepts; other
	// errors abort the loop immediately.
	Retryable func(error) bool
}

// WithRetry runs fn up to MaxAttempts times, sleeping between attempts and
// honoring ctx cancellation.
func WithRetry(ctx context.Context, config Config, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if err := fn(); err != nil {
			lastErr = err

			if config.Retryable != nil && !config.Retryable(err) {
				return err
			}
			if attempt == config.MaxAttempts {
				return fmt.Errorf("failed after %d attempts: %w", config.MaxAttempts, err)
			}

			delay := config.Delay
			if config.Backoff {
				delay = time.Duration(attempt) * config.Delay
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				continue
			}
		}
		return nil
	}

	return lastErr
}
