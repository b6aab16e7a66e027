// Package retry runs an operation with bounded exponential backoff and jitter.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Config bounds the retries of one operation.
type Config struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	JitterPercent float64
}

// Attempts is MaxAttempts with a floor of one.
func (c Config) Attempts() int {
	return max(c.MaxAttempts, 1)
}

// Delay returns the wait after the given zero-based attempt: BaseDelay
// doubled per attempt, spread by ±JitterPercent and capped at MaxDelay.
func (c Config) Delay(attempt int) time.Duration {
	if attempt > 30 {
		attempt = 30
	}
	d := time.Duration(float64(c.BaseDelay) * float64(int64(1)<<uint(attempt)))
	if j := c.JitterPercent; j > 0 {
		// #nosec G404 - jitter does not need a secure source
		d += time.Duration((rand.Float64()*2 - 1) * j * float64(d))
	}
	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	if d < 0 {
		d = 0
	}
	return d
}

// Do calls fn until it succeeds, retryable reports false, ctx ends or the
// attempts run out. It returns the number of calls made and fn's last error,
// or ctx's error when ctx ended during a wait. A nil retryable retries
// every error.
func Do(ctx context.Context, cfg Config, retryable func(error) bool, fn func(ctx context.Context) error) (int, error) {
	attempts := cfg.Attempts()
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return attempt + 1, nil
		}
		if (retryable != nil && !retryable(err)) || ctx.Err() != nil || attempt == attempts-1 {
			return attempt + 1, err
		}

		t := time.NewTimer(cfg.Delay(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return attempt + 1, ctx.Err()
		case <-t.C:
		}
	}
	return attempts, err
}
