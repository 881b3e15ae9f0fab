// Package retry re-runs flaky remote calls with exponential backoff.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Backoff pacing starts at half the walker's courtesy delay and caps
// below the shortest sensible poll interval, so a retrying call is
// never more aggressive toward the server than regular paging.
const (
	defaultBaseDelay = 250 * time.Millisecond
	defaultMaxDelay  = 4 * time.Second
)

// Config controls the retry loop. Zero values fall back to the
// defaults above; Jitter defaults to half the base delay.
type Config struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Jitter    time.Duration
}

// Do runs fn until it succeeds or Attempts runs out, doubling the
// delay between failures. The backoff sleep is context-aware;
// cancellation returns ctx.Err() immediately.
func Do(ctx context.Context, config Config, fn func() error) error {
	attempts := config.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	baseDelay := config.BaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	maxDelay := config.MaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}
	jitter := config.Jitter
	if jitter <= 0 {
		jitter = baseDelay / 2
	}

	var lastErr error
	delay := baseDelay
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}

		sleep := delay + time.Duration(rand.Int63n(int64(jitter)))
		if sleep > maxDelay {
			sleep = maxDelay
		}
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
	return fmt.Errorf("retry failed: %w", lastErr)
}
