// Package retry wraps interactive backend reads in a short exponential
// backoff. Only errors the taxonomy marks retryable are retried; everything
// else is returned to the caller on the first attempt so writes keep their
// exactly-once semantics.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	perrors "github.com/storyforge-ai/workflow-agent/internal/errors"
)

// Config holds backoff tuning.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      bool
}

// DefaultConfig tunes the backoff for interactive snapshot reads: a short
// first delay so a flaky call recovers within human patience, and a bounded
// total wait so an open-project action fails inside a few seconds.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Jitter:      true,
	}
}

// Do runs fn under cfg, retrying retryable failures with doubling delays.
// The operation name is carried into the exhaustion error so notices and
// logs can say which backend read gave up.
func Do(ctx context.Context, cfg Config, operation string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !perrors.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		delay := cfg.BaseDelay << uint(attempt-1)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
		if cfg.Jitter {
			delay = time.Duration(float64(delay) * (0.5 + rand.Float64()*0.5))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("%s: %d attempts exhausted: %w", operation, cfg.MaxAttempts, lastErr)
}
