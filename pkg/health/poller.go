package health

import (
	"context"
	"fmt"
	"time"
)

// Poll runs up to cfg.MaxAttempts sequential probes spaced by
// cfg.Interval, each bounded by cfg.Timeout. It returns the first
// healthy result, or the last failing result once attempts are
// exhausted. The calling goroutine sleeps between attempts; other
// rollouts are unaffected.
//
// Cancelling ctx stops the poll between attempts and returns an
// unhealthy result carrying the context error.
func Poll(ctx context.Context, checker Checker, cfg PollConfig) Result {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var last Result
	for attempt := 1; attempt <= attempts; attempt++ {
		probeCtx := ctx
		var cancel context.CancelFunc
		if cfg.Timeout > 0 {
			probeCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		}

		last = checker.Check(probeCtx)
		if cancel != nil {
			cancel()
		}

		if last.Healthy {
			return last
		}

		// Don't sleep after the final attempt
		if attempt == attempts {
			break
		}

		select {
		case <-time.After(cfg.Interval):
		case <-ctx.Done():
			return Result{
				Healthy:     false,
				Message:     fmt.Sprintf("polling cancelled after %d attempts: %v", attempt, ctx.Err()),
				AttemptedAt: time.Now(),
			}
		}
	}

	return last
}
