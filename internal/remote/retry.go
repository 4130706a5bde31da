package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"time"
)

// retryPolicy mirrors internal/core/resilience.RetryPolicy, trimmed to
// the fields this package exercises (no metrics hook: remote's own
// caller records decision-path metrics, not per-attempt HTTP metrics).
var retryPolicy = struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	multiplier float64
}{maxRetries: 3, baseDelay: 100 * time.Millisecond, maxDelay: 2 * time.Second, multiplier: 2.0}

// withRetry retries operation under exponential backoff with jitter,
// stopping early on a non-retryable error or context cancellation.
// Reserved for idempotent reads (checkSnapshotVersion, resolveSnapshot);
// never used for checkCriteria.
func withRetry(ctx context.Context, logger *slog.Logger, op string, operation func() error) error {
	var lastErr error
	delay := retryPolicy.baseDelay

	for attempt := 0; attempt <= retryPolicy.maxRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}
		if attempt >= retryPolicy.maxRetries {
			break
		}

		logger.Warn("retrying remote operation", "op", op, "attempt", attempt+1, "delay", delay, "error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay = nextDelay(delay)
	}

	return fmt.Errorf("remote: %s failed after %d attempts: %w", op, retryPolicy.maxRetries+1, lastErr)
}

func nextDelay(current time.Duration) time.Duration {
	next := time.Duration(float64(current) * retryPolicy.multiplier)
	if next > retryPolicy.maxDelay {
		next = retryPolicy.maxDelay
	}
	next += time.Duration(float64(next) * 0.1 * rand.Float64())
	return next
}

func isRetryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return false
}
