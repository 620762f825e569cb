package gateway

import (
	"context"
	"time"
)

// RetryPolicy bounds how transient failures are retried. Delays grow
// exponentially from BaseDelay and are clamped to MaxDelay.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, first attempt included.
	MaxAttempts int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration
}

// DefaultRetryPolicy returns the policy used when callers do not override
// it: four attempts starting at half a second, capped at eight seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
	}
}

// retryWithBackoff runs op until it succeeds, fails non-transiently, or the
// policy's attempts are exhausted. Sleeps are context-aware so cancellation
// aborts before the next attempt rather than mid-wait.
func retryWithBackoff(ctx context.Context, policy RetryPolicy,
	op func() error) error {

	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}

		// Only transient failures are worth another attempt.
		if !IsTransient(lastErr) {
			return lastErr
		}

		if attempt == policy.MaxAttempts-1 {
			break
		}

		delay := policy.BaseDelay << uint(attempt)
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}
