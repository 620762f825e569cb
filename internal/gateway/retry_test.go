package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fastPolicy keeps retry tests quick.
var fastPolicy = RetryPolicy{
	MaxAttempts: 3,
	BaseDelay:   time.Millisecond,
	MaxDelay:    5 * time.Millisecond,
}

func TestRetrySucceedsAfterTransient(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), fastPolicy, func() error {
		calls++
		if calls < 3 {
			return &TransientError{Op: "op", Err: errors.New("503")}
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestRetryStopsOnFatal(t *testing.T) {
	fatal := &FatalError{Op: "op", Err: errors.New("401")}

	calls := 0
	err := retryWithBackoff(context.Background(), fastPolicy, func() error {
		calls++
		return fatal
	})
	require.Equal(t, fatal, err)
	require.Equal(t, 1, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), fastPolicy, func() error {
		calls++
		return &TransientError{Op: "op", Err: errors.New("flaky")}
	})
	require.True(t, IsTransient(err))
	require.Equal(t, fastPolicy.MaxAttempts, calls)
}

func TestRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := retryWithBackoff(ctx, RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   time.Hour,
		MaxDelay:    time.Hour,
	}, func() error {
		calls++
		cancel()
		return &TransientError{Op: "op", Err: errors.New("flaky")}
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestErrorTaxonomy(t *testing.T) {
	cause := errors.New("boom")

	transient := &TransientError{Op: "fetch files", Err: cause}
	require.True(t, IsTransient(transient))
	require.False(t, IsFatal(transient))
	require.ErrorIs(t, transient, cause)

	fatal := &FatalError{Op: "fetch files", Err: cause}
	require.True(t, IsFatal(fatal))
	require.False(t, IsTransient(fatal))
	require.ErrorIs(t, fatal, cause)
}
