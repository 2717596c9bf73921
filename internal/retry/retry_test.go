package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDelaySchedule(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: 500 * time.Millisecond, MaxDelay: 6 * time.Second}

	require.Equal(t, 500*time.Millisecond, p.Delay(1))
	require.Equal(t, 1*time.Second, p.Delay(2))
	require.Equal(t, 2*time.Second, p.Delay(3))
	require.Equal(t, 4*time.Second, p.Delay(4))
	require.Equal(t, 6*time.Second, p.Delay(5), "capped at MaxDelay")
	require.Equal(t, 6*time.Second, p.Delay(10))
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	p := Policy{MaxAttempts: 4, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	sentinel := errors.New("upstream down")

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return sentinel
	})
	require.Error(t, err)
	require.ErrorIs(t, err, sentinel)
	require.Equal(t, 3, calls)
}

func TestDoStopsOnCancellationError(t *testing.T) {
	p := Policy{MaxAttempts: 4, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return context.Canceled
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls, "cancellation must not be retried")
}

func TestDoReturnsWhenContextCancelledDuringBackoff(t *testing.T) {
	p := Policy{MaxAttempts: 4, BaseDelay: time.Second, MaxDelay: 6 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := p.Do(ctx, func() error { return errors.New("transient") })
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	require.Equal(t, 4, p.MaxAttempts)
	require.Equal(t, 500*time.Millisecond, p.BaseDelay)
	require.Equal(t, 6*time.Second, p.MaxDelay)
}
