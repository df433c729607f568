package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewforge/kgindex/internal/kgerr"
)

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func TestRunActivity_SucceedsWithoutRetry(t *testing.T) {
	d := &Driver{Retry: DefaultRetryPolicy(), Sleep: noSleep}
	calls := 0

	result, err := runActivity(d, context.Background(), "op", func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 1, calls)
}

func TestRunActivity_RetriesRetryableErrorsUntilSuccess(t *testing.T) {
	d := &Driver{Retry: DefaultRetryPolicy(), Sleep: noSleep}
	calls := 0

	result, err := runActivity(d, context.Background(), "op", func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, kgerr.New(kgerr.GraphPersistence, "op", errors.New("transient"))
		}
		return 7, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 7, result)
	assert.Equal(t, 3, calls)
}

func TestRunActivity_AbortsImmediatelyOnNonRetryable(t *testing.T) {
	d := &Driver{Retry: DefaultRetryPolicy(), Sleep: noSleep}
	calls := 0

	_, err := runActivity(d, context.Background(), "op", func(ctx context.Context) (int, error) {
		calls++
		return 0, kgerr.New(kgerr.CloneNonRetryable, "op", errors.New("auth failed"))
	})

	require.Error(t, err)
	assert.True(t, kgerr.Is(err, kgerr.CloneNonRetryable))
	assert.Equal(t, 1, calls)
}

func TestRunActivity_ExhaustsMaxAttempts(t *testing.T) {
	d := &Driver{
		Retry: RetryPolicy{MaxAttempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, BackoffCoefficient: 2.0},
		Sleep: noSleep,
	}
	calls := 0

	_, err := runActivity(d, context.Background(), "op", func(ctx context.Context) (int, error) {
		calls++
		return 0, kgerr.New(kgerr.GraphPersistence, "op", errors.New("still failing"))
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestRunActivity_CancelledContextStopsRetries(t *testing.T) {
	d := &Driver{Retry: DefaultRetryPolicy(), Sleep: noSleep}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runActivity(d, ctx, "op", func(ctx context.Context) (int, error) {
		t.Fatal("fn must not run once context is already cancelled")
		return 0, nil
	})

	require.Error(t, err)
	assert.True(t, kgerr.Is(err, kgerr.Cancelled))
}

func TestNextInterval_CapsAtMaxInterval(t *testing.T) {
	policy := RetryPolicy{InitialInterval: 10 * time.Second, MaxInterval: 30 * time.Second, BackoffCoefficient: 2.0}

	assert.Equal(t, 20*time.Second, nextInterval(10*time.Second, policy))
	assert.Equal(t, 30*time.Second, nextInterval(20*time.Second, policy))
	assert.Equal(t, 30*time.Second, nextInterval(30*time.Second, policy))
}

func TestNewDriver_AppliesPackageDefaults(t *testing.T) {
	d := NewDriver()

	assert.Equal(t, DefaultRetryPolicy(), d.Retry)
	assert.NotNil(t, d.Sleep)
	assert.NotNil(t, d.Now)
}
