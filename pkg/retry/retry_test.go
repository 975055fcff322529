package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) Config {
	return Config{MaxAttempts: attempts, InitialWait: time.Millisecond, MaxWait: time.Millisecond, Multiplier: 1}
}

func TestDefaultConfig_SingleAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), DefaultConfig(), func() error {
		calls++
		return Retryable(errors.New("boom"))
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, IsRetryable(err), "returned error is unwrapped")
	assert.EqualError(t, err, "boom")
}

func TestWithAttempts(t *testing.T) {
	assert.Equal(t, 4, WithAttempts(4).MaxAttempts)
	assert.Equal(t, 1, WithAttempts(0).MaxAttempts)
	assert.Equal(t, 1, WithAttempts(-2).MaxAttempts)
}

func TestDo_RetriesRetryable(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(3), func() error {
		calls++
		if calls < 3 {
			return Retryable(errors.New("transient"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnPermanent(t *testing.T) {
	permanent := errors.New("permanent")
	calls := 0
	err := Do(context.Background(), fastConfig(5), func() error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	transient := errors.New("transient")
	calls := 0
	err := Do(context.Background(), fastConfig(3), func() error {
		calls++
		return Retryable(transient)
	})
	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 3, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	transient := errors.New("connection reset")
	err := Do(ctx, fastConfig(3), func() error {
		return Retryable(transient)
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, transient)
	assert.False(t, IsRetryable(err))
	assert.Contains(t, err.Error(), "last error: connection reset")
}

func TestDo_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{MaxAttempts: 3, InitialWait: time.Hour, MaxWait: time.Hour, Multiplier: 1}

	transient := errors.New("503 Service Unavailable")
	calls := 0
	err := Do(ctx, cfg, func() error {
		calls++
		cancel()
		return Retryable(transient)
	})
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, transient)
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	v, err := DoWithResult(context.Background(), fastConfig(2), func() (string, error) {
		calls++
		if calls == 1 {
			return "", Retryable(errors.New("transient"))
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestRetryableNil(t *testing.T) {
	assert.NoError(t, Retryable(nil))
}
