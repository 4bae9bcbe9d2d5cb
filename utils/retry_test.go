package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, Logger: zerolog.Nop()}

	calls := 0
	err := r.Do(context.Background(), "noop", func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryRecoversAfterFailures(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, Logger: zerolog.Nop()}

	calls := 0
	err := r.Do(context.Background(), "flaky", func() error {
		calls++
		if calls < 3 {
			return errBoom
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, Logger: zerolog.Nop()}

	calls := 0
	err := r.Do(context.Background(), "doomed", func() error {
		calls++
		return errBoom
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 5, BaseDelay: time.Hour, Logger: zerolog.Nop()}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	done := make(chan error, 1)
	go func() {
		done <- r.Do(ctx, "canceled", func() error {
			calls++
			return errBoom
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not observe context cancellation")
	}
}
