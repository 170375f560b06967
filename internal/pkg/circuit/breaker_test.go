package circuit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker("spot", 3, time.Minute)
	boom := errors.New("boom")
	fail := func(ctx context.Context) error { return boom }

	for i := 0; i < 3; i++ {
		require.ErrorIs(t, b.Do(context.Background(), fail), boom)
	}
	err := b.Do(context.Background(), fail)
	assert.ErrorIs(t, err, ErrOpen)
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	b := NewBreaker("spot", 3, time.Minute)
	boom := errors.New("boom")

	b.Failure()
	b.Failure()
	b.Success()
	b.Failure()
	b.Failure()
	assert.True(t, b.Allow(), "count reset by success, still under threshold")

	err := b.Do(context.Background(), func(ctx context.Context) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.False(t, b.Allow())
}

func TestBreakerProbesAfterCooldown(t *testing.T) {
	b := NewBreaker("spot", 1, time.Minute)
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	b.nowFn = func() time.Time { return now }

	b.Failure()
	assert.False(t, b.Allow())

	now = now.Add(time.Minute)
	assert.True(t, b.Allow(), "cooldown elapsed, one probe allowed")

	// Probe fails: cooldown restarts.
	b.Failure()
	assert.False(t, b.Allow())

	now = now.Add(time.Minute)
	require.NoError(t, b.Do(context.Background(), func(ctx context.Context) error { return nil }))
	assert.True(t, b.Allow(), "probe success closes the breaker")
}
