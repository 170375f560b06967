package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keeper/internal/store/mem"
)

type fakeTask struct {
	name     string
	interval time.Duration
	evaluate func(ctx context.Context, now time.Time) (WakeVote, error)

	mu    sync.Mutex
	calls int
}

func (t *fakeTask) Name() string               { return t.name }
func (t *fakeTask) MinInterval() time.Duration { return t.interval }

func (t *fakeTask) Evaluate(ctx context.Context, now time.Time) (WakeVote, error) {
	t.mu.Lock()
	t.calls++
	t.mu.Unlock()
	if t.evaluate == nil {
		return WakeVote{}, nil
	}
	return t.evaluate(ctx, now)
}

func (t *fakeTask) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

func wakeWith(venueName, action string) func(ctx context.Context, now time.Time) (WakeVote, error) {
	return func(ctx context.Context, now time.Time) (WakeVote, error) {
		d := &Directive{Venue: venueName, Action: action}
		return WakeVote{Wake: true, Message: action + " " + venueName, Directive: d}, nil
	}
}

func TestTickIdleWhenNoTaskWakes(t *testing.T) {
	ctx := context.Background()
	h := NewHeartbeat(mem.New().KV())
	h.Register(ctx, &fakeTask{name: "quiet", interval: time.Second})

	result := h.Tick(ctx)
	assert.False(t, result.Active)
	assert.Nil(t, result.Directive)
	assert.Equal(t, []string{"quiet"}, result.Ran)
}

func TestTickFirstRegisteredWins(t *testing.T) {
	ctx := context.Background()
	h := NewHeartbeat(mem.New().KV())
	h.Register(ctx, &fakeTask{name: "first", interval: time.Second, evaluate: wakeWith("spot", "monitor")})
	h.Register(ctx, &fakeTask{name: "second", interval: time.Second, evaluate: wakeWith("perps", "trade")})

	result := h.Tick(ctx)
	require.True(t, result.Active)
	require.NotNil(t, result.Directive)
	assert.Equal(t, "spot", result.Directive.Venue)
	assert.Equal(t, []string{"first", "second"}, result.Ran, "later tasks still run for their side effects")
}

func TestTickTaskFailureDoesNotAbortRemainingTasks(t *testing.T) {
	ctx := context.Background()
	h := NewHeartbeat(mem.New().KV())
	h.Register(ctx, &fakeTask{name: "broken", interval: time.Second, evaluate: func(ctx context.Context, now time.Time) (WakeVote, error) {
		return WakeVote{}, errors.New("venue unreachable")
	}})
	h.Register(ctx, &fakeTask{name: "healthy", interval: time.Second, evaluate: wakeWith("spot", "trade")})

	result := h.Tick(ctx)
	require.True(t, result.Active)
	assert.Equal(t, "spot", result.Directive.Venue)
	assert.Equal(t, []string{"broken", "healthy"}, result.Ran)
}

func TestTickRecoversFromTaskPanic(t *testing.T) {
	ctx := context.Background()
	h := NewHeartbeat(mem.New().KV())
	h.Register(ctx, &fakeTask{name: "panicky", interval: time.Second, evaluate: func(ctx context.Context, now time.Time) (WakeVote, error) {
		panic("nil map write")
	}})
	h.Register(ctx, &fakeTask{name: "healthy", interval: time.Second, evaluate: wakeWith("spot", "trade")})

	result := h.Tick(ctx)
	require.True(t, result.Active)
	assert.Equal(t, "spot", result.Directive.Venue)
}

func TestTickHonorsMinInterval(t *testing.T) {
	ctx := context.Background()
	h := NewHeartbeat(mem.New().KV())
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	h.nowFn = func() time.Time { return now }

	slow := &fakeTask{name: "slow", interval: 10 * time.Minute}
	fast := &fakeTask{name: "fast", interval: time.Minute}
	h.Register(ctx, slow)
	h.Register(ctx, fast)

	h.Tick(ctx)
	assert.Equal(t, 1, slow.callCount())
	assert.Equal(t, 1, fast.callCount())

	now = now.Add(time.Minute)
	result := h.Tick(ctx)
	assert.Equal(t, 1, slow.callCount(), "not due yet")
	assert.Equal(t, 2, fast.callCount())
	assert.Equal(t, []string{"fast"}, result.Ran)

	now = now.Add(10 * time.Minute)
	h.Tick(ctx)
	assert.Equal(t, 2, slow.callCount())
}

func TestRegisterRestoresLastRunFromStore(t *testing.T) {
	ctx := context.Background()
	kv := mem.New().KV()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	// A previous process ran the task one minute ago.
	require.NoError(t, kv.Put(ctx, lastRunKeyPrefix+"slow", now.Add(-time.Minute).Unix()))

	h := NewHeartbeat(kv)
	h.nowFn = func() time.Time { return now }
	slow := &fakeTask{name: "slow", interval: 10 * time.Minute}
	h.Register(ctx, slow)

	h.Tick(ctx)
	assert.Zero(t, slow.callCount(), "restart must not re-fire a recently-run task")
}

func TestOverlappingTicksRunExactlyOneEvaluation(t *testing.T) {
	ctx := context.Background()
	h := NewHeartbeat(mem.New().KV())

	started := make(chan struct{})
	release := make(chan struct{})
	blocking := &fakeTask{name: "blocking", interval: time.Nanosecond, evaluate: func(ctx context.Context, now time.Time) (WakeVote, error) {
		close(started)
		<-release
		return WakeVote{Wake: true, Directive: &Directive{Venue: "spot", Action: "trade"}}, nil
	}}
	h.Register(ctx, blocking)

	var first TickResult
	done := make(chan struct{})
	go func() {
		first = h.Tick(ctx)
		close(done)
	}()

	<-started
	second := h.Tick(ctx)
	assert.True(t, second.Skipped, "a tick arriving mid-flight is dropped, not queued")
	assert.Empty(t, second.Ran)

	close(release)
	<-done
	assert.False(t, first.Skipped)
	assert.Equal(t, 1, blocking.callCount(), "overlap must not double-run the task")
}

func TestLastResultReflectsMostRecentTick(t *testing.T) {
	ctx := context.Background()
	h := NewHeartbeat(mem.New().KV())
	h.Register(ctx, &fakeTask{name: "waker", interval: time.Nanosecond, evaluate: wakeWith("perps", "monitor")})

	h.Tick(ctx)
	got := h.LastResult()
	require.True(t, got.Active)
	assert.Equal(t, "perps", got.Directive.Venue)
}
