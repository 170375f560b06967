// Package scheduler runs the heartbeat: every tick it evaluates each
// registered task that has come due, collects wake votes, and surfaces the
// highest-priority directive to the outer agent loop. Priority is
// registration order, first wake wins.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"keeper/internal/logger"
	"keeper/internal/store"
)

const lastRunKeyPrefix = "task_last_run:"

type TickResult struct {
	Active    bool       `json:"active"`
	Directive *Directive `json:"directive,omitempty"`
	Message   string     `json:"message,omitempty"`
	Ran       []string   `json:"ran,omitempty"`
	At        time.Time  `json:"at"`
	Skipped   bool       `json:"skipped,omitempty"`
}

type Heartbeat struct {
	kv    store.KVRepository
	nowFn func() time.Time

	tickMu sync.Mutex

	mu      sync.Mutex
	tasks   []Task
	lastRun map[string]time.Time

	lastResult TickResult
}

func NewHeartbeat(kv store.KVRepository) *Heartbeat {
	return &Heartbeat{
		kv:      kv,
		nowFn:   time.Now,
		lastRun: make(map[string]time.Time),
	}
}

// Register appends a task. Its last-fire timestamp is re-derived from the KV
// store so a restart does not re-fire everything at once.
func (h *Heartbeat) Register(ctx context.Context, t Task) {
	if t == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tasks = append(h.tasks, t)
	if h.kv == nil {
		return
	}
	var unix int64
	found, err := h.kv.Get(ctx, lastRunKeyPrefix+t.Name(), &unix)
	if err != nil {
		logger.Warnf("heartbeat: last-run restore failed task=%s err=%v", t.Name(), err)
		return
	}
	if found && unix > 0 {
		h.lastRun[t.Name()] = time.Unix(unix, 0).UTC()
	}
}

// Tick evaluates every due task sequentially in registration order. Two
// ticks never overlap: a tick arriving while one is in flight is skipped
// rather than queued, because overlapping ticks could double-submit an order
// for the same directive.
func (h *Heartbeat) Tick(ctx context.Context) TickResult {
	if !h.tickMu.TryLock() {
		logger.Debugf("heartbeat: tick already in flight, skipping")
		return TickResult{Skipped: true, At: h.nowFn().UTC()}
	}
	defer h.tickMu.Unlock()

	now := h.nowFn().UTC()
	result := TickResult{At: now}

	h.mu.Lock()
	tasks := make([]Task, len(h.tasks))
	copy(tasks, h.tasks)
	h.mu.Unlock()

	for _, t := range tasks {
		if !h.due(t, now) {
			continue
		}
		vote, err := h.evaluate(ctx, t, now)
		h.markRan(ctx, t, now)
		result.Ran = append(result.Ran, t.Name())
		if err != nil {
			// Task-local failure: logged, treated as no-wake, never aborts
			// the tick for the remaining tasks.
			logger.Errorf("heartbeat: task %s failed: %v", t.Name(), err)
			continue
		}
		if vote.Wake && !result.Active {
			result.Active = true
			result.Message = vote.Message
			result.Directive = vote.Directive
		}
	}

	if result.Active {
		logger.Infof("heartbeat: active tick ran=%v message=%s", result.Ran, result.Message)
	} else {
		logger.Debugf("heartbeat: idle tick ran=%v", result.Ran)
	}

	h.mu.Lock()
	h.lastResult = result
	h.mu.Unlock()
	return result
}

// LastResult returns the most recent completed tick (for the status API).
func (h *Heartbeat) LastResult() TickResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastResult
}

func (h *Heartbeat) due(t Task, now time.Time) bool {
	h.mu.Lock()
	last, ok := h.lastRun[t.Name()]
	h.mu.Unlock()
	if !ok {
		return true
	}
	return now.Sub(last) >= t.MinInterval()
}

func (h *Heartbeat) evaluate(ctx context.Context, t Task, now time.Time) (vote WakeVote, err error) {
	defer func() {
		if r := recover(); r != nil {
			vote = WakeVote{}
			err = fmt.Errorf("task panic: %v", r)
		}
	}()
	return t.Evaluate(ctx, now)
}

func (h *Heartbeat) markRan(ctx context.Context, t Task, now time.Time) {
	h.mu.Lock()
	h.lastRun[t.Name()] = now
	h.mu.Unlock()
	if h.kv == nil {
		return
	}
	if err := h.kv.Put(ctx, lastRunKeyPrefix+t.Name(), now.Unix()); err != nil {
		logger.Warnf("heartbeat: last-run persist failed task=%s err=%v", t.Name(), err)
	}
}

// Run ticks on the given cadence until ctx is cancelled. The in-flight tick
// always finishes before Run returns, so shutdown never abandons a partial
// order submission.
func (h *Heartbeat) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive")
	}
	logger.Infof("heartbeat: started interval=%s tasks=%d", interval, len(h.tasks))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Infof("heartbeat: ctx done, exit")
			return nil
		case <-ticker.C:
			h.Tick(ctx)
		}
	}
}
