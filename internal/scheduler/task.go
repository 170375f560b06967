package scheduler

import (
	"context"
	"time"
)

// Directive tells the outer agent loop which venue to act on next. Degraded
// marks a low-balance fallback choice the caller should treat as
// monitor-only rather than tradeable.
type Directive struct {
	Venue    string `json:"venue"`
	Action   string `json:"action"`
	Message  string `json:"message"`
	Degraded bool   `json:"degraded,omitempty"`
}

// WakeVote is one task's answer for a tick.
type WakeVote struct {
	Wake      bool
	Message   string
	Directive *Directive
}

// Task is a named, independently-scheduled unit of work. Implementations
// keep no state between invocations except what they read and write through
// the KV store explicitly.
type Task interface {
	Name() string
	MinInterval() time.Duration
	Evaluate(ctx context.Context, now time.Time) (WakeVote, error)
}
