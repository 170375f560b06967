// Package circuit guards a venue adapter with a consecutive-failure breaker.
// An open breaker refuses calls until a cooldown elapses; the first success
// after cooldown closes it again.
package circuit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"keeper/internal/logger"
)

var ErrOpen = errors.New("circuit open")

type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration

	mu          sync.Mutex
	consecutive int
	open        bool
	openedAt    time.Time
	nowFn       func() time.Time
}

func NewBreaker(name string, threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{
		name:      name,
		threshold: threshold,
		cooldown:  cooldown,
		nowFn:     time.Now,
	}
}

// Allow reports whether a call may proceed. An open breaker lets one probe
// through once the cooldown has elapsed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return true
	}
	if b.nowFn().Sub(b.openedAt) >= b.cooldown {
		return true
	}
	return false
}

func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.open {
		logger.Infof("circuit %s: closed after probe success", b.name)
	}
	b.open = false
	b.consecutive = 0
}

func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutive++
	if b.open {
		b.openedAt = b.nowFn()
		return
	}
	if b.consecutive >= b.threshold {
		b.open = true
		b.openedAt = b.nowFn()
		logger.Warnf("circuit %s: opened after %d consecutive failures (cooldown %s)",
			b.name, b.consecutive, b.cooldown)
	}
}

// Do runs fn under the breaker, recording the outcome.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if b == nil {
		return fn(ctx)
	}
	if !b.Allow() {
		return fmt.Errorf("%s: %w", b.name, ErrOpen)
	}
	err := fn(ctx)
	if err != nil {
		b.Failure()
		return err
	}
	b.Success()
	return nil
}
