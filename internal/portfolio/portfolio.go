// Package portfolio derives the account summary from the ledger and the
// venues' reported balances. The snapshot is cached and explicitly
// invalidated by the two writers that can change it: a confirmed order and a
// reconciliation pass.
package portfolio

import (
	"context"
	"sync"
	"time"

	"keeper/internal/logger"
	"keeper/internal/retry"
	"keeper/internal/store"
	"keeper/internal/types"
	"keeper/internal/venue"
)

type Service struct {
	positions store.PositionRepository
	venues    []venue.Adapter
	policy    retry.Policy
	nowFn     func() time.Time

	mu     sync.Mutex
	cached *types.Portfolio
}

func NewService(positions store.PositionRepository, venues []venue.Adapter, policy retry.Policy) *Service {
	return &Service{
		positions: positions,
		venues:    venues,
		policy:    policy,
		nowFn:     time.Now,
	}
}

// Invalidate drops the cached snapshot. Called after a confirmed order and
// after every reconciliation pass.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

// Snapshot returns the cached portfolio or recomputes it. The open-position
// count may lag behind venue truth until the next reconciliation tick;
// callers tolerate that window.
func (s *Service) Snapshot(ctx context.Context) (types.Portfolio, error) {
	s.mu.Lock()
	if s.cached != nil {
		p := *s.cached
		s.mu.Unlock()
		return p, nil
	}
	s.mu.Unlock()

	p, err := s.recompute(ctx)
	if err != nil {
		return types.Portfolio{}, err
	}
	s.mu.Lock()
	s.cached = &p
	s.mu.Unlock()
	return p, nil
}

func (s *Service) recompute(ctx context.Context) (types.Portfolio, error) {
	now := s.nowFn().UTC()

	var balance float64
	for _, v := range s.venues {
		b, err := retry.Do(ctx, v.Name()+".balance", s.policy, func(ctx context.Context) (float64, error) {
			return v.GetBalance(ctx)
		})
		if err != nil {
			// A venue that cannot report its balance contributes zero this
			// round rather than failing the whole snapshot.
			logger.Warnf("portfolio: balance fetch failed venue=%s err=%v", v.Name(), err)
			continue
		}
		balance += b
	}

	open, err := s.positions.CountByStatus(ctx, types.PositionOpen)
	if err != nil {
		return types.Portfolio{}, err
	}
	trades, err := s.positions.CountOpenedSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return types.Portfolio{}, err
	}
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	loss, err := s.positions.SumRealizedLossSince(ctx, dayStart)
	if err != nil {
		return types.Portfolio{}, err
	}

	return types.Portfolio{
		CurrentBalance: balance,
		PositionsOpen:  open,
		DailyLoss:      loss,
		Trades24h:      trades,
		UpdatedAt:      now,
	}, nil
}
