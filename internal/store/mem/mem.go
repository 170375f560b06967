// Package mem is an in-memory Store used by tests and ephemeral dry runs.
// It mirrors the sqlite store's semantics (upsert by id, last-writer-wins)
// without touching disk.
package mem

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"keeper/internal/store"
	"keeper/internal/types"
)

type Store struct {
	mu        sync.Mutex
	positions map[string]types.Position
	kv        map[string]json.RawMessage
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		positions: make(map[string]types.Position),
		kv:        make(map[string]json.RawMessage),
	}
}

func (s *Store) Positions() store.PositionRepository { return (*positionRepo)(s) }
func (s *Store) KV() store.KVRepository              { return (*kvRepo)(s) }
func (s *Store) Close() error                        { return nil }

type positionRepo Store

func (r *positionRepo) Save(ctx context.Context, p *types.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.positions[p.ID] = *p
	return nil
}

func (r *positionRepo) FindByID(ctx context.Context, id string) (*types.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.positions[id]; ok {
		cp := p
		return &cp, nil
	}
	return nil, nil
}

func (r *positionRepo) FindByOrderID(ctx context.Context, orderID string) (*types.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.positions {
		if p.OrderID == orderID {
			cp := p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *positionRepo) ListByStatus(ctx context.Context, status types.PositionStatus) ([]types.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []types.Position
	for _, p := range r.positions {
		if status == "" || p.Status == status {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *positionRepo) CountByStatus(ctx context.Context, status types.PositionStatus) (int, error) {
	list, _ := r.ListByStatus(ctx, status)
	return len(list), nil
}

func (r *positionRepo) CountOpenedSince(ctx context.Context, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.positions {
		if !p.EntryTime.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *positionRepo) SumRealizedLossSince(ctx context.Context, since time.Time) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total float64
	for _, p := range r.positions {
		if p.Status == types.PositionClosed && !p.ClosedAt.Before(since) && p.PnL < 0 {
			total += -p.PnL
		}
	}
	return total, nil
}

type kvRepo Store

func (r *kvRepo) Get(ctx context.Context, key string, dest any) (bool, error) {
	r.mu.Lock()
	raw, ok := r.kv[key]
	r.mu.Unlock()
	if !ok {
		return false, nil
	}
	if dest == nil {
		return true, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (r *kvRepo) Put(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.kv[key] = raw
	r.mu.Unlock()
	return nil
}

func (r *kvRepo) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	delete(r.kv, key)
	r.mu.Unlock()
	return nil
}
