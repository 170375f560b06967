package store

import (
	"context"
	"time"

	"keeper/internal/types"
)

// PositionRepository handles position persistence. All status writes funnel
// through the executor and the reconciliation engine; the repository itself
// does not enforce transition rules beyond last-writer-wins.
type PositionRepository interface {
	Save(ctx context.Context, p *types.Position) error
	FindByID(ctx context.Context, id string) (*types.Position, error)
	FindByOrderID(ctx context.Context, orderID string) (*types.Position, error)
	ListByStatus(ctx context.Context, status types.PositionStatus) ([]types.Position, error)
	CountByStatus(ctx context.Context, status types.PositionStatus) (int, error)
	CountOpenedSince(ctx context.Context, since time.Time) (int, error)
	SumRealizedLossSince(ctx context.Context, since time.Time) (float64, error)
}

// KVRepository is the generic bookkeeping table: task last-run timestamps,
// last-chosen venue, per-day counters.
type KVRepository interface {
	// Get decodes the stored JSON value into dest; the bool reports presence.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Put(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
}

// Store is the entry point for ledger access.
type Store interface {
	Positions() PositionRepository
	KV() KVRepository
	Close() error
}
