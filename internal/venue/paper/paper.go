// Package paper is an in-memory venue adapter used for dry runs and tests.
// It honors the behaviors the core has to survive on a real venue: minimum
// order sizes (fills round up, so executed cost can exceed the requested
// amount) and balance accounting on fills.
package paper

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"

	"keeper/internal/venue"
)

type Config struct {
	Name         string
	SeedBalance  float64
	MinOrderSize float64
	Leveraged    bool
}

type Venue struct {
	cfg Config

	mu        sync.Mutex
	balance   float64
	positions map[string]venue.Position

	// PlaceErr / PositionsErr inject failures in tests.
	PlaceErr     error
	PositionsErr error
}

var _ venue.Adapter = (*Venue)(nil)

func New(cfg Config) *Venue {
	if cfg.Name == "" {
		cfg.Name = "paper"
	}
	return &Venue{
		cfg:       cfg,
		balance:   cfg.SeedBalance,
		positions: make(map[string]venue.Position),
	}
}

func (v *Venue) Name() string { return v.cfg.Name }

func (v *Venue) GetBalance(ctx context.Context) (float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balance, nil
}

func (v *Venue) GetOpenPositions(ctx context.Context) ([]venue.Position, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.PositionsErr != nil {
		return nil, v.PositionsErr
	}
	out := make([]venue.Position, 0, len(v.positions))
	for _, p := range v.positions {
		out = append(out, p)
	}
	return out, nil
}

func (v *Venue) PlaceOrder(ctx context.Context, req venue.OrderRequest) (*venue.OrderResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.PlaceErr != nil {
		return nil, v.PlaceErr
	}
	if req.Price <= 0 || req.Size <= 0 {
		return nil, fmt.Errorf("%s: invalid order price=%f size=%f", v.cfg.Name, req.Price, req.Size)
	}
	size := req.Size
	if v.cfg.MinOrderSize > 0 && size < v.cfg.MinOrderSize {
		size = v.cfg.MinOrderSize
	}
	// Whole-share rounding up, like venues with lot-size constraints.
	if v.cfg.MinOrderSize >= 1 {
		size = math.Ceil(size)
	}
	cost := size * req.Price
	if cost > v.balance {
		return nil, &venue.APIError{Venue: v.cfg.Name, StatusCode: 400, Body: "insufficient balance"}
	}
	v.balance -= cost
	v.positions[req.AssetID] = venue.Position{
		AssetID:   req.AssetID,
		Size:      size,
		Price:     req.Price,
		Leveraged: v.cfg.Leveraged,
	}
	return &venue.OrderResult{
		OrderID:     uuid.NewString(),
		FilledPrice: req.Price,
		FilledSize:  size,
	}, nil
}

func (v *Venue) CloseOrder(ctx context.Context, req venue.OrderRequest) (*venue.OrderResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	held, ok := v.positions[req.AssetID]
	if !ok {
		return nil, &venue.APIError{Venue: v.cfg.Name, StatusCode: 404, Body: "position not found"}
	}
	size := req.Size
	if size <= 0 || size > held.Size {
		size = held.Size
	}
	price := req.Price
	if price <= 0 {
		price = held.Price
	}
	v.balance += size * price
	if remaining := held.Size - size; remaining > 0 {
		held.Size = remaining
		v.positions[req.AssetID] = held
	} else {
		delete(v.positions, req.AssetID)
	}
	return &venue.OrderResult{
		OrderID:     uuid.NewString(),
		FilledPrice: price,
		FilledSize:  size,
	}, nil
}

// Drop removes a holding without any fill, simulating an external event the
// ledger does not know about (the source of ghost positions).
func (v *Venue) Drop(assetID string) {
	v.mu.Lock()
	delete(v.positions, assetID)
	v.mu.Unlock()
}

// SetBalance overrides the balance (tests).
func (v *Venue) SetBalance(b float64) {
	v.mu.Lock()
	v.balance = b
	v.mu.Unlock()
}
