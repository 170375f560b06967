// Package venue defines the contract a trading venue adapter must satisfy.
// Protocol clients live outside this module; the core only depends on this
// interface and on the typed errors below.
package venue

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrBlocked marks a venue that refuses service for this account or region.
// Retrying cannot help; callers must short-circuit before any retry loop.
var ErrBlocked = errors.New("venue access blocked")

// APIError carries a raw venue error response. StatusCode is zero when the
// venue returned a malformed payload without a status field.
type APIError struct {
	Venue      string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s api error status=%d: %s", e.Venue, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s api error: %s", e.Venue, e.Body)
}

// Position is a venue-reported holding, keyed by AssetID within a snapshot.
type Position struct {
	AssetID   string
	Size      float64
	Price     float64
	PnL       float64
	Leveraged bool
}

// Snapshot is the per-tick view of one venue. Trusted distinguishes "venue
// returned an empty list" from "venue call failed": only a snapshot produced
// by a successful positions call is trusted, and ghost detection additionally
// requires it to be non-empty.
type Snapshot struct {
	Venue     string
	Balance   float64
	Positions map[string]Position
	Trusted   bool
	FetchedAt time.Time
}

func (s Snapshot) Holds(assetID string) bool {
	_, ok := s.Positions[assetID]
	return ok
}

type OrderRequest struct {
	AssetID string
	Side    string
	Price   float64
	Size    float64
}

type OrderResult struct {
	OrderID     string
	FilledPrice float64
	FilledSize  float64
}

// Adapter is the minimal surface the core consumes from a venue.
type Adapter interface {
	Name() string

	GetBalance(ctx context.Context) (float64, error)

	GetOpenPositions(ctx context.Context) ([]Position, error)

	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)

	CloseOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
}

// BuildSnapshot assembles a Snapshot from one balance/positions fetch. A nil
// positions error yields a trusted snapshot even when the list is empty.
func BuildSnapshot(name string, balance float64, positions []Position, fetchErr error, at time.Time) Snapshot {
	snap := Snapshot{
		Venue:     name,
		Balance:   balance,
		Positions: make(map[string]Position, len(positions)),
		Trusted:   fetchErr == nil,
		FetchedAt: at,
	}
	if fetchErr != nil {
		return snap
	}
	for _, p := range positions {
		if p.AssetID == "" {
			continue
		}
		snap.Positions[p.AssetID] = p
	}
	return snap
}
