// Package reconcile corrects the local ledger against venue-reported truth.
// The ledger is authoritative about what we attempted; the venue is
// authoritative about what exists. A position the venue no longer reports is
// a ghost and is closed locally with a full loss — but only when the venue
// snapshot is trusted and non-empty, so a transient API outage can never
// false-close positions.
package reconcile

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"keeper/internal/logger"
	"keeper/internal/portfolio"
	"keeper/internal/retry"
	"keeper/internal/store"
	"keeper/internal/types"
	"keeper/internal/venue"
)

// PriceSource is the secondary market-data feed used to refresh prices when
// the venue snapshot is unavailable.
type PriceSource interface {
	LatestPrice(ctx context.Context, assetID string) (float64, error)
}

// Outcome is the result of applying one venue snapshot to the local open set.
type Outcome struct {
	Corrected    []types.Position
	GhostsClosed []types.Position
	Deferred     []types.Position
}

func (o Outcome) Changed() bool {
	return len(o.Corrected) > 0 || len(o.GhostsClosed) > 0
}

// Apply merges one venue's snapshot into the local open positions for that
// venue. Pure: no I/O, inputs are not mutated. Running it twice with the
// same snapshot yields no further changes.
func Apply(open []types.Position, snap venue.Snapshot, now time.Time) Outcome {
	var out Outcome
	ghostsPossible := snap.Trusted && len(snap.Positions) > 0
	for i := range open {
		p := open[i]
		if p.Venue != snap.Venue || p.Status != types.PositionOpen {
			continue
		}
		vp, held := snap.Positions[p.AssetID]
		switch {
		case held:
			// Venue truth wins over the local estimate for every live field.
			p.CurrentPrice = vp.Price
			p.Shares = vp.Size
			p.CurrentValue = vp.Size * vp.Price
			p.PnL = vp.PnL
			if p.EntryAmount > 0 {
				p.PnLPct = vp.PnL / p.EntryAmount * 100
			}
			p.PriceStale = false
			out.Corrected = append(out.Corrected, p)
		case ghostsPossible:
			// Held locally, absent from a trusted non-empty snapshot: the
			// venue had its chance to report it. Zero recovered value, full
			// loss recorded.
			p.Close(types.CloseTimeout, now)
			p.CurrentPrice = 0
			p.CurrentValue = 0
			p.PnL = -p.EntryAmount
			p.PnLPct = -100
			p.PriceStale = false
			out.GhostsClosed = append(out.GhostsClosed, p)
		default:
			// Unknown, not ghost: keep the last-known price and flag for a
			// refresh from the secondary source.
			p.PriceStale = true
			out.Deferred = append(out.Deferred, p)
		}
	}
	return out
}

type Engine struct {
	positions store.PositionRepository
	venues    []venue.Adapter
	prices    PriceSource
	portfolio *portfolio.Service
	policy    retry.Policy
	nowFn     func() time.Time
}

func NewEngine(positions store.PositionRepository, venues []venue.Adapter, prices PriceSource, pf *portfolio.Service, policy retry.Policy) *Engine {
	return &Engine{
		positions: positions,
		venues:    venues,
		prices:    prices,
		portfolio: pf,
		policy:    policy,
		nowFn:     time.Now,
	}
}

// Run fetches a snapshot per venue, applies it, and persists the results.
// Venues are reconciled concurrently; each goroutine only touches positions
// belonging to its own venue, so no two writers share a position id.
func (e *Engine) Run(ctx context.Context) (map[string]Outcome, error) {
	open, err := e.positions.ListByStatus(ctx, types.PositionOpen)
	if err != nil {
		return nil, err
	}

	results := make(map[string]Outcome, len(e.venues))
	var mu sync.Mutex
	group, gctx := errgroup.WithContext(ctx)
	for _, v := range e.venues {
		v := v
		group.Go(func() error {
			out, err := e.reconcileVenue(gctx, v, open)
			if err != nil {
				return err
			}
			mu.Lock()
			results[v.Name()] = out
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return results, err
	}
	if e.portfolio != nil {
		e.portfolio.Invalidate()
	}
	return results, nil
}

func (e *Engine) reconcileVenue(ctx context.Context, v venue.Adapter, open []types.Position) (Outcome, error) {
	now := e.nowFn().UTC()
	snap := e.fetchSnapshot(ctx, v, now)
	out := Apply(open, snap, now)

	for i := range out.Corrected {
		if err := e.positions.Save(ctx, &out.Corrected[i]); err != nil {
			return out, err
		}
	}
	for i := range out.GhostsClosed {
		g := &out.GhostsClosed[i]
		logger.Warnf("reconcile: ghost closed venue=%s asset=%s id=%s entry=%.4f loss=%.4f",
			g.Venue, g.AssetID, g.ID, g.EntryAmount, -g.PnL)
		if err := e.positions.Save(ctx, g); err != nil {
			return out, err
		}
	}
	// Ghost detection was a no-op for this venue; the independent price
	// refresh still proceeds through the secondary source.
	for i := range out.Deferred {
		d := &out.Deferred[i]
		e.refreshPrice(ctx, d)
		if err := e.positions.Save(ctx, d); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (e *Engine) fetchSnapshot(ctx context.Context, v venue.Adapter, now time.Time) venue.Snapshot {
	balance, balErr := retry.Do(ctx, v.Name()+".balance", e.policy, func(ctx context.Context) (float64, error) {
		return v.GetBalance(ctx)
	})
	if balErr != nil {
		logger.Warnf("reconcile: balance fetch failed venue=%s err=%v", v.Name(), balErr)
	}
	positions, posErr := retry.Do(ctx, v.Name()+".positions", e.policy, func(ctx context.Context) ([]venue.Position, error) {
		return v.GetOpenPositions(ctx)
	})
	if posErr != nil {
		logger.Warnf("reconcile: positions fetch failed venue=%s err=%v (snapshot untrusted)", v.Name(), posErr)
	}
	return venue.BuildSnapshot(v.Name(), balance, positions, posErr, now)
}

func (e *Engine) refreshPrice(ctx context.Context, p *types.Position) {
	if e.prices == nil {
		return
	}
	price, err := e.prices.LatestPrice(ctx, p.AssetID)
	if err != nil || price <= 0 {
		if err != nil {
			logger.Debugf("reconcile: secondary price refresh failed asset=%s err=%v", p.AssetID, err)
		}
		return
	}
	p.CurrentPrice = price
	p.CurrentValue = p.Shares * price
	p.PnL = p.CurrentValue - p.EntryAmount
	if p.EntryAmount > 0 {
		p.PnLPct = p.PnL / p.EntryAmount * 100
	}
	p.PriceStale = false
}
