// Package executor drives a proposal through the trade-placement state
// machine: proposed → risk_checked → (rejected | submitted) → (confirmed |
// failed). Ledger counters only move on a confirmed fill; a failure after
// exhausted retries persists nothing.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"keeper/internal/logger"
	"keeper/internal/pkg/circuit"
	"keeper/internal/portfolio"
	"keeper/internal/retry"
	"keeper/internal/risk"
	"keeper/internal/store"
	"keeper/internal/store/auditlog"
	"keeper/internal/types"
	"keeper/internal/venue"
)

// Proposal is a routing directive plus an amount. ID is assigned on first
// use and stays stable across retries, so re-placing after a transient
// failure cannot create a duplicate position.
type Proposal struct {
	ID              string
	Venue           string
	AssetID         string
	Side            string
	AmountUSD       float64
	Price           float64
	TargetExitPrice float64
	StopLossPrice   float64
	Leveraged       bool
}

// RejectionError is a terminal risk-gate decision for this tick.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("trade rejected: %s", e.Reason)
}

type Executor struct {
	gate      risk.Gate
	venues    map[string]venue.Adapter
	breakers  map[string]*circuit.Breaker
	positions store.PositionRepository
	audit     *auditlog.Store
	portfolio *portfolio.Service
	policy    retry.Policy
	nowFn     func() time.Time
}

func New(gate risk.Gate, venues map[string]venue.Adapter, positions store.PositionRepository, audit *auditlog.Store, pf *portfolio.Service, policy retry.Policy) *Executor {
	breakers := make(map[string]*circuit.Breaker, len(venues))
	for name := range venues {
		breakers[name] = circuit.NewBreaker(name, 5, 30*time.Second)
	}
	return &Executor{
		gate:      gate,
		venues:    venues,
		breakers:  breakers,
		positions: positions,
		audit:     audit,
		portfolio: pf,
		policy:    policy,
		nowFn:     time.Now,
	}
}

// Execute runs the full state machine for one proposal. On confirmation the
// recorded entry amount is the venue-filled cost, which may legitimately
// differ from the requested amount when the venue enforces minimum order
// sizes.
func (e *Executor) Execute(ctx context.Context, p Proposal) (*types.Position, error) {
	adapter, ok := e.venues[p.Venue]
	if !ok {
		return nil, fmt.Errorf("unknown venue %q", p.Venue)
	}
	if p.Price <= 0 {
		return nil, fmt.Errorf("proposal price must be positive")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	snapshot, err := e.portfolio.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("portfolio snapshot: %w", err)
	}

	// proposed → risk_checked
	decision := e.gate.CanTrade(p.AmountUSD, snapshot)
	if !decision.Allowed {
		e.record(ctx, p, snapshot, auditlog.OutcomeRejected, decision.Reason, "")
		logger.Infof("executor: rejected venue=%s asset=%s amount=%.4f reason=%s balance=%.4f open=%d trades24h=%d",
			p.Venue, p.AssetID, p.AmountUSD, decision.Reason,
			snapshot.CurrentBalance, snapshot.PositionsOpen, snapshot.Trades24h)
		return nil, &RejectionError{Reason: decision.Reason}
	}

	// risk_checked → submitted
	size := p.AmountUSD / p.Price
	req := venue.OrderRequest{AssetID: p.AssetID, Side: p.Side, Price: p.Price, Size: size}
	result, err := e.submit(ctx, adapter, req)
	if err != nil {
		// failed: nothing persisted, the venue error surfaces verbatim.
		e.record(ctx, p, snapshot, auditlog.OutcomeFailed, "", err.Error())
		logger.Errorf("executor: order failed venue=%s asset=%s amount=%.4f err=%v",
			p.Venue, p.AssetID, p.AmountUSD, err)
		return nil, err
	}

	// submitted → confirmed: counters and ledger move only now, after the
	// venue acknowledged the fill, to avoid double counting under retry.
	cost, _ := decimal.NewFromFloat(result.FilledPrice).
		Mul(decimal.NewFromFloat(result.FilledSize)).Float64()
	pos := &types.Position{
		ID:              p.ID,
		OrderID:         result.OrderID,
		Venue:           p.Venue,
		AssetID:         p.AssetID,
		Side:            p.Side,
		EntryPrice:      result.FilledPrice,
		EntryAmount:     cost,
		Shares:          result.FilledSize,
		TargetExitPrice: p.TargetExitPrice,
		StopLossPrice:   p.StopLossPrice,
		Leveraged:       p.Leveraged,
		Status:          types.PositionOpen,
		EntryTime:       e.nowFn().UTC(),
		CurrentPrice:    result.FilledPrice,
		CurrentValue:    cost,
	}
	if err := e.positions.Save(ctx, pos); err != nil {
		return nil, fmt.Errorf("persisting confirmed position %s: %w", pos.ID, err)
	}
	e.portfolio.Invalidate()
	e.record(ctx, p, snapshot, auditlog.OutcomeConfirmed, "", result.OrderID)
	logger.Infof("executor: confirmed venue=%s asset=%s order=%s filled=%.6f@%.6f cost=%.4f",
		p.Venue, p.AssetID, result.OrderID, result.FilledSize, result.FilledPrice, cost)
	return pos, nil
}

// ClosePosition submits a close order for an open position and records the
// result. All programmatic closes funnel through here or the reconciliation
// engine, keeping a single writer per position id.
func (e *Executor) ClosePosition(ctx context.Context, pos *types.Position, price float64, reason types.CloseReason) error {
	if pos == nil || !pos.IsOpen() {
		return fmt.Errorf("position is not open")
	}
	adapter, ok := e.venues[pos.Venue]
	if !ok {
		return fmt.Errorf("unknown venue %q", pos.Venue)
	}
	req := venue.OrderRequest{AssetID: pos.AssetID, Side: closeSide(pos.Side), Price: price, Size: pos.Shares}
	result, err := e.submitWith(ctx, adapter, req, adapter.CloseOrder)
	if err != nil {
		return err
	}
	now := e.nowFn().UTC()
	pos.Close(reason, now)
	recovered, _ := decimal.NewFromFloat(result.FilledPrice).
		Mul(decimal.NewFromFloat(result.FilledSize)).Float64()
	pos.CurrentPrice = result.FilledPrice
	pos.CurrentValue = recovered
	pos.PnL = recovered - pos.EntryAmount
	if pos.EntryAmount > 0 {
		pos.PnLPct = pos.PnL / pos.EntryAmount * 100
	}
	if err := e.positions.Save(ctx, pos); err != nil {
		return fmt.Errorf("persisting closed position %s: %w", pos.ID, err)
	}
	e.portfolio.Invalidate()
	logger.Infof("executor: closed venue=%s asset=%s id=%s reason=%s pnl=%.4f",
		pos.Venue, pos.AssetID, pos.ID, reason, pos.PnL)
	return nil
}

func (e *Executor) submit(ctx context.Context, adapter venue.Adapter, req venue.OrderRequest) (*venue.OrderResult, error) {
	return e.submitWith(ctx, adapter, req, adapter.PlaceOrder)
}

func (e *Executor) submitWith(ctx context.Context, adapter venue.Adapter, req venue.OrderRequest, place func(ctx context.Context, req venue.OrderRequest) (*venue.OrderResult, error)) (*venue.OrderResult, error) {
	breaker := e.breakers[adapter.Name()]
	var result *venue.OrderResult
	err := breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		result, err = retry.Do(ctx, adapter.Name()+".order", e.policy, func(ctx context.Context) (*venue.OrderResult, error) {
			return place(ctx, req)
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if result == nil || result.OrderID == "" {
		return nil, errors.New("venue returned an empty order result")
	}
	return result, nil
}

func (e *Executor) record(ctx context.Context, p Proposal, snap types.Portfolio, outcome auditlog.Outcome, reason, detail string) {
	if e.audit == nil {
		return
	}
	entry := auditlog.Entry{
		Timestamp:     e.nowFn().UTC(),
		Venue:         p.Venue,
		AssetID:       p.AssetID,
		Action:        p.Side,
		Outcome:       outcome,
		Reason:        reason,
		AmountUSD:     p.AmountUSD,
		Balance:       snap.CurrentBalance,
		PositionsOpen: snap.PositionsOpen,
		Trades24h:     snap.Trades24h,
		Detail:        detail,
	}
	if err := e.audit.Record(ctx, entry); err != nil {
		logger.Warnf("executor: audit record failed: %v", err)
	}
}

func closeSide(side string) string {
	if side == "buy" || side == "long" {
		return "sell"
	}
	return "buy"
}
