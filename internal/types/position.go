package types

import (
	"time"
)

type PositionStatus string

const (
	PositionOpen      PositionStatus = "open"
	PositionClosed    PositionStatus = "closed"
	PositionCancelled PositionStatus = "cancelled"
)

type CloseReason string

const (
	CloseTargetHit CloseReason = "target_hit"
	CloseStopLoss  CloseReason = "stop_loss"
	CloseTimeout   CloseReason = "timeout"
	CloseManual    CloseReason = "manual"
)

// Position is one attempted trade, open or closed. ID is assigned before the
// first submission attempt and never changes across retries; OrderID is the
// venue-confirmed order identifier, unique per position.
type Position struct {
	ID              string         `json:"id"`
	OrderID         string         `json:"order_id"`
	Venue           string         `json:"venue"`
	AssetID         string         `json:"asset_id"`
	Side            string         `json:"side"`
	EntryPrice      float64        `json:"entry_price"`
	EntryAmount     float64        `json:"entry_amount"`
	Shares          float64        `json:"shares"`
	TargetExitPrice float64        `json:"target_exit_price,omitempty"`
	StopLossPrice   float64        `json:"stop_loss_price,omitempty"`
	Leveraged       bool           `json:"leveraged,omitempty"`
	Status          PositionStatus `json:"status"`
	CloseReason     CloseReason    `json:"close_reason,omitempty"`
	EntryTime       time.Time      `json:"entry_time"`
	ClosedAt        time.Time      `json:"closed_at,omitempty"`

	// Live fields, maintained by reconciliation. PriceStale marks a position
	// whose venue entry could not be confirmed this pass; it needs a refresh
	// from a secondary price source, not closure.
	CurrentPrice float64 `json:"current_price,omitempty"`
	CurrentValue float64 `json:"current_value,omitempty"`
	PnL          float64 `json:"pnl,omitempty"`
	PnLPct       float64 `json:"pnl_pct,omitempty"`
	PriceStale   bool    `json:"price_stale,omitempty"`
}

func (p *Position) IsOpen() bool {
	return p != nil && p.Status == PositionOpen
}

// Close marks the position closed. It is a no-op on anything not open;
// status never transitions back once closed or cancelled.
func (p *Position) Close(reason CloseReason, at time.Time) bool {
	if !p.IsOpen() {
		return false
	}
	p.Status = PositionClosed
	p.CloseReason = reason
	p.ClosedAt = at
	return true
}

// Portfolio is the derived, cached account summary. PositionsOpen matches the
// open-position count after a reconciliation pass; between an order
// confirmation and the next pass it may lag, and callers tolerate that window.
type Portfolio struct {
	CurrentBalance float64   `json:"current_balance"`
	PositionsOpen  int       `json:"positions_open"`
	DailyLoss      float64   `json:"daily_loss"`
	Trades24h      int       `json:"trades_24h"`
	UpdatedAt      time.Time `json:"updated_at"`
}
