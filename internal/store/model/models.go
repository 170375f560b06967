package model

import (
	"time"

	"gorm.io/datatypes"

	"keeper/internal/types"
)

type PositionModel struct {
	ID              string  `gorm:"column:id;primaryKey"`
	OrderID         string  `gorm:"column:order_id;uniqueIndex"`
	Venue           string  `gorm:"column:venue;index"`
	AssetID         string  `gorm:"column:asset_id;index"`
	Side            string  `gorm:"column:side"`
	EntryPrice      float64 `gorm:"column:entry_price"`
	EntryAmount     float64 `gorm:"column:entry_amount"`
	Shares          float64 `gorm:"column:shares"`
	TargetExitPrice float64 `gorm:"column:target_exit_price"`
	StopLossPrice   float64 `gorm:"column:stop_loss_price"`
	Leveraged       bool    `gorm:"column:leveraged"`
	Status          string  `gorm:"column:status;index"`
	CloseReason     string  `gorm:"column:close_reason"`
	EntryTimeUnix   int64   `gorm:"column:entry_time"`
	ClosedAtUnix    int64   `gorm:"column:closed_at"`
	CurrentPrice    float64 `gorm:"column:current_price"`
	CurrentValue    float64 `gorm:"column:current_value"`
	PnL             float64 `gorm:"column:pnl"`
	PnLPct          float64 `gorm:"column:pnl_pct"`
	PriceStale      bool    `gorm:"column:price_stale"`
	UpdatedAtUnix   int64   `gorm:"column:updated_at"`
}

func (PositionModel) TableName() string { return "positions" }

type KVModel struct {
	Key           string         `gorm:"column:key;primaryKey"`
	Value         datatypes.JSON `gorm:"column:value;type:TEXT"`
	UpdatedAtUnix int64          `gorm:"column:updated_at"`
}

func (KVModel) TableName() string { return "scheduler_kv" }

func FromPosition(p *types.Position) *PositionModel {
	if p == nil {
		return nil
	}
	m := &PositionModel{
		ID:              p.ID,
		OrderID:         p.OrderID,
		Venue:           p.Venue,
		AssetID:         p.AssetID,
		Side:            p.Side,
		EntryPrice:      p.EntryPrice,
		EntryAmount:     p.EntryAmount,
		Shares:          p.Shares,
		TargetExitPrice: p.TargetExitPrice,
		StopLossPrice:   p.StopLossPrice,
		Leveraged:       p.Leveraged,
		Status:          string(p.Status),
		CloseReason:     string(p.CloseReason),
		CurrentPrice:    p.CurrentPrice,
		CurrentValue:    p.CurrentValue,
		PnL:             p.PnL,
		PnLPct:          p.PnLPct,
		PriceStale:      p.PriceStale,
	}
	if !p.EntryTime.IsZero() {
		m.EntryTimeUnix = p.EntryTime.Unix()
	}
	if !p.ClosedAt.IsZero() {
		m.ClosedAtUnix = p.ClosedAt.Unix()
	}
	return m
}

func (m *PositionModel) ToPosition() types.Position {
	p := types.Position{
		ID:              m.ID,
		OrderID:         m.OrderID,
		Venue:           m.Venue,
		AssetID:         m.AssetID,
		Side:            m.Side,
		EntryPrice:      m.EntryPrice,
		EntryAmount:     m.EntryAmount,
		Shares:          m.Shares,
		TargetExitPrice: m.TargetExitPrice,
		StopLossPrice:   m.StopLossPrice,
		Leveraged:       m.Leveraged,
		Status:          types.PositionStatus(m.Status),
		CloseReason:     types.CloseReason(m.CloseReason),
		CurrentPrice:    m.CurrentPrice,
		CurrentValue:    m.CurrentValue,
		PnL:             m.PnL,
		PnLPct:          m.PnLPct,
		PriceStale:      m.PriceStale,
	}
	if m.EntryTimeUnix > 0 {
		p.EntryTime = time.Unix(m.EntryTimeUnix, 0).UTC()
	}
	if m.ClosedAtUnix > 0 {
		p.ClosedAt = time.Unix(m.ClosedAtUnix, 0).UTC()
	}
	return p
}
