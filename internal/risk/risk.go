// Package risk gates every proposed trade against four static limits. The
// gate is pure and synchronous; a rejection is terminal for the tick that
// produced it and is never retried automatically.
package risk

import (
	"github.com/shopspring/decimal"

	"keeper/internal/types"
)

// Limits are fixed configuration constants, never derived or relaxed at
// runtime.
type Limits struct {
	MaxPerTradeUSD   float64
	MaxTrades24h     int
	MaxOpenPositions int
}

const (
	ReasonPerTradeCap         = "per_trade_cap_exceeded"
	ReasonInsufficientBalance = "insufficient_balance"
	ReasonTradeRateLimit      = "max_trades_24h_reached"
	ReasonMaxOpenPositions    = "max_open_positions_reached"
)

type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision             { return Decision{Allowed: true} }
func deny(reason string) Decision { return Decision{Reason: reason} }

type Gate struct {
	limits Limits
}

func NewGate(limits Limits) Gate {
	return Gate{limits: limits}
}

func (g Gate) Limits() Limits { return g.limits }

// CanTrade evaluates the limits in order and returns on the first violation:
// absolute per-trade cap, balance, rolling 24h trade count, concurrent open
// positions. The cap is a hard ceiling independent of balance.
func (g Gate) CanTrade(amount float64, p types.Portfolio) Decision {
	amt := decimal.NewFromFloat(amount)
	if amt.GreaterThan(decimal.NewFromFloat(g.limits.MaxPerTradeUSD)) {
		return deny(ReasonPerTradeCap)
	}
	if amt.GreaterThan(decimal.NewFromFloat(p.CurrentBalance)) {
		return deny(ReasonInsufficientBalance)
	}
	if g.limits.MaxTrades24h > 0 && p.Trades24h >= g.limits.MaxTrades24h {
		return deny(ReasonTradeRateLimit)
	}
	if g.limits.MaxOpenPositions > 0 && p.PositionsOpen >= g.limits.MaxOpenPositions {
		return deny(ReasonMaxOpenPositions)
	}
	return allow()
}
