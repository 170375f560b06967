package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"keeper/internal/types"
)

func testGate() Gate {
	return NewGate(Limits{
		MaxPerTradeUSD:   3.00,
		MaxTrades24h:     10,
		MaxOpenPositions: 5,
	})
}

func healthyPortfolio() types.Portfolio {
	return types.Portfolio{
		CurrentBalance: 100,
		PositionsOpen:  0,
		Trades24h:      0,
	}
}

func TestPerTradeCapIsHardCeiling(t *testing.T) {
	gate := testGate()

	d := gate.CanTrade(3.01, healthyPortfolio())
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonPerTradeCap, d.Reason)

	d = gate.CanTrade(3.00, healthyPortfolio())
	assert.True(t, d.Allowed)
}

func TestCapAppliesRegardlessOfBalance(t *testing.T) {
	gate := testGate()
	p := healthyPortfolio()
	p.CurrentBalance = 1_000_000

	d := gate.CanTrade(3.01, p)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonPerTradeCap, d.Reason)
}

func TestInsufficientBalance(t *testing.T) {
	gate := testGate()
	p := healthyPortfolio()
	p.CurrentBalance = 1.50

	d := gate.CanTrade(2.00, p)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonInsufficientBalance, d.Reason)
}

func TestTradeRateLimit(t *testing.T) {
	gate := testGate()
	p := healthyPortfolio()
	p.Trades24h = 10

	d := gate.CanTrade(1.00, p)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonTradeRateLimit, d.Reason)
}

func TestMaxOpenPositions(t *testing.T) {
	gate := testGate()
	p := healthyPortfolio()
	p.PositionsOpen = 5

	d := gate.CanTrade(1.00, p)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonMaxOpenPositions, d.Reason)
}

func TestChecksEvaluateInOrder(t *testing.T) {
	gate := testGate()
	// Every limit violated at once: the cap must win because it is checked
	// first.
	p := types.Portfolio{CurrentBalance: 0.5, PositionsOpen: 9, Trades24h: 99}

	d := gate.CanTrade(10.00, p)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonPerTradeCap, d.Reason)
}
