package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keeper/internal/retry"
	"keeper/internal/signal"
	"keeper/internal/store/mem"
	"keeper/internal/types"
	"keeper/internal/venue"
	"keeper/internal/venue/paper"
)

func routerParams() RouteParams {
	return RouteParams{
		BalanceCapUSD:     100,
		BalanceWeight:     1,
		PositionGapWeight: 10,
		TargetPositions:   2,
		LeveragedBonus:    1000,
		RecencyPenalty:    25,
		MinBalanceUSD:     5,
		FallbackVenue:     "spot",
	}
}

func routerPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 1, InitialDelay: time.Millisecond}
}

func newRouter(t *testing.T, params RouteParams, provider signal.Provider, venues ...venue.Adapter) *RouterTask {
	t.Helper()
	return NewRouterTask(params, venues, provider, mem.New().KV(), routerPolicy(), time.Minute)
}

func TestRouterPicksHighestScore(t *testing.T) {
	spot := paper.New(paper.Config{Name: "spot", SeedBalance: 10})
	perps := paper.New(paper.Config{Name: "perps", SeedBalance: 80})
	router := newRouter(t, routerParams(), nil, spot, perps)

	vote, err := router.Evaluate(context.Background(), time.Now())
	require.NoError(t, err)
	require.True(t, vote.Wake)
	require.NotNil(t, vote.Directive)
	assert.Equal(t, "perps", vote.Directive.Venue)
	assert.Equal(t, "trade", vote.Directive.Action)
	assert.False(t, vote.Directive.Degraded)
}

func TestRouterLeveragedPositionPinsVenue(t *testing.T) {
	ctx := context.Background()
	spot := paper.New(paper.Config{Name: "spot", SeedBalance: 1000})
	perps := paper.New(paper.Config{Name: "perps", SeedBalance: 1, Leveraged: true})
	_, err := perps.PlaceOrder(ctx, venue.OrderRequest{AssetID: "sol", Side: "buy", Price: 0.1, Size: 1})
	require.NoError(t, err)

	router := newRouter(t, routerParams(), nil, spot, perps)
	vote, err := router.Evaluate(ctx, time.Now())
	require.NoError(t, err)
	require.NotNil(t, vote.Directive)
	assert.Equal(t, "perps", vote.Directive.Venue, "leveraged position wins regardless of score")
	assert.Equal(t, "monitor", vote.Directive.Action)
}

func TestRouterAllBelowMinimumFallsBackDegraded(t *testing.T) {
	spot := paper.New(paper.Config{Name: "spot", SeedBalance: 1})
	perps := paper.New(paper.Config{Name: "perps", SeedBalance: 2})
	router := newRouter(t, routerParams(), nil, spot, perps)

	vote, err := router.Evaluate(context.Background(), time.Now())
	require.NoError(t, err)
	require.NotNil(t, vote.Directive)
	assert.Equal(t, "spot", vote.Directive.Venue)
	assert.Equal(t, "monitor", vote.Directive.Action)
	assert.True(t, vote.Directive.Degraded)
}

func TestRouterRecencyPenaltyRotatesVenues(t *testing.T) {
	ctx := context.Background()
	kv := mem.New().KV()
	// Equal balances: without the penalty the first venue would win on ties.
	spot := paper.New(paper.Config{Name: "spot", SeedBalance: 50})
	perps := paper.New(paper.Config{Name: "perps", SeedBalance: 50})
	router := NewRouterTask(routerParams(), []venue.Adapter{spot, perps}, nil, kv, routerPolicy(), time.Minute)

	first, err := router.Evaluate(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "spot", first.Directive.Venue)

	second, err := router.Evaluate(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "perps", second.Directive.Venue, "recent pick is penalized next round")
}

func TestRouterLowConfidenceSignalDemotesToMonitor(t *testing.T) {
	params := routerParams()
	params.CandidateAsset = "bonk"
	params.ConfidenceFloor = 0.7
	provider := signal.StaticProvider{Value: signal.Score{
		Confidence:     0.4,
		Recommendation: signal.RecommendTrade,
	}}
	spot := paper.New(paper.Config{Name: "spot", SeedBalance: 50})
	perps := paper.New(paper.Config{Name: "perps", SeedBalance: 10})
	router := newRouter(t, params, provider, spot, perps)

	vote, err := router.Evaluate(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "monitor", vote.Directive.Action)
}

func TestMonitorWakesOnTargetCross(t *testing.T) {
	ctx := context.Background()
	st := mem.New()
	p := types.Position{
		ID:              "p1",
		Venue:           "spot",
		AssetID:         "bonk",
		Side:            "buy",
		EntryPrice:      1.0,
		Shares:          2,
		TargetExitPrice: 1.5,
		Status:          types.PositionOpen,
		CurrentPrice:    1.6,
	}
	require.NoError(t, st.Positions().Save(ctx, &p))

	task := NewMonitorTask(st.Positions(), time.Minute)
	vote, err := task.Evaluate(ctx, time.Now())
	require.NoError(t, err)
	require.True(t, vote.Wake)
	assert.Equal(t, "manage_position", vote.Directive.Action)
	assert.Equal(t, "spot", vote.Directive.Venue)
}

func TestMonitorIgnoresStalePrices(t *testing.T) {
	ctx := context.Background()
	st := mem.New()
	p := types.Position{
		ID:              "p1",
		Venue:           "spot",
		AssetID:         "bonk",
		Side:            "buy",
		TargetExitPrice: 1.5,
		Status:          types.PositionOpen,
		CurrentPrice:    1.6,
		PriceStale:      true,
	}
	require.NoError(t, st.Positions().Save(ctx, &p))

	task := NewMonitorTask(st.Positions(), time.Minute)
	vote, err := task.Evaluate(ctx, time.Now())
	require.NoError(t, err)
	assert.False(t, vote.Wake, "stale prices cannot trigger exits")
}

func TestMonitorStopLossForShortSide(t *testing.T) {
	ctx := context.Background()
	st := mem.New()
	p := types.Position{
		ID:            "p1",
		Venue:         "perps",
		AssetID:       "sol",
		Side:          "short",
		StopLossPrice: 2.0,
		Status:        types.PositionOpen,
		CurrentPrice:  2.1, // price moved up against the short
	}
	require.NoError(t, st.Positions().Save(ctx, &p))

	task := NewMonitorTask(st.Positions(), time.Minute)
	vote, err := task.Evaluate(ctx, time.Now())
	require.NoError(t, err)
	require.True(t, vote.Wake)
	assert.Contains(t, vote.Message, "stop loss")
}
