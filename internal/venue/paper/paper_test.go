package paper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keeper/internal/venue"
)

func TestPlaceOrderBumpsToMinimumSize(t *testing.T) {
	v := New(Config{Name: "spot", SeedBalance: 10, MinOrderSize: 5})
	ctx := context.Background()

	res, err := v.PlaceOrder(ctx, venue.OrderRequest{AssetID: "bonk", Side: "buy", Price: 0.20, Size: 3})
	require.NoError(t, err)
	assert.Equal(t, 5.0, res.FilledSize)
	assert.Equal(t, 0.20, res.FilledPrice)

	balance, err := v.GetBalance(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 9.0, balance, 1e-9, "debited the filled cost, not the requested cost")
}

func TestPlaceOrderRejectsWhenBalanceInsufficient(t *testing.T) {
	v := New(Config{Name: "spot", SeedBalance: 0.5, MinOrderSize: 5})

	_, err := v.PlaceOrder(context.Background(), venue.OrderRequest{AssetID: "bonk", Side: "buy", Price: 0.20, Size: 1})
	require.Error(t, err)
	var apiErr *venue.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.StatusCode)
}

func TestCloseOrderCreditsBalanceAndRemovesHolding(t *testing.T) {
	v := New(Config{Name: "spot", SeedBalance: 10})
	ctx := context.Background()

	_, err := v.PlaceOrder(ctx, venue.OrderRequest{AssetID: "bonk", Side: "buy", Price: 1.0, Size: 4})
	require.NoError(t, err)

	res, err := v.CloseOrder(ctx, venue.OrderRequest{AssetID: "bonk", Side: "sell", Price: 1.5, Size: 4})
	require.NoError(t, err)
	assert.Equal(t, 4.0, res.FilledSize)

	balance, err := v.GetBalance(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 12.0, balance, 1e-9)

	positions, err := v.GetOpenPositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestDropSimulatesGhost(t *testing.T) {
	v := New(Config{Name: "spot", SeedBalance: 10})
	ctx := context.Background()

	_, err := v.PlaceOrder(ctx, venue.OrderRequest{AssetID: "bonk", Side: "buy", Price: 1.0, Size: 2})
	require.NoError(t, err)
	v.Drop("bonk")

	positions, err := v.GetOpenPositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, positions, "dropped holding vanishes without a fill")

	_, err = v.CloseOrder(ctx, venue.OrderRequest{AssetID: "bonk"})
	var apiErr *venue.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.StatusCode)
}
