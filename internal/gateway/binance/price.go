// Package binance provides the secondary price source used when a venue
// snapshot is unavailable and reconciliation still needs a live price.
package binance

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/futures"
)

type Config struct {
	RESTBaseURL string
	HTTPTimeout time.Duration
	QuoteSuffix string
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.RESTBaseURL) == "" {
		c.RESTBaseURL = "https://fapi.binance.com"
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 10 * time.Second
	}
	if strings.TrimSpace(c.QuoteSuffix) == "" {
		c.QuoteSuffix = "USDT"
	}
	return c
}

type PriceSource struct {
	cfg    Config
	client *futures.Client
}

func New(cfg Config) *PriceSource {
	final := cfg.withDefaults()
	client := futures.NewClient("", "")
	client.BaseURL = strings.TrimSpace(final.RESTBaseURL)
	client.HTTPClient = &http.Client{Timeout: final.HTTPTimeout}
	return &PriceSource{cfg: final, client: client}
}

// LatestPrice returns the mark price for assetID quoted against the
// configured suffix (e.g. "sol" -> SOLUSDT).
func (s *PriceSource) LatestPrice(ctx context.Context, assetID string) (float64, error) {
	symbol := s.symbolFor(assetID)
	if symbol == "" {
		return 0, fmt.Errorf("empty asset id")
	}
	prices, err := s.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("no price for %s", symbol)
	}
	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing price for %s: %w", symbol, err)
	}
	return price, nil
}

func (s *PriceSource) symbolFor(assetID string) string {
	asset := strings.ToUpper(strings.TrimSpace(assetID))
	if asset == "" {
		return ""
	}
	if strings.HasSuffix(asset, s.cfg.QuoteSuffix) {
		return asset
	}
	return asset + s.cfg.QuoteSuffix
}
