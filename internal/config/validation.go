package config

import (
	"fmt"
	"strings"
)

func validate(c *Config) error {
	if c == nil {
		return fmt.Errorf("nil config")
	}
	if len(c.Venues) < 2 {
		return fmt.Errorf("at least two venues are required, got %d", len(c.Venues))
	}
	seen := make(map[string]bool, len(c.Venues))
	for i, v := range c.Venues {
		name := strings.TrimSpace(v.Name)
		if name == "" {
			return fmt.Errorf("venues[%d]: name cannot be empty", i)
		}
		if seen[name] {
			return fmt.Errorf("venues[%d]: duplicate venue name %q", i, name)
		}
		seen[name] = true
		if v.Kind != "paper" {
			return fmt.Errorf("venues[%d]: unsupported kind %q (external adapters are wired in code)", i, v.Kind)
		}
		if v.SeedBalanceUSD < 0 {
			return fmt.Errorf("venues[%d]: seed balance cannot be negative", i)
		}
	}
	if fb := strings.TrimSpace(c.Routing.FallbackVenue); fb != "" && !seen[fb] {
		return fmt.Errorf("routing.fallback_venue %q is not a configured venue", fb)
	}
	if c.Risk.MaxPerTradeUSD <= 0 {
		return fmt.Errorf("risk.max_per_trade_usd must be positive")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	return nil
}
