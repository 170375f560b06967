package config

import "strings"

const (
	defaultAppEnv      = "dev"
	defaultAppLogLevel = "info"
	defaultAppHTTPAddr = ":9980"
	defaultAppDBPath   = "data/keeper.db"
	defaultAuditDBPath = "data/audit.db"

	defaultRiskMaxPerTrade = 3.0
	defaultRiskTrades24h   = 10
	defaultRiskMaxOpen     = 5

	defaultRetryAttempts = 3
	defaultRetryDelayMs  = 500

	defaultTickSeconds       = 30
	defaultRouterSeconds     = 1800
	defaultMonitorSeconds    = 60
	defaultReconcileSeconds  = 300
	defaultDayCounterSeconds = 600

	defaultBalanceCapUSD     = 50
	defaultBalanceWeight     = 1.0
	defaultPositionGapWeight = 10.0
	defaultTargetPositions   = 3
	defaultLeveragedBonus    = 100.0
	defaultRecencyPenalty    = 5.0
	defaultMinBalanceUSD     = 1.0
)

func (c *Config) applyDefaults() {
	c.App.applyDefaults()
	c.Risk.applyDefaults()
	c.Retry.applyDefaults()
	c.Scheduler.applyDefaults()
	c.Routing.applyDefaults()
	c.applyVenueDefaults()
	c.Prices.applyDefaults()
}

func (a *AppConfig) applyDefaults() {
	if strings.TrimSpace(a.Env) == "" {
		a.Env = defaultAppEnv
	}
	if strings.TrimSpace(a.LogLevel) == "" {
		a.LogLevel = defaultAppLogLevel
	}
	if strings.TrimSpace(a.HTTPAddr) == "" {
		a.HTTPAddr = defaultAppHTTPAddr
	}
	if strings.TrimSpace(a.DBPath) == "" {
		a.DBPath = defaultAppDBPath
	}
	if strings.TrimSpace(a.AuditDBPath) == "" {
		a.AuditDBPath = defaultAuditDBPath
	}
}

func (r *RiskConfig) applyDefaults() {
	if r.MaxPerTradeUSD <= 0 {
		r.MaxPerTradeUSD = defaultRiskMaxPerTrade
	}
	if r.MaxTrades24h <= 0 {
		r.MaxTrades24h = defaultRiskTrades24h
	}
	if r.MaxOpenPositions <= 0 {
		r.MaxOpenPositions = defaultRiskMaxOpen
	}
}

func (r *RetryConfig) applyDefaults() {
	if r.MaxAttempts <= 0 {
		r.MaxAttempts = defaultRetryAttempts
	}
	if r.InitialDelayMs <= 0 {
		r.InitialDelayMs = defaultRetryDelayMs
	}
}

func (s *SchedulerConfig) applyDefaults() {
	if s.TickSeconds <= 0 {
		s.TickSeconds = defaultTickSeconds
	}
	if s.RouterSeconds <= 0 {
		s.RouterSeconds = defaultRouterSeconds
	}
	if s.MonitorSeconds <= 0 {
		s.MonitorSeconds = defaultMonitorSeconds
	}
	if s.ReconcileSeconds <= 0 {
		s.ReconcileSeconds = defaultReconcileSeconds
	}
	if s.DayCounterSeconds <= 0 {
		s.DayCounterSeconds = defaultDayCounterSeconds
	}
}

func (r *RoutingConfig) applyDefaults() {
	if r.BalanceCapUSD <= 0 {
		r.BalanceCapUSD = defaultBalanceCapUSD
	}
	if r.BalanceWeight <= 0 {
		r.BalanceWeight = defaultBalanceWeight
	}
	if r.PositionGapWeight <= 0 {
		r.PositionGapWeight = defaultPositionGapWeight
	}
	if r.TargetPositions <= 0 {
		r.TargetPositions = defaultTargetPositions
	}
	if r.LeveragedBonus <= 0 {
		r.LeveragedBonus = defaultLeveragedBonus
	}
	if r.RecencyPenalty <= 0 {
		r.RecencyPenalty = defaultRecencyPenalty
	}
	if r.MinBalanceUSD <= 0 {
		r.MinBalanceUSD = defaultMinBalanceUSD
	}
}

func (c *Config) applyVenueDefaults() {
	if len(c.Venues) == 0 {
		c.Venues = []VenueConfig{
			{Name: "spot", Kind: "paper", SeedBalanceUSD: 25},
			{Name: "perps", Kind: "paper", SeedBalanceUSD: 25, Leveraged: true},
		}
	}
	for i := range c.Venues {
		if strings.TrimSpace(c.Venues[i].Kind) == "" {
			c.Venues[i].Kind = "paper"
		}
	}
	if strings.TrimSpace(c.Routing.FallbackVenue) == "" {
		c.Routing.FallbackVenue = c.Venues[0].Name
	}
}

func (p *PriceConfig) applyDefaults() {
	if p.TimeoutSeconds <= 0 {
		p.TimeoutSeconds = 10
	}
	if strings.TrimSpace(p.QuoteSuffix) == "" {
		p.QuoteSuffix = "USDT"
	}
}
