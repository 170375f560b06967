package config

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Routing   RoutingConfig   `mapstructure:"routing"`
	Venues    []VenueConfig   `mapstructure:"venues"`
	Prices    PriceConfig     `mapstructure:"prices"`
}

type AppConfig struct {
	Env         string `mapstructure:"env"`
	LogLevel    string `mapstructure:"log_level"`
	LogPath     string `mapstructure:"log_path"`
	HTTPAddr    string `mapstructure:"http_addr"`
	DBPath      string `mapstructure:"db_path"`
	AuditDBPath string `mapstructure:"audit_db_path"`
}

type RiskConfig struct {
	MaxPerTradeUSD   float64 `mapstructure:"max_per_trade_usd"`
	MaxTrades24h     int     `mapstructure:"max_trades_24h"`
	MaxOpenPositions int     `mapstructure:"max_open_positions"`
}

type RetryConfig struct {
	MaxAttempts    int `mapstructure:"max_attempts"`
	InitialDelayMs int `mapstructure:"initial_delay_ms"`
}

type SchedulerConfig struct {
	TickSeconds       int `mapstructure:"tick_seconds"`
	RouterSeconds     int `mapstructure:"router_seconds"`
	MonitorSeconds    int `mapstructure:"monitor_seconds"`
	ReconcileSeconds  int `mapstructure:"reconcile_seconds"`
	DayCounterSeconds int `mapstructure:"day_counter_seconds"`
}

type RoutingConfig struct {
	BalanceCapUSD     float64 `mapstructure:"balance_cap_usd"`
	BalanceWeight     float64 `mapstructure:"balance_weight"`
	PositionGapWeight float64 `mapstructure:"position_gap_weight"`
	TargetPositions   int     `mapstructure:"target_positions"`
	LeveragedBonus    float64 `mapstructure:"leveraged_bonus"`
	RecencyPenalty    float64 `mapstructure:"recency_penalty"`
	MinBalanceUSD     float64 `mapstructure:"min_balance_usd"`
	FallbackVenue     string  `mapstructure:"fallback_venue"`
	ConfidenceFloor   float64 `mapstructure:"confidence_floor"`
	CandidateAsset    string  `mapstructure:"candidate_asset"`
}

type VenueConfig struct {
	Name           string  `mapstructure:"name"`
	Kind           string  `mapstructure:"kind"`
	SeedBalanceUSD float64 `mapstructure:"seed_balance_usd"`
	MinOrderSize   float64 `mapstructure:"min_order_size"`
	Leveraged      bool    `mapstructure:"leveraged"`
}

type PriceConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	RESTBaseURL    string `mapstructure:"rest_base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	QuoteSuffix    string `mapstructure:"quote_suffix"`
}
