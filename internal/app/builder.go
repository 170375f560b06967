package app

import (
	"context"
	"fmt"
	"time"

	"keeper/internal/config"
	"keeper/internal/executor"
	"keeper/internal/gateway/binance"
	"keeper/internal/portfolio"
	"keeper/internal/reconcile"
	"keeper/internal/retry"
	"keeper/internal/risk"
	"keeper/internal/scheduler"
	"keeper/internal/signal"
	"keeper/internal/store"
	"keeper/internal/store/auditlog"
	"keeper/internal/store/sqlite"
	"keeper/internal/transport/http/status"
	"keeper/internal/venue"
	"keeper/internal/venue/paper"
)

func build(ctx context.Context, cfg *config.Config) (*App, error) {
	ledger, err := sqlite.NewSqliteStore(cfg.App.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening ledger store: %w", err)
	}
	audit, err := auditlog.Open(cfg.App.AuditDBPath)
	if err != nil {
		ledger.Close()
		return nil, fmt.Errorf("opening audit log: %w", err)
	}

	adapters, ordered, err := buildVenues(cfg.Venues)
	if err != nil {
		ledger.Close()
		audit.Close()
		return nil, err
	}

	policy := retry.Policy{
		MaxAttempts:  cfg.Retry.MaxAttempts,
		InitialDelay: time.Duration(cfg.Retry.InitialDelayMs) * time.Millisecond,
	}

	pf := portfolio.NewService(ledger.Positions(), ordered, policy)

	var prices reconcile.PriceSource
	if cfg.Prices.Enabled {
		prices = binance.New(binance.Config{
			RESTBaseURL: cfg.Prices.RESTBaseURL,
			HTTPTimeout: time.Duration(cfg.Prices.TimeoutSeconds) * time.Second,
			QuoteSuffix: cfg.Prices.QuoteSuffix,
		})
	}
	engine := reconcile.NewEngine(ledger.Positions(), ordered, prices, pf, policy)

	gate := risk.NewGate(risk.Limits{
		MaxPerTradeUSD:   cfg.Risk.MaxPerTradeUSD,
		MaxTrades24h:     cfg.Risk.MaxTrades24h,
		MaxOpenPositions: cfg.Risk.MaxOpenPositions,
	})
	exec := executor.New(gate, adapters, ledger.Positions(), audit, pf, policy)

	heartbeat := scheduler.NewHeartbeat(ledger.KV())
	registerTasks(ctx, heartbeat, cfg, ledger, ordered, engine, policy)

	httpSrv, err := status.NewServer(status.ServerConfig{
		Addr:      cfg.App.HTTPAddr,
		Portfolio: pf,
		Positions: ledger.Positions(),
		Audit:     audit,
		Heartbeat: heartbeat,
	})
	if err != nil {
		ledger.Close()
		audit.Close()
		return nil, err
	}

	return &App{
		cfg:       cfg,
		ledger:    ledger,
		audit:     audit,
		heartbeat: heartbeat,
		executor:  exec,
		portfolio: pf,
		httpSrv:   httpSrv,
	}, nil
}

func buildVenues(configs []config.VenueConfig) (map[string]venue.Adapter, []venue.Adapter, error) {
	adapters := make(map[string]venue.Adapter, len(configs))
	ordered := make([]venue.Adapter, 0, len(configs))
	for _, vc := range configs {
		switch vc.Kind {
		case "paper":
			v := paper.New(paper.Config{
				Name:         vc.Name,
				SeedBalance:  vc.SeedBalanceUSD,
				MinOrderSize: vc.MinOrderSize,
				Leveraged:    vc.Leveraged,
			})
			adapters[vc.Name] = v
			ordered = append(ordered, v)
		default:
			return nil, nil, fmt.Errorf("venue %q: unsupported kind %q", vc.Name, vc.Kind)
		}
	}
	return adapters, ordered, nil
}

func registerTasks(ctx context.Context, h *scheduler.Heartbeat, cfg *config.Config, ledger store.Store, ordered []venue.Adapter, engine *reconcile.Engine, policy retry.Policy) {
	params := scheduler.RouteParams{
		BalanceCapUSD:     cfg.Routing.BalanceCapUSD,
		BalanceWeight:     cfg.Routing.BalanceWeight,
		PositionGapWeight: cfg.Routing.PositionGapWeight,
		TargetPositions:   cfg.Routing.TargetPositions,
		LeveragedBonus:    cfg.Routing.LeveragedBonus,
		RecencyPenalty:    cfg.Routing.RecencyPenalty,
		MinBalanceUSD:     cfg.Routing.MinBalanceUSD,
		FallbackVenue:     cfg.Routing.FallbackVenue,
		ConfidenceFloor:   cfg.Routing.ConfidenceFloor,
		CandidateAsset:    cfg.Routing.CandidateAsset,
	}
	var provider signal.Provider = signal.StaticProvider{
		Value: signal.Score{Confidence: 1, Recommendation: signal.RecommendTrade},
	}

	// Registration order is wake priority: the router's directive wins over
	// monitor/reconcile messages in the same tick.
	h.Register(ctx, scheduler.NewRouterTask(params, ordered, provider, ledger.KV(), policy,
		time.Duration(cfg.Scheduler.RouterSeconds)*time.Second))
	h.Register(ctx, scheduler.NewMonitorTask(ledger.Positions(),
		time.Duration(cfg.Scheduler.MonitorSeconds)*time.Second))
	h.Register(ctx, scheduler.NewReconcileTask(engine,
		time.Duration(cfg.Scheduler.ReconcileSeconds)*time.Second))
	h.Register(ctx, scheduler.NewDayCounterTask(ledger.Positions(), ledger.KV(),
		time.Duration(cfg.Scheduler.DayCounterSeconds)*time.Second))
}
