// Package app wires configuration into the running core: ledger, audit log,
// venues, reconciliation, executor, heartbeat, and the status HTTP server.
package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"keeper/internal/config"
	"keeper/internal/executor"
	"keeper/internal/logger"
	"keeper/internal/portfolio"
	"keeper/internal/scheduler"
	"keeper/internal/store"
	"keeper/internal/store/auditlog"
	"keeper/internal/transport/http/status"
)

type App struct {
	cfg       *config.Config
	ledger    store.Store
	audit     *auditlog.Store
	heartbeat *scheduler.Heartbeat
	executor  *executor.Executor
	portfolio *portfolio.Service
	httpSrv   *status.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return build(ctx, cfg)
}

// Run starts the heartbeat and the status server and blocks until ctx is
// cancelled. The in-flight tick finishes before shutdown completes.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	group, ctx := errgroup.WithContext(ctx)

	if a.httpSrv != nil {
		group.Go(func() error {
			logger.Infof("status server listening on %s", a.httpSrv.Addr())
			if err := a.httpSrv.Start(ctx); err != nil {
				return fmt.Errorf("status server error: %w", err)
			}
			return nil
		})
	}

	group.Go(func() error {
		defer a.Close()
		return a.heartbeat.Run(ctx, time.Duration(a.cfg.Scheduler.TickSeconds)*time.Second)
	})

	return group.Wait()
}

// Heartbeat exposes the scheduler for the outer agent loop.
func (a *App) Heartbeat() *scheduler.Heartbeat {
	if a == nil {
		return nil
	}
	return a.heartbeat
}

// Executor exposes the order state machine for the outer agent loop.
func (a *App) Executor() *executor.Executor {
	if a == nil {
		return nil
	}
	return a.executor
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			logger.Warnf("closing audit log: %v", err)
		}
	}
	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			logger.Warnf("closing ledger: %v", err)
		}
	}
}
