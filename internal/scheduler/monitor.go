package scheduler

import (
	"context"
	"fmt"
	"time"

	"keeper/internal/store"
	"keeper/internal/types"
)

// MonitorTask wakes the agent when an open position needs attention: its
// live price has crossed the target or stop, or a leveraged position exists
// at all. It reads only the ledger; live fields are kept fresh by the
// reconcile task.
type MonitorTask struct {
	positions store.PositionRepository
	interval  time.Duration
}

func NewMonitorTask(positions store.PositionRepository, interval time.Duration) *MonitorTask {
	return &MonitorTask{positions: positions, interval: interval}
}

func (t *MonitorTask) Name() string               { return "position_monitor" }
func (t *MonitorTask) MinInterval() time.Duration { return t.interval }

func (t *MonitorTask) Evaluate(ctx context.Context, now time.Time) (WakeVote, error) {
	open, err := t.positions.ListByStatus(ctx, types.PositionOpen)
	if err != nil {
		return WakeVote{}, err
	}
	for i := range open {
		p := &open[i]
		if p.Leveraged {
			return t.wake(p, "leveraged position open"), nil
		}
		if p.CurrentPrice <= 0 || p.PriceStale {
			continue
		}
		if p.TargetExitPrice > 0 && crossedTarget(p) {
			return t.wake(p, "target price reached"), nil
		}
		if p.StopLossPrice > 0 && crossedStop(p) {
			return t.wake(p, "stop loss breached"), nil
		}
	}
	return WakeVote{}, nil
}

func (t *MonitorTask) wake(p *types.Position, why string) WakeVote {
	msg := fmt.Sprintf("%s: venue=%s asset=%s price=%.6f target=%.6f stop=%.6f",
		why, p.Venue, p.AssetID, p.CurrentPrice, p.TargetExitPrice, p.StopLossPrice)
	return WakeVote{
		Wake:    true,
		Message: msg,
		Directive: &Directive{
			Venue:   p.Venue,
			Action:  "manage_position",
			Message: msg,
		},
	}
}

func crossedTarget(p *types.Position) bool {
	if p.Side == "sell" || p.Side == "short" {
		return p.CurrentPrice <= p.TargetExitPrice
	}
	return p.CurrentPrice >= p.TargetExitPrice
}

func crossedStop(p *types.Position) bool {
	if p.Side == "sell" || p.Side == "short" {
		return p.CurrentPrice >= p.StopLossPrice
	}
	return p.CurrentPrice <= p.StopLossPrice
}
