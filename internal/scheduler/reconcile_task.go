package scheduler

import (
	"context"
	"fmt"
	"time"

	"keeper/internal/reconcile"
)

// ReconcileTask runs the reconciliation engine on its own cadence. It only
// votes to wake when the pass actually closed ghosts, so the outer loop can
// re-plan around the corrected ledger.
type ReconcileTask struct {
	engine   *reconcile.Engine
	interval time.Duration
}

func NewReconcileTask(engine *reconcile.Engine, interval time.Duration) *ReconcileTask {
	return &ReconcileTask{engine: engine, interval: interval}
}

func (t *ReconcileTask) Name() string               { return "reconcile" }
func (t *ReconcileTask) MinInterval() time.Duration { return t.interval }

func (t *ReconcileTask) Evaluate(ctx context.Context, now time.Time) (WakeVote, error) {
	results, err := t.engine.Run(ctx)
	if err != nil {
		return WakeVote{}, err
	}
	ghosts := 0
	for _, out := range results {
		ghosts += len(out.GhostsClosed)
	}
	if ghosts == 0 {
		return WakeVote{}, nil
	}
	return WakeVote{
		Wake:    true,
		Message: fmt.Sprintf("reconciliation closed %d ghost position(s)", ghosts),
	}, nil
}
