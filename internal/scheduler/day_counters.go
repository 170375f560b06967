package scheduler

import (
	"context"
	"time"

	"keeper/internal/logger"
	"keeper/internal/store"
)

const dayStatsKeyPrefix = "day_stats:"

type dayStats struct {
	Day       string  `json:"day"`
	Trades    int     `json:"trades"`
	Loss      float64 `json:"loss"`
	UpdatedAt int64   `json:"updated_at"`
}

// DayCounterTask rolls the per-day trade/loss counters kept in the KV table
// over at the UTC day boundary and keeps the current day's entry fresh for
// after-the-fact auditing. The portfolio itself derives these numbers from
// the positions table; this is bookkeeping, not a source of truth.
type DayCounterTask struct {
	positions store.PositionRepository
	kv        store.KVRepository
	interval  time.Duration
}

func NewDayCounterTask(positions store.PositionRepository, kv store.KVRepository, interval time.Duration) *DayCounterTask {
	return &DayCounterTask{positions: positions, kv: kv, interval: interval}
}

func (t *DayCounterTask) Name() string               { return "day_counters" }
func (t *DayCounterTask) MinInterval() time.Duration { return t.interval }

func (t *DayCounterTask) Evaluate(ctx context.Context, now time.Time) (WakeVote, error) {
	now = now.UTC()
	day := now.Format("2006-01-02")
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	trades, err := t.positions.CountOpenedSince(ctx, dayStart)
	if err != nil {
		return WakeVote{}, err
	}
	loss, err := t.positions.SumRealizedLossSince(ctx, dayStart)
	if err != nil {
		return WakeVote{}, err
	}

	stats := dayStats{Day: day, Trades: trades, Loss: loss, UpdatedAt: now.Unix()}
	if err := t.kv.Put(ctx, dayStatsKeyPrefix+day, stats); err != nil {
		return WakeVote{}, err
	}

	// Drop yesterday's scratch entry one interval after the boundary; the
	// closed positions remain queryable from the ledger.
	yesterday := dayStart.AddDate(0, 0, -1).Format("2006-01-02")
	var prev dayStats
	if found, _ := t.kv.Get(ctx, dayStatsKeyPrefix+yesterday, &prev); found {
		logger.Infof("day_counters: rolled over %s (trades=%d loss=%.4f)", prev.Day, prev.Trades, prev.Loss)
		if err := t.kv.Delete(ctx, dayStatsKeyPrefix+yesterday); err != nil {
			logger.Warnf("day_counters: cleanup failed day=%s err=%v", yesterday, err)
		}
	}
	return WakeVote{}, nil
}
