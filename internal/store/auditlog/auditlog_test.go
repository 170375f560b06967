package auditlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndListRecent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	ts := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx, Entry{
		Timestamp: ts,
		Venue:     "spot",
		AssetID:   "bonk",
		Action:    "buy",
		Outcome:   OutcomeRejected,
		Reason:    "per_trade_cap_exceeded",
		AmountUSD: 3.01,
		Balance:   42,
	}))
	require.NoError(t, s.Record(ctx, Entry{
		Timestamp: ts.Add(time.Minute),
		Venue:     "spot",
		AssetID:   "bonk",
		Action:    "buy",
		Outcome:   OutcomeConfirmed,
		AmountUSD: 1.00,
		Detail:    "ord-1",
	}))

	entries, err := s.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, OutcomeConfirmed, entries[0].Outcome, "newest first")
	assert.Equal(t, OutcomeRejected, entries[1].Outcome)
	assert.Equal(t, "per_trade_cap_exceeded", entries[1].Reason)
	assert.Equal(t, ts, entries[1].Timestamp)
}

func TestListRecentHonorsLimit(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Record(ctx, Entry{Venue: "spot", Outcome: OutcomeFailed}))
	}
	entries, err := s.ListRecent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}
