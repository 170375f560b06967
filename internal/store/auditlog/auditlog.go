// Package auditlog keeps an append-only record of every trade decision the
// executor makes, so a rejected or failed order can be audited after the
// fact with the portfolio counters that were in effect.
package auditlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

type Outcome string

const (
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeRejected  Outcome = "rejected"
	OutcomeFailed    Outcome = "failed"
)

type Entry struct {
	ID            int64     `json:"id"`
	Timestamp     time.Time `json:"ts"`
	Venue         string    `json:"venue"`
	AssetID       string    `json:"asset_id"`
	Action        string    `json:"action"`
	Outcome       Outcome   `json:"outcome"`
	Reason        string    `json:"reason,omitempty"`
	AmountUSD     float64   `json:"amount_usd"`
	Balance       float64   `json:"balance"`
	PositionsOpen int       `json:"positions_open"`
	Trades24h     int       `json:"trades_24h"`
	Detail        string    `json:"detail,omitempty"`
}

type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("audit log path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS trade_audit (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	ts             INTEGER NOT NULL,
	venue          TEXT NOT NULL,
	asset_id       TEXT NOT NULL DEFAULT '',
	action         TEXT NOT NULL DEFAULT '',
	outcome        TEXT NOT NULL,
	reason         TEXT NOT NULL DEFAULT '',
	amount_usd     REAL NOT NULL DEFAULT 0,
	balance        REAL NOT NULL DEFAULT 0,
	positions_open INTEGER NOT NULL DEFAULT 0,
	trades_24h     INTEGER NOT NULL DEFAULT 0,
	detail         TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_trade_audit_ts ON trade_audit(ts);`
	_, err := s.db.Exec(ddl)
	return err
}

func (s *Store) Record(ctx context.Context, e Entry) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("audit store not initialized")
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO trade_audit (ts, venue, asset_id, action, outcome, reason, amount_usd, balance, positions_open, trades_24h, detail)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Timestamp.Unix(), e.Venue, e.AssetID, e.Action, string(e.Outcome),
		e.Reason, e.AmountUSD, e.Balance, e.PositionsOpen, e.Trades24h, e.Detail)
	return err
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("audit store not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, `
SELECT id, ts, venue, asset_id, action, outcome, reason, amount_usd, balance, positions_open, trades_24h, detail
FROM trade_audit ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ts int64
		var outcome string
		if err := rows.Scan(&e.ID, &ts, &e.Venue, &e.AssetID, &e.Action, &outcome,
			&e.Reason, &e.AmountUSD, &e.Balance, &e.PositionsOpen, &e.Trades24h, &e.Detail); err != nil {
			return nil, err
		}
		e.Timestamp = time.Unix(ts, 0).UTC()
		e.Outcome = Outcome(outcome)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
