package db

import "fmt"

const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    account_id TEXT NOT NULL,
    market TEXT NOT NULL,
    contract_type TEXT NOT NULL,
    stake REAL NOT NULL,
    take_profit REAL NOT NULL,
    stop_loss REAL NOT NULL,
    trading_mode TEXT NOT NULL,
    stop_reason TEXT,
    wins INTEGER DEFAULT 0,
    losses INTEGER DEFAULT 0,
    total_staked REAL DEFAULT 0,
    total_payout REAL DEFAULT 0,
    started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    stopped_at DATETIME
);

CREATE TABLE IF NOT EXISTS session_runs (
    session_id TEXT NOT NULL,
    run INTEGER NOT NULL,
    stake REAL NOT NULL,
    signed_profit REAL NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (session_id, run)
);

CREATE TABLE IF NOT EXISTS daily_metrics (
    account_id TEXT NOT NULL,
    date TEXT NOT NULL,
    trades INTEGER DEFAULT 0,
    pnl REAL DEFAULT 0,
    wins INTEGER DEFAULT 0,
    losses INTEGER DEFAULT 0,
    PRIMARY KEY (account_id, date)
);

CREATE INDEX IF NOT EXISTS idx_sessions_account ON sessions(account_id);
CREATE INDEX IF NOT EXISTS idx_runs_session ON session_runs(session_id);
`

// ApplyMigrations creates the schema when missing. Statements are idempotent.
func ApplyMigrations(d *Database) error {
	if _, err := d.DB.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
