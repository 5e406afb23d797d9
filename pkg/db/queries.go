package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("record not found")

// CreateSession inserts a new session row at session start.
func (d *Database) CreateSession(ctx context.Context, s SessionRecord) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO sessions (id, account_id, market, contract_type, stake, take_profit, stop_loss, trading_mode, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.AccountID, s.Market, s.ContractType, s.Stake, s.TakeProfit, s.StopLoss, s.TradingMode, s.StartedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// CloseSession records the stop reason and final aggregates for a session.
func (d *Database) CloseSession(ctx context.Context, id, reason string, wins, losses int, totalStaked, totalPayout float64) error {
	_, err := d.DB.ExecContext(ctx, `
		UPDATE sessions
		SET stop_reason = ?, wins = ?, losses = ?, total_staked = ?, total_payout = ?, stopped_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, reason, wins, losses, totalStaked, totalPayout, id)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

// GetSession loads one session row by id.
func (d *Database) GetSession(ctx context.Context, id string) (SessionRecord, error) {
	var (
		s         SessionRecord
		reason    sql.NullString
		stoppedAt sql.NullTime
	)
	err := d.DB.QueryRowContext(ctx, `
		SELECT id, account_id, market, contract_type, stake, take_profit, stop_loss, trading_mode,
		       COALESCE(stop_reason, ''), wins, losses, total_staked, total_payout, started_at, stopped_at
		FROM sessions WHERE id = ?
	`, id).Scan(&s.ID, &s.AccountID, &s.Market, &s.ContractType, &s.Stake, &s.TakeProfit, &s.StopLoss,
		&s.TradingMode, &reason, &s.Wins, &s.Losses, &s.TotalStaked, &s.TotalPayout, &s.StartedAt, &stoppedAt)
	if err == sql.ErrNoRows {
		return SessionRecord{}, ErrNotFound
	}
	if err != nil {
		return SessionRecord{}, fmt.Errorf("query session: %w", err)
	}
	s.StopReason = reason.String
	if stoppedAt.Valid {
		t := stoppedAt.Time
		s.StoppedAt = &t
	}
	return s, nil
}

// AppendRun stores one per-run audit record.
func (d *Database) AppendRun(ctx context.Context, r RunRecord) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO session_runs (session_id, run, stake, signed_profit)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, run) DO UPDATE SET
			stake = excluded.stake,
			signed_profit = excluded.signed_profit
	`, r.SessionID, r.Run, r.Stake, r.SignedProfit)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// ListRuns returns the audit trail of a session ordered by run index.
func (d *Database) ListRuns(ctx context.Context, sessionID string) ([]RunRecord, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT session_id, run, stake, signed_profit, created_at
		FROM session_runs WHERE session_id = ? ORDER BY run
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.SessionID, &r.Run, &r.Stake, &r.SignedProfit, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RecordDailyResult folds one settled trade into the per-day aggregate row.
func (d *Database) RecordDailyResult(ctx context.Context, accountID string, signedProfit float64) error {
	today := time.Now().Format("2006-01-02")
	wins, losses := 0, 0
	if signedProfit > 0 {
		wins = 1
	} else if signedProfit < 0 {
		losses = 1
	}
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO daily_metrics (account_id, date, trades, pnl, wins, losses)
		VALUES (?, ?, 1, ?, ?, ?)
		ON CONFLICT(account_id, date) DO UPDATE SET
			trades = trades + 1,
			pnl = pnl + ?,
			wins = wins + ?,
			losses = losses + ?
	`, accountID, today, signedProfit, wins, losses, signedProfit, wins, losses)
	if err != nil {
		return fmt.Errorf("record daily result: %w", err)
	}
	return nil
}
