package db

import "time"

// SessionRecord is one bounded trading session as stored in the DB.
type SessionRecord struct {
	ID           string
	AccountID    string
	Market       string
	ContractType string
	Stake        float64
	TakeProfit   float64
	StopLoss     float64
	TradingMode  string
	StopReason   string
	Wins         int
	Losses       int
	TotalStaked  float64
	TotalPayout  float64
	StartedAt    time.Time
	StoppedAt    *time.Time
}

// RunRecord is the per-run audit row: one settled trade inside a session.
type RunRecord struct {
	SessionID    string
	Run          int
	Stake        float64
	SignedProfit float64
	CreatedAt    time.Time
}

// DailyMetrics aggregates realized results per account per calendar day.
type DailyMetrics struct {
	AccountID string
	Date      string
	Trades    int
	PnL       float64
	Wins      int
	Losses    int
}
