package strategy

import "fmt"

// Config are the immutable parameters of one strategy instance. A running
// session replaces them only through Strategy.ReplaceConfig.
type Config struct {
	InitialStake        float64 `json:"initial_stake"`
	ProfitThreshold     float64 `json:"profit_threshold"`
	LossThreshold       float64 `json:"loss_threshold"`
	MaxRecoveryAttempts int     `json:"max_recovery_attempts"`
	MaxDailyTrades      int     `json:"max_daily_trades"`

	// SequenceProfitLockMultiple caps sequence-local profit at this many
	// initial stakes before the profit lock engages. Tunable, not a domain
	// constant.
	SequenceProfitLockMultiple float64 `json:"sequence_profit_lock_multiple"`

	// AutoPauseMinTrades is the trade count after which a losing day pauses
	// the strategy automatically.
	AutoPauseMinTrades int `json:"auto_pause_min_trades"`

	// TradingWindow and VolatilityBlackout gate scheduling. Zero values mean
	// always open / never blacked out.
	TradingWindow      HourWindow `json:"trading_window"`
	VolatilityBlackout HourWindow `json:"volatility_blackout"`
}

// HourWindow is an hour-of-day interval [Start, End). The zero value is
// treated as unset.
type HourWindow struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// IsZero reports whether the window is unset.
func (w HourWindow) IsZero() bool { return w.Start == 0 && w.End == 0 }

// Contains reports whether the given hour falls inside the window, handling
// windows that wrap past midnight.
func (w HourWindow) Contains(hour int) bool {
	if w.Start <= w.End {
		return hour >= w.Start && hour < w.End
	}
	return hour >= w.Start || hour < w.End
}

// Validate checks the numeric constraints on the config.
func (c Config) Validate() error {
	if c.InitialStake <= 0 {
		return fmt.Errorf("initial stake must be positive, got %v", c.InitialStake)
	}
	if c.ProfitThreshold <= 0 {
		return fmt.Errorf("profit threshold must be positive, got %v", c.ProfitThreshold)
	}
	if c.LossThreshold <= 0 {
		return fmt.Errorf("loss threshold must be positive, got %v", c.LossThreshold)
	}
	if c.MaxRecoveryAttempts < 0 {
		return fmt.Errorf("max recovery attempts must be >= 0, got %d", c.MaxRecoveryAttempts)
	}
	if c.MaxDailyTrades < 0 {
		return fmt.Errorf("max daily trades must be >= 0, got %d", c.MaxDailyTrades)
	}
	return nil
}

// withDefaults fills the optional knobs left at zero.
func (c Config) withDefaults() Config {
	if c.SequenceProfitLockMultiple <= 0 {
		c.SequenceProfitLockMultiple = DefaultSequenceProfitLockMultiple
	}
	if c.AutoPauseMinTrades <= 0 {
		c.AutoPauseMinTrades = DefaultAutoPauseMinTrades
	}
	return c
}

const (
	// DefaultSequenceProfitLockMultiple is the sequence-local profit lock in
	// units of the initial stake.
	DefaultSequenceProfitLockMultiple = 10.0

	// DefaultAutoPauseMinTrades bounds unattended sessions: a losing day with
	// at least this many trades pauses the strategy.
	DefaultAutoPauseMinTrades = 30
)

// State is the mutable progress of one strategy instance. It is owned by
// Strategy and only ever mutated behind its lock.
type State struct {
	SequencePosition   int     `json:"sequence_position"`
	InRecovery         bool    `json:"in_recovery"`
	TotalProfit        float64 `json:"total_profit"`
	ConsecutiveLosses  int     `json:"consecutive_losses"`
	RecoveryAttempts   int     `json:"recovery_attempts"`
	RecoveryProfit     float64 `json:"recovery_profit"`
	TradesToday        int     `json:"trades_today"`
	DailyProfitLoss    float64 `json:"daily_profit_loss"`
	SequenceProfit     float64 `json:"sequence_profit"`
	SequencesCompleted int     `json:"sequences_completed"`
	Active             bool    `json:"active"`
}

// HistoryOutcome tags a sequence-history entry.
type HistoryOutcome string

const (
	OutcomeWin  HistoryOutcome = "win"
	OutcomeLoss HistoryOutcome = "loss"
)

// HistoryEntry is one append-only record of a settled trade and the sequence
// it was staked under.
type HistoryEntry struct {
	Sequence Sequence
	Outcome  HistoryOutcome
	Profit   float64
}

// Decision is the strategy's answer to "should the next trade happen".
// A fresh value is produced on every call and never stored.
type Decision struct {
	ShouldTrade bool
	Amount      float64
	Reason      string
}

// Outcome feeds a settled trade back into the state machine.
type Outcome struct {
	Won    bool
	Profit float64
}
