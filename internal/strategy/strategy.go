// Package strategy implements the stake-progression / loss-recovery state
// machine that decides, before each trade, whether to trade and at what
// stake.
package strategy

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Strategy is one stake-progression state machine. All mutation goes through
// PrepareForNextTrade / UpdateState and the explicit lifecycle methods; the
// lock is held only for the duration of a single call.
type Strategy struct {
	mu      sync.Mutex
	config  Config
	state   State
	history []HistoryEntry
	day     string

	now func() time.Time
	log logrus.FieldLogger
}

// New creates a strategy on a clean state. The config is validated here and
// immutable afterwards except through ReplaceConfig.
func New(cfg Config, log logrus.FieldLogger) (*Strategy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("strategy config: %w", err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Strategy{
		config: cfg.withDefaults(),
		state:  State{Active: true},
		now:    time.Now,
		log:    log,
	}
	s.day = s.now().Format("2006-01-02")
	return s, nil
}

// PrepareForNextTrade folds an optional just-settled outcome into the state
// and returns the decision for the next trade. A nil outcome is valid and is
// how the first decision of a session is produced.
//
// Refusals are checked in a fixed order; the first failing guard wins and its
// reason is returned verbatim to the caller.
func (s *Strategy) PrepareForNextTrade(last *Outcome) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rollDayLocked()

	if last != nil {
		if err := s.updateLocked(last.Won, last.Profit); err != nil {
			return Decision{}, err
		}
	}

	if !s.state.Active {
		return refuse("Strategy is inactive"), nil
	}

	if s.config.MaxDailyTrades > 0 && s.state.TradesToday >= s.config.MaxDailyTrades {
		return refuse(fmt.Sprintf("Daily trade limit reached (%d/%d)",
			s.state.TradesToday, s.config.MaxDailyTrades)), nil
	}

	if eff := s.effectiveLossThreshold(); s.state.TotalProfit <= -eff {
		return refuse(fmt.Sprintf("Loss limit reached: %.2f against effective threshold %.2f",
			s.state.TotalProfit, eff)), nil
	}

	seqLock := s.config.InitialStake * s.config.SequenceProfitLockMultiple
	if s.state.TotalProfit >= 0.5*s.config.ProfitThreshold || s.state.SequenceProfit >= seqLock {
		return refuse(fmt.Sprintf("Profit lock engaged at %.2f", s.state.TotalProfit)), nil
	}

	if s.state.InRecovery && -s.state.TotalProfit > 0.5*s.config.LossThreshold {
		return refuse("Recovery halted: drawdown beyond half the loss threshold"), nil
	}

	if s.recentFailedSequences() >= maxRecentFailedSequences {
		return refuse("Too many failed sequences recently"), nil
	}

	hour := s.now().Hour()
	if !s.config.TradingWindow.IsZero() && !s.config.TradingWindow.Contains(hour) {
		return refuse("Outside configured trading hours"), nil
	}
	if !s.config.VolatilityBlackout.IsZero() && s.config.VolatilityBlackout.Contains(hour) {
		return refuse("Volatility window active"), nil
	}

	return Decision{ShouldTrade: true, Amount: s.nextStake()}, nil
}

// UpdateState feeds one settled trade into the state machine. A non-finite
// profit is a programming error on the caller side and is rejected outright.
func (s *Strategy) UpdateState(won bool, profit float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollDayLocked()
	return s.updateLocked(won, profit)
}

func (s *Strategy) updateLocked(won bool, profit float64) error {
	if math.IsNaN(profit) || math.IsInf(profit, 0) {
		return fmt.Errorf("update state: profit must be finite, got %v", profit)
	}

	activeSequence := s.selectOptimalSequence().Multipliers()

	s.state.TradesToday++
	s.state.DailyProfitLoss += profit
	s.state.TotalProfit += profit
	if s.state.TotalProfit > s.config.ProfitThreshold {
		// A single outsized settlement must not report unbounded profit.
		s.state.TotalProfit = s.config.ProfitThreshold
	}
	if s.state.InRecovery {
		s.state.RecoveryProfit += profit
	}

	outcome := OutcomeLoss
	if won {
		outcome = OutcomeWin
		s.state.ConsecutiveLosses = 0
		s.state.SequenceProfit += profit
		s.state.SequencePosition = s.position() + 1
		if s.state.SequencePosition >= SequenceLength {
			s.state.SequencePosition = 0
			s.state.SequencesCompleted++
			s.state.SequenceProfit = 0
		}
		if s.state.InRecovery && s.state.RecoveryProfit > 0 {
			s.log.WithField("recovered", s.state.RecoveryProfit).Info("exiting recovery mode")
			s.state.InRecovery = false
			s.state.RecoveryProfit = 0
			s.state.RecoveryAttempts = 0
		}
	} else {
		s.state.ConsecutiveLosses++
		s.state.SequencePosition = 0
		s.state.SequenceProfit = 0
		if s.state.ConsecutiveLosses >= 2 {
			if !s.state.InRecovery {
				s.log.WithField("losses", s.state.ConsecutiveLosses).Info("entering recovery mode")
				s.state.InRecovery = true
				s.state.RecoveryProfit = profit
			}
			s.state.RecoveryAttempts++
		}
	}

	s.history = append(s.history, HistoryEntry{
		Sequence: activeSequence,
		Outcome:  outcome,
		Profit:   profit,
	})
	return nil
}

// ReplaceConfig atomically swaps the strategy parameters. The running state
// is preserved; invalid configs are rejected without side effects.
func (s *Strategy) ReplaceConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg.withDefaults()
	return nil
}

// Reset zeroes all counters, clears history, and reactivates the strategy.
func (s *Strategy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{Active: true}
	s.history = nil
	s.day = s.now().Format("2006-01-02")
}

// Pause deactivates trading without touching the rest of the state.
func (s *Strategy) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Active = false
}

// Resume reactivates a paused strategy.
func (s *Strategy) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Active = true
}

// CurrentState returns a copy of the strategy state.
func (s *Strategy) CurrentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Config returns a copy of the active configuration.
func (s *Strategy) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// CheckSessionHealth pauses the strategy once a losing day has accumulated
// the configured trade count. Returns true when the auto-pause fired. This is
// the unattended-session bound, distinct from the explicit stop conditions.
func (s *Strategy) CheckSessionHealth() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Active {
		return false
	}
	if s.state.TradesToday >= s.config.AutoPauseMinTrades && s.state.DailyProfitLoss < 0 {
		s.log.WithFields(logrus.Fields{
			"trades_today": s.state.TradesToday,
			"daily_pnl":    s.state.DailyProfitLoss,
		}).Warn("session health check pausing strategy")
		s.state.Active = false
		return true
	}
	return false
}

// recentFailedSequences counts losing entries over the recent history window.
func (s *Strategy) recentFailedSequences() int {
	losses := 0
	for _, h := range s.recentHistory(recentSequenceWindow) {
		if h.Outcome == OutcomeLoss {
			losses++
		}
	}
	return losses
}

// rollDayLocked resets the daily counters when the calendar day changes.
func (s *Strategy) rollDayLocked() {
	today := s.now().Format("2006-01-02")
	if today == s.day {
		return
	}
	s.day = today
	s.state.TradesToday = 0
	s.state.DailyProfitLoss = 0
}

func refuse(reason string) Decision {
	return Decision{ShouldTrade: false, Reason: reason}
}

const (
	recentSequenceWindow     = 5
	maxRecentFailedSequences = 3
)
