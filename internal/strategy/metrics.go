package strategy

// Read-only projections over the strategy state and sequence history. Every
// value here is derived on the fly; there are no hidden counters.

// Statistics is the headline view used by session telemetry.
type Statistics struct {
	Wins               int     `json:"wins"`
	Losses             int     `json:"losses"`
	WinRate            float64 `json:"win_rate"`
	TotalProfit        float64 `json:"total_profit"`
	TradesToday        int     `json:"trades_today"`
	DailyProfitLoss    float64 `json:"daily_profit_loss"`
	SequencesCompleted int     `json:"sequences_completed"`
}

// PerformanceMetrics summarizes realized performance over the whole history.
type PerformanceMetrics struct {
	Trades              int     `json:"trades"`
	AverageProfit       float64 `json:"average_profit"`
	CurrentLossStreak   int     `json:"current_loss_streak"`
	RecoveryAttempts    int     `json:"recovery_attempts"`
	RecoverySuccessRate float64 `json:"recovery_success_rate"`
}

// EnhancedMetrics adds the risk-adjusted view on top of PerformanceMetrics.
type EnhancedMetrics struct {
	PerformanceMetrics
	EffectiveLossThreshold float64 `json:"effective_loss_threshold"`
	NextStake              float64 `json:"next_stake"`
	InRecovery             bool    `json:"in_recovery"`
	RecoveryProfit         float64 `json:"recovery_profit"`
}

// SequencePerformance reports win rates per progression kind.
type SequencePerformance struct {
	Kind    string  `json:"kind"`
	Trades  int     `json:"trades"`
	Wins    int     `json:"wins"`
	WinRate float64 `json:"win_rate"`
	Profit  float64 `json:"profit"`
}

// Statistics computes the headline statistics.
func (s *Strategy) Statistics() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()

	wins, losses := 0, 0
	for _, h := range s.history {
		if h.Outcome == OutcomeWin {
			wins++
		} else {
			losses++
		}
	}
	stats := Statistics{
		Wins:               wins,
		Losses:             losses,
		TotalProfit:        s.state.TotalProfit,
		TradesToday:        s.state.TradesToday,
		DailyProfitLoss:    s.state.DailyProfitLoss,
		SequencesCompleted: s.state.SequencesCompleted,
	}
	if total := wins + losses; total > 0 {
		stats.WinRate = float64(wins) / float64(total)
	}
	return stats
}

// PerformanceMetrics computes aggregate performance over the history.
func (s *Strategy) PerformanceMetrics() PerformanceMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.performanceLocked()
}

func (s *Strategy) performanceLocked() PerformanceMetrics {
	m := PerformanceMetrics{
		Trades:            len(s.history),
		CurrentLossStreak: s.state.ConsecutiveLosses,
		RecoveryAttempts:  s.state.RecoveryAttempts,
	}
	if len(s.history) == 0 {
		return m
	}
	var sum float64
	for _, h := range s.history {
		sum += h.Profit
	}
	m.AverageProfit = sum / float64(len(s.history))

	// Recovery success = fraction of recovery entries followed by a win
	// before the next recovery entry.
	entries, recovered := 0, 0
	streak := 0
	inRec := false
	for _, h := range s.history {
		if h.Outcome == OutcomeLoss {
			streak++
			if streak == 2 && !inRec {
				inRec = true
				entries++
			}
		} else {
			if inRec {
				recovered++
				inRec = false
			}
			streak = 0
		}
	}
	if entries > 0 {
		m.RecoverySuccessRate = float64(recovered) / float64(entries)
	}
	return m
}

// EnhancedMetrics computes the risk-adjusted projection.
func (s *Strategy) EnhancedMetrics() EnhancedMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return EnhancedMetrics{
		PerformanceMetrics:     s.performanceLocked(),
		EffectiveLossThreshold: s.effectiveLossThreshold(),
		NextStake:              s.nextStake(),
		InRecovery:             s.state.InRecovery,
		RecoveryProfit:         s.state.RecoveryProfit,
	}
}

// AnalyzeSequencePerformance groups the history by progression kind.
func (s *Strategy) AnalyzeSequencePerformance() []SequencePerformance {
	s.mu.Lock()
	defer s.mu.Unlock()

	byKind := map[Sequence]*SequencePerformance{}
	order := []Sequence{}
	for _, h := range s.history {
		perf, ok := byKind[h.Sequence]
		if !ok {
			perf = &SequencePerformance{Kind: kindName(h.Sequence)}
			byKind[h.Sequence] = perf
			order = append(order, h.Sequence)
		}
		perf.Trades++
		perf.Profit += h.Profit
		if h.Outcome == OutcomeWin {
			perf.Wins++
		}
	}

	out := make([]SequencePerformance, 0, len(order))
	for _, seq := range order {
		perf := byKind[seq]
		if perf.Trades > 0 {
			perf.WinRate = float64(perf.Wins) / float64(perf.Trades)
		}
		out = append(out, *perf)
	}
	return out
}

func kindName(seq Sequence) string {
	switch seq {
	case ReferenceSequence:
		return KindReference.String()
	case ConservativeSequence:
		return KindConservative.String()
	default:
		return KindDefault.String()
	}
}
