// Package session drives trading sessions end-to-end: one sequential control
// loop per session pulling decisions from the strategy, executing them
// against the venue, and evaluating stop conditions after every settled
// trade.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"binary-core/internal/events"
	"binary-core/internal/notify"
	"binary-core/internal/settlement"
	"binary-core/internal/strategy"
	"binary-core/internal/venue"
	"binary-core/pkg/db"
)

// Stop reasons for the built-in stop conditions. Every stop path emits
// exactly one of these or a caller-supplied reason.
const (
	ReasonTakeProfit      = "Take profit target reached"
	ReasonStopLoss        = "Stop loss limit reached"
	ReasonConsecutiveLoss = "Consecutive loss limit reached"
	ReasonDurationLimit   = "duration limit reached"
	ReasonUserRequested   = "stopped by user"
)

// Deps are the collaborators one session needs. All of them are required
// except Clock, which defaults to the wall clock.
type Deps struct {
	Strategy *strategy.Strategy
	Client   venue.Client
	Store    *db.Database
	Notifier notify.Notifier
	Bus      *events.Bus
	Log      logrus.FieldLogger
	Clock    Clock
}

// aggregates mirror the session-level trade counters; the strategy keeps its
// own state independently.
type aggregates struct {
	Runs              int     `json:"runs"`
	Wins              int     `json:"wins"`
	Losses            int     `json:"losses"`
	ConsecutiveLosses int     `json:"consecutive_losses"`
	TotalStaked       float64 `json:"total_staked"`
	TotalPayout       float64 `json:"total_payout"`
	NetProfit         float64 `json:"net_profit"`
}

// Orchestrator runs one trading session. At most one purchase is in flight
// at any time; the duration timer and telemetry ticker run alongside the
// loop and only read state.
type Orchestrator struct {
	id       string
	params   Params
	strategy *strategy.Strategy
	client   venue.Client
	store    *db.Database
	notifier notify.Notifier
	bus      *events.Bus
	log      logrus.FieldLogger
	clock    Clock
	rng      *rand.Rand

	mu      sync.Mutex
	running bool
	started time.Time
	cached  *Params
	agg     aggregates
	lastErr error
	reason  string

	cancel   context.CancelFunc
	stopOnce sync.Once
	loopDone chan struct{}
	done     chan struct{}
}

// New builds an orchestrator for validated params. Params must already have
// passed Validate.
func New(id string, p Params, d Deps) *Orchestrator {
	if d.Clock == nil {
		d.Clock = realClock{}
	}
	return &Orchestrator{
		id:       id,
		params:   p,
		strategy: d.Strategy,
		client:   d.Client,
		store:    d.Store,
		notifier: d.Notifier,
		bus:      d.Bus,
		log:      d.Log.WithField("session", id),
		clock:    d.Clock,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		loopDone: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// ID returns the session id.
func (o *Orchestrator) ID() string { return o.id }

// Done is closed once the session has fully stopped: the control loop has
// exited and the final notifications and session row are flushed.
func (o *Orchestrator) Done() <-chan struct{} { return o.done }

// Start connects and authorizes the venue client, persists the session row,
// and launches the control loop plus its duration and telemetry timers.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrSessionAlreadyRunning
	}
	o.running = true
	o.started = o.clock.Now()
	cached := o.params
	o.cached = &cached
	o.mu.Unlock()

	if err := o.client.Connect(ctx); err != nil {
		o.markStopped(fmt.Sprintf("connect failed: %v", err))
		return fmt.Errorf("start session: %w", err)
	}
	if err := o.client.Authorize(ctx, o.params.Token); err != nil {
		o.markStopped(fmt.Sprintf("authorize failed: %v", err))
		return fmt.Errorf("start session: %w", err)
	}

	rec := db.SessionRecord{
		ID:           o.id,
		AccountID:    o.params.AccountID,
		Market:       o.params.Market,
		ContractType: o.params.ContractType,
		Stake:        o.params.Stake,
		TakeProfit:   o.params.TakeProfit,
		StopLoss:     o.params.StopLoss,
		TradingMode:  o.params.TradingMode,
		StartedAt:    o.started,
	}
	if err := o.store.CreateSession(ctx, rec); err != nil {
		o.markStopped(fmt.Sprintf("persist failed: %v", err))
		return fmt.Errorf("start session: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	o.mu.Lock()
	o.cancel = cancel
	o.mu.Unlock()

	o.notifier.SessionStarted(o.id, o.params.AccountID)
	o.log.WithFields(logrus.Fields{
		"market": o.params.Market,
		"mode":   o.params.TradingMode,
		"stake":  o.params.Stake,
	}).Info("session started")

	monitor := &strategy.HealthMonitor{
		Strategy: o.strategy,
		Interval: o.params.updateFrequency,
		OnPause: func() {
			o.bus.Publish(events.EventRiskAlert, o.id, map[string]string{
				"alert": "auto-pause: losing day exceeded trade bound",
			})
		},
	}
	monitor.Start(runCtx)

	go o.watchDuration(runCtx)
	go o.pushTelemetry(runCtx)
	go o.run(runCtx)
	return nil
}

// watchDuration stops the session when the configured trade duration lapses.
func (o *Orchestrator) watchDuration(ctx context.Context) {
	select {
	case <-o.clock.After(o.params.tradeDuration):
		o.Stop(ReasonDurationLimit, true)
	case <-ctx.Done():
	}
}

// pushTelemetry emits periodic statistics; it only ever reads trading state.
func (o *Orchestrator) pushTelemetry(ctx context.Context) {
	for {
		select {
		case <-o.clock.After(o.params.updateFrequency):
			o.notifier.Telemetry(o.telemetry())
		case <-ctx.Done():
			return
		}
	}
}

// run is the sequential control loop. Errors never escape it: they are
// classified at this boundary and either retried or turned into a stop.
func (o *Orchestrator) run(ctx context.Context) {
	defer close(o.loopDone)

	attempt := 0
	for ctx.Err() == nil {
		decision, err := o.strategy.PrepareForNextTrade(nil)
		if err != nil {
			o.fatal(err)
			return
		}

		if !decision.ShouldTrade {
			if terminalReason(decision.Reason) {
				o.Stop(decision.Reason, true)
				return
			}
			o.log.WithField("reason", decision.Reason).Debug("holding, no trade this tick")
			if sleep(ctx, o.clock, o.params.updateFrequency) != nil {
				return
			}
			continue
		}

		stl, err := o.executeTrade(ctx, decision.Amount)
		if err != nil {
			var malformed *settlement.MalformedSettlementError
			if errors.As(err, &malformed) {
				// Data-integrity failure: the stake is gone but the error is
				// not transient, so the trade counts as a loss.
				o.log.WithError(err).Error("malformed settlement, recording trade as lost")
				if stopped := o.settle(ctx, decision.Amount, settlement.TradeOutcome{
					Won: false, Stake: decision.Amount, SignedProfit: -decision.Amount,
				}, 0); stopped {
					return
				}
				if sleep(ctx, o.clock, nextTradeDelay(false, o.strategy.CurrentState().ConsecutiveLosses, o.rng)) != nil {
					return
				}
				continue
			}

			if !isRecoverable(err) {
				o.fatal(err)
				return
			}
			if rErr := o.recoverFrom(ctx, err, attempt); rErr != nil {
				if ctx.Err() != nil {
					return
				}
				o.fatal(rErr)
				return
			}
			attempt++
			continue
		}
		attempt = 0

		if stopped := o.settle(ctx, decision.Amount, stl.Outcome, stl.Payout); stopped {
			return
		}

		delay := nextTradeDelay(stl.Outcome.Won, o.strategy.CurrentState().ConsecutiveLosses, o.rng)
		if sleep(ctx, o.clock, delay) != nil {
			return
		}
	}
}

// executeTrade performs one purchase and parses its settlement. The creation
// timeout is enforced inside the venue client. The purchase itself is
// detached from loop cancellation: stopping the session lets an in-flight
// purchase settle instead of aborting it.
func (o *Orchestrator) executeTrade(ctx context.Context, stake float64) (settlement.Settlement, error) {
	raw, err := o.client.Purchase(context.WithoutCancel(ctx), o.params.contract(stake))
	if err != nil {
		return settlement.Settlement{}, err
	}
	return settlement.Parse(raw)
}

// settle feeds the outcome into the strategy, updates session aggregates,
// persists the audit record, and evaluates the stop conditions. Returns true
// when a stop condition fired and the session was stopped.
func (o *Orchestrator) settle(ctx context.Context, stake float64, out settlement.TradeOutcome, payout float64) bool {
	// A purchase that settled after an external stop still gets persisted, so
	// the audit writes must survive loop cancellation.
	ctx = context.WithoutCancel(ctx)

	if err := o.strategy.UpdateState(out.Won, out.SignedProfit); err != nil {
		o.fatal(err)
		return true
	}

	o.mu.Lock()
	o.agg.Runs++
	o.agg.TotalStaked += stake
	o.agg.NetProfit += out.SignedProfit
	if out.Won {
		o.agg.Wins++
		o.agg.ConsecutiveLosses = 0
		o.agg.TotalPayout += payout
	} else {
		o.agg.Losses++
		o.agg.ConsecutiveLosses++
	}
	run := o.agg.Runs
	agg := o.agg
	o.mu.Unlock()

	o.log.WithFields(logrus.Fields{
		"run":    run,
		"stake":  stake,
		"profit": out.SignedProfit,
		"won":    out.Won,
	}).Info("trade settled")

	if err := o.store.AppendRun(ctx, db.RunRecord{
		SessionID: o.id, Run: run, Stake: stake, SignedProfit: out.SignedProfit,
	}); err != nil {
		o.log.WithError(err).Error("audit record write failed")
	}
	if err := o.store.RecordDailyResult(ctx, o.params.AccountID, out.SignedProfit); err != nil {
		o.log.WithError(err).Error("daily metrics write failed")
	}
	o.bus.Publish(events.EventTradeSettled, o.id, map[string]any{
		"run":    run,
		"stake":  stake,
		"profit": out.SignedProfit,
		"won":    out.Won,
	})

	if reason := o.stopCondition(agg); reason != "" {
		o.Stop(reason, true)
		return true
	}
	return false
}

// stopCondition evaluates the session stop conditions; first match wins.
func (o *Orchestrator) stopCondition(agg aggregates) string {
	ceiling := o.strategy.Config().MaxRecoveryAttempts
	switch {
	case agg.NetProfit >= o.params.TakeProfit:
		return ReasonTakeProfit
	case agg.NetProfit <= -o.params.StopLoss:
		return ReasonStopLoss
	case ceiling > 0 && agg.ConsecutiveLosses >= ceiling:
		return ReasonConsecutiveLoss
	}
	return ""
}

// terminalReason reports whether a strategy refusal ends the session rather
// than idling it until the next tick.
func terminalReason(reason string) bool {
	return strings.HasPrefix(reason, "Loss limit reached") ||
		strings.HasPrefix(reason, "Profit lock engaged")
}

// fatal stops the session without statistics and records the error for the
// caller.
func (o *Orchestrator) fatal(err error) {
	o.log.WithError(err).Error("fatal session error")
	o.mu.Lock()
	o.lastErr = err
	o.mu.Unlock()
	o.Stop(fmt.Sprintf("fatal error: %v", err), false)
}

// Stop ends the session: cancels the timers and the control loop and clears
// the cached parameters. Safe to call more than once; only the first call's
// reason sticks. An in-flight purchase is allowed to settle before the loop
// exits, so the final telemetry, run summary, and session-row close are
// deferred until then; Done signals when all of it has flushed.
func (o *Orchestrator) Stop(reason string, emitStats bool) {
	o.stopOnce.Do(func() {
		o.mu.Lock()
		o.running = false
		o.reason = reason
		o.cached = nil
		cancel := o.cancel
		o.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		go o.finalize(reason, emitStats)
	})
}

// finalize waits for the control loop to exit and then flushes the final
// notifications and the session row. Runs exactly once, from Stop.
func (o *Orchestrator) finalize(reason string, emitStats bool) {
	defer close(o.done)
	<-o.loopDone

	o.mu.Lock()
	agg := o.agg
	o.mu.Unlock()

	ctx, release := context.WithTimeout(context.Background(), 5*time.Second)
	defer release()

	if emitStats {
		o.notifier.Telemetry(o.telemetry())
		rows := o.runSummaryRows(ctx)
		o.notifier.RunSummary(o.id, rows, agg.NetProfit)
	}

	if err := o.store.CloseSession(ctx, o.id, reason,
		agg.Wins, agg.Losses, agg.TotalStaked, agg.TotalPayout); err != nil {
		o.log.WithError(err).Error("close session row failed")
	}

	o.notifier.SessionStopped(o.id, reason)
	o.log.WithField("reason", reason).Info("session stopped")
}

// markStopped records a stop that happened before the loop ever started.
func (o *Orchestrator) markStopped(reason string) {
	o.mu.Lock()
	o.running = false
	o.reason = reason
	o.cached = nil
	o.mu.Unlock()
	o.stopOnce.Do(func() {
		close(o.loopDone)
		close(o.done)
	})
}

// runSummaryRows loads the audit trail for the final summary.
func (o *Orchestrator) runSummaryRows(ctx context.Context) []notify.RunRow {
	recs, err := o.store.ListRuns(ctx, o.id)
	if err != nil {
		o.log.WithError(err).Error("load run summary failed")
		return nil
	}
	rows := make([]notify.RunRow, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, notify.RunRow{Run: r.Run, Stake: r.Stake, Profit: r.SignedProfit})
	}
	return rows
}

// telemetry snapshots the session statistics for the front end.
func (o *Orchestrator) telemetry() notify.TelemetryEvent {
	o.mu.Lock()
	agg := o.agg
	started := o.started
	o.mu.Unlock()

	winRate := 0.0
	if agg.Runs > 0 {
		winRate = float64(agg.Wins) / float64(agg.Runs)
	}
	return notify.TelemetryEvent{
		SessionID:   o.id,
		AccountID:   o.params.AccountID,
		Currency:    o.params.Currency,
		Wins:        agg.Wins,
		Losses:      agg.Losses,
		Runs:        agg.Runs,
		TotalStaked: agg.TotalStaked,
		TotalPayout: agg.TotalPayout,
		NetProfit:   agg.NetProfit,
		WinRate:     winRate,
		Duration:    o.clock.Now().Sub(started),
	}
}

// Status is the read-only session view served by the control surface.
type Status struct {
	ID          string              `json:"id"`
	AccountID   string              `json:"account_id"`
	Market      string              `json:"market"`
	TradingMode string              `json:"trading_mode"`
	Running     bool                `json:"running"`
	StopReason  string              `json:"stop_reason,omitempty"`
	StartedAt   time.Time           `json:"started_at"`
	Aggregates  aggregates          `json:"aggregates"`
	Strategy    strategy.State      `json:"strategy"`
	Statistics  strategy.Statistics `json:"statistics"`
}

// Status reports the current session state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	running := o.running
	reason := o.reason
	started := o.started
	agg := o.agg
	o.mu.Unlock()

	return Status{
		ID:          o.id,
		AccountID:   o.params.AccountID,
		Market:      o.params.Market,
		TradingMode: o.params.TradingMode,
		Running:     running,
		StopReason:  reason,
		StartedAt:   started,
		Aggregates:  agg,
		Strategy:    o.strategy.CurrentState(),
		Statistics:  o.strategy.Statistics(),
	}
}

// ReplaceStrategyConfig swaps the live strategy parameters; the running
// state is preserved.
func (o *Orchestrator) ReplaceStrategyConfig(cfg strategy.Config) error {
	return o.strategy.ReplaceConfig(cfg)
}

// Pause suspends trading without ending the session.
func (o *Orchestrator) Pause() { o.strategy.Pause() }

// Resume reactivates a paused session.
func (o *Orchestrator) Resume() { o.strategy.Resume() }

// Err returns the fatal error that ended the session, if any.
func (o *Orchestrator) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}
