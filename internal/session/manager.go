package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"binary-core/internal/events"
	"binary-core/internal/notify"
	"binary-core/internal/strategy"
	"binary-core/internal/venue"
	"binary-core/pkg/config"
	"binary-core/pkg/db"
)

// ClientFactory builds a venue client for one session. Each session gets its
// own logical connection so sessions stay fully isolated.
type ClientFactory func(p Params) venue.Client

// Manager owns all live sessions: create, lookup, stop, dispose. One active
// session per account at a time.
type Manager struct {
	store    *db.Database
	bus      *events.Bus
	notifier notify.Notifier
	log      logrus.FieldLogger
	clients  ClientFactory
	presets  map[string]config.StrategyPreset
	clock    Clock

	mu       sync.Mutex
	sessions map[string]*Orchestrator
	byAcct   map[string]string
}

// NewManager builds a session manager. presets may be nil, in which case
// every trading mode falls back to a stake-derived default config.
func NewManager(store *db.Database, bus *events.Bus, notifier notify.Notifier,
	clients ClientFactory, presets map[string]config.StrategyPreset, log logrus.FieldLogger) *Manager {
	return &Manager{
		store:    store,
		bus:      bus,
		notifier: notifier,
		log:      log,
		clients:  clients,
		presets:  presets,
		clock:    realClock{},
		sessions: make(map[string]*Orchestrator),
		byAcct:   make(map[string]string),
	}
}

// Start validates the parameters, builds a strategy from the trading-mode
// preset, and launches a new session. Returns the new session id.
func (m *Manager) Start(ctx context.Context, p Params) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}

	m.mu.Lock()
	if id, ok := m.byAcct[p.AccountID]; ok {
		if running := m.sessions[id]; running != nil && running.Status().Running {
			m.mu.Unlock()
			return "", fmt.Errorf("%w: %s", ErrSessionAlreadyRunning, p.AccountID)
		}
		delete(m.byAcct, p.AccountID)
	}
	m.mu.Unlock()

	strat, err := strategy.New(m.strategyConfig(p), m.log)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	orch := New(id, p, Deps{
		Strategy: strat,
		Client:   m.clients(p),
		Store:    m.store,
		Notifier: m.notifier,
		Bus:      m.bus,
		Log:      m.log,
		Clock:    m.clock,
	})

	m.mu.Lock()
	m.sessions[id] = orch
	m.byAcct[p.AccountID] = id
	m.mu.Unlock()

	if err := orch.Start(ctx); err != nil {
		m.mu.Lock()
		delete(m.sessions, id)
		delete(m.byAcct, p.AccountID)
		m.mu.Unlock()
		return "", err
	}
	return id, nil
}

// strategyConfig resolves the strategy parameters for a session: the
// trading-mode preset when one exists, otherwise defaults derived from the
// session stake and risk bounds.
func (m *Manager) strategyConfig(p Params) strategy.Config {
	if preset, ok := m.presets[p.TradingMode]; ok {
		return strategy.Config{
			InitialStake:        preset.InitialStake,
			ProfitThreshold:     preset.ProfitThreshold,
			LossThreshold:       preset.LossThreshold,
			MaxRecoveryAttempts: preset.MaxRecoveryAttempts,
			MaxDailyTrades:      preset.MaxDailyTrades,
		}
	}
	return strategy.Config{
		InitialStake:        p.Stake,
		ProfitThreshold:     p.TakeProfit,
		LossThreshold:       p.StopLoss,
		MaxRecoveryAttempts: 3,
		MaxDailyTrades:      50,
	}
}

// Get returns a session by id.
func (m *Manager) Get(id string) (*Orchestrator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	orch, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return orch, nil
}

// Stop stops a session by id with the given reason and removes it from the
// active registry once its loop has exited.
func (m *Manager) Stop(id, reason string) error {
	orch, err := m.Get(id)
	if err != nil {
		return err
	}
	if reason == "" {
		reason = ReasonUserRequested
	}
	orch.Stop(reason, true)
	<-orch.Done()

	m.mu.Lock()
	delete(m.sessions, id)
	for acct, sid := range m.byAcct {
		if sid == id {
			delete(m.byAcct, acct)
		}
	}
	m.mu.Unlock()
	return nil
}

// List returns the status of every known session.
func (m *Manager) List() []Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Status, 0, len(m.sessions))
	for _, orch := range m.sessions {
		out = append(out, orch.Status())
	}
	return out
}

// Shutdown stops every live session; used on process exit.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		if err := m.Stop(id, "service shutting down"); err != nil {
			m.log.WithError(err).WithField("session", id).Warn("shutdown stop failed")
		}
	}
}
