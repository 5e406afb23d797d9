package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

// MockClient simulates the venue for dry-run mode and tests: every purchase
// settles deterministically after SettleDelay according to WinEvery (each
// Nth purchase wins; 1 means always win, 0 means always lose).
type MockClient struct {
	WinEvery    int
	PayoutRate  float64 // payout multiple on the stake, default 0.95
	SettleDelay time.Duration
	FailWith    error // when set, Purchase always fails with this error

	mu        sync.Mutex
	connected bool
	count     atomic.Int64
}

// Connect marks the mock as connected.
func (m *MockClient) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = true
	return nil
}

// Authorize always succeeds on a connected mock.
func (m *MockClient) Authorize(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return &ConnectionError{Op: "authorize", Err: ErrConnectionClosed}
	}
	return nil
}

// Close disconnects the mock.
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

// Purchase fabricates a settled contract document in the venue's raw shape.
func (m *MockClient) Purchase(ctx context.Context, p ContractParams) (json.RawMessage, error) {
	m.mu.Lock()
	connected := m.connected
	m.mu.Unlock()
	if !connected {
		return nil, &ConnectionError{Op: "buy", Err: ErrConnectionClosed}
	}
	if m.FailWith != nil {
		return nil, m.FailWith
	}

	if m.SettleDelay > 0 {
		select {
		case <-time.After(m.SettleDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	n := m.count.Add(1)
	won := false
	switch {
	case m.WinEvery == 1:
		won = true
	case m.WinEvery > 1:
		won = n%int64(m.WinEvery) == 0
	}

	payoutRate := m.PayoutRate
	if payoutRate <= 0 {
		payoutRate = 0.95
	}

	status := "lost"
	sign := -1
	profit := p.Stake
	if won {
		status = "won"
		sign = 1
		profit = p.Stake * payoutRate
	}

	now := time.Now().Unix()
	doc := fmt.Sprintf(`{
		"contract_id": %d,
		"underlying": {"symbol": %q},
		"status": %q,
		"buy_price": {"currency": "USD", "value": %.2f},
		"payout": {"currency": "USD", "value": %.2f},
		"entry_spot": %.4f,
		"exit_spot": %.4f,
		"profit": {"sign": %d, "value": %.2f, "currency": "USD"},
		"purchase_time": {"unit": "ms", "value": %d},
		"settled_time": {"unit": "s", "value": %d}
	}`, n, p.Market, status, p.Stake, p.Stake*(1+payoutRate),
		100+rand.Float64(), 100+rand.Float64(), sign, profit,
		(now-1)*1000, now)

	return json.RawMessage(doc), nil
}
