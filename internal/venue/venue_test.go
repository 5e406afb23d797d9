package venue

import (
	"context"
	"errors"
	"testing"
	"time"

	"binary-core/internal/settlement"
)

func TestKindFromNameIsTotal(t *testing.T) {
	tests := []struct {
		name string
		want ContractKind
		wire string
	}{
		{name: "CALL", want: KindRise, wire: "CALL"},
		{name: "RISE", want: KindRise, wire: "CALL"},
		{name: "PUT", want: KindFall, wire: "PUT"},
		{name: "FALL", want: KindFall, wire: "PUT"},
		{name: "DIGITEVEN", want: KindDigitEven, wire: "DIGITEVEN"},
		{name: "DIGITODD", want: KindDigitOdd, wire: "DIGITODD"},
		{name: "NO_SUCH_KIND", want: KindFallback, wire: "CALL"},
		{name: "", want: KindFallback, wire: "CALL"},
	}
	for _, tt := range tests {
		t.Run("name "+tt.name, func(t *testing.T) {
			k := KindFromName(tt.name)
			if k != tt.want {
				t.Fatalf("KindFromName(%q)=%v, expected %v", tt.name, k, tt.want)
			}
			if got := k.Wire(); got != tt.wire {
				t.Fatalf("Wire()=%q, expected %q", got, tt.wire)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateDisconnected, "disconnected"},
		{StateConnecting, "connecting"},
		{StateOpen, "open"},
		{StateClosing, "closing"},
		{State(99), "disconnected"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Fatalf("State(%d).String()=%q, expected %q", tt.state, got, tt.want)
		}
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	if o.MaxConnectAttempts != 5 {
		t.Fatalf("MaxConnectAttempts=%d, expected 5", o.MaxConnectAttempts)
	}
	if o.RetryDelay != 3*time.Second {
		t.Fatalf("RetryDelay=%v, expected 3s", o.RetryDelay)
	}
	if o.SettleTimeout != 5*time.Minute {
		t.Fatalf("SettleTimeout=%v, expected 5m", o.SettleTimeout)
	}
	if o.Log == nil {
		t.Fatal("Log default missing")
	}
}

func TestConnectionErrorWrapping(t *testing.T) {
	cause := errors.New("broken pipe")
	err := &ConnectionError{Op: "buy", Err: cause}
	if !errors.Is(err, cause) {
		t.Fatal("ConnectionError does not unwrap to its cause")
	}
}

func TestIsReauthRequired(t *testing.T) {
	if !IsReauthRequired(&APIError{Code: CodeAuthorizationRequired}) {
		t.Fatal("AuthorizationRequired not flagged for re-auth")
	}
	if IsReauthRequired(&APIError{Code: CodeInsufficientBalance}) {
		t.Fatal("InsufficientBalance flagged for re-auth")
	}
	if IsReauthRequired(errors.New("other")) {
		t.Fatal("plain error flagged for re-auth")
	}
}

func TestNewConnectionStartsDisconnected(t *testing.T) {
	c := NewConnection(Options{URL: "ws://localhost:1"})
	if got := c.State(); got != StateDisconnected {
		t.Fatalf("initial state %v, expected disconnected", got)
	}
}

func TestClosedConnectionRejectsConnect(t *testing.T) {
	c := NewConnection(Options{URL: "ws://localhost:1"})
	if err := c.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if err := c.Connect(context.Background()); !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("Connect after Close returned %v, expected ErrConnectionClosed", err)
	}
}

func TestFailPendingNeverBlocksOnFullBuffer(t *testing.T) {
	c := NewConnection(Options{URL: "wss://example.invalid", AppID: "1"})

	// One requester that gave up without draining its buffer, one still
	// waiting. Rejecting the first must not wedge the connection mutex.
	full := make(chan response, 1)
	full <- response{Result: []byte(`{}`)}
	waiting := make(chan response, 1)
	c.mu.Lock()
	c.pending[1] = full
	c.pending[2] = waiting

	done := make(chan struct{})
	go func() {
		c.failPendingLocked(errors.New("transport gone"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("failPendingLocked blocked on a full pending buffer")
	}
	if len(c.pending) != 0 {
		t.Fatalf("pending map has %d entries after failPending, expected 0", len(c.pending))
	}
	c.mu.Unlock()

	res := <-waiting
	if res.Error == nil || res.Error.Code != codeConnectionLost {
		t.Fatalf("waiting requester got %+v, expected %s rejection", res, codeConnectionLost)
	}
}

func TestMockPurchaseAlternatesDeterministically(t *testing.T) {
	m := &MockClient{WinEvery: 2}
	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}

	params := ContractParams{Market: "R_100", Kind: KindRise, Stake: 10, DurationUnit: "t", Duration: 5}
	wantWon := []bool{false, true, false, true}
	for i, want := range wantWon {
		raw, err := m.Purchase(context.Background(), params)
		if err != nil {
			t.Fatalf("purchase %d: %v", i, err)
		}
		s, err := settlement.Parse(raw)
		if err != nil {
			t.Fatalf("purchase %d produced an unparseable settlement: %v", i, err)
		}
		if s.Outcome.Won != want {
			t.Fatalf("purchase %d won=%v, expected %v", i, s.Outcome.Won, want)
		}
		if s.Outcome.Stake != params.Stake {
			t.Fatalf("purchase %d stake=%v, expected %v", i, s.Outcome.Stake, params.Stake)
		}
		if want && s.Outcome.SignedProfit <= 0 {
			t.Fatalf("purchase %d won but signed profit %v", i, s.Outcome.SignedProfit)
		}
		if !want && s.Outcome.SignedProfit != -params.Stake {
			t.Fatalf("purchase %d lost, signed profit %v, expected %v", i, s.Outcome.SignedProfit, -params.Stake)
		}
	}
}

func TestMockPurchaseRequiresConnection(t *testing.T) {
	m := &MockClient{WinEvery: 1}
	_, err := m.Purchase(context.Background(), ContractParams{Market: "R_100", Stake: 1})
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError on a disconnected mock, got %v", err)
	}
}
