package session

import (
	"math/rand"
	"testing"
	"time"

	"binary-core/internal/venue"
)

func TestWinKeepsBaseDelay(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		if d := nextTradeDelay(true, i, rng); d != baseTradeDelay {
			t.Fatalf("win delay=%v at %d losses, expected %v", d, i, baseTradeDelay)
		}
	}
}

func TestLossDelayBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for losses := 0; losses <= 20; losses++ {
		for i := 0; i < 100; i++ {
			d := nextTradeDelay(false, losses, rng)
			if d < 3*time.Second {
				t.Fatalf("loss delay %v below the 3s floor at %d losses", d, losses)
			}
			if d > maxTradeDelay {
				t.Fatalf("loss delay %v above the 15s ceiling at %d losses", d, losses)
			}
		}
	}
}

func TestRetryBackoffSchedule(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: time.Second},
		{attempt: 1, want: 2 * time.Second},
		{attempt: 3, want: 8 * time.Second},
		{attempt: 4, want: 16 * time.Second},
		{attempt: 5, want: 30 * time.Second},
		{attempt: 20, want: 30 * time.Second},
		{attempt: -1, want: time.Second},
	}
	for _, tt := range tests {
		if got := retryBackoff(tt.attempt); got != tt.want {
			t.Fatalf("retryBackoff(%d)=%v, expected %v", tt.attempt, got, tt.want)
		}
	}
}

func TestIsRecoverable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "connection error", err: &venue.ConnectionError{Op: "buy", Err: venue.ErrConnectionClosed}, want: true},
		{name: "creation timeout", err: venue.ErrContractCreationTimeout, want: true},
		{name: "insufficient balance", err: &venue.APIError{Code: venue.CodeInsufficientBalance}, want: true},
		{name: "authorization required", err: &venue.APIError{Code: venue.CodeAuthorizationRequired}, want: true},
		{name: "invalid contract", err: &venue.APIError{Code: venue.CodeInvalidContract}, want: false},
		{name: "validation error", err: &ValidationError{Field: "stake", Reason: "must be positive"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRecoverable(tt.err); got != tt.want {
				t.Fatalf("isRecoverable(%v)=%v, expected %v", tt.err, got, tt.want)
			}
		})
	}
}
