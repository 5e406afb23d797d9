package session

import (
	"context"
	"time"
)

// Clock abstracts wall time so delay schedules and timers are testable with
// virtual time. Production code uses the real clock; tests substitute one.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// sleep waits d on the clock, returning early with the context error when the
// context is cancelled first. Never busy-waits.
func sleep(ctx context.Context, c Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-c.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
