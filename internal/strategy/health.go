package strategy

import (
	"context"
	"time"
)

// HealthMonitor periodically runs the session-health check against a
// strategy. It is owned by the orchestrator and stops with its context.
type HealthMonitor struct {
	Strategy *Strategy
	Interval time.Duration
	OnPause  func() // invoked when the auto-pause fires; may be nil
}

// Start launches the periodic check. It returns immediately.
func (m *HealthMonitor) Start(ctx context.Context) {
	interval := m.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if m.Strategy.CheckSessionHealth() && m.OnPause != nil {
					m.OnPause()
				}
			}
		}
	}()
}
