// Package notify is the outbound boundary to the chat/session front end. The
// core only ever talks to the Notifier interface; delivery mechanics live
// with the collaborator.
package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"binary-core/internal/events"
)

// TelemetryEvent is the periodic session snapshot pushed to the front end.
type TelemetryEvent struct {
	SessionID   string        `json:"session_id"`
	AccountID   string        `json:"account_id"`
	Currency    string        `json:"currency"`
	Wins        int           `json:"wins"`
	Losses      int           `json:"losses"`
	Runs        int           `json:"runs"`
	TotalStaked float64       `json:"total_staked"`
	TotalPayout float64       `json:"total_payout"`
	NetProfit   float64       `json:"net_profit"`
	WinRate     float64       `json:"win_rate"`
	Duration    time.Duration `json:"duration"`
}

// RunRow is one line of the final tabular run summary.
type RunRow struct {
	Run    int     `json:"run"`
	Stake  float64 `json:"stake"`
	Profit float64 `json:"profit"`
}

// Notifier receives session lifecycle and telemetry events.
type Notifier interface {
	SessionStarted(sessionID, accountID string)
	SessionStopped(sessionID, reason string)
	Telemetry(ev TelemetryEvent)
	RunSummary(sessionID string, rows []RunRow, total float64)
}

// BusNotifier publishes notifications onto the in-process event bus, from
// which the websocket push and other subscribers fan out.
type BusNotifier struct {
	Bus *events.Bus
}

func (n *BusNotifier) SessionStarted(sessionID, accountID string) {
	n.Bus.Publish(events.EventSessionStarted, sessionID, map[string]string{
		"account_id": accountID,
	})
}

func (n *BusNotifier) SessionStopped(sessionID, reason string) {
	n.Bus.Publish(events.EventSessionStopped, sessionID, map[string]string{
		"reason": reason,
	})
}

func (n *BusNotifier) Telemetry(ev TelemetryEvent) {
	n.Bus.Publish(events.EventSessionTelemetry, ev.SessionID, ev)
}

func (n *BusNotifier) RunSummary(sessionID string, rows []RunRow, total float64) {
	n.Bus.Publish(events.EventSessionStopped, sessionID, map[string]any{
		"summary": rows,
		"total":   total,
	})
}

// LogNotifier renders notifications into the structured log; useful when no
// front end is attached.
type LogNotifier struct {
	Log logrus.FieldLogger
}

func (n *LogNotifier) SessionStarted(sessionID, accountID string) {
	n.Log.WithFields(logrus.Fields{"session": sessionID, "account": accountID}).Info("session started")
}

func (n *LogNotifier) SessionStopped(sessionID, reason string) {
	n.Log.WithFields(logrus.Fields{"session": sessionID, "reason": reason}).Info("session stopped")
}

func (n *LogNotifier) Telemetry(ev TelemetryEvent) {
	n.Log.WithFields(logrus.Fields{
		"session":  ev.SessionID,
		"wins":     ev.Wins,
		"losses":   ev.Losses,
		"runs":     ev.Runs,
		"net":      ev.NetProfit,
		"win_rate": ev.WinRate,
	}).Info("session telemetry")
}

func (n *LogNotifier) RunSummary(sessionID string, rows []RunRow, total float64) {
	var b strings.Builder
	b.WriteString("run   stake     profit\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%-5d %-9.2f %+.2f\n", r.Run, r.Stake, r.Profit)
	}
	fmt.Fprintf(&b, "total %+.2f", total)
	n.Log.WithField("session", sessionID).Infof("run summary:\n%s", b.String())
}

// Multi fans notifications out to several notifiers.
type Multi []Notifier

func (m Multi) SessionStarted(sessionID, accountID string) {
	for _, n := range m {
		n.SessionStarted(sessionID, accountID)
	}
}

func (m Multi) SessionStopped(sessionID, reason string) {
	for _, n := range m {
		n.SessionStopped(sessionID, reason)
	}
}

func (m Multi) Telemetry(ev TelemetryEvent) {
	for _, n := range m {
		n.Telemetry(ev)
	}
}

func (m Multi) RunSummary(sessionID string, rows []RunRow, total float64) {
	for _, n := range m {
		n.RunSummary(sessionID, rows, total)
	}
}
