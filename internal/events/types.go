package events

// Event enumerates high-level topics inside the trading core.
type Event string

const (
	EventSessionStarted   Event = "session.started"
	EventSessionStopped   Event = "session.stopped"
	EventSessionTelemetry Event = "session.telemetry"
	EventTradeSettled     Event = "trade.settled"
	EventRiskAlert        Event = "risk.alert"
)
