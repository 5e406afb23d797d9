package events

import (
	"testing"
	"time"
)

func TestPublishReachesSubscriber(t *testing.T) {
	b := NewBus()
	ch, unsub := b.Subscribe(EventTradeSettled, 1)
	defer unsub()

	b.Publish(EventTradeSettled, "sess-1", "payload")

	select {
	case got := <-ch:
		if got.Topic != EventTradeSettled {
			t.Fatalf("topic %q, expected %q", got.Topic, EventTradeSettled)
		}
		if got.SessionID != "sess-1" {
			t.Fatalf("session %q, expected sess-1", got.SessionID)
		}
		if got.Payload != "payload" {
			t.Fatalf("payload %v, expected payload", got.Payload)
		}
		if got.At.IsZero() {
			t.Fatal("message timestamp not stamped")
		}
	case <-time.After(time.Second):
		t.Fatal("publish did not reach the subscriber")
	}
}

func TestPublishDropsWhenSubscriberSlow(t *testing.T) {
	b := NewBus()
	ch, unsub := b.Subscribe(EventSessionTelemetry, 1)
	defer unsub()

	// Second publish finds a full buffer and must not block.
	done := make(chan struct{})
	go func() {
		b.Publish(EventSessionTelemetry, "sess-1", 1)
		b.Publish(EventSessionTelemetry, "sess-1", 2)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	if got := <-ch; got.Payload != 1 {
		t.Fatalf("received %v, expected the first payload", got.Payload)
	}
}

func TestTopicsAreIsolated(t *testing.T) {
	b := NewBus()
	settled, unsubSettled := b.Subscribe(EventTradeSettled, 1)
	defer unsubSettled()
	alerts, unsubAlerts := b.Subscribe(EventRiskAlert, 1)
	defer unsubAlerts()

	b.Publish(EventRiskAlert, "sess-2", "auto-pause")

	select {
	case msg := <-alerts:
		if msg.SessionID != "sess-2" {
			t.Fatalf("session %q, expected sess-2", msg.SessionID)
		}
	case <-time.After(time.Second):
		t.Fatal("alert never delivered")
	}
	select {
	case msg := <-settled:
		t.Fatalf("trade subscriber received %v from another topic", msg)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBus()
	ch, unsub := b.Subscribe(EventSessionStopped, 1)
	unsub()

	if _, open := <-ch; open {
		t.Fatal("channel still open after unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	b.Publish(EventSessionStopped, "sess-1", "late")
}
