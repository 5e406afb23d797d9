package events

import (
	"sync"
	"time"
)

// Message is the envelope every topic carries: which session produced the
// event, when, and the topic-specific payload.
type Message struct {
	Topic     Event     `json:"topic"`
	SessionID string    `json:"session_id"`
	At        time.Time `json:"at"`
	Payload   any       `json:"payload"`
}

type subscriber struct {
	id int
	ch chan Message
}

// Bus fans session events out to in-process subscribers. Publish never
// blocks; a subscriber that stops draining loses messages, not the bus.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[Event][]subscriber
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Event][]subscriber)}
}

// Subscribe registers a listener for one topic. The returned function
// removes the listener and closes its channel.
func (b *Bus) Subscribe(e Event, buffer int) (<-chan Message, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := subscriber{id: b.nextID, ch: make(chan Message, buffer)}
	b.subs[e] = append(b.subs[e], sub)

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[e]
		for i, s := range subs {
			if s.id == sub.id {
				close(s.ch)
				b.subs[e] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
	return sub.ch, unsub
}

// Publish delivers one session event to every subscriber of its topic.
func (b *Bus) Publish(e Event, sessionID string, payload any) {
	msg := Message{Topic: e, SessionID: sessionID, At: time.Now(), Payload: payload}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs[e] {
		select {
		case s.ch <- msg:
		default:
			// slow subscriber, drop rather than stall the session loop
		}
	}
}
