package stream

import (
	"sync"
	"time"
)

// EventType classifies a session lifecycle change.
type EventType string

const (
	EventSignedIn       EventType = "signed_in"
	EventSignedOut      EventType = "signed_out"
	EventStepUpVerified EventType = "stepup_verified"
	EventInvalidated    EventType = "invalidated"
)

// Event describes one session state change. Consumers re-evaluate the gate
// when an event for their identity arrives.
type Event struct {
	Type       EventType `json:"type"`
	IdentityID string    `json:"identity_id"`
	SessionID  string    `json:"session_id,omitempty"`
	At         time.Time `json:"at"`
}

// Stream fan-outs session events to all active subscribers (SSE clients and
// in-process listeners). Slow subscribers drop events instead of blocking the
// publisher.
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan Event)}
}

// Subscribe registers a listener and returns its channel plus a cancel func.
func (s *Stream) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if existing, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(existing)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber without blocking.
func (s *Stream) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers reports the number of active listeners.
func (s *Stream) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}
