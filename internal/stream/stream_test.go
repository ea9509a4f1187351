package stream

import (
	"testing"
	"time"
)

func TestPublishReachesSubscribers(t *testing.T) {
	s := New()
	ch, cancel := s.Subscribe(4)
	defer cancel()

	s.Publish(Event{Type: EventSignedIn, IdentityID: "member-1", SessionID: "sess-1"})

	select {
	case ev := <-ch:
		if ev.Type != EventSignedIn || ev.IdentityID != "member-1" {
			t.Fatalf("event = %+v", ev)
		}
		if ev.At.IsZero() {
			t.Fatal("event timestamp not stamped")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	s := New()
	ch, cancel := s.Subscribe(1)
	cancel()

	if _, open := <-ch; open {
		t.Fatal("channel must be closed after cancel")
	}
	if n := s.Subscribers(); n != 0 {
		t.Fatalf("subscribers = %d, want 0", n)
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	s := New()
	_, cancel := s.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		// Buffer of one; further events must be dropped, not block.
		for i := 0; i < 10; i++ {
			s.Publish(Event{Type: EventSignedOut, SessionID: "sess-1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
