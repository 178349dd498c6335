package stream

import (
	"context"
	"testing"
	"time"

	"apptracker.org/internal/audit"
)

func TestSubscribeReceivesPublishedEntries(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.Subscribe(ctx)
	s.Publish(audit.Entry{ID: "e-1", Action: audit.ActionCreate, ResourceType: "server"})

	select {
	case e := <-ch:
		if e.ID != "e-1" {
			t.Fatalf("unexpected entry: %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for entry")
	}
}

func TestUnsubscribeOnContextCancel(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Subscribe(ctx)
	if got := s.Subscribers(); got != 1 {
		t.Fatalf("expected 1 subscriber, got %d", got)
	}

	cancel()
	deadline := time.After(time.Second)
	for s.Subscribers() != 0 {
		select {
		case <-deadline:
			t.Fatal("subscriber was not removed")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if _, open := <-ch; open {
		// Drain until the close is observed.
		for range ch {
		}
	}
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Subscribe(ctx) // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			s.Publish(audit.Entry{ID: "e", Action: audit.ActionUpdate, ResourceType: "server"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
