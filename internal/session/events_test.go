package session

import (
	"testing"
	"time"
)

func TestHub_SubscribeUnsubscribe(t *testing.T) {
	hub := NewHub()
	if hub.ClientCount() != 0 {
		t.Fatalf("new hub should have 0 clients, got %d", hub.ClientCount())
	}

	hub.Subscribe("c1", "u1")
	hub.Subscribe("c2", "")
	if hub.ClientCount() != 2 {
		t.Errorf("expected 2 clients, got %d", hub.ClientCount())
	}

	hub.Unsubscribe("c1")
	hub.Unsubscribe("missing")
	if hub.ClientCount() != 1 {
		t.Errorf("expected 1 client, got %d", hub.ClientCount())
	}
}

func TestHub_PublishFiltersByUser(t *testing.T) {
	hub := NewHub()
	mine := hub.Subscribe("c1", "u1")
	other := hub.Subscribe("c2", "u2")
	all := hub.Subscribe("c3", "")

	hub.Publish(Event{Kind: EventSignedOut, UserID: "u1"})

	select {
	case ev := <-mine:
		if ev.Kind != EventSignedOut || ev.At.IsZero() {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("u1 subscriber did not receive its event")
	}
	select {
	case <-all:
	case <-time.After(time.Second):
		t.Fatal("wildcard subscriber did not receive the event")
	}
	select {
	case ev := <-other:
		t.Errorf("u2 subscriber received %+v", ev)
	default:
	}
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	hub := NewHub()
	hub.Subscribe("slow", "u1")

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Publish(Event{Kind: EventTokenRefreshed, UserID: "u1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe("c1", "u1")
	hub.Unsubscribe("c1")

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}
}

func TestHub_ResubscribeReplacesChannel(t *testing.T) {
	hub := NewHub()
	first := hub.Subscribe("c1", "u1")
	second := hub.Subscribe("c1", "u1")

	if _, ok := <-first; ok {
		t.Error("replaced channel should be closed")
	}
	hub.Publish(Event{Kind: EventSignedIn, UserID: "u1"})
	if ev := <-second; ev.Kind != EventSignedIn {
		t.Errorf("unexpected event %+v", ev)
	}
	if hub.ClientCount() != 1 {
		t.Errorf("expected 1 client, got %d", hub.ClientCount())
	}
}
