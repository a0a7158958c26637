package session

import (
	"sync"
	"time"
)

type EventKind string

const (
	EventSignedIn       EventKind = "signed_in"
	EventSignedOut      EventKind = "signed_out"
	EventTokenRefreshed EventKind = "token_refreshed"
	// EventProfileChanged is published after a write to a profile row.
	EventProfileChanged EventKind = "profile_changed"
)

// Event is an authentication-state transition for one user.
type Event struct {
	Kind      EventKind `json:"kind"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id,omitempty"`
	At        time.Time `json:"at"`
}

type subscriber struct {
	userID string
	ch     chan Event
}

// Hub fans auth events out to subscribers. A subscriber registered with a
// user id only receives that user's events; an empty user id receives all.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]subscriber
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]subscriber)}
}

// Subscribe registers clientID and returns its event channel.
// Re-subscribing an existing clientID replaces the old channel.
func (h *Hub) Subscribe(clientID, userID string) <-chan Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.clients[clientID]; ok {
		close(old.ch)
	}
	ch := make(chan Event, 16)
	h.clients[clientID] = subscriber{userID: userID, ch: ch}
	return ch
}

func (h *Hub) Unsubscribe(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.clients[clientID]; ok {
		close(sub.ch)
		delete(h.clients, clientID)
	}
}

// Publish never blocks: a subscriber with a full buffer misses the event.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.clients {
		if sub.userID != "" && sub.userID != ev.UserID {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
