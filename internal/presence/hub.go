// Package presence holds the authoritative username -> state mapping
// and fans out every change to the subscribed clients.
package presence

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Subscriber receives full presence snapshots. A Push that returns an
// error marks the subscriber dead and evicts it.
type Subscriber interface {
	Push(states map[string]string) error
}

type subscription struct {
	id     uuid.UUID
	target Subscriber
}

// Hub owns the presence mapping and the live subscription set.
// Subscribe, Unsubscribe, and Broadcast race across concurrently
// handled requests, so every path holds the hub lock; a reader of the
// mapping observes either the fully pre- or fully post-broadcast
// state, never a partial fan-out.
type Hub struct {
	mu     sync.Mutex
	states map[string]string
	subs   []subscription
	log    *slog.Logger
}

// NewHub returns an empty hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{states: map[string]string{}, log: log}
}

// Subscribe adds a subscriber and immediately pushes the current
// mapping so it never starts with stale state. Subscribing the same
// target twice is a no-op returning the existing handle.
func (h *Hub) Subscribe(s Subscriber) uuid.UUID {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		if sub.target == s {
			return sub.id
		}
	}
	sub := subscription{id: uuid.New(), target: s}
	h.subs = append(h.subs, sub)
	h.log.Debug("subscriber added", "id", sub.id)
	if err := s.Push(h.snapshot()); err != nil {
		h.log.Warn("initial presence push failed", "id", sub.id, "error", err)
	}
	return sub.id
}

// Unsubscribe removes a subscriber; unknown targets are ignored.
func (h *Hub) Unsubscribe(s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, sub := range h.subs {
		if sub.target == s {
			h.subs = append(h.subs[:i], h.subs[i+1:]...)
			h.log.Debug("subscriber removed", "id", sub.id)
			return
		}
	}
}

// Broadcast replaces the mapping and pushes it to every live
// subscriber. A failed push evicts that subscriber and the broadcast
// carries on; partial delivery is acceptable.
func (h *Hub) Broadcast(states map[string]string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states = states
	kept := h.subs[:0]
	for _, sub := range h.subs {
		if err := sub.target.Push(h.snapshot()); err != nil {
			h.log.Warn("evicting unreachable subscriber", "id", sub.id, "error", err)
			continue
		}
		kept = append(kept, sub)
	}
	h.subs = kept
}

// States returns a copy of the current mapping.
func (h *Hub) States() map[string]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshot()
}

func (h *Hub) snapshot() map[string]string {
	m := make(map[string]string, len(h.states))
	for k, v := range h.states {
		m[k] = v
	}
	return m
}
