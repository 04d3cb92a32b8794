package hub

import (
	"log/slog"
	"sync"

	"github.com/solmint/relay/internal/core/domain"
)

// Hub is a publish/subscribe broker for message status updates.
// Each messageId is a topic; subscribers register interest per topic and
// receive updates on their own channel. There is no cross-subscriber
// sharing: every session owns its subscription.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
	closed bool
}

// Subscription is one consumer's view of the hub.
type Subscription struct {
	hub    *Hub
	ch     chan domain.StatusUpdate
	topics map[string]struct{}
	once   sync.Once
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{
		topics: make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe creates a subscription with the given channel buffer.
func (h *Hub) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 64
	}
	sub := &Subscription{
		hub:    h,
		ch:     make(chan domain.StatusUpdate, buffer),
		topics: make(map[string]struct{}),
	}
	return sub
}

// Publish fans an update out to every subscriber of its messageId.
// Slow subscribers that have filled their buffer lose the update; the
// tracker's immediate status check on Track covers re-sync.
func (h *Hub) Publish(update domain.StatusUpdate) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}

	for sub := range h.topics[update.MessageID] {
		select {
		case sub.ch <- update:
		default:
			slog.Warn("Dropping status update for slow subscriber",
				"messageId", update.MessageID, "status", update.Status)
		}
	}
}

// Close tears down the hub and all subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	seen := make(map[*Subscription]struct{})
	for _, subs := range h.topics {
		for sub := range subs {
			seen[sub] = struct{}{}
		}
	}
	for sub := range seen {
		sub.once.Do(func() { close(sub.ch) })
	}
	h.topics = make(map[string]map[*Subscription]struct{})
}

// Add registers interest in a messageId. Idempotent.
func (s *Subscription) Add(messageID string) {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()

	if s.hub.closed {
		return
	}
	if _, ok := s.topics[messageID]; ok {
		return
	}
	s.topics[messageID] = struct{}{}

	subs := s.hub.topics[messageID]
	if subs == nil {
		subs = make(map[*Subscription]struct{})
		s.hub.topics[messageID] = subs
	}
	subs[s] = struct{}{}
}

// Remove drops interest in a messageId. Idempotent.
func (s *Subscription) Remove(messageID string) {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()

	if _, ok := s.topics[messageID]; !ok {
		return
	}
	delete(s.topics, messageID)

	if subs, ok := s.hub.topics[messageID]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(s.hub.topics, messageID)
		}
	}
}

// Updates returns the subscriber's channel. Closed when the
// subscription or the hub closes.
func (s *Subscription) Updates() <-chan domain.StatusUpdate {
	return s.ch
}

// Close removes the subscription from every topic and closes its channel.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	for id := range s.topics {
		if subs, ok := s.hub.topics[id]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(s.hub.topics, id)
			}
		}
	}
	s.topics = make(map[string]struct{})
	s.hub.mu.Unlock()

	s.once.Do(func() { close(s.ch) })
}
