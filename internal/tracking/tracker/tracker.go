package tracker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/solmint/relay/internal/core/domain"
	"github.com/solmint/relay/internal/tracking/hub"
	"github.com/solmint/relay/internal/tracking/metrics"
)

// StatusChecker performs the immediate out-of-band status check issued
// when a message is first tracked.
type StatusChecker func(ctx context.Context, messageID string) (*domain.StatusUpdate, error)

// UpdateFunc is invoked once per applied status update.
type UpdateFunc func(update domain.StatusUpdate)

// Tracker maintains one session's view of its tracked messages.
// Each WebSocket session owns its own Tracker; there is no cross-session
// sharing.
type Tracker struct {
	sub     *hub.Subscription
	checker StatusChecker
	log     *slog.Logger

	mu        sync.Mutex
	members   map[string]struct{}
	entries   map[string]*domain.StatusUpdate
	order     []string
	callbacks []UpdateFunc

	stop chan struct{}
	done chan struct{}
}

// New creates a tracker bound to a hub subscription. checker may be nil
// when no out-of-band status check is available.
func New(sub *hub.Subscription, checker StatusChecker) *Tracker {
	return &Tracker{
		sub:     sub,
		checker: checker,
		log:     slog.Default(),
		members: make(map[string]struct{}),
		entries: make(map[string]*domain.StatusUpdate),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Run pumps hub updates into the tracker until ctx is done or Close is
// called.
func (t *Tracker) Run(ctx context.Context) {
	defer close(t.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case update, ok := <-t.sub.Updates():
			if !ok {
				return
			}
			t.Apply(update)
		}
	}
}

// Close tears the tracker down and releases its subscription.
func (t *Tracker) Close() {
	t.mu.Lock()
	select {
	case <-t.stop:
	default:
		close(t.stop)
	}
	n := len(t.members)
	t.members = make(map[string]struct{})
	t.entries = make(map[string]*domain.StatusUpdate)
	t.order = nil
	t.mu.Unlock()

	metrics.TrackedMessages.Sub(float64(n))
	t.sub.Close()
}

// Track begins observing a message. Idempotent. Issues an immediate
// status check in addition to the pushed updates; the check's result,
// if it arrives after an Untrack, is discarded by Apply.
func (t *Tracker) Track(ctx context.Context, messageID string) {
	t.mu.Lock()
	if _, ok := t.members[messageID]; ok {
		t.mu.Unlock()
		return
	}
	t.members[messageID] = struct{}{}
	t.mu.Unlock()

	metrics.TrackedMessages.Inc()
	t.sub.Add(messageID)

	if t.checker == nil {
		return
	}
	go func() {
		update, err := t.checker(ctx, messageID)
		if err != nil {
			// Unknown IDs are not an error; the first pushed update
			// resolves the ambiguity.
			t.log.Debug("Status check failed", "messageId", messageID, "error", err)
			return
		}
		if update != nil {
			t.Apply(*update)
		}
	}()
}

// Untrack stops observing a message. Idempotent.
func (t *Tracker) Untrack(messageID string) {
	t.mu.Lock()
	_, tracked := t.members[messageID]
	if tracked {
		delete(t.members, messageID)
		if _, ok := t.entries[messageID]; ok {
			delete(t.entries, messageID)
			for i, id := range t.order {
				if id == messageID {
					t.order = append(t.order[:i], t.order[i+1:]...)
					break
				}
			}
		}
	}
	t.mu.Unlock()

	if tracked {
		metrics.TrackedMessages.Dec()
		t.sub.Remove(messageID)
	}
}

// Apply records a status update. Updates for untracked messages are
// silently discarded, and entries that have reached a terminal status
// never change again.
func (t *Tracker) Apply(update domain.StatusUpdate) {
	t.mu.Lock()
	if _, ok := t.members[update.MessageID]; !ok {
		t.mu.Unlock()
		return
	}
	if existing, ok := t.entries[update.MessageID]; ok && existing.Status.Terminal() {
		t.mu.Unlock()
		return
	}
	if _, ok := t.entries[update.MessageID]; !ok {
		t.order = append(t.order, update.MessageID)
	}
	u := update
	t.entries[update.MessageID] = &u
	callbacks := make([]UpdateFunc, len(t.callbacks))
	copy(callbacks, t.callbacks)
	t.mu.Unlock()

	for _, cb := range callbacks {
		cb(update)
	}
}

// GetAll returns a snapshot of tracked messages that have received at
// least one status update, in first-seen order.
func (t *Tracker) GetAll() []domain.StatusUpdate {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]domain.StatusUpdate, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.entries[id])
	}
	return out
}

// Get returns the latest known status of one message.
func (t *Tracker) Get(messageID string) (domain.StatusUpdate, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[messageID]
	if !ok {
		return domain.StatusUpdate{}, false
	}
	return *entry, true
}

// OnUpdate registers a callback invoked once per applied update,
// including duplicate-status pushes.
func (t *Tracker) OnUpdate(fn UpdateFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.callbacks = append(t.callbacks, fn)
}
