package hub

import (
	"testing"
	"time"

	"github.com/solmint/relay/internal/core/domain"
)

func update(id string, status domain.MessageStatus) domain.StatusUpdate {
	return domain.StatusUpdate{MessageID: id, Status: status, Timestamp: time.Now().UTC()}
}

func receive(t *testing.T, sub *Subscription) domain.StatusUpdate {
	t.Helper()
	select {
	case u := <-sub.Updates():
		return u
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for update")
		return domain.StatusUpdate{}
	}
}

func TestPublishRoutesByTopic(t *testing.T) {
	h := New()
	defer h.Close()

	a := h.Subscribe(4)
	b := h.Subscribe(4)
	a.Add("lz-1")
	b.Add("lz-2")

	h.Publish(update("lz-1", domain.StatusInflight))

	got := receive(t, a)
	if got.MessageID != "lz-1" {
		t.Errorf("MessageID = %s, want lz-1", got.MessageID)
	}

	select {
	case u := <-b.Updates():
		t.Errorf("Subscriber b received %+v, want nothing", u)
	default:
	}
}

func TestFanOut(t *testing.T) {
	h := New()
	defer h.Close()

	a := h.Subscribe(4)
	b := h.Subscribe(4)
	a.Add("lz-1")
	b.Add("lz-1")

	h.Publish(update("lz-1", domain.StatusDelivered))

	if got := receive(t, a); got.Status != domain.StatusDelivered {
		t.Errorf("a got %s, want DELIVERED", got.Status)
	}
	if got := receive(t, b); got.Status != domain.StatusDelivered {
		t.Errorf("b got %s, want DELIVERED", got.Status)
	}
}

func TestRemoveStopsDelivery(t *testing.T) {
	h := New()
	defer h.Close()

	sub := h.Subscribe(4)
	sub.Add("lz-1")
	sub.Remove("lz-1")
	sub.Remove("lz-1") // idempotent

	h.Publish(update("lz-1", domain.StatusInflight))

	select {
	case u := <-sub.Updates():
		t.Errorf("Received %+v after Remove, want nothing", u)
	default:
	}
}

func TestSlowSubscriberDropsUpdates(t *testing.T) {
	h := New()
	defer h.Close()

	sub := h.Subscribe(1)
	sub.Add("lz-1")

	h.Publish(update("lz-1", domain.StatusInflight))
	h.Publish(update("lz-1", domain.StatusDelivered)) // dropped, buffer full

	got := receive(t, sub)
	if got.Status != domain.StatusInflight {
		t.Errorf("Status = %s, want INFLIGHT", got.Status)
	}
	select {
	case u := <-sub.Updates():
		t.Errorf("Received %+v, want dropped", u)
	default:
	}
}

func TestSubscriptionClose(t *testing.T) {
	h := New()
	defer h.Close()

	sub := h.Subscribe(4)
	sub.Add("lz-1")
	sub.Close()

	if _, ok := <-sub.Updates(); ok {
		t.Error("Updates channel open after Close")
	}

	// Publishing after close must not panic
	h.Publish(update("lz-1", domain.StatusInflight))
}

func TestHubCloseClosesSubscriptions(t *testing.T) {
	h := New()

	sub := h.Subscribe(4)
	sub.Add("lz-1")

	h.Close()

	if _, ok := <-sub.Updates(); ok {
		t.Error("Updates channel open after hub Close")
	}

	// Close is idempotent and post-close operations are no-ops
	h.Close()
	h.Publish(update("lz-1", domain.StatusInflight))
	sub.Close()
}
