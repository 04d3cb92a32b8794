package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/solmint/relay/internal/core/domain"
	"github.com/solmint/relay/internal/tracking/hub"
)

func update(id string, status domain.MessageStatus) domain.StatusUpdate {
	return domain.StatusUpdate{MessageID: id, Status: status, Timestamp: time.Now().UTC()}
}

func newTracker(h *hub.Hub) *Tracker {
	return New(h.Subscribe(16), nil)
}

func TestApplyDiscardsUntracked(t *testing.T) {
	h := hub.New()
	defer h.Close()
	tr := newTracker(h)
	defer tr.Close()

	tr.Apply(update("lz-1", domain.StatusInflight))

	if _, ok := tr.Get("lz-1"); ok {
		t.Error("Untracked message was recorded")
	}
	if got := tr.GetAll(); len(got) != 0 {
		t.Errorf("GetAll = %+v, want empty", got)
	}
}

func TestTrackAndApply(t *testing.T) {
	h := hub.New()
	defer h.Close()
	tr := newTracker(h)
	defer tr.Close()

	ctx := context.Background()
	tr.Track(ctx, "lz-1")
	tr.Track(ctx, "lz-1") // idempotent

	tr.Apply(update("lz-1", domain.StatusInflight))
	tr.Apply(update("lz-1", domain.StatusDelivered))

	got, ok := tr.Get("lz-1")
	if !ok {
		t.Fatal("Tracked message not recorded")
	}
	if got.Status != domain.StatusDelivered {
		t.Errorf("Status = %s, want DELIVERED", got.Status)
	}
	if all := tr.GetAll(); len(all) != 1 {
		t.Errorf("GetAll has %d entries, want 1", len(all))
	}
}

func TestTerminalEntriesNeverChange(t *testing.T) {
	h := hub.New()
	defer h.Close()
	tr := newTracker(h)
	defer tr.Close()

	tr.Track(context.Background(), "lz-1")
	tr.Apply(update("lz-1", domain.StatusCompleted))
	tr.Apply(update("lz-1", domain.StatusInflight)) // late duplicate

	got, _ := tr.Get("lz-1")
	if got.Status != domain.StatusCompleted {
		t.Errorf("Status = %s, want COMPLETED to be immutable", got.Status)
	}
}

func TestUntrackRemovesEntry(t *testing.T) {
	h := hub.New()
	defer h.Close()
	tr := newTracker(h)
	defer tr.Close()

	tr.Track(context.Background(), "lz-1")
	tr.Apply(update("lz-1", domain.StatusInflight))

	tr.Untrack("lz-1")
	tr.Untrack("lz-1") // idempotent

	if _, ok := tr.Get("lz-1"); ok {
		t.Error("Entry survived Untrack")
	}
	if got := tr.GetAll(); len(got) != 0 {
		t.Errorf("GetAll = %+v, want empty after Untrack", got)
	}

	// Updates after Untrack are discarded
	tr.Apply(update("lz-1", domain.StatusDelivered))
	if _, ok := tr.Get("lz-1"); ok {
		t.Error("Update applied after Untrack")
	}
}

func TestGetAllFirstSeenOrder(t *testing.T) {
	h := hub.New()
	defer h.Close()
	tr := newTracker(h)
	defer tr.Close()

	ctx := context.Background()
	tr.Track(ctx, "lz-a")
	tr.Track(ctx, "lz-b")
	tr.Track(ctx, "lz-c") // never receives an update

	tr.Apply(update("lz-b", domain.StatusInflight))
	tr.Apply(update("lz-a", domain.StatusInflight))
	tr.Apply(update("lz-b", domain.StatusDelivered))

	all := tr.GetAll()
	if len(all) != 2 {
		t.Fatalf("GetAll has %d entries, want 2", len(all))
	}
	if all[0].MessageID != "lz-b" || all[1].MessageID != "lz-a" {
		t.Errorf("Order = [%s, %s], want [lz-b, lz-a]", all[0].MessageID, all[1].MessageID)
	}
	if all[0].Status != domain.StatusDelivered {
		t.Errorf("lz-b status = %s, want latest DELIVERED", all[0].Status)
	}
}

func TestRunPumpsHubUpdates(t *testing.T) {
	h := hub.New()
	defer h.Close()

	sub := h.Subscribe(16)
	tr := New(sub, nil)
	defer tr.Close()

	var mu sync.Mutex
	var seen []domain.StatusUpdate
	tr.OnUpdate(func(u domain.StatusUpdate) {
		mu.Lock()
		seen = append(seen, u)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Run(ctx)

	tr.Track(ctx, "lz-1")
	h.Publish(update("lz-1", domain.StatusInflight))

	deadline := time.After(time.Second)
	for {
		mu.Lock()
		n := len(seen)
		mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("Timed out waiting for pumped update")
		case <-time.After(5 * time.Millisecond):
		}
	}

	got, ok := tr.Get("lz-1")
	if !ok || got.Status != domain.StatusInflight {
		t.Errorf("Get = %+v (ok=%v), want INFLIGHT", got, ok)
	}
}

func TestCheckerSeedsInitialStatus(t *testing.T) {
	h := hub.New()
	defer h.Close()

	checker := func(ctx context.Context, id string) (*domain.StatusUpdate, error) {
		u := update(id, domain.StatusCreated)
		return &u, nil
	}
	tr := New(h.Subscribe(16), checker)
	defer tr.Close()

	tr.Track(context.Background(), "lz-1")

	deadline := time.After(time.Second)
	for {
		if got, ok := tr.Get("lz-1"); ok {
			if got.Status != domain.StatusCreated {
				t.Errorf("Status = %s, want CREATED", got.Status)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("Timed out waiting for checker result")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
