package worker

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/solmint/relay/internal/core/domain"
	"github.com/solmint/relay/internal/infra/storage/memory"
	"github.com/solmint/relay/internal/tracking"
	"github.com/solmint/relay/internal/tracking/hub"
)

func TestReapFailsStaleMessages(t *testing.T) {
	h := hub.New()
	defer h.Close()
	repo := memory.NewMessageRepo()
	svc := tracking.NewService(repo, h)
	ctx := context.Background()

	stale := &domain.Message{
		ID:               "lz-stale",
		SourceChain:      "solana",
		DestinationChain: "base",
		MessageType:      "nft_ownership",
		Status:           domain.StatusInflight,
		CreatedAt:        time.Now().UTC().Add(-time.Hour),
		UpdatedAt:        time.Now().UTC().Add(-time.Hour),
	}
	if err := repo.Create(ctx, stale); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	fresh, err := svc.Create(ctx, "base", "nft_ownership", nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	r := NewReaper(svc, 10*time.Minute, time.Minute)
	r.reap(ctx)

	got, _ := svc.Get(ctx, "lz-stale")
	if got.Status != domain.StatusFailed {
		t.Errorf("Stale message status = %s, want FAILED", got.Status)
	}
	if !strings.Contains(got.Error, "abandoned") || !strings.Contains(got.Error, "10m") {
		t.Errorf("Error = %q, want abandonment reason with timeout", got.Error)
	}

	kept, _ := svc.Get(ctx, fresh.ID)
	if kept.Status != domain.StatusCreated {
		t.Errorf("Fresh message status = %s, want untouched CREATED", kept.Status)
	}

	// Reaping again is a no-op; terminal messages are skipped.
	r.reap(ctx)
	got, _ = svc.Get(ctx, "lz-stale")
	if got.Status != domain.StatusFailed {
		t.Errorf("Status changed on second reap: %s", got.Status)
	}
}
