package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/solmint/relay/internal/tracking"
	"github.com/solmint/relay/internal/tracking/metrics"

	"github.com/solmint/relay/internal/core/domain"
)

// Reaper fails abandoned messages. A message that has sat in a
// non-terminal status past the stale cutoff will never receive another
// update, so the reaper transitions it to FAILED rather than letting it
// linger as INFLIGHT forever.
type Reaper struct {
	svc        *tracking.Service
	staleAfter time.Duration
	interval   time.Duration
	log        *slog.Logger
}

// NewReaper creates a reaper. staleAfter is how long a message may go
// without an update before it is failed; interval is how often to check.
func NewReaper(svc *tracking.Service, staleAfter, interval time.Duration) *Reaper {
	return &Reaper{
		svc:        svc,
		staleAfter: staleAfter,
		interval:   interval,
		log:        slog.Default(),
	}
}

// Start runs the reap loop until the context is canceled.
func (r *Reaper) Start(ctx context.Context) {
	if r.staleAfter <= 0 {
		return // Reaping disabled
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reap(ctx)
		}
	}
}

func (r *Reaper) reap(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-r.staleAfter)

	stale, err := r.svc.ListStale(ctx, cutoff)
	if err != nil {
		r.log.Error("Failed to list stale messages", "error", err)
		return
	}

	for _, msg := range stale {
		reason := fmt.Sprintf("abandoned: no status update within %s", r.staleAfter)
		if _, err := r.svc.Advance(ctx, msg.ID, domain.StatusFailed, nil, reason); err != nil {
			// Raced with a real update; the message moved on without us.
			r.log.Debug("Skipped reaping message", "id", msg.ID, "error", err)
			continue
		}
		metrics.MessagesReaped.Inc()
		r.log.Info("Reaped abandoned message", "id", msg.ID, "staleAfter", r.staleAfter)
	}
}
