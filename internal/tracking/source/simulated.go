package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/solmint/relay/internal/core/domain"
	"github.com/solmint/relay/internal/tracking"
)

const (
	// advanceChance is the per-tick probability a non-terminal message
	// advances one step.
	advanceChance = 0.3

	// completeChance is the probability a delivered message completes
	// rather than fails.
	completeChance = 0.9
)

// Simulated advances every non-terminal message probabilistically on a
// fixed interval: at most one transition per tick per message, always
// one step forward along the delivery sequence.
type Simulated struct {
	svc      *tracking.Service
	interval time.Duration
	log      *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand

	stop chan struct{}
}

// NewSimulated creates a simulated status driver.
func NewSimulated(svc *tracking.Service, interval time.Duration) *Simulated {
	return &Simulated{
		svc:      svc,
		interval: interval,
		log:      slog.Default(),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		stop:     make(chan struct{}),
	}
}

// SetSeed fixes the random source, for deterministic tests.
func (s *Simulated) SetSeed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng = rand.New(rand.NewSource(seed))
}

// Start runs the driver until ctx is done or Stop is called.
func (s *Simulated) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Stop halts the driver.
func (s *Simulated) Stop() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
}

// Tick advances each non-terminal message at most one step.
func (s *Simulated) Tick(ctx context.Context) {
	msgs, err := s.svc.ListStale(ctx, time.Now().UTC())
	if err != nil {
		s.log.Warn("Failed to list pending messages", "error", err)
		return
	}

	for _, msg := range msgs {
		if msg.Status.Terminal() {
			continue
		}
		if s.roll() >= advanceChance {
			continue
		}
		if err := s.advance(ctx, msg); err != nil {
			s.log.Warn("Failed to advance message", "messageId", msg.ID, "error", err)
		}
	}
}

func (s *Simulated) advance(ctx context.Context, msg *domain.Message) error {
	next, ok := msg.Status.Next()
	if !ok {
		return nil
	}

	var data json.RawMessage
	var errMsg string
	if next == domain.StatusCompleted {
		if s.roll() < completeChance {
			data = s.completionData(msg)
		} else {
			next = domain.StatusFailed
			errMsg = "destination chain execution reverted"
		}
	}

	_, err := s.svc.Advance(ctx, msg.ID, next, data, errMsg)
	return err
}

func (s *Simulated) completionData(msg *domain.Message) json.RawMessage {
	s.mu.Lock()
	txHash := fmt.Sprintf("0x%016x%016x%016x%016x",
		s.rng.Uint64(), s.rng.Uint64(), s.rng.Uint64(), s.rng.Uint64())
	s.mu.Unlock()

	payload := map[string]any{
		"destinationChain": msg.DestinationChain,
		"destinationTx":    txHash,
		"confirmedAt":      time.Now().UTC().Format(time.RFC3339),
	}
	out, _ := json.Marshal(payload)
	return out
}

func (s *Simulated) roll() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}
