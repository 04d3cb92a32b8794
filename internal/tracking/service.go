package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/solmint/relay/internal/core/domain"
	"github.com/solmint/relay/internal/infra/storage"
	"github.com/solmint/relay/internal/tracking/hub"
	"github.com/solmint/relay/internal/tracking/metrics"
)

// Service is the single write path for message lifecycle changes.
// Every transition goes through the repository (which enforces the
// state machine) and is then published to the hub.
type Service struct {
	repo storage.MessageRepository
	hub  *hub.Hub
	log  *slog.Logger
}

// NewService creates a tracking service.
func NewService(repo storage.MessageRepository, h *hub.Hub) *Service {
	return &Service{
		repo: repo,
		hub:  h,
		log:  slog.Default(),
	}
}

// Create accepts a new cross-chain message in CREATED status.
func (s *Service) Create(
	ctx context.Context,
	destinationChain, messageType string,
	payload json.RawMessage,
) (*domain.Message, error) {
	now := time.Now().UTC()
	msg := &domain.Message{
		ID:               "lz-" + uuid.NewString(),
		SourceChain:      "solana",
		DestinationChain: destinationChain,
		MessageType:      messageType,
		Payload:          payload,
		Status:           domain.StatusCreated,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	metrics.MessagesCreated.WithLabelValues(destinationChain, messageType).Inc()
	s.publish(msg)
	return msg, nil
}

// Advance applies one status transition and publishes it.
func (s *Service) Advance(
	ctx context.Context,
	id string,
	status domain.MessageStatus,
	data json.RawMessage,
	errMsg string,
) (*domain.Message, error) {
	msg, err := s.repo.UpdateStatus(ctx, id, status, data, errMsg)
	if err != nil {
		return nil, err
	}

	metrics.StatusTransitions.WithLabelValues(string(status)).Inc()
	s.publish(msg)
	return msg, nil
}

// Get retrieves a message with its history.
func (s *Service) Get(ctx context.Context, id string) (*domain.Message, error) {
	return s.repo.GetByID(ctx, id)
}

// List retrieves a page of messages.
func (s *Service) List(ctx context.Context, filter storage.ListFilter) ([]*domain.Message, int, error) {
	return s.repo.List(ctx, filter)
}

// ListStale retrieves non-terminal messages not updated since the cutoff.
func (s *Service) ListStale(ctx context.Context, updatedBefore time.Time) ([]*domain.Message, error) {
	return s.repo.ListStale(ctx, updatedBefore)
}

// Subscribe creates a hub subscription for a session.
func (s *Service) Subscribe(buffer int) *hub.Subscription {
	return s.hub.Subscribe(buffer)
}

func (s *Service) publish(msg *domain.Message) {
	s.hub.Publish(domain.StatusUpdate{
		MessageID: msg.ID,
		Status:    msg.Status,
		Timestamp: msg.UpdatedAt,
		Data:      msg.Data,
		Error:     msg.Error,
	})
}
