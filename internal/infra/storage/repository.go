package storage

import (
	"context"
	"errors"
	"time"

	"github.com/solmint/relay/internal/core/domain"
)

var (
	// ErrMessageNotFound is returned when a message doesn't exist.
	ErrMessageNotFound = errors.New("message not found")

	// ErrTerminalStatus is returned when updating a message that has
	// already reached COMPLETED or FAILED.
	ErrTerminalStatus = errors.New("message is in a terminal status")

	// ErrInvalidTransition is returned for transitions the lifecycle
	// state machine forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ListFilter narrows a message listing.
type ListFilter struct {
	Status *domain.MessageStatus
	Limit  int
	Offset int
}

// MessageRepository handles cross-chain message storage.
type MessageRepository interface {
	// Create stores a new message in CREATED status.
	Create(ctx context.Context, msg *domain.Message) error

	// GetByID retrieves a message with its status history.
	GetByID(ctx context.Context, id string) (*domain.Message, error)

	// List retrieves messages ordered by creation time, newest first.
	// Returns the page and the total count matching the filter.
	List(ctx context.Context, filter ListFilter) ([]*domain.Message, int, error)

	// UpdateStatus applies a status transition and appends it to the
	// history. Data and errMsg may be empty. Rejects transitions out of
	// terminal states and transitions the state machine forbids.
	UpdateStatus(ctx context.Context, id string, status domain.MessageStatus, data []byte, errMsg string) (*domain.Message, error)

	// ListStale retrieves non-terminal messages not updated since the
	// given cutoff.
	ListStale(ctx context.Context, updatedBefore time.Time) ([]*domain.Message, error)
}
