package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/solmint/relay/internal/core/domain"
	"github.com/solmint/relay/internal/infra/storage"
)

// MessageRepo implements storage.MessageRepository in memory.
// Used when no database URL is configured.
type MessageRepo struct {
	messages map[string]*domain.Message
	order    []string // insertion order, oldest first
	mu       sync.RWMutex
}

func NewMessageRepo() *MessageRepo {
	return &MessageRepo{
		messages: make(map[string]*domain.Message),
	}
}

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.messages[msg.ID]; ok {
		return fmt.Errorf("message already exists: %s", msg.ID)
	}

	stored := cloneMessage(msg)
	stored.History = []domain.StatusChange{{Status: msg.Status, Timestamp: msg.CreatedAt}}
	r.messages[msg.ID] = stored
	r.order = append(r.order, msg.ID)
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	msg, ok := r.messages[id]
	if !ok {
		return nil, storage.ErrMessageNotFound
	}
	return cloneMessage(msg), nil
}

func (r *MessageRepo) List(ctx context.Context, filter storage.ListFilter) ([]*domain.Message, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*domain.Message
	for _, id := range r.order {
		msg := r.messages[id]
		if filter.Status != nil && msg.Status != *filter.Status {
			continue
		}
		matched = append(matched, msg)
	}

	// Newest first
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	start := filter.Offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	page := make([]*domain.Message, 0, end-start)
	for _, msg := range matched[start:end] {
		page = append(page, cloneMessage(msg))
	}
	return page, total, nil
}

func (r *MessageRepo) UpdateStatus(
	ctx context.Context,
	id string,
	status domain.MessageStatus,
	data []byte,
	errMsg string,
) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg, ok := r.messages[id]
	if !ok {
		return nil, storage.ErrMessageNotFound
	}
	if msg.Status.Terminal() {
		return nil, storage.ErrTerminalStatus
	}
	if !domain.CanTransition(msg.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", storage.ErrInvalidTransition, msg.Status, status)
	}

	now := time.Now().UTC()
	msg.Status = status
	msg.UpdatedAt = now
	if len(data) > 0 {
		msg.Data = json.RawMessage(data)
	}
	msg.Error = errMsg
	msg.History = append(msg.History, domain.StatusChange{Status: status, Timestamp: now})

	return cloneMessage(msg), nil
}

func (r *MessageRepo) ListStale(ctx context.Context, updatedBefore time.Time) ([]*domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stale []*domain.Message
	for _, id := range r.order {
		msg := r.messages[id]
		if !msg.Status.Terminal() && msg.UpdatedAt.Before(updatedBefore) {
			stale = append(stale, cloneMessage(msg))
		}
	}

	sort.SliceStable(stale, func(i, j int) bool {
		return stale[i].UpdatedAt.Before(stale[j].UpdatedAt)
	})
	return stale, nil
}

func cloneMessage(msg *domain.Message) *domain.Message {
	out := *msg
	if msg.History != nil {
		out.History = append([]domain.StatusChange(nil), msg.History...)
	}
	return &out
}
