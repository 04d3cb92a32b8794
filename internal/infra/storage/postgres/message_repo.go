package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/solmint/relay/internal/core/domain"
	"github.com/solmint/relay/internal/infra/storage"
)

// MessageRepo implements storage.MessageRepository using PostgreSQL.
type MessageRepo struct {
	db *DB
}

// NewMessageRepo creates a new PostgreSQL message repository.
func NewMessageRepo(db *DB) *MessageRepo {
	return &MessageRepo{db: db}
}

type messageRow struct {
	ID               string          `db:"id"`
	SourceChain      string          `db:"source_chain"`
	DestinationChain string          `db:"destination_chain"`
	MessageType      string          `db:"message_type"`
	Payload          json.RawMessage `db:"payload"`
	Status           string          `db:"status"`
	Data             json.RawMessage `db:"data"`
	Error            sql.NullString  `db:"error"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

func (r *messageRow) toDomain() *domain.Message {
	msg := &domain.Message{
		ID:               r.ID,
		SourceChain:      r.SourceChain,
		DestinationChain: r.DestinationChain,
		MessageType:      r.MessageType,
		Payload:          r.Payload,
		Status:           domain.MessageStatus(r.Status),
		Data:             r.Data,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.Error.Valid {
		msg.Error = r.Error.String
	}
	return msg
}

// Create stores a new message and its initial history entry.
func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO messages (
			id, source_chain, destination_chain, message_type, payload, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`
	_, err = tx.ExecContext(ctx, query,
		msg.ID, msg.SourceChain, msg.DestinationChain, msg.MessageType,
		msg.Payload, string(msg.Status), msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	history := `
		INSERT INTO message_status_history (message_id, status, changed_at)
		VALUES ($1, $2, $3)
	`
	if _, err := tx.ExecContext(ctx, history, msg.ID, string(msg.Status), msg.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert history: %w", err)
	}

	return tx.Commit()
}

// GetByID retrieves a message with its status history.
func (r *MessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	query := `
		SELECT id, source_chain, destination_chain, message_type, payload, status, data, error, created_at, updated_at
		FROM messages
		WHERE id = $1
	`

	var row messageRow
	err := r.db.GetContext(ctx, &row, query, id)
	if err == sql.ErrNoRows {
		return nil, storage.ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	msg := row.toDomain()

	type historyRow struct {
		Status    string    `db:"status"`
		ChangedAt time.Time `db:"changed_at"`
	}
	var historyRows []historyRow
	historyQuery := `
		SELECT status, changed_at
		FROM message_status_history
		WHERE message_id = $1
		ORDER BY changed_at ASC, id ASC
	`
	if err := r.db.SelectContext(ctx, &historyRows, historyQuery, id); err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	for _, h := range historyRows {
		msg.History = append(msg.History, domain.StatusChange{
			Status:    domain.MessageStatus(h.Status),
			Timestamp: h.ChangedAt,
		})
	}

	return msg, nil
}

// List retrieves messages, newest first.
func (r *MessageRepo) List(ctx context.Context, filter storage.ListFilter) ([]*domain.Message, int, error) {
	where := ""
	args := []any{}
	if filter.Status != nil {
		where = "WHERE status = $1"
		args = append(args, string(*filter.Status))
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM messages %s", where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`
		SELECT id, source_chain, destination_chain, message_type, payload, status, data, error, created_at, updated_at
		FROM messages %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, limit, filter.Offset)

	var rows []messageRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list messages: %w", err)
	}

	msgs := make([]*domain.Message, 0, len(rows))
	for i := range rows {
		msgs = append(msgs, rows[i].toDomain())
	}
	return msgs, total, nil
}

// UpdateStatus applies a status transition under a row lock.
func (r *MessageRepo) UpdateStatus(
	ctx context.Context,
	id string,
	status domain.MessageStatus,
	data []byte,
	errMsg string,
) (*domain.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var current string
	err = tx.GetContext(ctx, &current, `SELECT status FROM messages WHERE id = $1 FOR UPDATE`, id)
	if err == sql.ErrNoRows {
		return nil, storage.ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock message: %w", err)
	}

	from := domain.MessageStatus(current)
	if from.Terminal() {
		return nil, storage.ErrTerminalStatus
	}
	if !domain.CanTransition(from, status) {
		return nil, fmt.Errorf("%w: %s -> %s", storage.ErrInvalidTransition, from, status)
	}

	now := time.Now().UTC()
	update := `
		UPDATE messages
		SET status = $1,
		    data = COALESCE($2, data),
		    error = NULLIF($3, ''),
		    updated_at = $4
		WHERE id = $5
	`
	var dataArg any
	if len(data) > 0 {
		dataArg = json.RawMessage(data)
	}
	if _, err := tx.ExecContext(ctx, update, string(status), dataArg, errMsg, now, id); err != nil {
		return nil, fmt.Errorf("failed to update message: %w", err)
	}

	history := `
		INSERT INTO message_status_history (message_id, status, changed_at)
		VALUES ($1, $2, $3)
	`
	if _, err := tx.ExecContext(ctx, history, id, string(status), now); err != nil {
		return nil, fmt.Errorf("failed to insert history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

// ListStale retrieves non-terminal messages not updated since the cutoff.
func (r *MessageRepo) ListStale(ctx context.Context, updatedBefore time.Time) ([]*domain.Message, error) {
	query := `
		SELECT id, source_chain, destination_chain, message_type, payload, status, data, error, created_at, updated_at
		FROM messages
		WHERE status NOT IN ('COMPLETED', 'FAILED') AND updated_at < $1
		ORDER BY updated_at ASC
	`

	var rows []messageRow
	if err := r.db.SelectContext(ctx, &rows, query, updatedBefore); err != nil {
		return nil, fmt.Errorf("failed to list stale messages: %w", err)
	}

	msgs := make([]*domain.Message, 0, len(rows))
	for i := range rows {
		msgs = append(msgs, rows[i].toDomain())
	}
	return msgs, nil
}
