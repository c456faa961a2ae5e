package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/avetra/ordersvc/internal/domain/kernel"
	"github.com/avetra/ordersvc/internal/outbox"
)

const (
	appendOutboxSQL = `INSERT INTO outbox_messages (id, occurred_at, event_type, payload, integration)
	VALUES ($1, $2, $3, $4, $5)`

	pullPendingOutboxSQL = `SELECT id, occurred_at, event_type, payload, integration
	FROM outbox_messages
	WHERE NOT processed
	ORDER BY id
	LIMIT $1`

	markProcessedOutboxSQL = `UPDATE outbox_messages SET processed = TRUE WHERE id = $1`
)

// eventRecorder is the part of an aggregate the outbox drain needs.
type eventRecorder interface {
	Events() []kernel.Event
	ClearEvents()
}

// drainEvents writes the aggregate's buffered events as outbox rows using
// the caller's querier, then clears the buffer. When the querier is a
// transaction, the rows commit or roll back together with the aggregate.
// Message ids are monotonic ULIDs, so pulling by id preserves emission
// order.
func drainEvents(ctx context.Context, db Querier, rec eventRecorder) error {
	for _, e := range rec.Events() {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshaling event %s: %w", e.EventType(), err)
		}

		_, err = db.Exec(ctx, appendOutboxSQL,
			ulid.Make().String(), e.OccurredAt(), e.EventType(), payload, e.Integration(),
		)
		if err != nil {
			return fmt.Errorf("appending event %s to outbox: %w", e.EventType(), err)
		}
	}

	rec.ClearEvents()
	return nil
}

var _ outbox.Repository = (*OutboxRepository)(nil)

// OutboxRepository implements outbox.Repository backed by PostgreSQL.
type OutboxRepository struct {
	db Querier
}

// NewOutboxRepository returns an OutboxRepository bound to the given querier.
func NewOutboxRepository(db Querier) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// PullPending returns up to limit unprocessed messages in id order.
func (r *OutboxRepository) PullPending(ctx context.Context, limit int) ([]outbox.Message, error) {
	rows, err := r.db.Query(ctx, pullPendingOutboxSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("pulling pending outbox messages: %w", err)
	}
	defer rows.Close()

	var msgs []outbox.Message
	for rows.Next() {
		var msg outbox.Message
		if err := rows.Scan(&msg.ID, &msg.OccurredAt, &msg.EventType, &msg.Payload, &msg.Integration); err != nil {
			return nil, fmt.Errorf("scanning outbox message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating outbox rows: %w", err)
	}

	return msgs, nil
}

// MarkProcessed flags a published message so it is not pulled again.
func (r *OutboxRepository) MarkProcessed(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, markProcessedOutboxSQL, id)
	if err != nil {
		return fmt.Errorf("marking outbox message %q processed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("outbox message %q not found", id)
	}
	return nil
}
