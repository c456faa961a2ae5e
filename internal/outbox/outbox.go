// Package outbox implements transactionally-consistent event publication:
// domain events are written to an outbox table in the same transaction as
// the aggregate mutation that produced them, and a relay publishes pending
// rows at least once.
package outbox

import (
	"context"
	"time"
)

// Message is one durably recorded domain event awaiting publication.
// IDs are ULIDs minted at write time, so messages sort by emission order.
type Message struct {
	ID          string
	OccurredAt  time.Time
	EventType   string
	Payload     []byte
	Integration bool
	Processed   bool
}

// Repository reads and settles outbox rows for the relay. Writing rows is
// the job of the aggregate repositories, which append events inside the
// aggregate's own transaction.
type Repository interface {
	// PullPending returns up to limit unprocessed messages in id order.
	PullPending(ctx context.Context, limit int) ([]Message, error)
	// MarkProcessed flags a published message so it is not pulled again.
	MarkProcessed(ctx context.Context, id string) error
}
