package kernel

import "time"

// Event is a domain event emitted by an aggregate mutation. Events are
// buffered on the aggregate and drained into the outbox by the persistence
// layer, inside the same transaction as the aggregate write.
type Event interface {
	// EventType is the stable wire name of the event, e.g. "order.confirmed".
	EventType() string
	// OccurredAt is the emission timestamp.
	OccurredAt() time.Time
	// Integration reports whether the event is meant for external consumers.
	Integration() bool
}

// EventBase carries the fields common to all events. Embed it and override
// EventType on the concrete type.
type EventBase struct {
	At time.Time `json:"occurredAt"`
}

// NewEventBase stamps the event with the current UTC time.
func NewEventBase() EventBase { return EventBase{At: time.Now().UTC()} }

// OccurredAt implements Event.
func (e EventBase) OccurredAt() time.Time { return e.At }

// Integration implements Event. Domain events are internal by default.
func (e EventBase) Integration() bool { return false }

// Recorder buffers events on an aggregate between a mutation and the
// transactional write that persists it. Only the persistence layer clears
// the buffer, and only after the events have been written to the outbox.
type Recorder struct {
	events []Event
}

// Record appends e to the pending buffer.
func (r *Recorder) Record(e Event) { r.events = append(r.events, e) }

// Events returns the pending events in emission order.
func (r *Recorder) Events() []Event { return r.events }

// ClearEvents empties the buffer. Called by repositories after the outbox
// write commits alongside the aggregate mutation.
func (r *Recorder) ClearEvents() { r.events = nil }
