// Package idempotency deduplicates externally-retried HTTP requests keyed by
// a client-supplied key plus a hash of the request body. A record moves
// through in_progress -> completed | failed; stale in_progress and failed
// records past their expiry can be reclaimed and restarted.
package idempotency

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// Store operation failures.
var (
	// ErrInProgress is returned when a live, unexpired record already holds
	// the key: a concurrent duplicate that must be rejected, not replayed.
	ErrInProgress = errors.New("request is already in progress")
	// ErrHashMismatch is returned when the key is reused with a different
	// request body.
	ErrHashMismatch = errors.New("idempotency key reused with a different request")
	// ErrNotFound is returned when completing or failing an unknown key.
	ErrNotFound = errors.New("idempotency record not found")
)

// Status is the processing state of one idempotent request.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusInProgress, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// Record is the stored state of one idempotent request.
type Record struct {
	Key          uuid.UUID
	RequestHash  []byte
	Status       Status
	ResponseCode int
	ResponseBody []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ExpiresAt    time.Time
	Version      int64
}

// Expired reports whether the record's in-progress window has lapsed at now.
func (r Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Store persists idempotency records. Implementations must be race-safe
// under concurrent first requests for the same key: exactly one inserter
// wins, losers read the existing record and reconcile.
type Store interface {
	// TryBegin claims the key for a new execution. On success it returns a
	// fresh in_progress record. When the key is already held it returns:
	//   - the existing record and nil error if that record is completed
	//     (the caller replays the cached response),
	//   - ErrInProgress if a live in_progress record exists,
	//   - ErrHashMismatch if the stored hash differs from requestHash,
	//   - a reclaimed in_progress record when the previous attempt expired
	//     or failed (conflicting reclaims surface an error).
	TryBegin(ctx context.Context, key uuid.UUID, requestHash []byte, timeout time.Duration) (Record, error)

	// Complete stores the response for replay and marks the record completed.
	Complete(ctx context.Context, key uuid.UUID, statusCode int, body []byte) error

	// Fail marks the record failed with the reason as its cached body.
	Fail(ctx context.Context, key uuid.UUID, reason string) error

	// DeleteExpired removes up to limit records expired before the given
	// time and returns how many were deleted.
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error)
}
