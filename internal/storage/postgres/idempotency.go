package postgres

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/avetra/ordersvc/internal/idempotency"
)

const (
	insertIdemSQL = `INSERT INTO idempotency_keys (key, request_hash, status, created_at, updated_at, expires_at, version)
	VALUES ($1, $2, $3, $4, $4, $5, $6)
	ON CONFLICT (key) DO NOTHING`

	selectIdemSQL = `SELECT key, request_hash, status, response_code, response_body, created_at, updated_at, expires_at, version
	FROM idempotency_keys
	WHERE key = $1`

	reclaimIdemSQL = `UPDATE idempotency_keys
	SET request_hash = $1, status = $2, response_code = NULL, response_body = NULL,
	    created_at = $3, updated_at = $3, expires_at = $4, version = version + 1
	WHERE key = $5 AND version = $6
	RETURNING version`

	settleIdemSQL = `UPDATE idempotency_keys
	SET status = $1, response_code = $2, response_body = $3, updated_at = $4
	WHERE key = $5`

	deleteExpiredIdemSQL = `DELETE FROM idempotency_keys
	WHERE key IN (
		SELECT key
		FROM idempotency_keys
		WHERE expires_at <= $1
		ORDER BY expires_at
		LIMIT $2
	)`
)

var _ idempotency.Store = (*IdempotencyStore)(nil)

// IdempotencyStore implements idempotency.Store backed by PostgreSQL.
// Concurrent first requests race on the key's primary-key insert; exactly
// one wins, the rest read the existing record and reconcile against it.
// Reclaims of stale records are serialized through the record's version
// token.
type IdempotencyStore struct {
	db Querier
}

// NewIdempotencyStore returns an IdempotencyStore bound to the given querier.
func NewIdempotencyStore(db Querier) *IdempotencyStore {
	return &IdempotencyStore{db: db}
}

// TryBegin claims the key for a new execution.
func (s *IdempotencyStore) TryBegin(ctx context.Context, key uuid.UUID, requestHash []byte, timeout time.Duration) (idempotency.Record, error) {
	now := time.Now().UTC()
	rec := idempotency.Record{
		Key:         key,
		RequestHash: requestHash,
		Status:      idempotency.StatusInProgress,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(timeout),
		Version:     1,
	}

	tag, err := s.db.Exec(ctx, insertIdemSQL,
		key, requestHash, string(rec.Status), now, rec.ExpiresAt, rec.Version,
	)
	if err != nil {
		return idempotency.Record{}, fmt.Errorf("claiming idempotency key %s: %w", key, err)
	}
	if tag.RowsAffected() == 1 {
		return rec, nil
	}

	// Lost the insert race or the key is from an earlier request.
	existing, err := s.get(ctx, key)
	if err != nil {
		return idempotency.Record{}, err
	}

	if !bytes.Equal(existing.RequestHash, requestHash) {
		return existing, idempotency.ErrHashMismatch
	}

	switch existing.Status {
	case idempotency.StatusCompleted:
		return existing, nil
	case idempotency.StatusInProgress:
		if !existing.Expired(now) {
			return existing, idempotency.ErrInProgress
		}
	}

	// Failed, or in_progress past its window: reclaim. The version condition
	// lets exactly one retryer through.
	rec.Version = existing.Version + 1
	rec.CreatedAt = existing.CreatedAt

	var version int64
	err = s.db.QueryRow(ctx, reclaimIdemSQL,
		requestHash, string(idempotency.StatusInProgress), now, rec.ExpiresAt, key, existing.Version,
	).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Another retryer reclaimed the record first.
			return existing, idempotency.ErrInProgress
		}
		return idempotency.Record{}, fmt.Errorf("reclaiming idempotency key %s: %w", key, err)
	}
	rec.Version = version

	return rec, nil
}

// Complete stores the response for replay and marks the record completed.
func (s *IdempotencyStore) Complete(ctx context.Context, key uuid.UUID, statusCode int, body []byte) error {
	return s.settle(ctx, key, idempotency.StatusCompleted, statusCode, body)
}

// Fail marks the record failed with the reason as its cached body.
func (s *IdempotencyStore) Fail(ctx context.Context, key uuid.UUID, reason string) error {
	return s.settle(ctx, key, idempotency.StatusFailed, 0, []byte(reason))
}

// DeleteExpired removes up to limit records expired before the given time.
func (s *IdempotencyStore) DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error) {
	tag, err := s.db.Exec(ctx, deleteExpiredIdemSQL, before, limit)
	if err != nil {
		return 0, fmt.Errorf("deleting expired idempotency records: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *IdempotencyStore) settle(ctx context.Context, key uuid.UUID, status idempotency.Status, code int, body []byte) error {
	tag, err := s.db.Exec(ctx, settleIdemSQL,
		string(status), code, body, time.Now().UTC(), key,
	)
	if err != nil {
		return fmt.Errorf("settling idempotency key %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return idempotency.ErrNotFound
	}
	return nil
}

func (s *IdempotencyStore) get(ctx context.Context, key uuid.UUID) (idempotency.Record, error) {
	var (
		rec    idempotency.Record
		status string
		code   *int
	)

	err := s.db.QueryRow(ctx, selectIdemSQL, key).Scan(
		&rec.Key, &rec.RequestHash, &status, &code, &rec.ResponseBody,
		&rec.CreatedAt, &rec.UpdatedAt, &rec.ExpiresAt, &rec.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return idempotency.Record{}, idempotency.ErrNotFound
		}
		return idempotency.Record{}, fmt.Errorf("getting idempotency key %s: %w", key, err)
	}

	rec.Status = idempotency.Status(status)
	if !rec.Status.Valid() {
		return idempotency.Record{}, fmt.Errorf("invalid idempotency status %q for key %s", status, key)
	}
	if code != nil {
		rec.ResponseCode = *code
	}

	return rec, nil
}
