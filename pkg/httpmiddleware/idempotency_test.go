package httpmiddleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avetra/ordersvc/internal/idempotency"
)

// memStore is an in-memory idempotency.Store for middleware tests.
type memStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*idempotency.Record
}

func newMemStore() *memStore {
	return &memStore{records: make(map[uuid.UUID]*idempotency.Record)}
}

func (s *memStore) TryBegin(_ context.Context, key uuid.UUID, requestHash []byte, timeout time.Duration) (idempotency.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if rec, ok := s.records[key]; ok {
		if !bytes.Equal(rec.RequestHash, requestHash) {
			return *rec, idempotency.ErrHashMismatch
		}
		switch rec.Status {
		case idempotency.StatusCompleted:
			return *rec, nil
		case idempotency.StatusInProgress:
			if !rec.Expired(now) {
				return *rec, idempotency.ErrInProgress
			}
		}
		rec.Status = idempotency.StatusInProgress
		rec.ExpiresAt = now.Add(timeout)
		rec.Version++
		return *rec, nil
	}

	rec := &idempotency.Record{
		Key:         key,
		RequestHash: requestHash,
		Status:      idempotency.StatusInProgress,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(timeout),
		Version:     1,
	}
	s.records[key] = rec
	return *rec, nil
}

func (s *memStore) Complete(_ context.Context, key uuid.UUID, statusCode int, body []byte) error {
	return s.settle(key, idempotency.StatusCompleted, statusCode, body)
}

func (s *memStore) Fail(_ context.Context, key uuid.UUID, reason string) error {
	return s.settle(key, idempotency.StatusFailed, 0, []byte(reason))
}

func (s *memStore) settle(key uuid.UUID, status idempotency.Status, code int, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return idempotency.ErrNotFound
	}
	rec.Status = status
	rec.ResponseCode = code
	rec.ResponseBody = body
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memStore) DeleteExpired(_ context.Context, before time.Time, _ int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for key, rec := range s.records {
		if rec.ExpiresAt.Before(before) {
			delete(s.records, key)
			deleted++
		}
	}
	return deleted, nil
}

// --- Helpers ---

func idempotentHandler(t *testing.T, calls *int) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"abc"}`))
	})
}

func keyedRequest(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	return req
}

// --- Tests ---

func TestIdempotency_NoHeaderBypasses(t *testing.T) {
	calls := 0
	h := Wrap(idempotentHandler(t, &calls), Idempotency(newMemStore(), time.Minute))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, keyedRequest("", `{"a":1}`))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, calls)
}

func TestIdempotency_InvalidKey(t *testing.T) {
	calls := 0
	h := Wrap(idempotentHandler(t, &calls), Idempotency(newMemStore(), time.Minute))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, keyedRequest("not-a-uuid", `{}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, calls)
}

func TestIdempotency_OversizedBodyRejected(t *testing.T) {
	calls := 0
	store := newMemStore()
	h := Wrap(idempotentHandler(t, &calls), Idempotency(store, time.Minute))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, keyedRequest(uuid.NewString(), strings.Repeat("x", maxKeyedBodyBytes+1)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, 0, calls)
	assert.Empty(t, store.records)
}

func TestIdempotency_ReplaysCompletedResponse(t *testing.T) {
	calls := 0
	h := Wrap(idempotentHandler(t, &calls), Idempotency(newMemStore(), time.Minute))
	key := uuid.NewString()

	first := httptest.NewRecorder()
	h.ServeHTTP(first, keyedRequest(key, `{"a":1}`))
	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, 1, calls)

	second := httptest.NewRecorder()
	h.ServeHTTP(second, keyedRequest(key, `{"a":1}`))

	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotency-Replayed"))
	assert.Equal(t, 1, calls, "handler must run exactly once")
}

func TestIdempotency_HashMismatch(t *testing.T) {
	calls := 0
	h := Wrap(idempotentHandler(t, &calls), Idempotency(newMemStore(), time.Minute))
	key := uuid.NewString()

	first := httptest.NewRecorder()
	h.ServeHTTP(first, keyedRequest(key, `{"a":1}`))
	require.Equal(t, 1, calls)

	second := httptest.NewRecorder()
	h.ServeHTTP(second, keyedRequest(key, `{"a":2}`))

	assert.Equal(t, http.StatusUnprocessableEntity, second.Code)
	assert.Equal(t, 1, calls)
}

func TestIdempotency_ConcurrentDuplicateRejected(t *testing.T) {
	store := newMemStore()
	key := uuid.NewString()

	entered := make(chan struct{})
	release := make(chan struct{})
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		w.WriteHeader(http.StatusCreated)
	})
	h := Wrap(slow, Idempotency(store, time.Minute))

	done := make(chan struct{})
	go func() {
		defer close(done)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, keyedRequest(key, `{}`))
	}()
	<-entered

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, keyedRequest(key, `{}`))
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(release)
	<-done
}

func TestIdempotency_ServerErrorAllowsRetry(t *testing.T) {
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})
	h := Wrap(handler, Idempotency(newMemStore(), time.Minute))
	key := uuid.NewString()

	first := httptest.NewRecorder()
	h.ServeHTTP(first, keyedRequest(key, `{}`))
	require.Equal(t, http.StatusInternalServerError, first.Code)

	second := httptest.NewRecorder()
	h.ServeHTTP(second, keyedRequest(key, `{}`))

	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, 2, calls, "failed attempt must be retryable")
}

func TestIdempotency_BodyStillReadableDownstream(t *testing.T) {
	var seen string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := new(bytes.Buffer)
		_, _ = b.ReadFrom(r.Body)
		seen = b.String()
		w.WriteHeader(http.StatusOK)
	})
	h := Wrap(handler, Idempotency(newMemStore(), time.Minute))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, keyedRequest(uuid.NewString(), `{"payload":true}`))

	assert.Equal(t, `{"payload":true}`, seen)
}
