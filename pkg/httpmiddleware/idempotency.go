package httpmiddleware

import (
	"bytes"
	"crypto/sha256"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avetra/ordersvc/internal/idempotency"
)

// HeaderIdempotencyKey is the request header carrying the client-chosen key.
const HeaderIdempotencyKey = "Idempotency-Key"

// maxKeyedBodyBytes caps how much of a keyed request body is buffered for
// hashing. The same bound limits what a cached response replay can hold.
const maxKeyedBodyBytes = 1 << 20

// Idempotency returns a middleware that deduplicates retried requests.
// Requests without an Idempotency-Key header bypass the layer entirely.
//
// For keyed requests the body is hashed with SHA-256 and the key is claimed
// in the store. A completed record short-circuits with the cached response.
// Otherwise the downstream response is buffered, settled in the store, and
// only then written to the client, so a replayable record exists before the
// caller ever sees the outcome. Responses with a 5xx status are recorded as
// failed, which lets a retry re-execute the request.
func Idempotency(store idempotency.Store, timeout time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(HeaderIdempotencyKey)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			key, err := uuid.Parse(raw)
			if err != nil {
				writeJSONError(w, http.StatusBadRequest, "Idempotency-Key must be a UUID")
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxKeyedBodyBytes))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
					return
				}
				writeJSONError(w, http.StatusBadRequest, "reading request body")
				return
			}
			_ = r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))

			hash := sha256.Sum256(body)

			rec, err := store.TryBegin(r.Context(), key, hash[:], timeout)
			switch {
			case errors.Is(err, idempotency.ErrInProgress):
				writeJSONError(w, http.StatusConflict, "request is already in progress")
				return
			case errors.Is(err, idempotency.ErrHashMismatch):
				writeJSONError(w, http.StatusUnprocessableEntity, "idempotency key reused with a different request")
				return
			case err != nil:
				zctx.From(r.Context()).Error("Idempotency claim failed",
					zap.String("key", key.String()),
					zap.Error(err),
				)
				writeJSONError(w, http.StatusInternalServerError, "internal error")
				return
			}

			if rec.Status == idempotency.StatusCompleted {
				w.Header().Set("Idempotency-Replayed", "true")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(rec.ResponseCode)
				_, _ = w.Write(rec.ResponseBody)
				return
			}

			buf := &bufferedResponse{header: make(http.Header)}
			next.ServeHTTP(buf, r)
			if buf.status == 0 {
				buf.status = http.StatusOK
			}

			ctx := r.Context()
			if buf.status >= http.StatusInternalServerError {
				err = store.Fail(ctx, key, http.StatusText(buf.status))
			} else {
				err = store.Complete(ctx, key, buf.status, buf.body.Bytes())
			}
			if err != nil {
				// The handler already ran; the response is still returned,
				// only the replay cache is lost.
				zctx.From(ctx).Error("Idempotency settle failed",
					zap.String("key", key.String()),
					zap.Error(err),
				)
			}

			for name, values := range buf.header {
				for _, v := range values {
					w.Header().Add(name, v)
				}
			}
			w.WriteHeader(buf.status)
			_, _ = w.Write(buf.body.Bytes())
		})
	}
}

// bufferedResponse captures the downstream response so it can be stored
// before being sent.
type bufferedResponse struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (b *bufferedResponse) Header() http.Header { return b.header }

func (b *bufferedResponse) WriteHeader(code int) {
	if b.status == 0 {
		b.status = code
	}
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Int(code)
	e.FieldStart("message")
	e.Str(msg)
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}
