package httpmiddleware

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Recovery returns a middleware that recovers from handler panics, logs the
// value with a stack trace, and answers 500 with the standard JSON error
// envelope. The connection is marked for close since the handler may have
// already written part of a response.
func Recovery() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					zctx.From(r.Context()).Error("panic recovered",
						zap.Any("panic", rec),
						zap.Stack("stack"),
					)

					var e jx.Encoder
					e.ObjStart()
					e.FieldStart("code")
					e.Int(http.StatusInternalServerError)
					e.FieldStart("message")
					e.Str("internal error")
					e.ObjEnd()

					w.Header().Set("Connection", "close")
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write(e.Bytes())
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
