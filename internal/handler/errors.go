package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/avetra/ordersvc/internal/domain/inventory"
	"github.com/avetra/ordersvc/internal/domain/kernel"
	"github.com/avetra/ordersvc/internal/domain/order"
	"github.com/avetra/ordersvc/internal/domain/product"
)

// badRequestError marks request decoding and validation failures so they map
// to 400 instead of the business-rule 422.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(msg string) error { return &badRequestError{msg: msg} }

// writeError maps err to the API error envelope {code, message}. Unmapped
// errors are logged and hidden behind a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed",
			zap.String("route", r.Pattern),
			zap.Error(err),
		)
		msg = "internal error"
	}
	writeErrorEnvelope(w, status, msg)
}

func statusOf(err error) int {
	var br *badRequestError
	switch {
	case errors.As(err, &br),
		errors.Is(err, kernel.ErrInvalidID),
		errors.Is(err, kernel.ErrNegativeQuantity),
		errors.Is(err, order.ErrEmptyOrder):
		return http.StatusBadRequest

	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, inventory.ErrNotFound),
		errors.Is(err, product.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, kernel.ErrVersionConflict),
		errors.Is(err, inventory.ErrDuplicateProduct):
		return http.StatusConflict

	case errors.Is(err, order.ErrUnknownCustomer),
		errors.Is(err, order.ErrUnknownProduct),
		errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, order.ErrAlreadyCancelled),
		errors.Is(err, order.ErrInsufficientInventoryInfo),
		errors.Is(err, inventory.ErrInsufficientStock),
		errors.Is(err, inventory.ErrReleaseExceedsReserved),
		errors.Is(err, inventory.ErrAdjustBelowReserved):
		return http.StatusUnprocessableEntity

	default:
		return http.StatusInternalServerError
	}
}

func writeErrorEnvelope(w http.ResponseWriter, status int, msg string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(msg)
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
