package order

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/avetra/ordersvc/internal/domain/kernel"
)

// Specification failures surfaced during order creation.
var (
	// ErrUnknownCustomer is returned when the customer id is not registered.
	ErrUnknownCustomer = errors.New("unknown customer")
	// ErrUnknownProduct is returned when a referenced product id does not
	// exist in the catalog.
	ErrUnknownProduct = errors.New("unknown product")
)

// CustomerSpecification is the authoritative gate for customer validity,
// consulted synchronously during order creation.
type CustomerSpecification interface {
	// IsSatisfied returns nil when the customer exists, ErrUnknownCustomer
	// (possibly wrapped) when it does not.
	IsSatisfied(ctx context.Context, customerID int64) error
}

// ProductSpecification is the authoritative gate for product validity.
type ProductSpecification interface {
	// IsSatisfied returns nil when every id exists in the catalog,
	// ErrUnknownProduct (possibly wrapped) otherwise.
	IsSatisfied(ctx context.Context, ids []kernel.ProductID) error
}
