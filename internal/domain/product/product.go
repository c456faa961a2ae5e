// Package product holds the read-only catalog types consumed by order
// creation and the order read model.
package product

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/avetra/ordersvc/internal/domain/kernel"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item referenced by orders and inventory.
type Product struct {
	ID    kernel.ProductID
	Name  string
	Sku   string
	Price kernel.UnitPrice
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id kernel.ProductID) (*Product, error)
	GetByIDs(ctx context.Context, ids []kernel.ProductID) ([]Product, error)
}
