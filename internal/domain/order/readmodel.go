package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avetra/ordersvc/internal/domain/kernel"
)

// ReadModel is the denormalized query-side projection of an order, joined
// with product names for display. It is produced by a dedicated read
// repository and never passes through the write-side aggregate.
type ReadModel struct {
	ID          kernel.OrderID
	CustomerID  int64
	Status      Status
	StatusTitle string
	CreatedAt   time.Time
	TotalAmount decimal.Decimal
	Items       []ItemReadModel
}

// ItemReadModel is one denormalized order line.
type ItemReadModel struct {
	ID          kernel.OrderItemID
	ProductID   kernel.ProductID
	ProductName string
	Sku         string
	Qty         int64
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
}

// ReadRepository serves order queries outside any transaction.
type ReadRepository interface {
	GetOne(ctx context.Context, id kernel.OrderID) (*ReadModel, error)
}
