package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/avetra/ordersvc/internal/domain/kernel"
	"github.com/avetra/ordersvc/internal/domain/order"
)

const (
	selectOrderHeadSQL = `SELECT id, customer_id, status, created_at
	FROM orders
	WHERE id = $1`

	selectOrderLinesSQL = `SELECT i.id, i.product_id, p.name, p.sku, i.qty, i.unit_price
	FROM order_items i
	JOIN products p ON p.id = i.product_id
	WHERE i.order_id = $1
	ORDER BY i.id`
)

var _ order.ReadRepository = (*OrderReadRepository)(nil)

// OrderReadRepository serves the denormalized order read model. It joins
// order lines with the product catalog and computes totals on the fly, so
// queries never touch the write-side aggregate.
type OrderReadRepository struct {
	db Querier
}

// NewOrderReadRepository returns an OrderReadRepository bound to the given
// querier.
func NewOrderReadRepository(db Querier) *OrderReadRepository {
	return &OrderReadRepository{db: db}
}

// GetOne loads the read model for one order.
// Returns order.ErrNotFound when no such order exists.
func (r *OrderReadRepository) GetOne(ctx context.Context, id kernel.OrderID) (*order.ReadModel, error) {
	var (
		rm     order.ReadModel
		status string
	)

	err := r.db.QueryRow(ctx, selectOrderHeadSQL, id.String()).
		Scan(&rm.ID, &rm.CustomerID, &status, &rm.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("finding order %q: %w", id, err)
	}
	rm.Status = order.Status(status)
	rm.StatusTitle = rm.Status.Title()

	rows, err := r.db.Query(ctx, selectOrderLinesSQL, id.String())
	if err != nil {
		return nil, fmt.Errorf("finding lines of order %q: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var line order.ItemReadModel
		if err := rows.Scan(&line.ID, &line.ProductID, &line.ProductName, &line.Sku, &line.Qty, &line.UnitPrice); err != nil {
			return nil, fmt.Errorf("scanning line of order %q: %w", id, err)
		}
		line.TotalPrice = line.UnitPrice.Mul(decimal.NewFromInt(line.Qty))
		rm.TotalAmount = rm.TotalAmount.Add(line.TotalPrice)
		rm.Items = append(rm.Items, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating lines of order %q: %w", id, err)
	}

	return &rm, nil
}
