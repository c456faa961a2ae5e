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
	insertOrderSQL = `INSERT INTO orders (id, customer_id, status, created_at, version)
	VALUES ($1, $2, $3, $4, $5)`

	insertOrderItemSQL = `INSERT INTO order_items (id, order_id, product_id, qty, unit_price)
	VALUES ($1, $2, $3, $4, $5)`

	selectOrderSQL = `SELECT id, customer_id, status, created_at, version
	FROM orders
	WHERE id = $1`

	selectOrderItemsSQL = `SELECT id, order_id, product_id, qty, unit_price
	FROM order_items
	WHERE order_id = $1
	ORDER BY id`

	updateOrderStatusSQL = `UPDATE orders
	SET status = $1, version = version + 1
	WHERE id = $2 AND version = $3
	RETURNING version`

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	db Querier
}

// NewOrderRepository returns an OrderRepository bound to the given querier.
func NewOrderRepository(db Querier) *OrderRepository {
	return &OrderRepository{db: db}
}

// Add persists a new order with its items and drains the creation events
// into the outbox.
func (r *OrderRepository) Add(ctx context.Context, o *order.Order) error {
	_, err := r.db.Exec(ctx, insertOrderSQL,
		o.ID.String(), o.CustomerID, string(o.Status), o.CreatedAt, int64(kernel.InitialVersion),
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	for _, item := range o.Items {
		_, err := r.db.Exec(ctx, insertOrderItemSQL,
			item.ID.String(), item.OrderID.String(), item.ProductID.String(),
			item.Qty.Int64(), item.UnitPrice.Decimal(),
		)
		if err != nil {
			return fmt.Errorf("creating order item %q: %w", item.ID, err)
		}
	}

	o.Version = kernel.InitialVersion
	return drainEvents(ctx, r.db, o)
}

// GetOne loads the write-side order aggregate with its items.
// Returns order.ErrNotFound when no such order exists.
func (r *OrderRepository) GetOne(ctx context.Context, id kernel.OrderID) (*order.Order, error) {
	var (
		o       order.Order
		status  string
		version int64
	)

	err := r.db.QueryRow(ctx, selectOrderSQL, id.String()).
		Scan(&o.ID, &o.CustomerID, &status, &o.CreatedAt, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("finding order %q: %w", id, err)
	}
	o.Status = order.Status(status)
	o.Version = kernel.Version(version)

	rows, err := r.db.Query(ctx, selectOrderItemsSQL, id.String())
	if err != nil {
		return nil, fmt.Errorf("finding items of order %q: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item  order.Item
			qty   int64
			price decimal.Decimal
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &qty, &price); err != nil {
			return nil, fmt.Errorf("scanning item of order %q: %w", id, err)
		}
		item.Qty = kernel.MustQuantity(qty)
		item.UnitPrice = kernel.MustUnitPrice(price)
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating items of order %q: %w", id, err)
	}

	return &o, nil
}

// UpdateStatus persists a status transition with a conditional write against
// the order's version token, then drains the transition events into the
// outbox. A token held by a concurrent writer yields ErrVersionConflict and
// nothing is written.
func (r *OrderRepository) UpdateStatus(ctx context.Context, o *order.Order) error {
	var version int64
	err := r.db.QueryRow(ctx, updateOrderStatusSQL,
		string(o.Status), o.ID.String(), int64(o.Version),
	).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if qErr := r.db.QueryRow(ctx, orderExistsSQL, o.ID.String()).Scan(&exists); qErr != nil {
				return fmt.Errorf("checking order %q existence: %w", o.ID, qErr)
			}
			if !exists {
				return order.ErrNotFound
			}
			return errors.Wrapf(kernel.ErrVersionConflict, "order %s", o.ID)
		}
		return fmt.Errorf("updating status of order %q: %w", o.ID, err)
	}

	o.Version = kernel.Version(version)
	return drainEvents(ctx, r.db, o)
}
