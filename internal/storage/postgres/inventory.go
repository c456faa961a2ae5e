package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/avetra/ordersvc/internal/domain/inventory"
	"github.com/avetra/ordersvc/internal/domain/kernel"
)

const (
	insertInventorySQL = `INSERT INTO inventory_items (id, product_id, warehouse_id, on_hand_qty, reserved_qty, version)
	VALUES ($1, $2, $3, $4, $5, $6)`

	selectInventorySQL = `SELECT id, product_id, warehouse_id, on_hand_qty, reserved_qty, version
	FROM inventory_items
	WHERE id = $1`

	selectInventoryByProductsSQL = `SELECT id, product_id, warehouse_id, on_hand_qty, reserved_qty, version
	FROM inventory_items
	WHERE product_id = ANY($1)
	ORDER BY id`

	updateReservedQtySQL = `UPDATE inventory_items
	SET reserved_qty = $1, version = version + 1
	WHERE id = $2 AND version = $3
	RETURNING version`

	updateOnHandQtySQL = `UPDATE inventory_items
	SET on_hand_qty = $1, version = version + 1
	WHERE id = $2 AND version = $3
	RETURNING version`
)

var _ inventory.Repository = (*InventoryRepository)(nil)

// InventoryRepository implements inventory.Repository backed by PostgreSQL.
type InventoryRepository struct {
	db Querier
}

// NewInventoryRepository returns an InventoryRepository bound to the given
// querier.
func NewInventoryRepository(db Querier) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// Add persists a new inventory item and drains its creation event into the
// outbox.
func (r *InventoryRepository) Add(ctx context.Context, item *inventory.Item) error {
	_, err := r.db.Exec(ctx, insertInventorySQL,
		item.ID.String(), item.ProductID.String(), item.WarehouseID,
		item.OnHand.Int64(), item.Reserved.Int64(), int64(kernel.InitialVersion),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Wrapf(inventory.ErrDuplicateProduct, "product %s", item.ProductID)
		}
		return fmt.Errorf("creating inventory item %q: %w", item.ID, err)
	}

	item.Version = kernel.InitialVersion
	return drainEvents(ctx, r.db, item)
}

// GetOne loads a single inventory item.
// Returns inventory.ErrNotFound when no such item exists.
func (r *InventoryRepository) GetOne(ctx context.Context, id kernel.InventoryItemID) (*inventory.Item, error) {
	item, err := scanInventoryItem(r.db.QueryRow(ctx, selectInventorySQL, id.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, inventory.ErrNotFound
		}
		return nil, fmt.Errorf("finding inventory item %q: %w", id, err)
	}
	return item, nil
}

// GetByProductIDs loads the inventory items covering the given products.
// Products without an inventory record are simply absent from the result.
func (r *InventoryRepository) GetByProductIDs(ctx context.Context, ids []kernel.ProductID) ([]*inventory.Item, error) {
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}

	rows, err := r.db.Query(ctx, selectInventoryByProductsSQL, raw)
	if err != nil {
		return nil, fmt.Errorf("finding inventory by products: %w", err)
	}
	defer rows.Close()

	var items []*inventory.Item
	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning inventory item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating inventory rows: %w", err)
	}

	return items, nil
}

// UpdateReservedQty persists a reservation change with a conditional write
// against the item's version token, then drains the pending events into the
// outbox.
func (r *InventoryRepository) UpdateReservedQty(ctx context.Context, item *inventory.Item) error {
	return r.conditionalUpdate(ctx, item, updateReservedQtySQL, item.Reserved.Int64())
}

// UpdateOnHandQty persists an on-hand change with a conditional write
// against the item's version token, then drains the pending events into the
// outbox.
func (r *InventoryRepository) UpdateOnHandQty(ctx context.Context, item *inventory.Item) error {
	return r.conditionalUpdate(ctx, item, updateOnHandQtySQL, item.OnHand.Int64())
}

func (r *InventoryRepository) conditionalUpdate(ctx context.Context, item *inventory.Item, sql string, qty int64) error {
	var version int64
	err := r.db.QueryRow(ctx, sql, qty, item.ID.String(), int64(item.Version)).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errors.Wrapf(kernel.ErrVersionConflict, "inventory item %s", item.ID)
		}
		return fmt.Errorf("updating inventory item %q: %w", item.ID, err)
	}

	item.Version = kernel.Version(version)
	return drainEvents(ctx, r.db, item)
}

func scanInventoryItem(row pgx.Row) (*inventory.Item, error) {
	var (
		item             inventory.Item
		onHand, reserved int64
		version          int64
	)
	err := row.Scan(&item.ID, &item.ProductID, &item.WarehouseID, &onHand, &reserved, &version)
	if err != nil {
		return nil, err
	}
	item.OnHand = kernel.MustQuantity(onHand)
	item.Reserved = kernel.MustQuantity(reserved)
	item.Version = kernel.Version(version)
	return &item, nil
}
