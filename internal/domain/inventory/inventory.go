// Package inventory holds the inventory item aggregate: per-product,
// per-warehouse stock bookkeeping with reserve/release/receive semantics.
package inventory

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/avetra/ordersvc/internal/domain/kernel"
)

// Sentinel errors for inventory operations.
var (
	// ErrNotFound is returned when a requested inventory item does not exist.
	ErrNotFound = errors.New("inventory item not found")
	// ErrInsufficientStock is returned when a reservation exceeds the
	// available (on-hand minus reserved) quantity.
	ErrInsufficientStock = errors.New("not enough available inventory")
	// ErrReleaseExceedsReserved is returned when a release exceeds the
	// currently reserved quantity.
	ErrReleaseExceedsReserved = errors.New("cannot release more than reserved")
	// ErrAdjustBelowReserved is returned when an on-hand adjustment would
	// drop below the reserved quantity.
	ErrAdjustBelowReserved = errors.New("on-hand quantity cannot be less than reserved quantity")
	// ErrDuplicateProduct is returned when adding a second inventory item
	// for a product that already has one.
	ErrDuplicateProduct = errors.New("product already has an inventory item")
)

// Item is the inventory aggregate root. The invariant 0 <= Reserved <= OnHand
// holds for every reachable state; Available is always derived, never stored.
type Item struct {
	kernel.Recorder

	ID          kernel.InventoryItemID
	ProductID   kernel.ProductID
	WarehouseID int32
	OnHand      kernel.Quantity
	Reserved    kernel.Quantity
	Version     kernel.Version
}

// Create initializes a new inventory item with zero reserved quantity and
// emits inventory_item.created.
func Create(productID kernel.ProductID, warehouseID int32, onHand kernel.Quantity) *Item {
	item := &Item{
		ID:          kernel.NewInventoryItemID(),
		ProductID:   productID,
		WarehouseID: warehouseID,
		OnHand:      onHand,
		Reserved:    kernel.ZeroQuantity,
	}
	item.Record(CreatedEvent{
		EventBase:   kernel.NewEventBase(),
		ID:          item.ID,
		ProductID:   productID,
		WarehouseID: warehouseID,
		OnHand:      onHand.Int64(),
	})
	return item
}

// Available is the quantity still open for reservation.
func (i *Item) Available() kernel.Quantity {
	avail, err := i.OnHand.Decrease(i.Reserved)
	if err != nil {
		// Reserved <= OnHand is an aggregate invariant; a violation here
		// means corrupted state, not a business condition.
		panic(errors.Wrapf(err, "inventory %s: reserved exceeds on-hand", i.ID))
	}
	return avail
}

// Reserve holds qty units for an order. A zero qty is a silent no-op.
// It fails with ErrInsufficientStock when qty exceeds Available, leaving the
// item unchanged.
func (i *Item) Reserve(qty kernel.Quantity) error {
	if qty.IsZero() {
		return nil
	}
	if qty.GreaterThan(i.Available()) {
		return ErrInsufficientStock
	}

	reserved, err := i.Reserved.Increase(qty)
	if err != nil {
		return err
	}
	i.Reserved = reserved

	i.Record(ReservedEvent{
		EventBase: kernel.NewEventBase(),
		ID:        i.ID,
		Qty:       qty.Int64(),
	})
	return nil
}

// Release returns qty previously reserved units to the available pool.
// A zero qty is a silent no-op. It fails with ErrReleaseExceedsReserved when
// qty exceeds the current reservation.
func (i *Item) Release(qty kernel.Quantity) error {
	if qty.IsZero() {
		return nil
	}
	if qty.GreaterThan(i.Reserved) {
		return ErrReleaseExceedsReserved
	}

	reserved, err := i.Reserved.Decrease(qty)
	if err != nil {
		return err
	}
	i.Reserved = reserved

	i.Record(ReleasedEvent{
		EventBase: kernel.NewEventBase(),
		ID:        i.ID,
		Qty:       qty.Int64(),
	})
	return nil
}

// Receive adds qty units of incoming stock to the on-hand count. A zero qty
// is a silent no-op.
func (i *Item) Receive(qty kernel.Quantity) error {
	if qty.IsZero() {
		return nil
	}

	onHand, err := i.OnHand.Increase(qty)
	if err != nil {
		return err
	}
	i.OnHand = onHand

	i.Record(ReceivedEvent{
		EventBase: kernel.NewEventBase(),
		ID:        i.ID,
		Qty:       qty.Int64(),
	})
	return nil
}

// AdjustOnHand sets the on-hand count to newOnHand, e.g. after a stocktake.
// It fails with ErrAdjustBelowReserved when newOnHand is below the current
// reservation.
func (i *Item) AdjustOnHand(newOnHand kernel.Quantity) error {
	if i.Reserved.GreaterThan(newOnHand) {
		return ErrAdjustBelowReserved
	}
	i.OnHand = newOnHand

	i.Record(OnHandAdjustedEvent{
		EventBase: kernel.NewEventBase(),
		ID:        i.ID,
		OnHand:    newOnHand.Int64(),
	})
	return nil
}

// Repository defines persistence for inventory items. Write methods issue
// conditional updates against Item.Version and return ErrVersionConflict
// semantics through the storage layer's sentinel; they also drain the item's
// pending events into the outbox within the caller's transaction.
type Repository interface {
	Add(ctx context.Context, item *Item) error
	GetOne(ctx context.Context, id kernel.InventoryItemID) (*Item, error)
	GetByProductIDs(ctx context.Context, ids []kernel.ProductID) ([]*Item, error)
	UpdateReservedQty(ctx context.Context, item *Item) error
	UpdateOnHandQty(ctx context.Context, item *Item) error
}
