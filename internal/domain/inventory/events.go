package inventory

import "github.com/avetra/ordersvc/internal/domain/kernel"

// CreatedEvent is emitted when an inventory item is first registered.
type CreatedEvent struct {
	kernel.EventBase
	ID          kernel.InventoryItemID `json:"id"`
	ProductID   kernel.ProductID       `json:"productId"`
	WarehouseID int32                  `json:"warehouseId"`
	OnHand      int64                  `json:"onHandQty"`
}

func (CreatedEvent) EventType() string { return "inventory_item.created" }

// ReservedEvent is emitted when stock is held for an order.
type ReservedEvent struct {
	kernel.EventBase
	ID  kernel.InventoryItemID `json:"id"`
	Qty int64                  `json:"qty"`
}

func (ReservedEvent) EventType() string { return "inventory_item.reserved" }

// ReleasedEvent is emitted when a previous reservation is returned.
type ReleasedEvent struct {
	kernel.EventBase
	ID  kernel.InventoryItemID `json:"id"`
	Qty int64                  `json:"qty"`
}

func (ReleasedEvent) EventType() string { return "inventory_item.released" }

// ReceivedEvent is emitted when incoming stock lands in the warehouse.
type ReceivedEvent struct {
	kernel.EventBase
	ID  kernel.InventoryItemID `json:"id"`
	Qty int64                  `json:"qty"`
}

func (ReceivedEvent) EventType() string { return "inventory_item.received" }

// OnHandAdjustedEvent is emitted after a manual on-hand correction.
type OnHandAdjustedEvent struct {
	kernel.EventBase
	ID     kernel.InventoryItemID `json:"id"`
	OnHand int64                  `json:"onHandQty"`
}

func (OnHandAdjustedEvent) EventType() string { return "inventory_item.on_hand_adjusted" }
