package order

import "github.com/avetra/ordersvc/internal/domain/kernel"

// CreatedEvent is emitted when a draft order is built.
type CreatedEvent struct {
	kernel.EventBase
	OrderID    kernel.OrderID `json:"orderId"`
	CustomerID int64          `json:"customerId"`
}

func (CreatedEvent) EventType() string { return "order.created" }

// ItemAddedEvent is emitted once per line attached during order creation.
type ItemAddedEvent struct {
	kernel.EventBase
	OrderID     kernel.OrderID     `json:"orderId"`
	OrderItemID kernel.OrderItemID `json:"orderItemId"`
	ProductID   kernel.ProductID   `json:"productId"`
	Qty         int64              `json:"qty"`
}

func (ItemAddedEvent) EventType() string { return "order.item_added" }

// ConfirmedEvent is emitted on the draft -> confirmed transition.
type ConfirmedEvent struct {
	kernel.EventBase
	OrderID kernel.OrderID `json:"orderId"`
}

func (ConfirmedEvent) EventType() string { return "order.confirmed" }

// CancelledEvent is emitted when the order reaches its terminal state.
type CancelledEvent struct {
	kernel.EventBase
	OrderID kernel.OrderID `json:"orderId"`
}

func (CancelledEvent) EventType() string { return "order.cancelled" }
