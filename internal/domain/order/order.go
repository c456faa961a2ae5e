// Package order holds the order aggregate, its status state machine, and the
// domain service coordinating orders with inventory reservations.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/avetra/ordersvc/internal/domain/kernel"
)

// Sentinel errors for order operations.
var (
	// ErrNotFound is returned when a requested order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrEmptyOrder is returned when an order is created without items.
	ErrEmptyOrder = errors.New("cannot create order without items")
	// ErrInvalidTransition is returned when confirming an order that is not
	// in draft status.
	ErrInvalidTransition = errors.New("order cannot be confirmed in its current status")
	// ErrAlreadyCancelled is returned when cancelling an order twice.
	ErrAlreadyCancelled = errors.New("cancelled order cannot be cancelled again")
)

// Status is the order lifecycle state. Transitions: draft -> confirmed,
// draft -> cancelled, confirmed -> cancelled. Cancelled is terminal.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Title is the human-readable status name used by the read model.
func (s Status) Title() string {
	switch s {
	case StatusDraft:
		return "Draft"
	case StatusConfirmed:
		return "Confirmed"
	case StatusCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}

// Item is a single order line. It is created through the order at creation
// time and immutable thereafter.
type Item struct {
	ID        kernel.OrderItemID
	OrderID   kernel.OrderID
	ProductID kernel.ProductID
	Qty       kernel.Quantity
	UnitPrice kernel.UnitPrice
}

// TotalPrice is the line total: unit price times quantity.
func (it Item) TotalPrice() kernel.TotalAmount {
	total, err := it.UnitPrice.Scale(it.Qty)
	if err != nil {
		// Items are constructed with positive prices and quantities, so a
		// failing scale means corrupted state.
		panic(errors.Wrapf(err, "order item %s", it.ID))
	}
	return total
}

// ItemData is the input for one order line at creation time.
type ItemData struct {
	ProductID kernel.ProductID
	Qty       kernel.Quantity
	UnitPrice kernel.UnitPrice
}

// Order is the ordering aggregate root. Items are fixed at creation; the
// only mutations are the confirm and cancel status transitions.
type Order struct {
	kernel.Recorder

	ID         kernel.OrderID
	CustomerID int64
	Status     Status
	CreatedAt  time.Time
	Items      []Item
	Version    kernel.Version
}

// Create builds a draft order after validating the customer and every
// referenced product through the injected specifications. It emits
// order.created plus one order.item_added per line.
func Create(
	ctx context.Context,
	customerID int64,
	items []ItemData,
	customerSpec CustomerSpecification,
	productSpec ProductSpecification,
) (*Order, error) {
	if err := customerSpec.IsSatisfied(ctx, customerID); err != nil {
		return nil, err
	}

	productIDs := make([]kernel.ProductID, len(items))
	for i, item := range items {
		productIDs[i] = item.ProductID
	}
	if err := productSpec.IsSatisfied(ctx, productIDs); err != nil {
		return nil, err
	}

	o := &Order{
		ID:         kernel.NewOrderID(),
		CustomerID: customerID,
		Status:     StatusDraft,
		CreatedAt:  time.Now().UTC(),
	}
	o.Record(CreatedEvent{
		EventBase:  kernel.NewEventBase(),
		OrderID:    o.ID,
		CustomerID: customerID,
	})

	for _, data := range items {
		item := Item{
			ID:        kernel.NewOrderItemID(),
			OrderID:   o.ID,
			ProductID: data.ProductID,
			Qty:       data.Qty,
			UnitPrice: data.UnitPrice,
		}
		o.Items = append(o.Items, item)
		o.Record(ItemAddedEvent{
			EventBase:   kernel.NewEventBase(),
			OrderID:     o.ID,
			OrderItemID: item.ID,
			ProductID:   item.ProductID,
			Qty:         item.Qty.Int64(),
		})
	}

	return o, nil
}

// TotalAmount is the sum of all line totals.
func (o *Order) TotalAmount() kernel.TotalAmount {
	var total kernel.TotalAmount
	for i, item := range o.Items {
		if i == 0 {
			total = item.TotalPrice()
			continue
		}
		total = total.Add(item.TotalPrice())
	}
	return total
}

// Confirm moves the order from draft to confirmed and emits order.confirmed.
// Confirming from any other status fails with ErrInvalidTransition; that
// includes re-confirming an already-confirmed order, so a confirm is never
// silently absorbed after inventory has been reserved.
func (o *Order) Confirm() error {
	if o.Status != StatusDraft {
		return ErrInvalidTransition
	}
	o.Status = StatusConfirmed
	o.Record(ConfirmedEvent{
		EventBase: kernel.NewEventBase(),
		OrderID:   o.ID,
	})
	return nil
}

// Cancel moves the order to cancelled from any non-terminal status and emits
// order.cancelled. Cancelling twice fails with ErrAlreadyCancelled.
func (o *Order) Cancel() error {
	if o.Status == StatusCancelled {
		return ErrAlreadyCancelled
	}
	o.Status = StatusCancelled
	o.Record(CancelledEvent{
		EventBase: kernel.NewEventBase(),
		OrderID:   o.ID,
	})
	return nil
}

// productIDSet returns the distinct product ids referenced by the order.
func (o *Order) productIDSet() map[kernel.ProductID]struct{} {
	set := make(map[kernel.ProductID]struct{}, len(o.Items))
	for _, item := range o.Items {
		set[item.ProductID] = struct{}{}
	}
	return set
}
