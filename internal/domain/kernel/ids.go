// Package kernel holds the value objects shared by all aggregates: typed
// identifiers, quantities, money amounts, the domain event contract, and the
// optimistic-concurrency version token.
package kernel

import (
	"github.com/go-faster/errors"
	"github.com/oklog/ulid/v2"
)

// Typed aggregate and entity identifiers. All ids are ULIDs generated at
// creation time, so they sort lexicographically by creation order.
type (
	OrderID         string
	OrderItemID     string
	ProductID       string
	InventoryItemID string
)

// ErrInvalidID is returned when parsing a malformed identifier.
var ErrInvalidID = errors.New("invalid id")

// NewOrderID generates a fresh order identifier.
func NewOrderID() OrderID { return OrderID(ulid.Make().String()) }

// NewOrderItemID generates a fresh order item identifier.
func NewOrderItemID() OrderItemID { return OrderItemID(ulid.Make().String()) }

// NewProductID generates a fresh product identifier.
func NewProductID() ProductID { return ProductID(ulid.Make().String()) }

// NewInventoryItemID generates a fresh inventory item identifier.
func NewInventoryItemID() InventoryItemID { return InventoryItemID(ulid.Make().String()) }

// ParseOrderID validates raw as a ULID and returns it typed.
func ParseOrderID(raw string) (OrderID, error) {
	if err := validateULID(raw); err != nil {
		return "", err
	}
	return OrderID(raw), nil
}

// ParseProductID validates raw as a ULID and returns it typed.
func ParseProductID(raw string) (ProductID, error) {
	if err := validateULID(raw); err != nil {
		return "", err
	}
	return ProductID(raw), nil
}

// ParseInventoryItemID validates raw as a ULID and returns it typed.
func ParseInventoryItemID(raw string) (InventoryItemID, error) {
	if err := validateULID(raw); err != nil {
		return "", err
	}
	return InventoryItemID(raw), nil
}

func validateULID(raw string) error {
	if _, err := ulid.ParseStrict(raw); err != nil {
		return errors.Wrapf(ErrInvalidID, "%q", raw)
	}
	return nil
}

func (id OrderID) String() string         { return string(id) }
func (id OrderItemID) String() string     { return string(id) }
func (id ProductID) String() string       { return string(id) }
func (id InventoryItemID) String() string { return string(id) }
