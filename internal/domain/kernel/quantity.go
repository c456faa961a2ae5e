package kernel

import (
	"strconv"

	"github.com/go-faster/errors"
)

// Quantity arithmetic errors.
var (
	ErrNegativeQuantity = errors.New("quantity cannot be negative")
	ErrQuantityUnderrun = errors.New("cannot decrease quantity below zero")
)

// Quantity is a non-negative count of stock-keeping units. The zero value is
// a valid zero quantity.
type Quantity struct {
	value int64
}

// ZeroQuantity is the additive identity.
var ZeroQuantity = Quantity{}

// NewQuantity validates value and returns it as a Quantity.
func NewQuantity(value int64) (Quantity, error) {
	if value < 0 {
		return Quantity{}, ErrNegativeQuantity
	}
	return Quantity{value: value}, nil
}

// MustQuantity is NewQuantity for trusted inputs (database rows, tests).
// It panics on a negative value.
func MustQuantity(value int64) Quantity {
	q, err := NewQuantity(value)
	if err != nil {
		panic(err)
	}
	return q
}

// Increase returns the quantity grown by other.
func (q Quantity) Increase(other Quantity) (Quantity, error) {
	return NewQuantity(q.value + other.value)
}

// Decrease returns the quantity shrunk by other. Decreasing below zero fails
// with ErrQuantityUnderrun and leaves the receiver unchanged.
func (q Quantity) Decrease(other Quantity) (Quantity, error) {
	if other.value > q.value {
		return Quantity{}, ErrQuantityUnderrun
	}
	return NewQuantity(q.value - other.value)
}

// IsZero reports whether the quantity is zero.
func (q Quantity) IsZero() bool { return q.value == 0 }

// GreaterThan reports whether q > other.
func (q Quantity) GreaterThan(other Quantity) bool { return q.value > other.value }

// Int64 returns the raw count for persistence and serialization.
func (q Quantity) Int64() int64 { return q.value }

func (q Quantity) String() string { return strconv.FormatInt(q.value, 10) }
