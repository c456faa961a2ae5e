package kernel

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Money construction errors.
var (
	ErrNonPositivePrice  = errors.New("unit price must be positive")
	ErrNonPositiveAmount = errors.New("total amount must be positive")
)

// UnitPrice is the positive per-unit price of a product.
type UnitPrice struct {
	value decimal.Decimal
}

// NewUnitPrice validates value and returns it as a UnitPrice.
func NewUnitPrice(value decimal.Decimal) (UnitPrice, error) {
	if !value.IsPositive() {
		return UnitPrice{}, ErrNonPositivePrice
	}
	return UnitPrice{value: value}, nil
}

// MustUnitPrice is NewUnitPrice for trusted inputs. It panics when value is
// not positive.
func MustUnitPrice(value decimal.Decimal) UnitPrice {
	p, err := NewUnitPrice(value)
	if err != nil {
		panic(err)
	}
	return p
}

// Scale multiplies the price by a quantity, producing a line total.
func (p UnitPrice) Scale(qty Quantity) (TotalAmount, error) {
	return NewTotalAmount(p.value.Mul(decimal.NewFromInt(qty.Int64())))
}

// Decimal returns the underlying decimal for persistence.
func (p UnitPrice) Decimal() decimal.Decimal { return p.value }

func (p UnitPrice) String() string { return p.value.String() }

// TotalAmount is a positive monetary sum (a line total or an order total).
type TotalAmount struct {
	value decimal.Decimal
}

// NewTotalAmount validates value and returns it as a TotalAmount.
func NewTotalAmount(value decimal.Decimal) (TotalAmount, error) {
	if !value.IsPositive() {
		return TotalAmount{}, ErrNonPositiveAmount
	}
	return TotalAmount{value: value}, nil
}

// Add returns the sum of two amounts.
func (a TotalAmount) Add(other TotalAmount) TotalAmount {
	return TotalAmount{value: a.value.Add(other.value)}
}

// Decimal returns the underlying decimal for persistence.
func (a TotalAmount) Decimal() decimal.Decimal { return a.value }

func (a TotalAmount) String() string { return a.value.String() }
