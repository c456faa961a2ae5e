package order

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avetra/ordersvc/internal/domain/kernel"
)

// --- Spec stubs ---

type customerSpecFunc func(ctx context.Context, customerID int64) error

func (f customerSpecFunc) IsSatisfied(ctx context.Context, customerID int64) error {
	return f(ctx, customerID)
}

type productSpecFunc func(ctx context.Context, ids []kernel.ProductID) error

func (f productSpecFunc) IsSatisfied(ctx context.Context, ids []kernel.ProductID) error {
	return f(ctx, ids)
}

var (
	anyCustomer = customerSpecFunc(func(context.Context, int64) error { return nil })
	anyProduct  = productSpecFunc(func(context.Context, []kernel.ProductID) error { return nil })
)

// --- Helpers ---

func testItems(qtys ...int64) []ItemData {
	items := make([]ItemData, len(qtys))
	for i, qty := range qtys {
		items[i] = ItemData{
			ProductID: kernel.NewProductID(),
			Qty:       kernel.MustQuantity(qty),
			UnitPrice: kernel.MustUnitPrice(decimal.NewFromInt(10)),
		}
	}
	return items
}

func newTestOrder(t *testing.T, qtys ...int64) *Order {
	t.Helper()
	o, err := Create(context.Background(), 1, testItems(qtys...), anyCustomer, anyProduct)
	require.NoError(t, err)
	o.ClearEvents()
	return o
}

// --- Tests ---

func TestCreate(t *testing.T) {
	o, err := Create(context.Background(), 42, testItems(2, 3), anyCustomer, anyProduct)
	require.NoError(t, err)

	assert.Equal(t, int64(42), o.CustomerID)
	assert.Equal(t, StatusDraft, o.Status)
	require.Len(t, o.Items, 2)
	assert.Equal(t, o.ID, o.Items[0].OrderID)

	events := o.Events()
	require.Len(t, events, 3)
	assert.Equal(t, "order.created", events[0].EventType())
	assert.Equal(t, "order.item_added", events[1].EventType())
	assert.Equal(t, "order.item_added", events[2].EventType())
}

func TestCreate_SpecFailures(t *testing.T) {
	noCustomer := customerSpecFunc(func(context.Context, int64) error { return ErrUnknownCustomer })
	_, err := Create(context.Background(), 1, testItems(1), noCustomer, anyProduct)
	require.ErrorIs(t, err, ErrUnknownCustomer)

	noProduct := productSpecFunc(func(context.Context, []kernel.ProductID) error { return ErrUnknownProduct })
	_, err = Create(context.Background(), 1, testItems(1), anyCustomer, noProduct)
	require.ErrorIs(t, err, ErrUnknownProduct)
}

func TestOrder_TotalAmount(t *testing.T) {
	o := newTestOrder(t, 2, 3)

	// 2*10 + 3*10
	assert.True(t, o.TotalAmount().Decimal().Equal(decimal.NewFromInt(50)))
}

func TestOrder_Confirm(t *testing.T) {
	o := newTestOrder(t, 1)

	require.NoError(t, o.Confirm())
	assert.Equal(t, StatusConfirmed, o.Status)

	events := o.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "order.confirmed", events[0].EventType())
}

func TestOrder_Confirm_Twice(t *testing.T) {
	o := newTestOrder(t, 1)
	require.NoError(t, o.Confirm())

	err := o.Confirm()
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusConfirmed, o.Status)
}

func TestOrder_Confirm_AfterCancel(t *testing.T) {
	o := newTestOrder(t, 1)
	require.NoError(t, o.Cancel())

	require.ErrorIs(t, o.Confirm(), ErrInvalidTransition)
}

func TestOrder_Cancel(t *testing.T) {
	t.Run("from draft", func(t *testing.T) {
		o := newTestOrder(t, 1)
		require.NoError(t, o.Cancel())
		assert.Equal(t, StatusCancelled, o.Status)
	})

	t.Run("from confirmed", func(t *testing.T) {
		o := newTestOrder(t, 1)
		require.NoError(t, o.Confirm())
		o.ClearEvents()

		require.NoError(t, o.Cancel())
		assert.Equal(t, StatusCancelled, o.Status)

		events := o.Events()
		require.Len(t, events, 1)
		assert.Equal(t, "order.cancelled", events[0].EventType())
	})

	t.Run("twice", func(t *testing.T) {
		o := newTestOrder(t, 1)
		require.NoError(t, o.Cancel())
		require.ErrorIs(t, o.Cancel(), ErrAlreadyCancelled)
	})
}

func TestStatus_Title(t *testing.T) {
	assert.Equal(t, "Draft", StatusDraft.Title())
	assert.Equal(t, "Confirmed", StatusConfirmed.Title())
	assert.Equal(t, "Cancelled", StatusCancelled.Title())
}
