package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avetra/ordersvc/internal/domain/kernel"
)

func newTestItem(t *testing.T, onHand, reserved int64) *Item {
	t.Helper()
	item := Create(kernel.NewProductID(), 1, kernel.MustQuantity(onHand))
	item.ClearEvents()
	if reserved > 0 {
		require.NoError(t, item.Reserve(kernel.MustQuantity(reserved)))
		item.ClearEvents()
	}
	return item
}

func TestCreate(t *testing.T) {
	productID := kernel.NewProductID()
	item := Create(productID, 7, kernel.MustQuantity(10))

	assert.Equal(t, productID, item.ProductID)
	assert.Equal(t, int32(7), item.WarehouseID)
	assert.Equal(t, int64(10), item.OnHand.Int64())
	assert.True(t, item.Reserved.IsZero())

	events := item.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "inventory_item.created", events[0].EventType())
}

func TestItem_Reserve(t *testing.T) {
	item := newTestItem(t, 10, 0)

	require.NoError(t, item.Reserve(kernel.MustQuantity(6)))
	assert.Equal(t, int64(6), item.Reserved.Int64())
	assert.Equal(t, int64(4), item.Available().Int64())

	events := item.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "inventory_item.reserved", events[0].EventType())
}

func TestItem_Reserve_InsufficientStock(t *testing.T) {
	item := newTestItem(t, 10, 6)

	err := item.Reserve(kernel.MustQuantity(5))
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, int64(6), item.Reserved.Int64(), "failed reserve must not change state")
	assert.Empty(t, item.Events())
}

func TestItem_Reserve_ZeroIsNoop(t *testing.T) {
	item := newTestItem(t, 10, 0)

	require.NoError(t, item.Reserve(kernel.ZeroQuantity))
	assert.True(t, item.Reserved.IsZero())
	assert.Empty(t, item.Events())
}

func TestItem_Release(t *testing.T) {
	item := newTestItem(t, 10, 6)

	require.NoError(t, item.Release(kernel.MustQuantity(4)))
	assert.Equal(t, int64(2), item.Reserved.Int64())
	assert.Equal(t, int64(8), item.Available().Int64())

	err := item.Release(kernel.MustQuantity(3))
	require.ErrorIs(t, err, ErrReleaseExceedsReserved)
	assert.Equal(t, int64(2), item.Reserved.Int64())
}

func TestItem_Receive(t *testing.T) {
	item := newTestItem(t, 10, 0)

	require.NoError(t, item.Receive(kernel.MustQuantity(5)))
	assert.Equal(t, int64(15), item.OnHand.Int64())

	events := item.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "inventory_item.received", events[0].EventType())
}

func TestItem_AdjustOnHand(t *testing.T) {
	item := newTestItem(t, 10, 6)

	require.NoError(t, item.AdjustOnHand(kernel.MustQuantity(6)))
	assert.Equal(t, int64(6), item.OnHand.Int64())
	assert.True(t, item.Available().IsZero())

	err := item.AdjustOnHand(kernel.MustQuantity(5))
	require.ErrorIs(t, err, ErrAdjustBelowReserved)
	assert.Equal(t, int64(6), item.OnHand.Int64())
}

func TestItem_ReserveReleaseRoundTrip(t *testing.T) {
	item := newTestItem(t, 10, 0)

	require.NoError(t, item.Reserve(kernel.MustQuantity(10)))
	assert.True(t, item.Available().IsZero())

	require.NoError(t, item.Release(kernel.MustQuantity(10)))
	assert.Equal(t, int64(10), item.Available().Int64())
}
