package order

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avetra/ordersvc/internal/domain/inventory"
	"github.com/avetra/ordersvc/internal/domain/kernel"
)

// --- Mock implementations ---

type mockOrderRepo struct {
	byID      map[kernel.OrderID]*Order
	added     []*Order
	updated   []*Order
	updateErr error
}

func newMockOrderRepo(orders ...*Order) *mockOrderRepo {
	byID := make(map[kernel.OrderID]*Order, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
	}
	return &mockOrderRepo{byID: byID}
}

func (m *mockOrderRepo) Add(_ context.Context, o *Order) error {
	m.added = append(m.added, o)
	return nil
}

func (m *mockOrderRepo) GetOne(_ context.Context, id kernel.OrderID) (*Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, o *Order) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updated = append(m.updated, o)
	return nil
}

type mockInventoryRepo struct {
	byProduct   map[kernel.ProductID]*inventory.Item
	reservedFor []*inventory.Item
	reserveErr  error
}

func newMockInventoryRepo(items ...*inventory.Item) *mockInventoryRepo {
	byProduct := make(map[kernel.ProductID]*inventory.Item, len(items))
	for _, item := range items {
		byProduct[item.ProductID] = item
	}
	return &mockInventoryRepo{byProduct: byProduct}
}

func (m *mockInventoryRepo) Add(_ context.Context, _ *inventory.Item) error { return nil }

func (m *mockInventoryRepo) GetOne(_ context.Context, _ kernel.InventoryItemID) (*inventory.Item, error) {
	return nil, inventory.ErrNotFound
}

func (m *mockInventoryRepo) GetByProductIDs(_ context.Context, ids []kernel.ProductID) ([]*inventory.Item, error) {
	var items []*inventory.Item
	for _, id := range ids {
		if item, ok := m.byProduct[id]; ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func (m *mockInventoryRepo) UpdateReservedQty(_ context.Context, item *inventory.Item) error {
	if m.reserveErr != nil {
		return m.reserveErr
	}
	m.reservedFor = append(m.reservedFor, item)
	return nil
}

func (m *mockInventoryRepo) UpdateOnHandQty(_ context.Context, _ *inventory.Item) error { return nil }

type mockTxRepos struct {
	orders *mockOrderRepo
	inv    *mockInventoryRepo
}

func (m mockTxRepos) Orders() Repository              { return m.orders }
func (m mockTxRepos) Inventory() inventory.Repository { return m.inv }

// mockUOW runs the callback in place; there is no transaction to roll back,
// the tests assert instead that no writes happened after the failing one.
type mockUOW struct {
	repos mockTxRepos
	err   error
}

func (m *mockUOW) WithinTx(ctx context.Context, fn func(ctx context.Context, repos TxRepos) error) error {
	if m.err != nil {
		return m.err
	}
	return fn(ctx, m.repos)
}

type mockReadRepo struct {
	rm *ReadModel
}

func (m *mockReadRepo) GetOne(_ context.Context, _ kernel.OrderID) (*ReadModel, error) {
	if m.rm == nil {
		return nil, ErrNotFound
	}
	return m.rm, nil
}

// --- Helpers ---

func stockFor(o *Order, onHand int64) []*inventory.Item {
	items := make([]*inventory.Item, 0, len(o.Items))
	for _, line := range o.Items {
		item := inventory.Create(line.ProductID, 1, kernel.MustQuantity(onHand))
		item.ClearEvents()
		items = append(items, item)
	}
	return items
}

func newTestService(orders *mockOrderRepo, inv *mockInventoryRepo) *Service {
	return NewService(
		orders,
		&mockReadRepo{},
		inv,
		anyCustomer,
		anyProduct,
		&mockUOW{repos: mockTxRepos{orders: orders, inv: inv}},
	)
}

// --- Tests ---

func TestService_CreateOrder(t *testing.T) {
	orders := newMockOrderRepo()
	svc := newTestService(orders, newMockInventoryRepo())

	id, err := svc.CreateOrder(context.Background(), 1, testItems(2))
	require.NoError(t, err)
	require.Len(t, orders.added, 1)
	assert.Equal(t, id, orders.added[0].ID)
	assert.Equal(t, StatusDraft, orders.added[0].Status)
}

func TestService_CreateOrder_Empty(t *testing.T) {
	orders := newMockOrderRepo()
	svc := newTestService(orders, newMockInventoryRepo())

	_, err := svc.CreateOrder(context.Background(), 1, nil)
	require.ErrorIs(t, err, ErrEmptyOrder)
	assert.Empty(t, orders.added)
}

func TestService_ConfirmOrder(t *testing.T) {
	o := newTestOrder(t, 3, 2)
	orders := newMockOrderRepo(o)
	inv := newMockInventoryRepo(stockFor(o, 10)...)
	svc := newTestService(orders, inv)

	require.NoError(t, svc.ConfirmOrder(context.Background(), o.ID))

	assert.Equal(t, StatusConfirmed, o.Status)
	require.Len(t, orders.updated, 1)
	require.Len(t, inv.reservedFor, 2)
	for _, item := range inv.reservedFor {
		assert.False(t, item.Reserved.IsZero())
	}
}

func TestService_ConfirmOrder_NotFound(t *testing.T) {
	svc := newTestService(newMockOrderRepo(), newMockInventoryRepo())

	err := svc.ConfirmOrder(context.Background(), kernel.NewOrderID())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestService_ConfirmOrder_MissingInventoryInfo(t *testing.T) {
	o := newTestOrder(t, 1, 1)
	orders := newMockOrderRepo(o)
	// Inventory exists for only one of the two products.
	inv := newMockInventoryRepo(stockFor(o, 10)[:1]...)
	svc := newTestService(orders, inv)

	err := svc.ConfirmOrder(context.Background(), o.ID)
	require.ErrorIs(t, err, ErrInsufficientInventoryInfo)
	assert.Empty(t, orders.updated)
	assert.Empty(t, inv.reservedFor)
}

func TestService_ConfirmOrder_InsufficientStock(t *testing.T) {
	o := newTestOrder(t, 5)
	orders := newMockOrderRepo(o)
	inv := newMockInventoryRepo(stockFor(o, 3)...)
	svc := newTestService(orders, inv)

	err := svc.ConfirmOrder(context.Background(), o.ID)
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	assert.Empty(t, orders.updated)
	assert.Empty(t, inv.reservedFor)
}

func TestService_ConfirmOrder_VersionConflictAborts(t *testing.T) {
	o := newTestOrder(t, 1)
	orders := newMockOrderRepo(o)
	inv := newMockInventoryRepo(stockFor(o, 10)...)
	inv.reserveErr = errors.Wrap(kernel.ErrVersionConflict, "inventory item")
	svc := newTestService(orders, inv)

	err := svc.ConfirmOrder(context.Background(), o.ID)
	require.ErrorIs(t, err, kernel.ErrVersionConflict)
	assert.Empty(t, orders.updated, "status write must not happen after a conflicting inventory write")
}

func TestService_ConfirmOrder_AlreadyConfirmed(t *testing.T) {
	o := newTestOrder(t, 1)
	require.NoError(t, o.Confirm())
	o.ClearEvents()
	orders := newMockOrderRepo(o)
	inv := newMockInventoryRepo(stockFor(o, 10)...)
	svc := newTestService(orders, inv)

	err := svc.ConfirmOrder(context.Background(), o.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Empty(t, inv.reservedFor)
}

func TestService_CancelOrder_Draft(t *testing.T) {
	o := newTestOrder(t, 2)
	orders := newMockOrderRepo(o)
	inv := newMockInventoryRepo(stockFor(o, 10)...)
	svc := newTestService(orders, inv)

	require.NoError(t, svc.CancelOrder(context.Background(), o.ID))

	assert.Equal(t, StatusCancelled, o.Status)
	require.Len(t, orders.updated, 1)
	assert.Empty(t, inv.reservedFor, "draft order holds no reservations")
}

func TestService_CancelOrder_Confirmed_ReleasesStock(t *testing.T) {
	o := newTestOrder(t, 4)
	orders := newMockOrderRepo(o)
	stock := stockFor(o, 10)
	inv := newMockInventoryRepo(stock...)
	svc := newTestService(orders, inv)

	require.NoError(t, svc.ConfirmOrder(context.Background(), o.ID))
	require.Equal(t, int64(4), stock[0].Reserved.Int64())

	require.NoError(t, svc.CancelOrder(context.Background(), o.ID))

	assert.Equal(t, StatusCancelled, o.Status)
	assert.True(t, stock[0].Reserved.IsZero(), "reservation must be fully released")
	assert.Equal(t, int64(10), stock[0].Available().Int64())
}

func TestService_CancelOrder_Twice(t *testing.T) {
	o := newTestOrder(t, 1)
	orders := newMockOrderRepo(o)
	svc := newTestService(orders, newMockInventoryRepo(stockFor(o, 10)...))

	require.NoError(t, svc.CancelOrder(context.Background(), o.ID))
	require.ErrorIs(t, svc.CancelOrder(context.Background(), o.ID), ErrAlreadyCancelled)
}

func TestService_CancelOrder_MissingInventory(t *testing.T) {
	o := newTestOrder(t, 1)
	orders := newMockOrderRepo(o)
	stock := stockFor(o, 10)
	inv := newMockInventoryRepo(stock...)
	svc := newTestService(orders, inv)

	require.NoError(t, svc.ConfirmOrder(context.Background(), o.ID))

	// Inventory record disappears between confirm and cancel.
	delete(inv.byProduct, o.Items[0].ProductID)

	err := svc.CancelOrder(context.Background(), o.ID)
	require.ErrorIs(t, err, inventory.ErrNotFound)
}
