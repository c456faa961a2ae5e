package inventory

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/avetra/ordersvc/internal/domain/kernel"
	"github.com/avetra/ordersvc/internal/domain/product"
)

// UnitOfWork demarcates a single transaction for inventory writes. The
// callback receives a Repository bound to that transaction; returning an
// error rolls everything back.
type UnitOfWork interface {
	WithinInventoryTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}

// Service exposes warehouse-side stock administration: registering items,
// receiving stock, and correcting on-hand counts after stocktakes.
type Service struct {
	products product.Repository
	items    Repository
	uow      UnitOfWork
}

// NewService creates an inventory Service.
func NewService(products product.Repository, items Repository, uow UnitOfWork) *Service {
	return &Service{
		products: products,
		items:    items,
		uow:      uow,
	}
}

// CreateItem registers stock of a known product in a warehouse.
func (s *Service) CreateItem(
	ctx context.Context,
	productID kernel.ProductID,
	warehouseID int32,
	onHand kernel.Quantity,
) (kernel.InventoryItemID, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return "", errors.Wrap(err, "check product")
	}

	item := Create(productID, warehouseID, onHand)

	err := s.uow.WithinInventoryTx(ctx, func(ctx context.Context, repo Repository) error {
		return repo.Add(ctx, item)
	})
	if err != nil {
		return "", errors.Wrap(err, "persist inventory item")
	}

	zctx.From(ctx).Info("Inventory item created",
		zap.String("inventory_item_id", item.ID.String()),
		zap.String("product_id", productID.String()),
	)
	return item.ID, nil
}

// Receive adds incoming stock to an item's on-hand count.
func (s *Service) Receive(ctx context.Context, id kernel.InventoryItemID, qty kernel.Quantity) error {
	return s.mutateOnHand(ctx, id, func(item *Item) error {
		return item.Receive(qty)
	})
}

// AdjustOnHand sets an item's on-hand count to an absolute value.
func (s *Service) AdjustOnHand(ctx context.Context, id kernel.InventoryItemID, onHand kernel.Quantity) error {
	return s.mutateOnHand(ctx, id, func(item *Item) error {
		return item.AdjustOnHand(onHand)
	})
}

// GetItem returns a single inventory item.
func (s *Service) GetItem(ctx context.Context, id kernel.InventoryItemID) (*Item, error) {
	return s.items.GetOne(ctx, id)
}

// mutateOnHand loads the item, applies the domain mutation in memory, and
// persists the new on-hand quantity with a conditional write. A concurrent
// writer surfaces as a version conflict and aborts the transaction.
func (s *Service) mutateOnHand(ctx context.Context, id kernel.InventoryItemID, mutate func(*Item) error) error {
	item, err := s.items.GetOne(ctx, id)
	if err != nil {
		return err
	}
	if err := mutate(item); err != nil {
		return err
	}
	return s.uow.WithinInventoryTx(ctx, func(ctx context.Context, repo Repository) error {
		return repo.UpdateOnHandQty(ctx, item)
	})
}
