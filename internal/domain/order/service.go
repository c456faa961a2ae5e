package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/avetra/ordersvc/internal/domain/inventory"
	"github.com/avetra/ordersvc/internal/domain/kernel"
)

// ErrInsufficientInventoryInfo is returned by ConfirmOrder when at least one
// referenced product has no inventory record at all, so the reservation
// cannot even be attempted.
var ErrInsufficientInventoryInfo = errors.New("insufficient inventory info for order products")

// Repository defines write-side persistence for orders. Add inserts the
// order with its items; UpdateStatus issues a conditional write against
// Order.Version. Both drain the aggregate's pending events into the outbox
// within the caller's transaction.
type Repository interface {
	Add(ctx context.Context, o *Order) error
	GetOne(ctx context.Context, id kernel.OrderID) (*Order, error)
	UpdateStatus(ctx context.Context, o *Order) error
}

// TxRepos bundles the repositories bound to one open transaction.
type TxRepos interface {
	Orders() Repository
	Inventory() inventory.Repository
}

// UnitOfWork demarcates a single transaction shared by every repository call
// inside the callback. The transaction handle is explicit in the callback
// scope rather than ambient: returning nil commits, returning an error (or
// panicking) rolls back everything.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos TxRepos) error) error
}

// Service orchestrates the order lifecycle against inventory. All aggregate
// mutations are computed in memory first; persistence happens afterwards in
// one transaction, so a version conflict on any row aborts the whole
// operation with nothing committed.
type Service struct {
	orders       Repository
	reader       ReadRepository
	inventory    inventory.Repository
	customerSpec CustomerSpecification
	productSpec  ProductSpecification
	uow          UnitOfWork
}

// NewService creates the order Service with its collaborators. The orders
// and inventory repositories here are the pool-bound read instances; writes
// go through the unit of work.
func NewService(
	orders Repository,
	reader ReadRepository,
	inv inventory.Repository,
	customerSpec CustomerSpecification,
	productSpec ProductSpecification,
	uow UnitOfWork,
) *Service {
	return &Service{
		orders:       orders,
		reader:       reader,
		inventory:    inv,
		customerSpec: customerSpec,
		productSpec:  productSpec,
		uow:          uow,
	}
}

// CreateOrder validates the request, builds a draft order, and persists it
// together with its creation events.
func (s *Service) CreateOrder(ctx context.Context, customerID int64, items []ItemData) (kernel.OrderID, error) {
	if len(items) == 0 {
		return "", ErrEmptyOrder
	}

	o, err := Create(ctx, customerID, items, s.customerSpec, s.productSpec)
	if err != nil {
		return "", err
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, repos TxRepos) error {
		return repos.Orders().Add(ctx, o)
	})
	if err != nil {
		return "", errors.Wrap(err, "persist order")
	}

	zctx.From(ctx).Info("Order created",
		zap.String("order_id", o.ID.String()),
		zap.Int64("customer_id", customerID),
	)
	return o.ID, nil
}

// ConfirmOrder transitions the order to confirmed and reserves inventory for
// every line. All reservations are pre-checked in memory across all items
// before anything is written; the subsequent transaction persists each
// touched inventory row with a conditional update plus the order status, so
// a concurrent writer on any row rolls the whole confirmation back.
func (s *Service) ConfirmOrder(ctx context.Context, id kernel.OrderID) error {
	o, err := s.orders.GetOne(ctx, id)
	if err != nil {
		return err
	}
	if err := o.Confirm(); err != nil {
		return err
	}

	productIDs := o.productIDSet()
	stock, err := s.loadStock(ctx, productIDs)
	if err != nil {
		return err
	}

	// Every referenced product must have an inventory record before any
	// reservation is attempted.
	for pid := range productIDs {
		if _, ok := stock[pid]; !ok {
			return errors.Wrapf(ErrInsufficientInventoryInfo, "product %s", pid)
		}
	}

	for _, item := range o.Items {
		if err := stock[item.ProductID].Reserve(item.Qty); err != nil {
			return errors.Wrapf(err, "product %s", item.ProductID)
		}
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, repos TxRepos) error {
		for _, inv := range stock {
			if err := repos.Inventory().UpdateReservedQty(ctx, inv); err != nil {
				return errors.Wrapf(err, "update inventory %s", inv.ID)
			}
		}
		return repos.Orders().UpdateStatus(ctx, o)
	})
	if err != nil {
		zctx.From(ctx).Error("Order confirmation failed",
			zap.String("order_id", id.String()),
			zap.Error(err),
		)
		return err
	}

	zctx.From(ctx).Info("Order confirmed", zap.String("order_id", id.String()))
	return nil
}

// CancelOrder transitions the order to cancelled and releases the reserved
// inventory for every line. Unlike confirm, a missing inventory record is
// reported per item as the release is attempted.
func (s *Service) CancelOrder(ctx context.Context, id kernel.OrderID) error {
	o, err := s.orders.GetOne(ctx, id)
	if err != nil {
		return err
	}

	// Only confirmed orders hold reservations to give back.
	release := o.Status == StatusConfirmed

	if err := o.Cancel(); err != nil {
		return err
	}

	stock := map[kernel.ProductID]*inventory.Item{}
	if release {
		if stock, err = s.loadStock(ctx, o.productIDSet()); err != nil {
			return err
		}
		for _, item := range o.Items {
			inv, ok := stock[item.ProductID]
			if !ok {
				return errors.Wrapf(inventory.ErrNotFound, "product %s", item.ProductID)
			}
			if err := inv.Release(item.Qty); err != nil {
				return errors.Wrapf(err, "product %s", item.ProductID)
			}
		}
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, repos TxRepos) error {
		for _, inv := range stock {
			if err := repos.Inventory().UpdateReservedQty(ctx, inv); err != nil {
				return errors.Wrapf(err, "update inventory %s", inv.ID)
			}
		}
		return repos.Orders().UpdateStatus(ctx, o)
	})
	if err != nil {
		zctx.From(ctx).Error("Order cancellation failed",
			zap.String("order_id", id.String()),
			zap.Error(err),
		)
		return err
	}

	zctx.From(ctx).Info("Order cancelled", zap.String("order_id", id.String()))
	return nil
}

// GetOrder returns the denormalized read model for one order.
func (s *Service) GetOrder(ctx context.Context, id kernel.OrderID) (*ReadModel, error) {
	return s.reader.GetOne(ctx, id)
}

// loadStock fetches the inventory records for the given product ids and
// indexes them by product.
func (s *Service) loadStock(ctx context.Context, productIDs map[kernel.ProductID]struct{}) (map[kernel.ProductID]*inventory.Item, error) {
	ids := make([]kernel.ProductID, 0, len(productIDs))
	for pid := range productIDs {
		ids = append(ids, pid)
	}

	items, err := s.inventory.GetByProductIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "load inventory")
	}

	stock := make(map[kernel.ProductID]*inventory.Item, len(items))
	for _, item := range items {
		stock[item.ProductID] = item
	}
	return stock, nil
}
