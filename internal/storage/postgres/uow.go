package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avetra/ordersvc/internal/domain/inventory"
	"github.com/avetra/ordersvc/internal/domain/order"
)

var (
	_ order.UnitOfWork     = (*UnitOfWork)(nil)
	_ inventory.UnitOfWork = (*UnitOfWork)(nil)
)

// UnitOfWork runs callbacks inside a single pgx transaction and hands them
// repositories bound to that transaction. The handle stays explicit in the
// callback scope; nothing is stashed in the context.
type UnitOfWork struct {
	pool *pgxpool.Pool
}

// NewUnitOfWork returns a UnitOfWork drawing transactions from the pool.
func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{pool: pool}
}

// WithinTx implements order.UnitOfWork.
func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, repos order.TxRepos) error) error {
	return u.withinTx(ctx, func(tx pgx.Tx) error {
		return fn(ctx, txRepos{
			orders: NewOrderRepository(tx),
			inv:    NewInventoryRepository(tx),
		})
	})
}

// WithinInventoryTx implements inventory.UnitOfWork.
func (u *UnitOfWork) WithinInventoryTx(ctx context.Context, fn func(ctx context.Context, items inventory.Repository) error) error {
	return u.withinTx(ctx, func(tx pgx.Tx) error {
		return fn(ctx, NewInventoryRepository(tx))
	})
}

// withinTx opens a READ COMMITTED transaction, commits it when fn returns
// nil, and rolls it back when fn returns an error or panics.
func (u *UnitOfWork) withinTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := u.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

type txRepos struct {
	orders *OrderRepository
	inv    *InventoryRepository
}

func (t txRepos) Orders() order.Repository        { return t.orders }
func (t txRepos) Inventory() inventory.Repository { return t.inv }
