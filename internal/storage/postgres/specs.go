package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/avetra/ordersvc/internal/domain/kernel"
	"github.com/avetra/ordersvc/internal/domain/order"
)

const (
	customerExistsSQL = `SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`

	selectProductIDsSQL = `SELECT id FROM products WHERE id = ANY($1)`
)

var _ order.CustomerSpecification = (*CustomerSpec)(nil)

// CustomerSpec validates customer references against the customers table.
type CustomerSpec struct {
	db Querier
}

// NewCustomerSpec returns a CustomerSpec bound to the given querier.
func NewCustomerSpec(db Querier) *CustomerSpec {
	return &CustomerSpec{db: db}
}

// IsSatisfied returns order.ErrUnknownCustomer when no customer with the
// given id exists.
func (s *CustomerSpec) IsSatisfied(ctx context.Context, customerID int64) error {
	var exists bool
	if err := s.db.QueryRow(ctx, customerExistsSQL, customerID).Scan(&exists); err != nil {
		return fmt.Errorf("checking customer %d: %w", customerID, err)
	}
	if !exists {
		return errors.Wrapf(order.ErrUnknownCustomer, "customer %d", customerID)
	}
	return nil
}

var _ order.ProductSpecification = (*ProductSpec)(nil)

// ProductSpec validates product references against the products table.
type ProductSpec struct {
	db Querier
}

// NewProductSpec returns a ProductSpec bound to the given querier.
func NewProductSpec(db Querier) *ProductSpec {
	return &ProductSpec{db: db}
}

// IsSatisfied returns order.ErrUnknownProduct naming the first missing
// product when any of the given ids is absent from the catalog.
func (s *ProductSpec) IsSatisfied(ctx context.Context, ids []kernel.ProductID) error {
	if len(ids) == 0 {
		return nil
	}

	raw := make([]string, 0, len(ids))
	seen := make(map[kernel.ProductID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		raw = append(raw, id.String())
	}

	rows, err := s.db.Query(ctx, selectProductIDsSQL, raw)
	if err != nil {
		return fmt.Errorf("checking products: %w", err)
	}
	found, err := collectProductIDs(rows)
	if err != nil {
		return fmt.Errorf("checking products: %w", err)
	}

	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return errors.Wrapf(order.ErrUnknownProduct, "product %s", id)
		}
	}
	return nil
}

func collectProductIDs(rows pgx.Rows) (map[kernel.ProductID]struct{}, error) {
	defer rows.Close()

	found := make(map[kernel.ProductID]struct{})
	for rows.Next() {
		var id kernel.ProductID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = struct{}{}
	}
	return found, rows.Err()
}
