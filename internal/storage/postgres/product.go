package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/avetra/ordersvc/internal/domain/kernel"
	"github.com/avetra/ordersvc/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, name, sku, price FROM products ORDER BY id`

	getProductByIDSQL = `SELECT id, name, sku, price FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT id, name, sku, price FROM products WHERE id = ANY($1) ORDER BY id`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	db Querier
}

// NewProductRepository returns a ProductRepository bound to the given querier.
func NewProductRepository(db Querier) *ProductRepository {
	return &ProductRepository{db: db}
}

// List returns all products from the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.db.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id kernel.ProductID) (*product.Product, error) {
	rows, err := r.db.Query(ctx, getProductByIDSQL, id.String())
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []kernel.ProductID) ([]product.Product, error) {
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}

	rows, err := r.db.Query(ctx, getProductsByIDsSQL, raw)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p     product.Product
		price decimal.Decimal
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Sku, &price); err != nil {
		return product.Product{}, err
	}

	unitPrice, err := kernel.NewUnitPrice(price)
	if err != nil {
		return product.Product{}, fmt.Errorf("product %q price: %w", p.ID, err)
	}
	p.Price = unitPrice
	return p, nil
}
