// Command seed-db loads catalog fixtures (customers, products, inventory)
// into the database. The fixtures file may be gzip-compressed; large
// generated catalogs are deduplicated by SKU with a bloom filter before
// hitting the database.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/avetra/ordersvc/internal/storage/postgres"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
)

const (
	upsertProductSQL = `INSERT INTO products (id, name, sku, price) VALUES ($1, $2, $3, $4)
	ON CONFLICT (sku) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price`

	upsertCustomerSQL = `INSERT INTO customers (name, email) VALUES ($1, $2)
	ON CONFLICT (email) DO NOTHING`

	productIDBySkuSQL = `SELECT id FROM products WHERE sku = $1`

	insertInventorySQL = `INSERT INTO inventory_items (id, product_id, warehouse_id, on_hand_qty, reserved_qty, version)
	VALUES ($1, $2, $3, $4, 0, 1)
	ON CONFLICT (product_id) DO NOTHING`
)

type fixtures struct {
	Customers []customerJSON  `json:"customers"`
	Products  []productJSON   `json:"products"`
	Inventory []inventoryJSON `json:"inventory"`
}

type customerJSON struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type productJSON struct {
	Name  string          `json:"name"`
	Sku   string          `json:"sku"`
	Price decimal.Decimal `json:"price"`
}

type inventoryJSON struct {
	Sku         string `json:"sku"`
	WarehouseID int32  `json:"warehouseId"`
	OnHand      int64  `json:"onHand"`
}

func main() {
	var (
		databaseURL  string
		fixturesFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&fixturesFile, "fixtures-file", "db/seed/fixtures.json", "path to fixtures JSON file (.gz supported)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, fixturesFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, fixturesFile string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	fx, err := readFixtures(fixturesFile)
	if err != nil {
		return errors.Wrap(err, "read fixtures")
	}

	if err := seedCustomers(ctx, pool, fx.Customers); err != nil {
		return errors.Wrap(err, "seed customers")
	}
	if err := seedProducts(ctx, pool, fx.Products); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedInventory(ctx, pool, fx.Inventory); err != nil {
		return errors.Wrap(err, "seed inventory")
	}

	return nil
}

func readFixtures(path string) (fixtures, error) {
	slog.Info("reading fixtures file", slog.String("path", path))

	f, err := os.Open(path)
	if err != nil {
		return fixtures{}, errors.Wrap(err, "open file")
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return fixtures{}, errors.Wrap(err, "open gzip stream")
		}
		defer gz.Close()
		r = gz
	}

	var fx fixtures
	if err := json.NewDecoder(r).Decode(&fx); err != nil {
		return fixtures{}, errors.Wrap(err, "parse fixtures JSON")
	}
	return fx, nil
}

func seedCustomers(ctx context.Context, pool *pgxpool.Pool, customers []customerJSON) error {
	slog.Info("upserting customers", slog.Int("count", len(customers)))

	for _, c := range customers {
		if c.Email == "" {
			return errors.Errorf("customer %q has no email", c.Name)
		}
		if _, err := pool.Exec(ctx, upsertCustomerSQL, c.Name, c.Email); err != nil {
			return errors.Wrapf(err, "upsert customer %s", c.Email)
		}
	}
	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, products []productJSON) error {
	slog.Info("upserting products", slog.Int("count", len(products)))

	seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	inserted := 0
	for _, p := range products {
		if p.Sku == "" {
			return errors.Errorf("product %q has no sku", p.Name)
		}
		if seen.TestOrAddString(p.Sku) {
			slog.Warn("skipping duplicate sku", slog.String("sku", p.Sku))
			continue
		}

		id := ulid.Make().String()
		if _, err := pool.Exec(ctx, upsertProductSQL, id, p.Name, p.Sku, p.Price); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.Sku)
		}
		inserted++
	}

	slog.Info("products upserted", slog.Int("count", inserted))
	return nil
}

func seedInventory(ctx context.Context, pool *pgxpool.Pool, items []inventoryJSON) error {
	slog.Info("seeding inventory", slog.Int("count", len(items)))

	for _, it := range items {
		var productID string
		if err := pool.QueryRow(ctx, productIDBySkuSQL, it.Sku).Scan(&productID); err != nil {
			return errors.Wrapf(err, "resolve product %s", it.Sku)
		}

		id := ulid.Make().String()
		if _, err := pool.Exec(ctx, insertInventorySQL, id, productID, it.WarehouseID, it.OnHand); err != nil {
			return errors.Wrapf(err, "seed inventory for %s", it.Sku)
		}
	}
	return nil
}
