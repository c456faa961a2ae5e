// Package app wires the application together: config, storage, domain
// services, HTTP server, and background workers.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/avetra/ordersvc/internal/domain/inventory"
	"github.com/avetra/ordersvc/internal/domain/order"
	"github.com/avetra/ordersvc/internal/handler"
	"github.com/avetra/ordersvc/internal/idempotency"
	"github.com/avetra/ordersvc/internal/outbox"
	"github.com/avetra/ordersvc/internal/storage/postgres"
	"github.com/avetra/ordersvc/pkg/health"
	"github.com/avetra/ordersvc/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server and background
// workers, and handles graceful shutdown. It is the single wiring point for
// the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.DatabasePingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories bound to the pool; transactional writes go through the
	// unit of work, which binds the same implementations to a transaction.
	productRepo := postgres.NewProductRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	orderReadRepo := postgres.NewOrderReadRepository(pool)
	inventoryRepo := postgres.NewInventoryRepository(pool)
	outboxRepo := postgres.NewOutboxRepository(pool)
	idemStore := postgres.NewIdempotencyStore(pool)
	uow := postgres.NewUnitOfWork(pool)

	// Domain services.
	orderService := order.NewService(
		orderRepo,
		orderReadRepo,
		inventoryRepo,
		postgres.NewCustomerSpec(pool),
		postgres.NewProductSpec(pool),
		uow,
	)
	inventoryService := inventory.NewService(productRepo, inventoryRepo, uow)

	// HTTP routes.
	h := handler.NewHandler(orderService, inventoryService, productRepo)
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", httpmiddleware.HeaderIdempotencyKey},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("orders-api", m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(),
			httpmiddleware.Idempotency(idemStore, cfg.Idempotency.Timeout),
		),
	}

	// Background workers.
	wg, wgCtx := errgroup.WithContext(ctx)

	cleanup := idempotency.NewCleanupWorker(idemStore, cfg.Idempotency.CleanupInterval, cfg.Idempotency.CleanupBatch)
	wg.Go(func() error {
		return cleanup.Run(wgCtx)
	})

	if len(cfg.Outbox.Brokers) > 0 {
		publisher, err := outbox.NewKafkaPublisher(cfg.Outbox.Brokers, cfg.Outbox.Topic)
		if err != nil {
			return errors.Wrap(err, "create kafka publisher")
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				lg.Error("Kafka publisher close error", zap.Error(err))
			}
		}()

		relay := outbox.NewRelay(outboxRepo, publisher, cfg.Outbox.Interval, cfg.Outbox.Batch)
		wg.Go(func() error {
			return relay.Run(wgCtx)
		})
		lg.Info("Outbox relay started",
			zap.Strings("brokers", cfg.Outbox.Brokers),
			zap.String("topic", cfg.Outbox.Topic),
		)
	} else {
		lg.Info("Outbox relay disabled: no brokers configured")
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return wg.Wait()
}
