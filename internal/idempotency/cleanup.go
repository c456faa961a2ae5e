package idempotency

import (
	"context"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// CleanupWorker periodically deletes expired idempotency records so the
// table does not grow without bound.
type CleanupWorker struct {
	store    Store
	interval time.Duration
	batch    int
}

// NewCleanupWorker creates a worker that sweeps every interval, deleting at
// most batch records per sweep.
func NewCleanupWorker(store Store, interval time.Duration, batch int) *CleanupWorker {
	return &CleanupWorker{
		store:    store,
		interval: interval,
		batch:    batch,
	}
}

// Run sweeps until ctx is cancelled. It always returns nil so it can live in
// an errgroup without tearing the application down.
func (w *CleanupWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			deleted, err := w.store.DeleteExpired(ctx, now.UTC(), w.batch)
			if err != nil {
				zctx.From(ctx).Warn("Idempotency cleanup failed", zap.Error(err))
				continue
			}
			if deleted > 0 {
				zctx.From(ctx).Debug("Idempotency records expired", zap.Int("deleted", deleted))
			}
		}
	}
}
