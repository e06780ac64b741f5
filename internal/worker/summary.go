package worker

import (
	"context"
	"time"

	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// SummaryWorker periodically recomputes the order aggregate and writes a
// new snapshot row. Dashboard reads always take the newest row, so stale
// snapshots are harmless.
type SummaryWorker struct {
	store    *store.Store
	interval time.Duration
	logger   *zap.Logger
}

// NewSummaryWorker creates a new summary refresher
func NewSummaryWorker(store *store.Store, interval time.Duration) *SummaryWorker {
	return &SummaryWorker{
		store:    store,
		interval: interval,
		logger:   util.GetLogger(),
	}
}

// Start runs the refresher until the context is cancelled. A snapshot is
// written immediately on startup so the dashboard never reads an empty
// table.
func (w *SummaryWorker) Start(ctx context.Context) error {
	w.refresh(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Summary worker stopping")
			return ctx.Err()
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *SummaryWorker) refresh(ctx context.Context) {
	summary, err := w.store.RefreshOrderSummary(ctx)
	if err != nil {
		w.logger.Error("Failed to refresh order summary", zap.Error(err))
		return
	}

	util.SummaryRefreshTotal.Inc()
	w.logger.Info("Order summary refreshed",
		zap.Int64("total_orders", summary.TotalOrders),
		zap.Int64("total_products", summary.TotalProductsInOrders),
		zap.Int64("total_amount", summary.TotalOrderAmount))
}
