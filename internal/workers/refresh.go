package workers

import (
	"context"
	"time"

	"github.com/PrathyushaPonnala/sales-prediction/pkg/errors"
	"github.com/PrathyushaPonnala/sales-prediction/pkg/logger"
)

// Forecaster recomputes and stores the forecast for one product.
type Forecaster interface {
	RefreshForecast(ctx context.Context, productCode string) error
}

// StaleProductSource lists products whose stored forecasts are older than a cutoff.
type StaleProductSource interface {
	GetStaleProducts(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
}

// ForecastRefreshWorker periodically re-forecasts products whose stored
// forecasts have aged past the configured maximum. Each iteration handles
// one batch so a large catalog is spread across runs.
type ForecastRefreshWorker struct {
	*BaseWorker
	source    StaleProductSource
	forecasts Forecaster
	maxAge    time.Duration
	batchSize int
	log       *logger.Logger
}

// NewForecastRefreshWorker creates a new forecast refresh worker.
func NewForecastRefreshWorker(
	source StaleProductSource,
	forecasts Forecaster,
	interval time.Duration,
	maxAge time.Duration,
	batchSize int,
	enabled bool,
) *ForecastRefreshWorker {
	if batchSize <= 0 {
		batchSize = 25
	}

	return &ForecastRefreshWorker{
		BaseWorker: NewBaseWorker("forecast_refresh", interval, enabled),
		source:     source,
		forecasts:  forecasts,
		maxAge:     maxAge,
		batchSize:  batchSize,
		log:        logger.Get().With("worker", "forecast_refresh"),
	}
}

// Run refreshes one batch of stale products.
func (w *ForecastRefreshWorker) Run(ctx context.Context) error {
	start := time.Now()
	w.log.Debug("ForecastRefresh: starting iteration")

	cutoff := time.Now().Add(-w.maxAge)
	products, err := w.source.GetStaleProducts(ctx, cutoff, w.batchSize)
	if err != nil {
		w.RecordError(err, time.Since(start))
		return errors.Wrap(err, "failed to list stale products")
	}

	if len(products) == 0 {
		w.log.Debug("ForecastRefresh: no stale products")
		w.RecordRun(time.Since(start))
		return nil
	}

	w.log.Infow("ForecastRefresh: refreshing stale products",
		"count", len(products),
		"cutoff", cutoff,
	)

	successCount := 0
	failCount := 0

	for _, productCode := range products {
		// Check for context cancellation (graceful shutdown)
		select {
		case <-ctx.Done():
			w.log.Infow("ForecastRefresh interrupted by shutdown",
				"processed", successCount+failCount,
				"remaining", len(products)-successCount-failCount,
			)
			return ctx.Err()
		default:
		}

		if err := w.forecasts.RefreshForecast(ctx, productCode); err != nil {
			w.log.Errorw("Failed to refresh forecast",
				"product_code", productCode,
				"error", err,
			)
			failCount++
		} else {
			successCount++
		}
	}

	w.log.Infow("ForecastRefresh: iteration complete",
		"success", successCount,
		"failed", failCount,
		"duration", time.Since(start),
	)

	w.RecordRun(time.Since(start))
	return nil
}
