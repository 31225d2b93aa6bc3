package forecast

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/PrathyushaPonnala/sales-prediction/internal/domain/sales"
	"github.com/PrathyushaPonnala/sales-prediction/internal/metrics"
	"github.com/PrathyushaPonnala/sales-prediction/internal/ml"
	"github.com/PrathyushaPonnala/sales-prediction/internal/ml/trend"
	"github.com/PrathyushaPonnala/sales-prediction/pkg/errors"
	"github.com/PrathyushaPonnala/sales-prediction/pkg/logger"
)

// Horizon is how many weekly periods are projected past the end of history
const Horizon = 104

// ForecastWriter is the slice of the sales repository the engine needs
type ForecastWriter interface {
	ReplaceForecast(ctx context.Context, productCode string, rows []sales.Forecast) error
}

// Saver accepts fitted models for background persistence. Enqueue must not
// block the request path; it reports whether the task was accepted.
type Saver interface {
	Enqueue(productID string, m *trend.Model) bool
}

// Engine runs the hybrid forecast for one product: per-product trend
// baseline in log space, global boosted correction over calendar features,
// inverse transform, and wholesale replacement of the persisted forecast.
type Engine struct {
	cache   *ModelCache
	booster ml.Predictor
	encoder *ml.ProductEncoder
	writer  ForecastWriter
	saver   Saver
	locks   Locker
	log     *logger.Logger
}

// NewEngine creates a forecast engine
func NewEngine(
	cache *ModelCache,
	booster ml.Predictor,
	encoder *ml.ProductEncoder,
	writer ForecastWriter,
	saver Saver,
	locks Locker,
	log *logger.Logger,
) *Engine {
	return &Engine{
		cache:   cache,
		booster: booster,
		encoder: encoder,
		writer:  writer,
		saver:   saver,
		locks:   locks,
		log:     log.With("component", "forecast_engine"),
	}
}

// Forecast refreshes the forecast set for one product and returns the new
// rows. Empty history is a not-found condition and no model work happens.
// Every other failure wraps into a single forecast error for the product.
func (e *Engine) Forecast(ctx context.Context, productID string, history []sales.Record) ([]sales.Forecast, error) {
	if len(history) == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "no sales history for product %s", productID)
	}

	release, err := e.locks.Acquire(ctx, productID)
	if err != nil {
		return nil, errors.NewForecastError(productID, err)
	}
	defer release()

	rows, err := e.run(ctx, productID, history)
	if err != nil {
		return nil, errors.NewForecastError(productID, err)
	}
	return rows, nil
}

func (e *Engine) run(ctx context.Context, productID string, history []sales.Record) ([]sales.Forecast, error) {
	start := time.Now()

	// The trend model fits log-transformed quantities
	points := make([]trend.Point, len(history))
	for i, r := range history {
		points[i] = trend.Point{Date: r.Date, Value: math.Log1p(r.Quantity)}
	}

	model, fromStore, err := e.cache.GetOrCreate(ctx, productID, points)
	if err != nil {
		return nil, err
	}
	metrics.RecordModelCacheLookup(fromStore)

	frame, err := model.Forecast(Horizon)
	if err != nil {
		return nil, err
	}

	features := BuildFeatures(frame, productID, e.encoder)
	preds, err := e.booster.Predict(features)
	if err != nil {
		return nil, err
	}
	if len(preds) != len(frame) {
		return nil, errors.Newf("correction model returned %d predictions for %d rows", len(preds), len(frame))
	}

	// Keep only dates strictly after the observed history, invert the log
	// transform, and floor at zero: negative sales are not meaningful
	lastDate := sales.LastDate(history)
	now := time.Now().UTC()
	rows := make([]sales.Forecast, 0, Horizon)
	for i, p := range frame {
		if !p.Date.After(lastDate) {
			continue
		}
		value := math.Expm1(preds[i])
		if value < 0 {
			value = 0
		}
		rows = append(rows, sales.Forecast{
			ID:             uuid.New(),
			ProductCode:    productID,
			Date:           p.Date,
			PredictedSales: value,
			CreatedAt:      now,
		})
	}

	// Model persistence rides a background queue; the request does not wait
	e.saver.Enqueue(productID, model)

	if err := e.writer.ReplaceForecast(ctx, productID, rows); err != nil {
		return nil, err
	}

	e.log.Infow("Forecast refreshed",
		"product", productID,
		"history_points", len(history),
		"forecast_rows", len(rows),
		"from_stored_model", fromStore,
		"duration", time.Since(start),
	)
	return rows, nil
}
