package forecast

import (
	"context"

	"github.com/PrathyushaPonnala/sales-prediction/internal/ml/trend"
	"github.com/PrathyushaPonnala/sales-prediction/pkg/errors"
	"github.com/PrathyushaPonnala/sales-prediction/pkg/logger"
)

// yearlyMinObservations is the history length above which yearly
// seasonality is worth fitting (one full seasonal cycle).
const yearlyMinObservations = 52

// ModelStore is the slice of artifact storage the per-product model flow
// needs.
type ModelStore interface {
	LoadTrendModel(ctx context.Context, productID string) (*trend.Model, error)
	SaveTrendModel(ctx context.Context, m *trend.Model, productID string) error
}

// ModelCache materializes per-product trend models: stored artifacts when
// present, fresh models otherwise. Either way the model is refit against
// the full current history before use, so a stored artifact is provenance,
// not a shortcut past fitting.
type ModelCache struct {
	store ModelStore
	log   *logger.Logger
}

// NewModelCache creates a model cache over artifact storage
func NewModelCache(store ModelStore, log *logger.Logger) *ModelCache {
	return &ModelCache{
		store: store,
		log:   log.With("component", "model_cache"),
	}
}

// GetOrCreate returns a trend model fitted to the given points. The
// seasonality toggle is re-derived from the current history length on
// every call, so products crossing a year of data pick it up on their
// next refresh. The returned flag reports whether a stored artifact was
// found.
func (c *ModelCache) GetOrCreate(ctx context.Context, productID string, points []trend.Point) (*trend.Model, bool, error) {
	yearly := len(points) > yearlyMinObservations

	m, err := c.store.LoadTrendModel(ctx, productID)
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to load trend model for %s", productID)
	}

	fromStore := m != nil
	if m == nil {
		m = trend.New(yearly)
		c.log.Debugw("No stored trend model, fitting fresh", "product", productID)
	} else {
		m.Yearly = yearly
	}

	if err := m.Fit(points); err != nil {
		return nil, fromStore, errors.Wrapf(err, "failed to fit trend model for %s", productID)
	}
	return m, fromStore, nil
}
