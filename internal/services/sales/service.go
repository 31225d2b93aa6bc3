package sales

import (
	"context"
	"time"

	"github.com/PrathyushaPonnala/sales-prediction/internal/domain/model"
	"github.com/PrathyushaPonnala/sales-prediction/internal/domain/sales"
	"github.com/PrathyushaPonnala/sales-prediction/internal/metrics"
	"github.com/PrathyushaPonnala/sales-prediction/pkg/errors"
	"github.com/PrathyushaPonnala/sales-prediction/pkg/logger"
)

// placeholderVersion is reported when no training run has been recorded yet
const placeholderVersion = "None"

// ForecastEngine computes and stores a fresh forecast from sales history
type ForecastEngine interface {
	Forecast(ctx context.Context, productID string, history []sales.Record) ([]sales.Forecast, error)
}

// Service handles sales history and forecast business logic
type Service struct {
	salesRepo  sales.Repository
	metricRepo model.MetricRepository
	engine     ForecastEngine
	log        *logger.Logger
}

// NewService creates a new sales service
func NewService(
	salesRepo sales.Repository,
	metricRepo model.MetricRepository,
	engine ForecastEngine,
	log *logger.Logger,
) *Service {
	return &Service{
		salesRepo:  salesRepo,
		metricRepo: metricRepo,
		engine:     engine,
		log:        log,
	}
}

// History returns the recorded sales history for a product ordered by date
func (s *Service) History(ctx context.Context, productCode string) ([]sales.Record, error) {
	records, err := s.salesRepo.GetHistory(ctx, productCode)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get sales history")
	}

	if len(records) == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "no sales history found for product %s", productCode)
	}

	return records, nil
}

// Forecast returns the stored forecast for a product ordered by date
func (s *Service) Forecast(ctx context.Context, productCode string) ([]sales.Forecast, error) {
	rows, err := s.salesRepo.GetForecast(ctx, productCode)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get forecast")
	}

	if len(rows) == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "no forecast found for product %s", productCode)
	}

	return rows, nil
}

// LiveForecast recomputes the forecast for a product, stores it, and returns
// the fresh rows. The fitted trend model is persisted in the background.
func (s *Service) LiveForecast(ctx context.Context, productCode string) ([]sales.Forecast, error) {
	return s.runForecast(ctx, productCode, "live")
}

// RefreshForecast recomputes the forecast for a product. Used by the
// background refresher, which has no use for the returned rows.
func (s *Service) RefreshForecast(ctx context.Context, productCode string) error {
	_, err := s.runForecast(ctx, productCode, "refresh")
	return err
}

func (s *Service) runForecast(ctx context.Context, productCode, trigger string) ([]sales.Forecast, error) {
	start := time.Now()

	history, err := s.salesRepo.GetHistory(ctx, productCode)
	if err != nil {
		err = errors.Wrap(err, "failed to get sales history")
		metrics.RecordForecast(trigger, time.Since(start), err)
		return nil, err
	}

	rows, err := s.engine.Forecast(ctx, productCode, history)
	metrics.RecordForecast(trigger, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	s.log.Infow("Forecast updated",
		"product_code", productCode,
		"trigger", trigger,
		"rows", len(rows),
		"duration", time.Since(start),
	)

	return rows, nil
}

// ModelMetrics returns the quality metrics of the most recent training run.
// A placeholder row is returned before the first run so the endpoint always
// renders the same shape.
func (s *Service) ModelMetrics(ctx context.Context) (*model.Metric, error) {
	m, err := s.metricRepo.GetLatest(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get model metrics")
	}

	if m == nil {
		return &model.Metric{
			ModelVersion:    placeholderVersion,
			TrainingRunDate: time.Now().UTC(),
		}, nil
	}

	return m, nil
}
