package postgres

import (
	"context"
	"database/sql"

	"github.com/PrathyushaPonnala/sales-prediction/internal/domain/model"
)

// Compile-time check
var _ model.MetricRepository = (*ModelMetricRepository)(nil)

// ModelMetricRepository implements model.MetricRepository using sqlx
type ModelMetricRepository struct {
	db DBTX
}

// NewModelMetricRepository creates a new model metric repository
func NewModelMetricRepository(db DBTX) *ModelMetricRepository {
	return &ModelMetricRepository{db: db}
}

// GetLatest returns the metrics of the most recent training run,
// or nil when no run has been recorded yet.
func (r *ModelMetricRepository) GetLatest(ctx context.Context) (*model.Metric, error) {
	var m model.Metric

	query := `
		SELECT id, model_version, wmape, accuracy, rmse, training_run_date, description
		FROM model_metrics
		ORDER BY training_run_date DESC
		LIMIT 1`

	err := r.db.GetContext(ctx, &m, query)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &m, nil
}

// Insert stores the metrics of one training run
func (r *ModelMetricRepository) Insert(ctx context.Context, m *model.Metric) error {
	query := `
		INSERT INTO model_metrics (id, model_version, wmape, accuracy, rmse, training_run_date, description)
		VALUES (:id, :model_version, :wmape, :accuracy, :rmse, :training_run_date, :description)`

	_, err := r.db.NamedExecContext(ctx, query, m)
	return err
}
