package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/PrathyushaPonnala/sales-prediction/pkg/errors"
)

// Every statement is idempotent so the seeder can run against a fresh
// database or a populated one.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS sales_history (
		id UUID PRIMARY KEY,
		product_code TEXT NOT NULL,
		ds DATE NOT NULL,
		y DOUBLE PRECISION NOT NULL,
		UNIQUE (product_code, ds)
	)`,
	`CREATE TABLE IF NOT EXISTS sales_forecasts (
		id UUID PRIMARY KEY,
		product_code TEXT NOT NULL,
		forecast_date DATE NOT NULL,
		predicted_sales DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_forecasts_product_date
		ON sales_forecasts (product_code, forecast_date)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_forecasts_product_created
		ON sales_forecasts (product_code, created_at)`,
	`CREATE TABLE IF NOT EXISTS model_metrics (
		id UUID PRIMARY KEY,
		model_version TEXT NOT NULL,
		wmape DOUBLE PRECISION NOT NULL,
		accuracy DOUBLE PRECISION NOT NULL,
		rmse DOUBLE PRECISION NOT NULL,
		training_run_date TIMESTAMPTZ NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	)`,
}

// Migrate creates the forecasting tables if they do not exist
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to apply schema statement")
		}
	}
	return nil
}
