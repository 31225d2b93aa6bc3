package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/PrathyushaPonnala/sales-prediction/internal/domain/sales"
	"github.com/PrathyushaPonnala/sales-prediction/pkg/errors"
)

// Compile-time check
var _ sales.Repository = (*SalesRepository)(nil)

// insertBatchSize keeps bulk inserts well under the Postgres parameter limit.
const insertBatchSize = 1000

// txBeginner is satisfied by *sqlx.DB but not by *sqlx.Tx.
type txBeginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// SalesRepository implements sales.Repository using sqlx
type SalesRepository struct {
	db DBTX
}

// NewSalesRepository creates a new sales repository
func NewSalesRepository(db DBTX) *SalesRepository {
	return &SalesRepository{db: db}
}

// GetHistory retrieves the full sales history for a product ordered by date
func (r *SalesRepository) GetHistory(ctx context.Context, productCode string) ([]sales.Record, error) {
	var records []sales.Record

	query := `
		SELECT id, product_code, ds, y
		FROM sales_history
		WHERE product_code = $1
		ORDER BY ds ASC`

	err := r.db.SelectContext(ctx, &records, query, productCode)
	if err != nil {
		return nil, err
	}

	return records, nil
}

// InsertHistory bulk-inserts sales records, skipping rows that already exist
// for the same (product_code, ds). Returns the number of rows inserted.
func (r *SalesRepository) InsertHistory(ctx context.Context, records []sales.Record) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO sales_history (id, product_code, ds, y)
		VALUES (:id, :product_code, :ds, :y)
		ON CONFLICT (product_code, ds) DO NOTHING`

	var inserted int64
	for start := 0; start < len(records); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(records) {
			end = len(records)
		}

		result, err := r.db.NamedExecContext(ctx, query, records[start:end])
		if err != nil {
			return inserted, errors.Wrapf(err, "failed to insert history batch at offset %d", start)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return inserted, errors.Wrap(err, "failed to get rows affected")
		}
		inserted += rows
	}

	return inserted, nil
}

// GetForecast retrieves the stored forecast for a product ordered by date
func (r *SalesRepository) GetForecast(ctx context.Context, productCode string) ([]sales.Forecast, error) {
	var rows []sales.Forecast

	query := `
		SELECT id, product_code, forecast_date, predicted_sales, created_at
		FROM sales_forecasts
		WHERE product_code = $1
		ORDER BY forecast_date ASC`

	err := r.db.SelectContext(ctx, &rows, query, productCode)
	if err != nil {
		return nil, err
	}

	return rows, nil
}

// ReplaceForecast swaps the stored forecast for a product in one transaction
// so readers never observe a partially written forecast. When the repository
// is constructed over an existing transaction the caller's boundaries apply.
func (r *SalesRepository) ReplaceForecast(ctx context.Context, productCode string, rows []sales.Forecast) error {
	if db, ok := r.db.(txBeginner); ok {
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return errors.Wrap(err, "failed to begin transaction")
		}
		defer tx.Rollback()

		if err := replaceForecast(ctx, tx, productCode, rows); err != nil {
			return err
		}
		return tx.Commit()
	}

	return replaceForecast(ctx, r.db, productCode, rows)
}

func replaceForecast(ctx context.Context, db DBTX, productCode string, rows []sales.Forecast) error {
	query := `DELETE FROM sales_forecasts WHERE product_code = $1`
	if _, err := db.ExecContext(ctx, query, productCode); err != nil {
		return errors.Wrapf(err, "failed to delete forecasts for %s", productCode)
	}

	return insertForecasts(ctx, db, rows)
}

// ReplaceAllForecasts clears the forecast table and loads the given rows.
// Used when restoring a forecast backup.
func (r *SalesRepository) ReplaceAllForecasts(ctx context.Context, rows []sales.Forecast) error {
	if db, ok := r.db.(txBeginner); ok {
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return errors.Wrap(err, "failed to begin transaction")
		}
		defer tx.Rollback()

		if err := replaceAllForecasts(ctx, tx, rows); err != nil {
			return err
		}
		return tx.Commit()
	}

	return replaceAllForecasts(ctx, r.db, rows)
}

func replaceAllForecasts(ctx context.Context, db DBTX, rows []sales.Forecast) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM sales_forecasts`); err != nil {
		return errors.Wrap(err, "failed to clear forecasts")
	}

	return insertForecasts(ctx, db, rows)
}

func insertForecasts(ctx context.Context, db DBTX, rows []sales.Forecast) error {
	if len(rows) == 0 {
		return nil
	}

	query := `
		INSERT INTO sales_forecasts (id, product_code, forecast_date, predicted_sales, created_at)
		VALUES (:id, :product_code, :forecast_date, :predicted_sales, :created_at)`

	for start := 0; start < len(rows); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}

		if _, err := db.NamedExecContext(ctx, query, rows[start:end]); err != nil {
			return errors.Wrapf(err, "failed to insert forecast batch at offset %d", start)
		}
	}

	return nil
}

// GetStaleProducts returns product codes whose newest stored forecast is
// older than cutoff, including products with history but no forecast at all.
// Products with the oldest forecasts come first.
func (r *SalesRepository) GetStaleProducts(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	var products []string

	query := `
		SELECT p.product_code
		FROM (SELECT DISTINCT product_code FROM sales_history) p
		LEFT JOIN (
			SELECT product_code, MAX(created_at) AS last_forecast_at
			FROM sales_forecasts
			GROUP BY product_code
		) f ON f.product_code = p.product_code
		WHERE f.last_forecast_at IS NULL OR f.last_forecast_at < $1
		ORDER BY f.last_forecast_at ASC NULLS FIRST
		LIMIT $2`

	err := r.db.SelectContext(ctx, &products, query, cutoff, limit)
	if err != nil {
		return nil, err
	}

	return products, nil
}
