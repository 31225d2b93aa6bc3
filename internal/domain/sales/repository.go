package sales

import (
	"context"
	"time"
)

// Repository defines the interface for sales data access
type Repository interface {
	// GetHistory returns all observations for a product ordered by date ascending
	GetHistory(ctx context.Context, productCode string) ([]Record, error)

	// InsertHistory bulk-inserts observations, skipping duplicates.
	// Returns the number of rows actually inserted.
	InsertHistory(ctx context.Context, records []Record) (int64, error)

	// GetForecast returns the persisted forecast set for a product ordered by date ascending
	GetForecast(ctx context.Context, productCode string) ([]Forecast, error)

	// ReplaceForecast atomically swaps the product's forecast set for the given rows
	ReplaceForecast(ctx context.Context, productCode string, rows []Forecast) error

	// ReplaceAllForecasts swaps every product's forecast set for the given rows
	ReplaceAllForecasts(ctx context.Context, rows []Forecast) error

	// GetStaleProducts returns products with history whose forecast set is
	// absent or was last written before the cutoff, capped at limit
	GetStaleProducts(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
}
