package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PrathyushaPonnala/sales-prediction/internal/domain/sales"
	"github.com/PrathyushaPonnala/sales-prediction/internal/repository/postgres"
	"github.com/PrathyushaPonnala/sales-prediction/internal/testsupport"
)

func weeklyRecords(productCode string, start time.Time, quantities []float64) []sales.Record {
	records := make([]sales.Record, 0, len(quantities))
	for i, q := range quantities {
		records = append(records, sales.Record{
			ID:          uuid.New(),
			ProductCode: productCode,
			Date:        start.AddDate(0, 0, 7*i),
			Quantity:    q,
		})
	}
	return records
}

func weeklyForecasts(productCode string, start time.Time, count int, createdAt time.Time) []sales.Forecast {
	rows := make([]sales.Forecast, 0, count)
	for i := 0; i < count; i++ {
		rows = append(rows, sales.Forecast{
			ID:             uuid.New(),
			ProductCode:    productCode,
			Date:           start.AddDate(0, 0, 7*i),
			PredictedSales: float64(100 + i),
			CreatedAt:      createdAt,
		})
	}
	return rows
}

func TestSalesRepository_InsertAndGetHistory(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	defer testDB.Close()

	repo := postgres.NewSalesRepository(testDB.Tx())
	ctx := context.Background()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	records := weeklyRecords("apple", start, []float64{10, 12, 9, 15})

	inserted, err := repo.InsertHistory(ctx, records)
	require.NoError(t, err)
	assert.EqualValues(t, 4, inserted)

	history, err := repo.GetHistory(ctx, "apple")
	require.NoError(t, err)
	require.Len(t, history, 4)

	// Ordered by date ascending
	for i := 1; i < len(history); i++ {
		assert.True(t, history[i].Date.After(history[i-1].Date))
	}
	assert.Equal(t, "apple", history[0].ProductCode)
	assert.Equal(t, 10.0, history[0].Quantity)
}

func TestSalesRepository_InsertHistory_SkipsDuplicates(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	defer testDB.Close()

	repo := postgres.NewSalesRepository(testDB.Tx())
	ctx := context.Background()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	records := weeklyRecords("banana", start, []float64{5, 6, 7})

	inserted, err := repo.InsertHistory(ctx, records)
	require.NoError(t, err)
	assert.EqualValues(t, 3, inserted)

	// Same (product_code, ds) pairs with fresh IDs are skipped
	again := weeklyRecords("banana", start, []float64{5, 6, 7})
	inserted, err = repo.InsertHistory(ctx, again)
	require.NoError(t, err)
	assert.EqualValues(t, 0, inserted)

	history, err := repo.GetHistory(ctx, "banana")
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestSalesRepository_GetHistory_UnknownProduct(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	defer testDB.Close()

	repo := postgres.NewSalesRepository(testDB.Tx())

	history, err := repo.GetHistory(context.Background(), "no-such-product")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSalesRepository_ReplaceForecast(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	defer testDB.Close()

	repo := postgres.NewSalesRepository(testDB.Tx())
	ctx := context.Background()

	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()

	require.NoError(t, repo.ReplaceForecast(ctx, "apple", weeklyForecasts("apple", start, 3, now)))
	require.NoError(t, repo.ReplaceForecast(ctx, "banana", weeklyForecasts("banana", start, 2, now)))

	// Replacing apple leaves banana untouched
	replacement := weeklyForecasts("apple", start.AddDate(0, 0, 7), 5, now)
	require.NoError(t, repo.ReplaceForecast(ctx, "apple", replacement))

	appleRows, err := repo.GetForecast(ctx, "apple")
	require.NoError(t, err)
	require.Len(t, appleRows, 5)
	assert.Equal(t, replacement[0].Date.Format("2006-01-02"), appleRows[0].Date.Format("2006-01-02"))

	bananaRows, err := repo.GetForecast(ctx, "banana")
	require.NoError(t, err)
	assert.Len(t, bananaRows, 2)
}

func TestSalesRepository_ReplaceForecast_Idempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	defer testDB.Close()

	repo := postgres.NewSalesRepository(testDB.Tx())
	ctx := context.Background()

	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	rows := weeklyForecasts("cherry", start, 4, time.Now().UTC())

	require.NoError(t, repo.ReplaceForecast(ctx, "cherry", rows))
	require.NoError(t, repo.ReplaceForecast(ctx, "cherry", rows))

	stored, err := repo.GetForecast(ctx, "cherry")
	require.NoError(t, err)
	assert.Len(t, stored, 4, "repeated replace should not accumulate rows")
}

func TestSalesRepository_GetForecast_Ordering(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	defer testDB.Close()

	repo := postgres.NewSalesRepository(testDB.Tx())
	ctx := context.Background()

	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	rows := weeklyForecasts("apple", start, 6, time.Now().UTC())

	// Insert out of order
	shuffled := []sales.Forecast{rows[3], rows[0], rows[5], rows[1], rows[4], rows[2]}
	require.NoError(t, repo.ReplaceForecast(ctx, "apple", shuffled))

	stored, err := repo.GetForecast(ctx, "apple")
	require.NoError(t, err)
	require.Len(t, stored, 6)

	for i := 1; i < len(stored); i++ {
		assert.True(t, stored[i].Date.After(stored[i-1].Date), "rows should come back in date order")
	}
}

func TestSalesRepository_ReplaceAllForecasts(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	defer testDB.Close()

	repo := postgres.NewSalesRepository(testDB.Tx())
	ctx := context.Background()

	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()

	require.NoError(t, repo.ReplaceForecast(ctx, "apple", weeklyForecasts("apple", start, 3, now)))

	restore := append(
		weeklyForecasts("banana", start, 2, now),
		weeklyForecasts("cherry", start, 2, now)...,
	)
	require.NoError(t, repo.ReplaceAllForecasts(ctx, restore))

	appleRows, err := repo.GetForecast(ctx, "apple")
	require.NoError(t, err)
	assert.Empty(t, appleRows, "restore should clear previous forecasts")

	bananaRows, err := repo.GetForecast(ctx, "banana")
	require.NoError(t, err)
	assert.Len(t, bananaRows, 2)
}

func TestSalesRepository_GetStaleProducts(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	defer testDB.Close()

	repo := postgres.NewSalesRepository(testDB.Tx())
	ctx := context.Background()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()

	// apple: history, no forecast at all
	_, err := repo.InsertHistory(ctx, weeklyRecords("apple", start, []float64{1, 2}))
	require.NoError(t, err)

	// banana: history with a fresh forecast
	_, err = repo.InsertHistory(ctx, weeklyRecords("banana", start, []float64{3, 4}))
	require.NoError(t, err)
	require.NoError(t, repo.ReplaceForecast(ctx, "banana", weeklyForecasts("banana", start, 2, now)))

	// cherry: history with a forecast from two weeks ago
	_, err = repo.InsertHistory(ctx, weeklyRecords("cherry", start, []float64{5, 6}))
	require.NoError(t, err)
	old := now.AddDate(0, 0, -14)
	require.NoError(t, repo.ReplaceForecast(ctx, "cherry", weeklyForecasts("cherry", start, 2, old)))

	cutoff := now.AddDate(0, 0, -7)
	stale, err := repo.GetStaleProducts(ctx, cutoff, 10)
	require.NoError(t, err)

	assert.Contains(t, stale, "apple", "product without forecast is stale")
	assert.Contains(t, stale, "cherry", "product with old forecast is stale")
	assert.NotContains(t, stale, "banana", "fresh forecast is not stale")

	// Never-forecast products come before merely old ones
	require.Len(t, stale, 2)
	assert.Equal(t, "apple", stale[0])

	// Limit applies
	stale, err = repo.GetStaleProducts(ctx, cutoff, 1)
	require.NoError(t, err)
	assert.Len(t, stale, 1)
}
