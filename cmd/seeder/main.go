// Seeder loads the historical sales dataset into Postgres: the wide
// per-product CSV is melted into long history rows, an optional forecast
// backup produced by the training pipeline is restored, and an initial
// model metric row is recorded so the metrics endpoint has data to serve.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/PrathyushaPonnala/sales-prediction/internal/adapters/config"
	pgclient "github.com/PrathyushaPonnala/sales-prediction/internal/adapters/postgres"
	"github.com/PrathyushaPonnala/sales-prediction/internal/domain/model"
	"github.com/PrathyushaPonnala/sales-prediction/internal/domain/sales"
	pgrepo "github.com/PrathyushaPonnala/sales-prediction/internal/repository/postgres"
	"github.com/PrathyushaPonnala/sales-prediction/pkg/errors"
	"github.com/PrathyushaPonnala/sales-prediction/pkg/logger"
)

// dateLayouts are tried in order when parsing CSV date columns
var dateLayouts = []string{"2006-01-02", "2006/01/02", "01/02/2006", "2006-01-02 15:04:05"}

func main() {
	historyPath := flag.String("history", "./ml_bin/sales_data_final.csv", "Wide CSV of per-product weekly sales")
	forecastPath := flag.String("forecasts", "./ml_bin/final_forecast_backup.csv", "Forecast backup CSV from the training pipeline (optional)")
	skipMetric := flag.Bool("skip-metric", false, "Do not insert the initial model metric row")
	dryRun := flag.Bool("dry-run", false, "Parse inputs and report row counts without writing")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}

	log := logger.Get()

	log.Infow("Starting seeder",
		"history", *historyPath,
		"forecasts", *forecastPath,
		"dry_run", *dryRun,
		"database", cfg.Postgres.Database,
	)

	records, err := loadHistoryCSV(*historyPath)
	if err != nil {
		log.Fatalf("Failed to load history dataset: %v", err)
	}
	log.Infow("History dataset parsed", "rows", humanize.Comma(int64(len(records))))

	forecasts, err := loadForecastCSV(*forecastPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warnw("No forecast backup found, skipping", "path", *forecastPath)
		} else {
			log.Fatalf("Failed to load forecast backup: %v", err)
		}
	} else {
		log.Infow("Forecast backup parsed", "rows", humanize.Comma(int64(len(forecasts))))
	}

	if *dryRun {
		log.Info("✅ Dry-run mode: inputs validated, nothing written")
		return
	}

	client, err := pgclient.NewClient(cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer client.Close()

	ctx := context.Background()

	if err := pgrepo.Migrate(ctx, client.DB()); err != nil {
		log.Fatalf("Failed to migrate schema: %v", err)
	}
	log.Info("✓ Schema up to date")

	salesRepo := pgrepo.NewSalesRepository(client.DB())
	metricRepo := pgrepo.NewModelMetricRepository(client.DB())

	inserted, err := salesRepo.InsertHistory(ctx, records)
	if err != nil {
		log.Fatalf("Failed to insert history: %v", err)
	}
	log.Infow("✅ History seeded",
		"inserted", humanize.Comma(inserted),
		"skipped_duplicates", humanize.Comma(int64(len(records))-inserted),
	)

	if len(forecasts) > 0 {
		if err := salesRepo.ReplaceAllForecasts(ctx, forecasts); err != nil {
			log.Fatalf("Failed to restore forecasts: %v", err)
		}
		log.Infow("✅ Forecast backup restored", "rows", humanize.Comma(int64(len(forecasts))))
	}

	if !*skipMetric {
		if err := metricRepo.Insert(ctx, initialMetric()); err != nil {
			log.Fatalf("Failed to insert initial metric: %v", err)
		}
		log.Info("✅ Initial model metric recorded")
	}

	log.Info("✅ Seeding complete")
}

// loadHistoryCSV melts the wide dataset (one row per product, one column
// per week) into long history records.
func loadHistoryCSV(path string) ([]sales.Record, error) {
	header, rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if len(header) < 2 {
		return nil, errors.Newf("history CSV %s needs a product column and at least one date column", path)
	}

	// Every column after the product code is a dated observation
	dates := make([]time.Time, len(header))
	for i := 1; i < len(header); i++ {
		d, err := parseDate(header[i])
		if err != nil {
			return nil, errors.Wrapf(err, "history CSV %s column %d", path, i)
		}
		dates[i] = d
	}

	records := make([]sales.Record, 0, len(rows)*(len(header)-1))
	for _, row := range rows {
		if len(row) != len(header) {
			return nil, errors.Newf("history CSV %s has a row with %d fields, expected %d", path, len(row), len(header))
		}
		productCode := strings.TrimSpace(row[0])
		for i := 1; i < len(row); i++ {
			y, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
			if err != nil {
				return nil, errors.Wrapf(err, "history CSV %s product %s column %d", path, productCode, i)
			}
			records = append(records, sales.Record{
				ID:          uuid.New(),
				ProductCode: productCode,
				Date:        dates[i],
				Quantity:    y,
			})
		}
	}
	return records, nil
}

// loadForecastCSV reads the long-format forecast backup
// (product_code, forecast_date, predicted_sales).
func loadForecastCSV(path string) ([]sales.Forecast, error) {
	header, rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"product_code", "forecast_date", "predicted_sales"} {
		if _, ok := cols[required]; !ok {
			return nil, errors.Newf("forecast CSV %s missing column %s", path, required)
		}
	}

	now := time.Now().UTC()
	forecasts := make([]sales.Forecast, 0, len(rows))
	for n, row := range rows {
		date, err := parseDate(row[cols["forecast_date"]])
		if err != nil {
			return nil, errors.Wrapf(err, "forecast CSV %s row %d", path, n+1)
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(row[cols["predicted_sales"]]), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "forecast CSV %s row %d", path, n+1)
		}
		forecasts = append(forecasts, sales.Forecast{
			ID:             uuid.New(),
			ProductCode:    strings.TrimSpace(row[cols["product_code"]]),
			Date:           date,
			PredictedSales: value,
			CreatedAt:      now,
		})
	}
	return forecasts, nil
}

func readCSV(path string) (header []string, rows [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	all, err := reader.ReadAll()
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	if len(all) == 0 {
		return nil, nil, errors.Newf("%s is empty", path)
	}
	return all[0], all[1:], nil
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, value); err == nil {
			return d.UTC(), nil
		}
	}
	return time.Time{}, errors.Newf("unrecognized date %q", value)
}

// initialMetric is the placeholder quality row from the initial offline
// training run, matching the historical dataset's evaluation.
func initialMetric() *model.Metric {
	return &model.Metric{
		ID:              uuid.New(),
		ModelVersion:    "v1-initial-seed",
		WMAPE:           0.185,
		Accuracy:        0.815,
		RMSE:            124.5,
		TrainingRunDate: time.Now().UTC(),
		Description:     "Initial seed run",
	}
}
