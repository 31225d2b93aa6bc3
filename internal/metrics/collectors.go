package metrics

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/PrathyushaPonnala/sales-prediction/pkg/logger"
)

// DatasetCollector collects dataset and model-quality gauges from Postgres
// at scrape time.
type DatasetCollector struct {
	log      *logger.Logger
	postgres *sqlx.DB

	// Descriptors
	totalProducts *prometheus.Desc
	historyRows   *prometheus.Desc
	forecastRows  *prometheus.Desc
	modelQuality  *prometheus.Desc
}

// NewDatasetCollector creates a new dataset metrics collector
func NewDatasetCollector(log *logger.Logger, postgres *sqlx.DB) *DatasetCollector {
	return &DatasetCollector{
		log:      log,
		postgres: postgres,

		totalProducts: prometheus.NewDesc(
			"sales_prediction_products_total",
			"Number of distinct products with sales history",
			nil, nil,
		),
		historyRows: prometheus.NewDesc(
			"sales_prediction_history_rows_total",
			"Number of sales history observations",
			nil, nil,
		),
		forecastRows: prometheus.NewDesc(
			"sales_prediction_forecast_rows_total",
			"Number of persisted forecast rows",
			nil, nil,
		),
		modelQuality: prometheus.NewDesc(
			"sales_prediction_model_quality",
			"Latest global model quality metrics",
			[]string{"metric"}, // metric: wmape|accuracy|rmse
			nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *DatasetCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalProducts
	ch <- c.historyRows
	ch <- c.forecastRows
	ch <- c.modelQuality
}

// Collect implements prometheus.Collector
func (c *DatasetCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.collectDatasetCounts(ctx, ch)
	c.collectModelQuality(ctx, ch)
}

func (c *DatasetCollector) collectDatasetCounts(ctx context.Context, ch chan<- prometheus.Metric) {
	var products int
	if err := c.postgres.GetContext(ctx, &products, "SELECT COUNT(DISTINCT product_code) FROM sales_history"); err != nil {
		c.log.Error("Failed to collect product count metric", "error", err)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.totalProducts, prometheus.GaugeValue, float64(products))

	var history int
	if err := c.postgres.GetContext(ctx, &history, "SELECT COUNT(*) FROM sales_history"); err != nil {
		c.log.Error("Failed to collect history row count metric", "error", err)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.historyRows, prometheus.GaugeValue, float64(history))

	var forecasts int
	if err := c.postgres.GetContext(ctx, &forecasts, "SELECT COUNT(*) FROM sales_forecasts"); err != nil {
		c.log.Error("Failed to collect forecast row count metric", "error", err)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.forecastRows, prometheus.GaugeValue, float64(forecasts))
}

func (c *DatasetCollector) collectModelQuality(ctx context.Context, ch chan<- prometheus.Metric) {
	type qualityRow struct {
		WMAPE    float64 `db:"wmape"`
		Accuracy float64 `db:"accuracy"`
		RMSE     float64 `db:"rmse"`
	}

	var row qualityRow
	err := c.postgres.GetContext(ctx, &row, `
		SELECT wmape, accuracy, rmse
		FROM model_metrics
		ORDER BY training_run_date DESC
		LIMIT 1
	`)
	if err != nil {
		// No metric row yet is a normal state for a fresh database
		return
	}

	ch <- prometheus.MustNewConstMetric(c.modelQuality, prometheus.GaugeValue, row.WMAPE, "wmape")
	ch <- prometheus.MustNewConstMetric(c.modelQuality, prometheus.GaugeValue, row.Accuracy, "accuracy")
	ch <- prometheus.MustNewConstMetric(c.modelQuality, prometheus.GaugeValue, row.RMSE, "rmse")
}

// RegisterDatasetCollector registers the dataset collector
func RegisterDatasetCollector(collector *DatasetCollector) {
	prometheus.MustRegister(collector)
}
