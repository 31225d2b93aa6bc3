package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PrathyushaPonnala/sales-prediction/pkg/errors"
)

var (
	// Forecast metrics
	ForecastRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sales_prediction_forecast_runs_total",
			Help: "Total number of forecast runs",
		},
		[]string{"trigger", "status"}, // trigger: live|refresh; status: success|not_found|error
	)

	ForecastDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sales_prediction_forecast_duration_seconds",
			Help:    "Forecast run duration in seconds (fit + predict + persist)",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"trigger"},
	)

	// Per-product model artifact metrics
	ModelCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sales_prediction_model_cache_lookups_total",
			Help: "Per-product trend model artifact lookups",
		},
		[]string{"result"}, // result: hit|miss
	)

	ModelSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sales_prediction_model_saves_total",
			Help: "Background trend model persistence attempts",
		},
		[]string{"status"}, // status: success|error|dropped
	)

	ModelSaveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sales_prediction_model_save_duration_seconds",
			Help:    "Background trend model save duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
	)

	// HTTP metrics
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sales_prediction_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sales_prediction_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"path"},
	)

	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sales_prediction_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sales_prediction_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sales_prediction_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)
)

// Init registers all metrics with Prometheus
func Init() {
	// Forecast metrics
	prometheus.MustRegister(ForecastRuns)
	prometheus.MustRegister(ForecastDuration)

	// Model artifact metrics
	prometheus.MustRegister(ModelCacheLookups)
	prometheus.MustRegister(ModelSaves)
	prometheus.MustRegister(ModelSaveDuration)

	// HTTP metrics
	prometheus.MustRegister(HTTPRequests)
	prometheus.MustRegister(HTTPDuration)

	// Worker metrics
	prometheus.MustRegister(WorkerExecutions)
	prometheus.MustRegister(WorkerDuration)
	prometheus.MustRegister(WorkerLastRun)
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordForecast records one forecast run
func RecordForecast(trigger string, duration time.Duration, err error) {
	status := "success"
	switch {
	case errors.Is(err, errors.ErrNotFound):
		status = "not_found"
	case err != nil:
		status = "error"
	}

	ForecastRuns.WithLabelValues(trigger, status).Inc()
	ForecastDuration.WithLabelValues(trigger).Observe(duration.Seconds())
}

// RecordModelCacheLookup records whether a stored trend model was found
func RecordModelCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	ModelCacheLookups.WithLabelValues(result).Inc()
}

// RecordModelSave records one background model save attempt
func RecordModelSave(duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	ModelSaves.WithLabelValues(status).Inc()
	ModelSaveDuration.Observe(duration.Seconds())
}

// RecordModelSaveDropped records a save task rejected by a full queue
func RecordModelSaveDropped() {
	ModelSaves.WithLabelValues("dropped").Inc()
}

// RecordHTTPRequest records one handled HTTP request
func RecordHTTPRequest(path, method string, status int, duration time.Duration) {
	HTTPRequests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(path).Observe(duration.Seconds())
}

// RecordWorkerExecution records a worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	WorkerExecutions.WithLabelValues(worker, status).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).SetToCurrentTime()
}
