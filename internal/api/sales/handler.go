package sales

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/PrathyushaPonnala/sales-prediction/internal/domain/model"
	domain "github.com/PrathyushaPonnala/sales-prediction/internal/domain/sales"
	"github.com/PrathyushaPonnala/sales-prediction/pkg/errors"
	"github.com/PrathyushaPonnala/sales-prediction/pkg/logger"
)

// Service is the sales service surface the HTTP layer depends on
type Service interface {
	History(ctx context.Context, productCode string) ([]domain.Record, error)
	Forecast(ctx context.Context, productCode string) ([]domain.Forecast, error)
	LiveForecast(ctx context.Context, productCode string) ([]domain.Forecast, error)
	ModelMetrics(ctx context.Context) (*model.Metric, error)
}

// Handler serves the sales history, forecast and model metrics endpoints
type Handler struct {
	service Service
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewHandler creates the sales API handler. ratePerMinute bounds the live
// forecast endpoint, which retrains a model per call.
func NewHandler(service Service, ratePerMinute, burst int, log *logger.Logger) *Handler {
	if ratePerMinute <= 0 {
		ratePerMinute = 10
	}
	if burst <= 0 {
		burst = 1
	}

	rps := float64(ratePerMinute) / 60.0

	return &Handler{
		service: service,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     log,
	}
}

// Register mounts the sales routes on the mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /sales/history/{product_id}", h.HandleHistory)
	mux.HandleFunc("GET /sales/forecast/{product_id}", h.HandleForecast)
	mux.HandleFunc("POST /sales/forecast/live/{product_id}", h.HandleLiveForecast)
	mux.HandleFunc("GET /metrics/model", h.HandleModelMetrics)
}

// historyRow mirrors the dataset column names ds / y on the wire
type historyRow struct {
	ProductCode string    `json:"product_code"`
	Date        time.Time `json:"ds"`
	Quantity    float64   `json:"y"`
}

type forecastRow struct {
	ProductCode    string    `json:"product_code"`
	Date           time.Time `json:"forecast_date"`
	PredictedSales float64   `json:"predicted_sales"`
}

type metricsResponse struct {
	ModelVersion string    `json:"model_version"`
	WMAPE        float64   `json:"wmape"`
	Accuracy     float64   `json:"accuracy"`
	LastTrained  time.Time `json:"last_trained"`
}

type forecastPoint struct {
	Date  string  `json:"date"`
	Sales float64 `json:"sales"`
}

type liveForecastResponse struct {
	Status   string          `json:"status"`
	Message  string          `json:"message"`
	Forecast []forecastPoint `json:"forecast"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HandleHistory returns the stored sales history for one product
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("product_id")

	records, err := h.service.History(r.Context(), productID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	rows := make([]historyRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, historyRow{
			ProductCode: rec.ProductCode,
			Date:        rec.Date,
			Quantity:    rec.Quantity,
		})
	}

	h.writeJSON(w, http.StatusOK, rows)
}

// HandleForecast returns the stored forecast for one product
func (h *Handler) HandleForecast(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("product_id")

	forecasts, err := h.service.Forecast(r.Context(), productID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	rows := make([]forecastRow, 0, len(forecasts))
	for _, f := range forecasts {
		rows = append(rows, forecastRow{
			ProductCode:    f.ProductCode,
			Date:           f.Date,
			PredictedSales: f.PredictedSales,
		})
	}

	h.writeJSON(w, http.StatusOK, rows)
}

// HandleLiveForecast recomputes and stores a forecast from current history,
// then returns it. Model persistence runs in the background.
func (h *Handler) HandleLiveForecast(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("product_id")

	if !h.limiter.Allow() {
		h.log.Warnw("Live forecast rate limit exceeded", "product_code", productID)
		h.writeError(w, errors.Wrap(errors.ErrRateLimitExceeded, "live forecast"))
		return
	}

	forecasts, err := h.service.LiveForecast(r.Context(), productID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	points := make([]forecastPoint, 0, len(forecasts))
	for _, f := range forecasts {
		points = append(points, forecastPoint{
			Date:  f.Date.Format("2006-01-02"),
			Sales: decimal.NewFromFloat(f.PredictedSales).Round(2).InexactFloat64(),
		})
	}

	h.writeJSON(w, http.StatusOK, liveForecastResponse{
		Status:   "success",
		Message:  fmt.Sprintf("Forecast updated for %s. Model persistence queued in background.", productID),
		Forecast: points,
	})
}

// HandleModelMetrics returns quality metrics of the latest global model run
func (h *Handler) HandleModelMetrics(w http.ResponseWriter, r *http.Request) {
	metric, err := h.service.ModelMetrics(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, metricsResponse{
		ModelVersion: metric.ModelVersion,
		WMAPE:        metric.WMAPE,
		Accuracy:     metric.Accuracy,
		LastTrained:  metric.TrainingRunDate,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errors.ErrNotFound) {
		h.writeJSON(w, http.StatusNotFound, errorResponse{
			Status:  "not_found",
			Message: err.Error(),
		})
		return
	}

	if errors.Is(err, errors.ErrRateLimitExceeded) {
		h.writeJSON(w, http.StatusTooManyRequests, errorResponse{
			Status:  "error",
			Message: err.Error(),
		})
		return
	}

	h.log.Errorw("Request failed", "error", err)
	h.writeJSON(w, http.StatusInternalServerError, errorResponse{
		Status:  "error",
		Message: err.Error(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Errorw("Failed to encode response", "error", err)
	}
}
