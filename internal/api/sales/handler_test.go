package sales

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/PrathyushaPonnala/sales-prediction/internal/domain/model"
	domain "github.com/PrathyushaPonnala/sales-prediction/internal/domain/sales"
	"github.com/PrathyushaPonnala/sales-prediction/pkg/errors"
	"github.com/PrathyushaPonnala/sales-prediction/pkg/logger"
)

// MockService is a mock for the sales service
type MockService struct {
	mock.Mock
}

func (m *MockService) History(ctx context.Context, productCode string) ([]domain.Record, error) {
	args := m.Called(ctx, productCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Record), args.Error(1)
}

func (m *MockService) Forecast(ctx context.Context, productCode string) ([]domain.Forecast, error) {
	args := m.Called(ctx, productCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Forecast), args.Error(1)
}

func (m *MockService) LiveForecast(ctx context.Context, productCode string) ([]domain.Forecast, error) {
	args := m.Called(ctx, productCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Forecast), args.Error(1)
}

func (m *MockService) ModelMetrics(ctx context.Context) (*model.Metric, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Metric), args.Error(1)
}

func testLogger() *logger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return &logger.Logger{SugaredLogger: zapLogger.Sugar()}
}

// setupMux registers the handler on a fresh mux with a rate limit high
// enough to never interfere with the test
func setupMux(svc Service) *http.ServeMux {
	handler := NewHandler(svc, 6000, 100, testLogger())
	mux := http.NewServeMux()
	handler.Register(mux)
	return mux
}

func TestHandleHistory(t *testing.T) {
	mockSvc := new(MockService)
	mux := setupMux(mockSvc)

	start := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []domain.Record{
		{ID: uuid.New(), ProductCode: "P1", Date: start, Quantity: 12},
		{ID: uuid.New(), ProductCode: "P1", Date: start.AddDate(0, 0, 7), Quantity: 15},
	}
	mockSvc.On("History", mock.Anything, "P1").Return(records, nil)

	req := httptest.NewRequest("GET", "/sales/history/P1", nil)
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

	var rows []struct {
		ProductCode string    `json:"product_code"`
		Date        time.Time `json:"ds"`
		Quantity    float64   `json:"y"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "P1", rows[0].ProductCode)
	assert.True(t, rows[0].Date.Equal(start))
	assert.Equal(t, 12.0, rows[0].Quantity)
	assert.Equal(t, 15.0, rows[1].Quantity)

	mockSvc.AssertExpectations(t)
}

func TestHandleHistory_NotFound(t *testing.T) {
	mockSvc := new(MockService)
	mux := setupMux(mockSvc)

	mockSvc.On("History", mock.Anything, "missing").
		Return(nil, errors.Wrapf(errors.ErrNotFound, "no sales history found for product %s", "missing"))

	req := httptest.NewRequest("GET", "/sales/history/missing", nil)
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusNotFound, recorder.Code)

	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, "not_found", resp.Status)
	assert.Contains(t, resp.Message, "missing")
}

func TestHandleForecast(t *testing.T) {
	mockSvc := new(MockService)
	mux := setupMux(mockSvc)

	start := time.Date(2019, 1, 6, 0, 0, 0, 0, time.UTC)
	forecasts := []domain.Forecast{
		{ID: uuid.New(), ProductCode: "P2", Date: start, PredictedSales: 21.5},
		{ID: uuid.New(), ProductCode: "P2", Date: start.AddDate(0, 0, 7), PredictedSales: 23.1},
	}
	mockSvc.On("Forecast", mock.Anything, "P2").Return(forecasts, nil)

	req := httptest.NewRequest("GET", "/sales/forecast/P2", nil)
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)

	var rows []struct {
		ProductCode    string    `json:"product_code"`
		Date           time.Time `json:"forecast_date"`
		PredictedSales float64   `json:"predicted_sales"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "P2", rows[0].ProductCode)
	assert.InDelta(t, 21.5, rows[0].PredictedSales, 1e-9)

	mockSvc.AssertExpectations(t)
}

func TestHandleForecast_NotFound(t *testing.T) {
	mockSvc := new(MockService)
	mux := setupMux(mockSvc)

	mockSvc.On("Forecast", mock.Anything, "P9").
		Return(nil, errors.Wrapf(errors.ErrNotFound, "no forecast found for product %s", "P9"))

	req := httptest.NewRequest("GET", "/sales/forecast/P9", nil)
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestHandleLiveForecast(t *testing.T) {
	mockSvc := new(MockService)
	mux := setupMux(mockSvc)

	start := time.Date(2019, 1, 6, 0, 0, 0, 0, time.UTC)
	forecasts := []domain.Forecast{
		{ID: uuid.New(), ProductCode: "P3", Date: start, PredictedSales: 12.3456},
		{ID: uuid.New(), ProductCode: "P3", Date: start.AddDate(0, 0, 7), PredictedSales: 9.999},
	}
	mockSvc.On("LiveForecast", mock.Anything, "P3").Return(forecasts, nil)

	req := httptest.NewRequest("POST", "/sales/forecast/live/P3", nil)
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp struct {
		Status   string `json:"status"`
		Message  string `json:"message"`
		Forecast []struct {
			Date  string  `json:"date"`
			Sales float64 `json:"sales"`
		} `json:"forecast"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))

	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "Forecast updated for P3. Model persistence queued in background.", resp.Message)
	require.Len(t, resp.Forecast, 2)
	assert.Equal(t, "2019-01-06", resp.Forecast[0].Date)
	assert.InDelta(t, 12.35, resp.Forecast[0].Sales, 1e-9)
	assert.InDelta(t, 10.0, resp.Forecast[1].Sales, 1e-9)

	mockSvc.AssertExpectations(t)
}

func TestHandleLiveForecast_RateLimited(t *testing.T) {
	mockSvc := new(MockService)
	handler := NewHandler(mockSvc, 1, 1, testLogger())
	mux := http.NewServeMux()
	handler.Register(mux)

	mockSvc.On("LiveForecast", mock.Anything, "P4").Return([]domain.Forecast{}, nil)

	first := httptest.NewRecorder()
	mux.ServeHTTP(first, httptest.NewRequest("POST", "/sales/forecast/live/P4", nil))
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	mux.ServeHTTP(second, httptest.NewRequest("POST", "/sales/forecast/live/P4", nil))
	require.Equal(t, http.StatusTooManyRequests, second.Code)

	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Message, "rate limit exceeded")

	mockSvc.AssertNumberOfCalls(t, "LiveForecast", 1)
}

func TestHandleLiveForecast_ServiceError(t *testing.T) {
	mockSvc := new(MockService)
	mux := setupMux(mockSvc)

	mockSvc.On("LiveForecast", mock.Anything, "P5").
		Return(nil, errors.Wrap(errors.ErrForecastFailed, "correction model inference failed"))

	req := httptest.NewRequest("POST", "/sales/forecast/live/P5", nil)
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusInternalServerError, recorder.Code)

	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Message, "inference failed")
}

func TestHandleLiveForecast_MethodNotAllowed(t *testing.T) {
	mockSvc := new(MockService)
	mux := setupMux(mockSvc)

	req := httptest.NewRequest("GET", "/sales/forecast/live/P6", nil)
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusMethodNotAllowed, recorder.Code)
	mockSvc.AssertNotCalled(t, "LiveForecast")
}

func TestHandleModelMetrics(t *testing.T) {
	mockSvc := new(MockService)
	mux := setupMux(mockSvc)

	trained := time.Date(2019, 3, 1, 12, 0, 0, 0, time.UTC)
	mockSvc.On("ModelMetrics", mock.Anything).Return(&model.Metric{
		ID:              uuid.New(),
		ModelVersion:    "xgb-v2",
		WMAPE:           0.185,
		Accuracy:        0.815,
		RMSE:            124.5,
		TrainingRunDate: trained,
	}, nil)

	req := httptest.NewRequest("GET", "/metrics/model", nil)
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp struct {
		ModelVersion string    `json:"model_version"`
		WMAPE        float64   `json:"wmape"`
		Accuracy     float64   `json:"accuracy"`
		LastTrained  time.Time `json:"last_trained"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, "xgb-v2", resp.ModelVersion)
	assert.InDelta(t, 0.185, resp.WMAPE, 1e-9)
	assert.InDelta(t, 0.815, resp.Accuracy, 1e-9)
	assert.True(t, resp.LastTrained.Equal(trained))

	// RMSE is stored but not exposed on this endpoint
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &raw))
	_, hasRMSE := raw["rmse"]
	assert.False(t, hasRMSE)

	mockSvc.AssertExpectations(t)
}

func TestHandleModelMetrics_Error(t *testing.T) {
	mockSvc := new(MockService)
	mux := setupMux(mockSvc)

	mockSvc.On("ModelMetrics", mock.Anything).
		Return(nil, errors.Wrap(errors.ErrInternal, "metrics query failed"))

	req := httptest.NewRequest("GET", "/metrics/model", nil)
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}
