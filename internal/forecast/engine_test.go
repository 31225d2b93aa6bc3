package forecast

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PrathyushaPonnala/sales-prediction/internal/domain/sales"
	"github.com/PrathyushaPonnala/sales-prediction/internal/ml/trend"
	"github.com/PrathyushaPonnala/sales-prediction/pkg/errors"
	"github.com/PrathyushaPonnala/sales-prediction/pkg/logger"
)

type fakeWriter struct {
	mu       sync.Mutex
	replaced map[string][]sales.Forecast
	err      error
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{replaced: make(map[string][]sales.Forecast)}
}

func (w *fakeWriter) ReplaceForecast(_ context.Context, productCode string, rows []sales.Forecast) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.replaced[productCode] = rows
	return nil
}

type fakeSaver struct {
	mu       sync.Mutex
	enqueued []string
}

func (s *fakeSaver) Enqueue(productID string, m *trend.Model) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enqueued = append(s.enqueued, productID)
	return true
}

func weeklyHistory(productCode string, n int) []sales.Record {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	records := make([]sales.Record, n)
	for i := range records {
		records[i] = sales.Record{
			ProductCode: productCode,
			Date:        start.AddDate(0, 0, 7*i),
			Quantity:    100 + 2*float64(i),
		}
	}
	return records
}

type engineFixture struct {
	engine *Engine
	store  *fakeStore
	writer *fakeWriter
	saver  *fakeSaver
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	store := newFakeStore()
	writer := newFakeWriter()
	saver := &fakeSaver{}
	log := logger.Get()

	engine := NewEngine(
		NewModelCache(store, log),
		store.booster,
		store.encoder,
		writer,
		saver,
		NewKeyedMutex(),
		log,
	)

	return &engineFixture{engine: engine, store: store, writer: writer, saver: saver}
}

func TestEngine_EmptyHistoryIsNotFound(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.Forecast(context.Background(), "P100", nil)
	require.Error(t, err)

	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.False(t, errors.Is(err, errors.ErrForecastFailed), "missing data is the caller's problem, not a pipeline failure")
	assert.Empty(t, f.saver.enqueued, "no model work on empty history")
}

func TestEngine_ProducesFullHorizonAfterHistory(t *testing.T) {
	f := newEngineFixture(t)
	history := weeklyHistory("P100", 60)

	rows, err := f.engine.Forecast(context.Background(), "P100", history)
	require.NoError(t, err)

	require.Len(t, rows, Horizon, "weekly continuation yields exactly the horizon")

	lastDate := history[len(history)-1].Date
	for _, row := range rows {
		assert.True(t, row.Date.After(lastDate), "forecast dates are strictly after history")
		assert.GreaterOrEqual(t, row.PredictedSales, 0.0)
		assert.Equal(t, "P100", row.ProductCode)
	}

	// Rows advance in weekly steps
	for i := 1; i < len(rows); i++ {
		assert.Equal(t, rows[i-1].Date.AddDate(0, 0, 7), rows[i].Date)
	}
}

func TestEngine_PersistsAndReturnsSameRows(t *testing.T) {
	f := newEngineFixture(t)

	rows, err := f.engine.Forecast(context.Background(), "P100", weeklyHistory("P100", 60))
	require.NoError(t, err)

	stored := f.writer.replaced["P100"]
	require.Len(t, stored, len(rows))
	assert.Equal(t, rows, stored)
}

func TestEngine_EnqueuesModelSave(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.Forecast(context.Background(), "P100", weeklyHistory("P100", 30))
	require.NoError(t, err)

	assert.Equal(t, []string{"P100"}, f.saver.enqueued)
}

func TestEngine_UnseenProductStillForecasts(t *testing.T) {
	f := newEngineFixture(t)

	// "P999" is absent from the encoder; the sentinel code must flow
	// through prediction rather than failing
	rows, err := f.engine.Forecast(context.Background(), "P999", weeklyHistory("P999", 60))
	require.NoError(t, err)
	assert.Len(t, rows, Horizon)
}

func TestEngine_NegativePredictionsClipToZero(t *testing.T) {
	f := newEngineFixture(t)

	// The correction model predicts deeply negative log values
	f.engine.booster = &fakePredictor{
		features: 7,
		predict: func(rows [][]float64) ([]float64, error) {
			preds := make([]float64, len(rows))
			for i := range preds {
				preds[i] = -50
			}
			return preds, nil
		},
	}

	rows, err := f.engine.Forecast(context.Background(), "P100", weeklyHistory("P100", 20))
	require.NoError(t, err)

	// expm1(-50) is negative, so the floor applies
	require.NotEmpty(t, rows)
	for _, row := range rows {
		assert.Equal(t, 0.0, row.PredictedSales)
	}
}

func TestEngine_InvertsLogTransform(t *testing.T) {
	f := newEngineFixture(t)

	const logPred = 4.0
	f.engine.booster = &fakePredictor{
		features: 7,
		predict: func(rows [][]float64) ([]float64, error) {
			preds := make([]float64, len(rows))
			for i := range preds {
				preds[i] = logPred
			}
			return preds, nil
		},
	}

	rows, err := f.engine.Forecast(context.Background(), "P100", weeklyHistory("P100", 20))
	require.NoError(t, err)

	require.NotEmpty(t, rows)
	assert.InDelta(t, math.Expm1(logPred), rows[0].PredictedSales, 1e-9)
}

func TestEngine_PredictFailureWrapsAsForecastError(t *testing.T) {
	f := newEngineFixture(t)

	f.engine.booster = &fakePredictor{
		features: 7,
		predict: func([][]float64) ([]float64, error) {
			return nil, errors.New("inference failed")
		},
	}

	_, err := f.engine.Forecast(context.Background(), "P100", weeklyHistory("P100", 20))
	require.Error(t, err)

	assert.True(t, errors.Is(err, errors.ErrForecastFailed))
	assert.Contains(t, err.Error(), "inference failed", "cause is preserved for diagnosis")

	var fe *errors.ForecastError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "P100", fe.ProductID)
}

func TestEngine_WriteFailureWrapsAsForecastError(t *testing.T) {
	f := newEngineFixture(t)
	f.writer.err = errors.New("connection reset")

	_, err := f.engine.Forecast(context.Background(), "P100", weeklyHistory("P100", 20))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrForecastFailed))
}

func TestEngine_ArtifactLoadFailureWrapsAsForecastError(t *testing.T) {
	f := newEngineFixture(t)
	f.store.loadErr = errors.NewStorageError("read", "trend/P100.json", errors.New("timeout"))

	_, err := f.engine.Forecast(context.Background(), "P100", weeklyHistory("P100", 20))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrForecastFailed))
	assert.True(t, errors.Is(err, errors.ErrStorage))
}

func TestEngine_SameProductRunsAreSerialized(t *testing.T) {
	f := newEngineFixture(t)
	history := weeklyHistory("P100", 60)

	var wg sync.WaitGroup
	results := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.engine.Forecast(context.Background(), "P100", history)
		}(i)
	}
	wg.Wait()

	for i, err := range results {
		assert.NoError(t, err, "run %d", i)
	}

	// The winning write is a complete set
	assert.Len(t, f.writer.replaced["P100"], Horizon)
}
