package trend

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weeklyPoints(start time.Time, values []float64) []Point {
	points := make([]Point, len(values))
	for i, v := range values {
		points[i] = Point{Date: start.AddDate(0, 0, 7*i), Value: v}
	}
	return points
}

// linearValues produces a noiseless upward trend
func linearValues(n int, level, slope float64) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = level + slope*float64(i)
	}
	return values
}

func TestFit_EmptyHistory(t *testing.T) {
	m := New(false)
	assert.Error(t, m.Fit(nil))
}

func TestFit_SortsObservationsByDate(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := weeklyPoints(start, linearValues(10, 5, 1))

	// Shuffle the input; fitted dates must come out ordered
	shuffled := []Point{points[4], points[0], points[9], points[2], points[7],
		points[1], points[5], points[3], points[8], points[6]}

	m := New(false)
	require.NoError(t, m.Fit(shuffled))

	require.Len(t, m.Dates, 10)
	for i := 1; i < len(m.Dates); i++ {
		assert.True(t, m.Dates[i].After(m.Dates[i-1]))
	}
}

func TestFit_RecoversLinearTrend(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := New(false)
	require.NoError(t, m.Fit(weeklyPoints(start, linearValues(30, 10, 0.5))))

	frame, err := m.Forecast(0)
	require.NoError(t, err)
	require.Len(t, frame, 30)

	// In-sample fit of noiseless data should be near exact
	for i, p := range frame {
		expected := 10 + 0.5*float64(i)
		assert.InDelta(t, expected, p.Value, 1e-6, "index %d", i)
	}
}

func TestFit_FewerThanThreePointsUsesLevelOnly(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := New(true)
	require.NoError(t, m.Fit(weeklyPoints(start, []float64{4, 6})))

	require.Len(t, m.Coef, 1)
	assert.InDelta(t, 5.0, m.Coef[0], 1e-9)

	frame, err := m.Forecast(3)
	require.NoError(t, err)
	for _, p := range frame {
		assert.InDelta(t, 5.0, p.Value, 1e-9)
	}
}

func TestForecast_RequiresFit(t *testing.T) {
	m := New(false)
	_, err := m.Forecast(10)
	assert.Error(t, err)
}

func TestForecast_FrameCoversHistoryAndHorizon(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := New(false)
	require.NoError(t, m.Fit(weeklyPoints(start, linearValues(60, 3, 0.1))))

	frame, err := m.Forecast(104)
	require.NoError(t, err)
	require.Len(t, frame, 60+104)

	// First 60 points are the fitted dates
	lastHistory := start.AddDate(0, 0, 7*59)
	assert.Equal(t, start, frame[0].Date)
	assert.Equal(t, lastHistory, frame[59].Date)

	// Continuation advances in exact weekly steps
	for j := 0; j < 104; j++ {
		expected := lastHistory.AddDate(0, 0, 7*(j+1))
		assert.Equal(t, expected, frame[60+j].Date, "continuation index %d", j)
	}
}

func TestForecast_ExtrapolatesTrend(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := New(false)
	require.NoError(t, m.Fit(weeklyPoints(start, linearValues(40, 0, 1))))

	frame, err := m.Forecast(10)
	require.NoError(t, err)

	// The slope continues past the fitted range
	assert.InDelta(t, 45.0, frame[45].Value, 1e-6)
	assert.InDelta(t, 49.0, frame[49].Value, 1e-6)
}

func TestFit_YearlySeasonalityRecoversCycle(t *testing.T) {
	start := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	n := 120 // ~2.3 years of weekly data
	values := make([]float64, n)
	for i := range values {
		values[i] = 100 + 20*math.Sin(2*math.Pi*float64(i)/(365.25/7))
	}

	m := New(true)
	require.NoError(t, m.Fit(weeklyPoints(start, values)))

	frame, err := m.Forecast(0)
	require.NoError(t, err)

	var sse float64
	for i, p := range frame {
		diff := p.Value - values[i]
		sse += diff * diff
	}
	rmse := math.Sqrt(sse / float64(n))
	assert.Less(t, rmse, 1.0, "first-harmonic cycle should be captured almost exactly")
}

func TestModel_JSONRoundTrip(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := New(true)
	require.NoError(t, m.Fit(weeklyPoints(start, linearValues(60, 8, 0.25))))

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var restored Model
	require.NoError(t, json.Unmarshal(data, &restored))
	require.True(t, restored.Fitted())

	original, err := m.Forecast(5)
	require.NoError(t, err)
	reloaded, err := restored.Forecast(5)
	require.NoError(t, err)

	require.Len(t, reloaded, len(original))
	for i := range original {
		assert.Equal(t, original[i].Date, reloaded[i].Date)
		assert.InDelta(t, original[i].Value, reloaded[i].Value, 1e-9)
	}
}

func TestFit_ConstantHistoryDoesNotFail(t *testing.T) {
	// A flat series keeps a solvable design; either path must produce the level
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := New(false)
	require.NoError(t, m.Fit(weeklyPoints(start, linearValues(20, 42, 0))))

	frame, err := m.Forecast(4)
	require.NoError(t, err)
	for _, p := range frame {
		assert.InDelta(t, 42.0, p.Value, 1e-6)
	}
}
