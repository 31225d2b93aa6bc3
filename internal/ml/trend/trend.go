// Package trend implements the per-product seasonal trend model: a linear
// trend with optional yearly Fourier seasonality, fit by ordinary least
// squares. Models serialize to JSON so fitted artifacts can be stored and
// reloaded without a training runtime.
package trend

import (
	"math"
	"sort"
	"time"

	"github.com/PrathyushaPonnala/sales-prediction/pkg/errors"
)

const (
	// defaultHarmonics is the number of Fourier pairs for yearly seasonality
	defaultHarmonics = 3

	// yearlyPeriodWeeks is one tropical year in weekly steps
	yearlyPeriodWeeks = 365.25 / 7
)

// Point is one dated observation or prediction. The model is agnostic to
// the value space; the forecasting service fits log-transformed quantities.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Model is a fitted (or fittable) trend model. Exported fields are the
// serialized artifact format.
type Model struct {
	Yearly    bool        `json:"yearly_seasonality"`
	Harmonics int         `json:"harmonics"`
	Period    float64     `json:"period_weeks"`
	Coef      []float64   `json:"coef,omitempty"`
	Dates     []time.Time `json:"dates,omitempty"`
	FittedAt  time.Time   `json:"fitted_at,omitempty"`
}

// New creates an unfitted model. Yearly seasonality should only be enabled
// when the history spans more than one seasonal period.
func New(yearly bool) *Model {
	return &Model{
		Yearly:    yearly,
		Harmonics: defaultHarmonics,
		Period:    yearlyPeriodWeeks,
	}
}

// Fitted reports whether the model carries usable coefficients
func (m *Model) Fitted() bool {
	return len(m.Coef) > 0 && len(m.Dates) > 0
}

// Fit estimates coefficients against the full observation set, replacing
// any previous fit. Observations are sorted by date; fewer than three
// points degrade to a level-only fit.
func (m *Model) Fit(points []Point) error {
	if len(points) == 0 {
		return errors.New("cannot fit trend model on empty history")
	}
	if m.Harmonics <= 0 {
		m.Harmonics = defaultHarmonics
	}
	if m.Period <= 0 {
		m.Period = yearlyPeriodWeeks
	}

	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	n := len(sorted)
	dates := make([]time.Time, n)
	values := make([]float64, n)
	for i, p := range sorted {
		dates[i] = p.Date
		values[i] = p.Value
	}
	m.Dates = dates

	cols := m.columns(n)
	coef, err := fitLeastSquares(values, cols, m)
	if err != nil {
		// Singular system; a flat level fit always exists
		coef = []float64{mean(values)}
	}
	m.Coef = coef
	m.FittedAt = time.Now().UTC()
	return nil
}

// Forecast returns the full prediction frame: one point per fitted date
// (in-sample), then horizon weekly continuation points after the last
// fitted date.
func (m *Model) Forecast(horizon int) ([]Point, error) {
	if !m.Fitted() {
		return nil, errors.New("trend model is not fitted")
	}
	if horizon < 0 {
		horizon = 0
	}

	n := len(m.Dates)
	frame := make([]Point, 0, n+horizon)
	for i := 0; i < n; i++ {
		frame = append(frame, Point{Date: m.Dates[i], Value: m.predictAt(i)})
	}

	last := m.Dates[n-1]
	for j := 1; j <= horizon; j++ {
		frame = append(frame, Point{
			Date:  last.AddDate(0, 0, 7*j),
			Value: m.predictAt(n - 1 + j),
		})
	}
	return frame, nil
}

// columns returns how many coefficients the design has for n observations
func (m *Model) columns(n int) int {
	if n < 3 {
		return 1
	}
	cols := 2
	if m.Yearly {
		cols += 2 * m.Harmonics
	}
	return cols
}

// row fills the design row for time index i given the fitted history length
func (m *Model) row(i int, cols int, denom float64) []float64 {
	x := make([]float64, 0, cols)
	x = append(x, 1)
	if cols == 1 {
		return x
	}
	x = append(x, float64(i)/denom)
	if cols > 2 {
		for k := 1; k <= m.Harmonics; k++ {
			arg := 2 * math.Pi * float64(k) * float64(i) / m.Period
			x = append(x, math.Sin(arg), math.Cos(arg))
		}
	}
	return x
}

// predictAt evaluates the fitted model at time index i. Indexes beyond the
// fitted range extrapolate the trend and continue the seasonal cycle.
func (m *Model) predictAt(i int) float64 {
	cols := len(m.Coef)
	denom := scaleDenom(len(m.Dates))
	row := m.row(i, cols, denom)
	var y float64
	for j, c := range m.Coef {
		y += c * row[j]
	}
	return y
}

func scaleDenom(n int) float64 {
	if n <= 1 {
		return 1
	}
	return float64(n - 1)
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// fitLeastSquares solves the normal equations for the model's design over
// the observed values.
func fitLeastSquares(values []float64, cols int, m *Model) ([]float64, error) {
	n := len(values)
	denom := scaleDenom(n)

	// Accumulate X'X and X'y
	gram := make([][]float64, cols)
	for i := range gram {
		gram[i] = make([]float64, cols)
	}
	rhs := make([]float64, cols)

	for i := 0; i < n; i++ {
		row := m.row(i, cols, denom)
		for a := 0; a < cols; a++ {
			rhs[a] += row[a] * values[i]
			for b := 0; b < cols; b++ {
				gram[a][b] += row[a] * row[b]
			}
		}
	}

	return solveLinear(gram, rhs)
}

// solveLinear solves G*x = b in place via Gaussian elimination with
// partial pivoting. The systems here are tiny (at most 8x8).
func solveLinear(g [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(g[r][col]) > math.Abs(g[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(g[pivot][col]) < 1e-12 {
			return nil, errors.New("singular design matrix")
		}
		g[col], g[pivot] = g[pivot], g[col]
		b[col], b[pivot] = b[pivot], b[col]

		for r := col + 1; r < n; r++ {
			factor := g[r][col] / g[col][col]
			for c := col; c < n; c++ {
				g[r][c] -= factor * g[col][c]
			}
			b[r] -= factor * b[col]
		}
	}

	x := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		sum := b[r]
		for c := r + 1; c < n; c++ {
			sum -= g[r][c] * x[c]
		}
		x[r] = sum / g[r][r]
	}
	return x, nil
}
