package sales

import (
	"time"

	"github.com/google/uuid"
)

// Record is one observed sales quantity for a product on a weekly date.
// Column names ds / y match the historical dataset.
type Record struct {
	ID          uuid.UUID `db:"id"`
	ProductCode string    `db:"product_code"`
	Date        time.Time `db:"ds"`
	Quantity    float64   `db:"y"`
}

// Forecast is one predicted sales quantity for a product on a future date
type Forecast struct {
	ID             uuid.UUID `db:"id"`
	ProductCode    string    `db:"product_code"`
	Date           time.Time `db:"forecast_date"`
	PredictedSales float64   `db:"predicted_sales"`
	CreatedAt      time.Time `db:"created_at"`
}

// LastDate returns the newest observation date in a history slice.
// The zero time is returned for empty history.
func LastDate(history []Record) time.Time {
	var last time.Time
	for _, r := range history {
		if r.Date.After(last) {
			last = r.Date
		}
	}
	return last
}
