// Package forecast implements the hybrid forecasting pipeline: per-product
// trend models provide a log-space baseline, the global boosted correction
// model refines it over engineered calendar features.
package forecast

import (
	"math"

	"github.com/PrathyushaPonnala/sales-prediction/internal/ml"
	"github.com/PrathyushaPonnala/sales-prediction/internal/ml/trend"
)

// NumFeatures is the width of every feature vector
const NumFeatures = 7

// FeatureColumns is the exact feature order the global correction model was
// trained with. Order is part of the model contract; reordering breaks
// predictions silently.
var FeatureColumns = [NumFeatures]string{
	"trend_pred_log",
	"product_code_encoded",
	"month_sin",
	"month_cos",
	"week_sin",
	"week_cos",
	"year",
}

const (
	monthsPerYear = 12
	weeksPerYear  = 52
)

// BuildFeatures converts a trend frame into correction-model input rows,
// one per frame point, preserving frame order. The product is encoded once;
// unseen products carry the encoder's sentinel through every row.
func BuildFeatures(frame []trend.Point, productID string, encoder *ml.ProductEncoder) [][]float64 {
	encoded := float64(encoder.Encode(productID))
	rows := make([][]float64, len(frame))
	for i, p := range frame {
		rows[i] = featureRow(p, encoded)
	}
	return rows
}

// featureRow builds one feature vector. Month and ISO week are cyclically
// encoded as sin/cos pairs so December sits next to January.
func featureRow(p trend.Point, encodedProduct float64) []float64 {
	month := float64(p.Date.Month())
	_, week := p.Date.ISOWeek()

	return []float64{
		p.Value,
		encodedProduct,
		math.Sin(2 * math.Pi * month / monthsPerYear),
		math.Cos(2 * math.Pi * month / monthsPerYear),
		math.Sin(2 * math.Pi * float64(week) / weeksPerYear),
		math.Cos(2 * math.Pi * float64(week) / weeksPerYear),
		float64(p.Date.Year()),
	}
}
