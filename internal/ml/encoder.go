package ml

import (
	"encoding/json"

	"github.com/PrathyushaPonnala/sales-prediction/pkg/errors"
)

// UnknownProductCode is the encoded value for products the global model
// never saw during training. It is a valid feature value, not an error.
const UnknownProductCode = -1

// ProductEncoder maps product identifiers to the integer classes the
// correction model was trained with.
type ProductEncoder struct {
	classes map[string]int
	inverse map[int]string
}

// NewProductEncoder builds an encoder from a class map
func NewProductEncoder(classes map[string]int) *ProductEncoder {
	inverse := make(map[int]string, len(classes))
	for product, code := range classes {
		inverse[code] = product
	}
	return &ProductEncoder{classes: classes, inverse: inverse}
}

// ParseProductEncoder decodes the encoder artifact, a JSON object mapping
// product identifier to integer class.
func ParseProductEncoder(data []byte) (*ProductEncoder, error) {
	var classes map[string]int
	if err := json.Unmarshal(data, &classes); err != nil {
		return nil, errors.Wrap(err, "failed to decode product encoder")
	}
	if len(classes) == 0 {
		return nil, errors.New("product encoder has no classes")
	}
	return NewProductEncoder(classes), nil
}

// Encode returns the integer class for a product, or UnknownProductCode
// for products absent from the training set.
func (e *ProductEncoder) Encode(productID string) int {
	if code, ok := e.classes[productID]; ok {
		return code
	}
	return UnknownProductCode
}

// Decode returns the product identifier for an integer class
func (e *ProductEncoder) Decode(code int) (string, bool) {
	product, ok := e.inverse[code]
	return product, ok
}

// Len returns the number of known products
func (e *ProductEncoder) Len() int {
	return len(e.classes)
}
