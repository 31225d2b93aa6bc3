package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductEncoder_EncodeKnownProducts(t *testing.T) {
	encoder := NewProductEncoder(map[string]int{"P100": 0, "P200": 1, "P300": 7})

	assert.Equal(t, 0, encoder.Encode("P100"))
	assert.Equal(t, 1, encoder.Encode("P200"))
	assert.Equal(t, 7, encoder.Encode("P300"))
	assert.Equal(t, 3, encoder.Len())
}

func TestProductEncoder_UnseenProductGetsSentinel(t *testing.T) {
	encoder := NewProductEncoder(map[string]int{"P100": 0})

	assert.Equal(t, UnknownProductCode, encoder.Encode("never-seen"))
	assert.Equal(t, UnknownProductCode, encoder.Encode(""))
}

func TestProductEncoder_Decode(t *testing.T) {
	encoder := NewProductEncoder(map[string]int{"P100": 0, "P200": 1})

	product, ok := encoder.Decode(1)
	require.True(t, ok)
	assert.Equal(t, "P200", product)

	_, ok = encoder.Decode(42)
	assert.False(t, ok)
}

func TestParseProductEncoder(t *testing.T) {
	encoder, err := ParseProductEncoder([]byte(`{"P100": 0, "P200": 1}`))
	require.NoError(t, err)

	assert.Equal(t, 2, encoder.Len())
	assert.Equal(t, 0, encoder.Encode("P100"))
}

func TestParseProductEncoder_RejectsInvalidPayloads(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"malformed json", `{"P100": `},
		{"wrong shape", `["P100", "P200"]`},
		{"empty map", `{}`},
		{"non integer codes", `{"P100": "zero"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProductEncoder([]byte(tt.payload))
			assert.Error(t, err)
		})
	}
}
