package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiError_AddIgnoresNil(t *testing.T) {
	var m MultiError

	m.Add(nil)
	m.Add(Wrap(nil, "postgres"))

	assert.False(t, m.HasErrors())
	assert.NoError(t, m.ToError())
}

func TestMultiError_CollectsErrors(t *testing.T) {
	var m MultiError

	m.Add(New("postgres: connection reset"))
	m.Add(nil)
	m.Add(New("redis: broken pipe"))

	require.True(t, m.HasErrors())

	err := m.ToError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple errors (2)")
	assert.Contains(t, err.Error(), "postgres: connection reset")
}

func TestMultiError_SingleErrorReadsAsItself(t *testing.T) {
	var m MultiError
	m.Add(New("postgres: connection reset"))

	assert.Equal(t, "postgres: connection reset", m.ToError().Error())
}

func TestRateLimitSentinelSurvivesWrapping(t *testing.T) {
	err := Wrap(ErrRateLimitExceeded, "live forecast")

	assert.True(t, Is(err, ErrRateLimitExceeded))
	assert.Contains(t, err.Error(), "rate limit exceeded")
}
