package trading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampValue(t *testing.T) {
	v, clamped := ClampValue(6000, 5000)
	assert.InDelta(t, 5000.0, v, 1e-9)
	assert.True(t, clamped)

	v, clamped = ClampValue(4500, 5000)
	assert.InDelta(t, 4500.0, v, 1e-9)
	assert.False(t, clamped)

	v, clamped = ClampValue(5000, 5000)
	assert.InDelta(t, 5000.0, v, 1e-9)
	assert.False(t, clamped, "exactly at the cap is not a clamp")

	v, clamped = ClampValue(-10, 5000)
	assert.Zero(t, v)
	assert.False(t, clamped)
}

func TestHeadroom(t *testing.T) {
	assert.InDelta(t, 2000.0, Headroom(60000, 58000), 1e-9)
	assert.Zero(t, Headroom(60000, 60000))
	assert.Zero(t, Headroom(60000, 61000), "overshoot floors at zero")
}

func TestQuantity(t *testing.T) {
	assert.InDelta(t, 45.0, Quantity(4500, 100), 1e-9)
	assert.Zero(t, Quantity(4500, 0))
	assert.Zero(t, Quantity(0, 100))
	// 0.1+0.2 style float dust stays out of the division.
	assert.InDelta(t, 0.3, Quantity(30, 100), 1e-15)
}
