package heating

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestHeatingCurveRadiators(t *testing.T) {
	// GIVEN
	curve := NewHeatingCurve(HeatingSystemRadiators, 1.8)

	// WHEN
	curve.Update(21.0, 9.9)

	// THEN
	assert.NotNil(t, curve.Value())
	assert.Equal(t, 32.2, *curve.Value())
}

func TestHeatingCurveMildWeather(t *testing.T) {
	// GIVEN
	curve := NewHeatingCurve(HeatingSystemRadiators, 1.3)

	// WHEN
	curve.Update(19.0, 11.1)

	// THEN
	assert.Equal(t, 27.8, *curve.Value())
}

func TestHeatingCurveUnderfloorUsesLowerBase(t *testing.T) {
	// GIVEN
	curve := NewHeatingCurve(HeatingSystemUnderfloor, 1.0)

	// WHEN
	curve.Update(20.0, 20.0)

	// THEN
	assert.Equal(t, 20.0, *curve.Value())
	assert.Equal(t, 20.0, curve.BaseOffset())
}

func TestHeatingCurveReset(t *testing.T) {
	// GIVEN
	curve := NewHeatingCurve(HeatingSystemRadiators, 1.8)
	curve.Update(21.0, 9.9)

	// WHEN
	curve.Reset()

	// THEN
	assert.Nil(t, curve.Value())
}

func TestCalculateCoefficientRoundTrip(t *testing.T) {
	for _, outside := range []float64{-15, -5, 0, 5, 9.9, 15} {
		// GIVEN
		curve := NewHeatingCurve(HeatingSystemRadiators, 1.0)
		setpoint := 48.0
		target := 21.0

		// WHEN
		coefficient, ok := curve.CalculateCoefficient(setpoint, target, outside)
		curve.SetCoefficient(coefficient)
		curve.Update(target, outside)

		// THEN
		assert.True(t, ok)
		assert.InDelta(t, setpoint, *curve.Value(), 0.05, "outside: %v", outside)
	}
}

func TestCalculateCoefficientFlatCurve(t *testing.T) {
	// GIVEN
	curve := NewHeatingCurve(HeatingSystemRadiators, 1.0)

	// WHEN
	_, ok := curve.CalculateCoefficient(40, 20, 20)

	// THEN
	assert.False(t, ok)
}

func TestHeatingCurvePlot(t *testing.T) {
	// GIVEN
	curve := NewHeatingCurve(HeatingSystemRadiators, 1.8)

	// WHEN
	points := curve.Plot(21.0, -10, 20)

	// THEN
	assert.Len(t, points, 31)
	assert.Equal(t, -10.0, points[0].Outside)
	assert.Greater(t, points[0].Value, points[30].Value)
}

func TestParseHeatingSystem(t *testing.T) {
	// GIVEN
	name := "Underfloor"

	// WHEN
	system, err := ParseHeatingSystem(name)
	_, unknownErr := ParseHeatingSystem("stove")

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, HeatingSystemUnderfloor, system)
	assert.EqualError(t, unknownErr, "unknown heating system: stove")
}
