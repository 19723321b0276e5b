package heating

import (
	"math"

	"github.com/markusressel/boiler2go/internal/util"
)

// HeatingCurve maps a target room temperature and the outside temperature
// to a base boiler water temperature.
type HeatingCurve struct {
	system      HeatingSystem
	coefficient float64

	value *float64
}

// CurvePoint is a single sample of the heating curve
type CurvePoint struct {
	Outside float64 `json:"outside"`
	Value   float64 `json:"value"`
}

func NewHeatingCurve(system HeatingSystem, coefficient float64) *HeatingCurve {
	return &HeatingCurve{
		system:      system,
		coefficient: coefficient,
	}
}

func (c *HeatingCurve) HeatingSystem() HeatingSystem {
	return c.system
}

func (c *HeatingCurve) BaseOffset() float64 {
	return c.system.BaseOffset()
}

func (c *HeatingCurve) Coefficient() float64 {
	return c.coefficient
}

// SetCoefficient changes the coefficient, the value is recomputed on the next Update
func (c *HeatingCurve) SetCoefficient(coefficient float64) {
	c.coefficient = coefficient
}

// Value returns the last computed curve value, nil if Update was never called
func (c *HeatingCurve) Value() *float64 {
	return c.value
}

// Update recomputes the curve value
func (c *HeatingCurve) Update(targetTemperature float64, outsideTemperature float64) {
	value := c.calculate(c.coefficient, targetTemperature, outsideTemperature)
	c.value = &value
}

func (c *HeatingCurve) Reset() {
	c.value = nil
}

// CalculateCoefficient derives the coefficient for which the curve would produce
// the given setpoint. ok is false if the curve is flat for the given temperatures.
func (c *HeatingCurve) CalculateCoefficient(setpoint float64, targetTemperature float64, outsideTemperature float64) (coefficient float64, ok bool) {
	curve := baseCurve(targetTemperature, outsideTemperature)
	if math.Abs(curve) < 1e-9 {
		return 0, false
	}
	return (setpoint - c.BaseOffset()) * 4 / curve, true
}

// Plot samples the curve for the given target temperature over a range of outside temperatures
func (c *HeatingCurve) Plot(targetTemperature float64, outsideFrom int, outsideTo int) []CurvePoint {
	var result []CurvePoint
	for outside := outsideFrom; outside <= outsideTo; outside++ {
		result = append(result, CurvePoint{
			Outside: float64(outside),
			Value:   c.calculate(c.coefficient, targetTemperature, float64(outside)),
		})
	}
	return result
}

func (c *HeatingCurve) calculate(coefficient float64, targetTemperature float64, outsideTemperature float64) float64 {
	curve := baseCurve(targetTemperature, outsideTemperature)
	return util.Round(c.BaseOffset()+(coefficient/4)*curve, 1)
}

func baseCurve(targetTemperature float64, outsideTemperature float64) float64 {
	outsideDelta := outsideTemperature - 20
	return 4*(targetTemperature-20) + 0.03*outsideDelta*outsideDelta - 0.4*outsideDelta
}
