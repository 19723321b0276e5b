package pid

import (
	"math"
	"time"

	"github.com/markusressel/boiler2go/internal/heating"
	"github.com/markusressel/boiler2go/internal/ui"
	"github.com/markusressel/boiler2go/internal/util"
)

type Config struct {
	AutomaticGains bool
	// AutomaticGainValue divides the automatic kp, <= 0 selects the heating system default
	AutomaticGainValue float64

	Kp float64
	Ki float64
	Kd float64

	// SampleTimeLimit is the minimum time between two accepted updates
	SampleTimeLimit time.Duration

	HeatingSystem heating.HeatingSystem
}

// CoefficientSource provides the heating curve coefficient used for automatic gains
type CoefficientSource interface {
	Coefficient() float64
}

// State is the persisted part of the controller
type State struct {
	Error         *float64 `json:"error"`
	Integral      *float64 `json:"integral"`
	DerivativeRaw *float64 `json:"derivative_raw"`
	HeatingCurve  *float64 `json:"heating_curve"`
}

// Controller is a PID controller working on the room temperature error.
// Its output is an offset added on top of the heating curve value.
type Controller struct {
	config Config
	curve  CoefficientSource

	available bool

	lastError   float64
	lastUpdated time.Time

	lastHeatingCurve *float64

	integral           float64
	lastIntegralUpdate time.Time

	filteredError        float64
	derivativeFirstStage float64
	rawDerivative        float64
	lastDerivativeUpdate time.Time
}

func NewController(config Config, curve CoefficientSource) *Controller {
	return &Controller{
		config: config,
		curve:  curve,
	}
}

// Update feeds a new error sample into the controller
func (c *Controller) Update(temperatureError float64, heatingCurveValue float64, now time.Time) {
	if !c.lastUpdated.IsZero() && now.Sub(c.lastUpdated) < c.config.SampleTimeLimit {
		return
	}

	c.lastHeatingCurve = &heatingCurveValue
	c.updateIntegral(temperatureError, now)

	if c.available && temperatureError == c.lastError {
		c.lastUpdated = now
		return
	}

	c.updateDerivative(temperatureError, now)

	c.lastError = temperatureError
	c.lastUpdated = now
	c.available = true

	ui.Debug("PID: error=%.3f P=%.3f I=%.3f D=%.3f", temperatureError, c.Proportional(), c.Integral(), c.Derivative())
}

// UpdateReset drops integral and derivative state, keeping the given error as the new baseline
func (c *Controller) UpdateReset(temperatureError float64, now time.Time) {
	c.integral = 0
	c.derivativeFirstStage = 0
	c.rawDerivative = 0
	c.filteredError = temperatureError

	c.lastError = temperatureError
	c.lastUpdated = now
	c.lastDerivativeUpdate = now

	if math.Abs(temperatureError) <= Deadband {
		c.lastIntegralUpdate = now
	} else {
		c.lastIntegralUpdate = time.Time{}
	}
}

// Reset drops all state, the controller is unavailable until the next update
func (c *Controller) Reset() {
	*c = Controller{
		config: c.config,
		curve:  c.curve,
	}
}

// Restore rehydrates the controller from persisted state
func (c *Controller) Restore(state State) {
	if state.Error != nil {
		c.lastError = *state.Error
		c.filteredError = *state.Error
	}
	if state.Integral != nil {
		c.integral = *state.Integral
	}
	if state.DerivativeRaw != nil {
		c.rawDerivative = *state.DerivativeRaw
		c.derivativeFirstStage = *state.DerivativeRaw
	}
	if state.HeatingCurve != nil {
		c.lastHeatingCurve = util.Ptr(*state.HeatingCurve)
	}
}

func (c *Controller) State() State {
	return State{
		Error:         util.Ptr(c.lastError),
		Integral:      util.Ptr(c.integral),
		DerivativeRaw: util.Ptr(c.rawDerivative),
		HeatingCurve:  c.lastHeatingCurve,
	}
}

func (c *Controller) updateIntegral(temperatureError float64, now time.Time) {
	if math.Abs(temperatureError) > Deadband {
		c.integral = 0
		c.lastIntegralUpdate = time.Time{}
		return
	}

	if c.lastIntegralUpdate.IsZero() {
		c.lastIntegralUpdate = now
		return
	}

	elapsed := now.Sub(c.lastIntegralUpdate)
	if elapsed <= 0 {
		return
	}
	if elapsed > IntegralMaxInterval {
		elapsed = IntegralMaxInterval
	}

	c.integral += c.Ki() * temperatureError * elapsed.Seconds()

	limit := 0.0
	if c.lastHeatingCurve != nil {
		limit = math.Abs(*c.lastHeatingCurve)
	}
	c.integral = util.Coerce(c.integral, -limit, limit)
	c.lastIntegralUpdate = now
}

func (c *Controller) updateDerivative(temperatureError float64, now time.Time) {
	if c.lastDerivativeUpdate.IsZero() {
		c.filteredError = temperatureError
		c.lastDerivativeUpdate = now
		return
	}

	elapsed := now.Sub(c.lastDerivativeUpdate)
	if elapsed <= 0 {
		return
	}
	if elapsed > DerivativeMaxInterval {
		elapsed = DerivativeMaxInterval
	}

	filtered := util.UpdateExponentialAvg(c.filteredError, DerivativeErrorAlpha, temperatureError)
	c.lastDerivativeUpdate = now

	// hold the derivative while the room settles inside the deadband
	if math.Abs(temperatureError) <= Deadband && math.Abs(c.lastError) <= Deadband {
		c.filteredError = filtered
		return
	}

	derivative := (filtered - c.filteredError) / elapsed.Seconds()
	c.filteredError = filtered

	c.derivativeFirstStage = util.UpdateExponentialAvg(c.derivativeFirstStage, DerivativeAlpha1, derivative)
	c.rawDerivative = util.UpdateExponentialAvg(c.rawDerivative, DerivativeAlpha2, c.derivativeFirstStage)
	c.rawDerivative = util.Coerce(c.rawDerivative, -DerivativeRawCap, DerivativeRawCap)
}

func (c *Controller) Kp() float64 {
	if !c.config.AutomaticGains {
		return c.config.Kp
	}
	if c.lastHeatingCurve == nil || c.curve == nil {
		return 0
	}
	return util.Round(c.curve.Coefficient()*(*c.lastHeatingCurve)/c.automaticGainValue(), 6)
}

func (c *Controller) Ki() float64 {
	if !c.config.AutomaticGains {
		return c.config.Ki
	}
	return util.Round(c.Kp()/AutomaticGainTimeConstant, 6)
}

func (c *Controller) Kd() float64 {
	if !c.config.AutomaticGains {
		return c.config.Kd
	}
	return util.Round(AutomaticDerivativeFactor*AutomaticGainTimeConstant*c.Kp(), 6)
}

func (c *Controller) automaticGainValue() float64 {
	if c.config.AutomaticGainValue > 0 {
		return c.config.AutomaticGainValue
	}
	if c.config.HeatingSystem == heating.HeatingSystemUnderfloor {
		return AutomaticGainValueUnderfloor
	}
	return AutomaticGainValueDefault
}

// Available is false until the first real update
func (c *Controller) Available() bool {
	return c.available
}

func (c *Controller) LastError() float64 {
	return c.lastError
}

func (c *Controller) LastUpdated() time.Time {
	return c.lastUpdated
}

func (c *Controller) IntegralEnabled() bool {
	return math.Abs(c.lastError) <= Deadband
}

func (c *Controller) RawDerivative() float64 {
	return c.rawDerivative
}

func (c *Controller) Proportional() float64 {
	return util.Round(c.Kp()*c.lastError, 3)
}

func (c *Controller) Integral() float64 {
	return util.Round(c.integral, 3)
}

func (c *Controller) Derivative() float64 {
	return util.Round(c.Kd()*c.rawDerivative, 3)
}

// Output is the sum of all three terms
func (c *Controller) Output() float64 {
	return util.Round(c.Kp()*c.lastError+c.integral+c.Kd()*c.rawDerivative, 3)
}
