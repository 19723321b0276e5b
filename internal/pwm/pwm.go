package pwm

import (
	"math"
	"time"

	"github.com/markusressel/boiler2go/internal/boiler"
	"github.com/markusressel/boiler2go/internal/ui"
	"github.com/markusressel/boiler2go/internal/util"
)

// Controller turns a continuous requested setpoint into an on/off duty cycle
// for loads below the continuous modulation range of the boiler.
type Controller struct {
	config     Config
	curve      HeatingCurve
	thresholds Thresholds

	enabled bool
	status  Status

	dutyCycle               *DutyCycle
	lastDutyCyclePercentage *float64
	effectiveOnTemperature  *float64

	currentCycle        int
	firstDutyCycleStart time.Time
	lastUpdate          time.Time
}

func NewController(config Config, curve HeatingCurve) *Controller {
	return &Controller{
		config:     config,
		curve:      curve,
		thresholds: NewThresholds(config.CyclesPerHour),
		enabled:    config.Force,
		status:     StatusIdle,
	}
}

// Update recomputes the duty cycle and advances the on/off state machine
func (c *Controller) Update(state boiler.State, requestedSetpoint *float64, now time.Time) {
	if c.curve.Value() == nil || requestedSetpoint == nil || state.FlowTemperature == nil {
		c.status = StatusIdle
		c.lastUpdate = now
		ui.Warning("PWM turned off due to missing values.")
		return
	}

	if c.firstDutyCycleStart.IsZero() || now.Sub(c.firstDutyCycleStart) > CycleWindow {
		c.currentCycle = 0
		c.firstDutyCycleStart = now
	}

	if state.FlameActive && !state.HotWaterActive {
		c.updateEffectiveOnTemperature(*state.FlowTemperature)
	}

	dutyCycle := c.calculateDutyCycle(*requestedSetpoint, state)
	c.dutyCycle = &dutyCycle

	elapsed := now.Sub(c.lastUpdate)
	onTime := time.Duration(dutyCycle.On) * time.Second
	offTime := time.Duration(dutyCycle.Off) * time.Second

	if c.status != StatusOn && dutyCycle.On >= HeaterStartupTimeframe && (elapsed >= offTime || c.status == StatusIdle) {
		if c.currentCycle >= c.config.CyclesPerHour {
			ui.Debug("PWM reached %d cycles this hour, delaying the next duty cycle.", c.currentCycle)
			return
		}

		c.currentCycle++
		c.status = StatusOn
		c.lastUpdate = now
		ui.Debug("PWM on for %ds (cycle %d)", dutyCycle.On, c.currentCycle)
		return
	}

	if c.status != StatusOff && (dutyCycle.On < HeaterStartupTimeframe || elapsed >= onTime) {
		c.status = StatusOff
		c.lastUpdate = now
		ui.Debug("PWM off for %ds", dutyCycle.Off)
	}
}

func (c *Controller) updateEffectiveOnTemperature(flowTemperature float64) {
	if c.effectiveOnTemperature == nil {
		c.effectiveOnTemperature = util.Ptr(flowTemperature)
		return
	}
	smoothed := util.UpdateExponentialAvg(*c.effectiveOnTemperature, EffectiveTemperatureAlpha, flowTemperature)
	c.effectiveOnTemperature = &smoothed
}

func (c *Controller) calculateDutyCycle(requestedSetpoint float64, state boiler.State) DutyCycle {
	percentage := DutyCyclePercentage(requestedSetpoint, c.curve.BaseOffset(), c.EffectiveOnTemperature())
	c.lastDutyCyclePercentage = &percentage

	return c.thresholds.DutyCycleFor(percentage, state.FlameActive && !state.HotWaterActive)
}

// DutyCyclePercentage is the share of the on-temperature above the base offset
// that is needed to reach the requested setpoint on average, in [0..1]
func DutyCyclePercentage(requestedSetpoint float64, baseOffset float64, onTemperature float64) float64 {
	if onTemperature-baseOffset <= 0 {
		if requestedSetpoint > baseOffset {
			return 1
		}
		return 0
	}
	return util.Coerce((requestedSetpoint-baseOffset)/(onTemperature-baseOffset), 0, 1)
}

// DutyCycleFor maps a duty cycle percentage to on/off seconds
func (t Thresholds) DutyCycleFor(percentage float64, flameActive bool) DutyCycle {
	lower := float64(t.OnTimeLower)
	upper := float64(t.OnTimeUpper)
	maximum := float64(t.OnTimeMax)

	switch {
	case percentage < t.MinPercentage:
		if flameActive {
			return newDutyCycle(lower, maximum-lower)
		}
		return newDutyCycle(0, maximum)
	case percentage <= t.DutyLower:
		return newDutyCycle(lower, lower/percentage-lower)
	case percentage <= t.DutyUpper:
		return newDutyCycle(upper*percentage, upper*(1-percentage))
	case percentage <= t.MaxPercentage:
		return newDutyCycle(lower/(1-percentage)-lower, lower)
	default:
		return newDutyCycle(maximum, 0)
	}
}

func newDutyCycle(on float64, off float64) DutyCycle {
	return DutyCycle{
		On:  toSeconds(on),
		Off: toSeconds(off),
	}
}

// toSeconds truncates, tolerating float noise just below a whole second
func toSeconds(value float64) int {
	return int(math.Floor(value + secondsEpsilon))
}

// Enable turns PWM on without touching the cycle counters
func (c *Controller) Enable() {
	if !c.enabled {
		ui.Info("Pulse width modulation enabled.")
	}
	c.enabled = true
}

// Disable turns PWM off and clears all counters
func (c *Controller) Disable() {
	if c.enabled && !c.config.Force {
		ui.Info("Pulse width modulation disabled.")
	}
	c.enabled = c.config.Force
	c.Reset()
}

// Reset clears the state machine and all counters
func (c *Controller) Reset() {
	c.status = StatusIdle
	c.dutyCycle = nil
	c.lastDutyCyclePercentage = nil
	c.currentCycle = 0
	c.firstDutyCycleStart = time.Time{}
	c.lastUpdate = time.Time{}
}

// Restore rehydrates the enabled flag
func (c *Controller) Restore(enabled bool) {
	c.enabled = enabled || c.config.Force
}

// OnCycleEnd enables PWM after an overshooting cycle and disables it after
// sustained underheat while PWM was in control.
func (c *Controller) OnCycleEnd(outcome CycleOutcome, pwmControlMode bool) {
	if outcome.IsOvershoot() {
		c.Enable()
		return
	}
	if outcome.IsSustainedUnderheat() && pwmControlMode {
		c.Disable()
	}
}

func (c *Controller) Enabled() bool {
	return c.enabled
}

func (c *Controller) Status() Status {
	return c.status
}

func (c *Controller) DutyCycle() *DutyCycle {
	return c.dutyCycle
}

func (c *Controller) CurrentCycle() int {
	return c.currentCycle
}

func (c *Controller) Thresholds() Thresholds {
	return c.thresholds
}

// EffectiveOnTemperature is the smoothed flow temperature while the flame is on,
// falling back to the configured minimum setpoint
func (c *Controller) EffectiveOnTemperature() float64 {
	return util.ValueOr(c.effectiveOnTemperature, c.config.MinimumSetpoint)
}

// LastDutyCyclePercentage is the last computed duty cycle in percent
func (c *Controller) LastDutyCyclePercentage() *float64 {
	if c.lastDutyCyclePercentage == nil {
		return nil
	}
	return util.Ptr(util.Round(*c.lastDutyCyclePercentage*100, 2))
}

func (c *Controller) State() State {
	var dutyCycle *DutyCycle
	if c.dutyCycle != nil {
		dutyCycle = util.Ptr(*c.dutyCycle)
	}
	return State{
		Enabled:   c.enabled,
		Status:    c.status,
		DutyCycle: dutyCycle,
	}
}
