package pwm

import "time"

type Status string

const (
	StatusIdle Status = "idle"
	StatusOn   Status = "on"
	StatusOff  Status = "off"
)

const (
	// HeaterStartupTimeframe is the shortest on-time a boiler needs to reach a stable flame
	HeaterStartupTimeframe = 180
	// CycleWindow is the rolling window the cycle cap applies to
	CycleWindow = time.Hour
	// EffectiveTemperatureAlpha smooths the flow temperature observed while the flame is on
	EffectiveTemperatureAlpha = 0.2

	secondsEpsilon = 1e-6
)

// DutyCycle is an on/off split in seconds
type DutyCycle struct {
	On  int `json:"on"`
	Off int `json:"off"`
}

// State is an immutable snapshot of the controller
type State struct {
	Enabled   bool       `json:"enabled"`
	Status    Status     `json:"status"`
	DutyCycle *DutyCycle `json:"dutyCycle"`
}

// ActivelyDutyCycling is true while PWM is enabled and producing a duty cycle
func (s State) ActivelyDutyCycling() bool {
	return s.Enabled && s.Status != StatusIdle && s.DutyCycle != nil
}

type Config struct {
	// CyclesPerHour is the maximum number of duty cycles started per hour
	CyclesPerHour int
	// MinimumSetpoint stands in for the on-temperature until the flame was observed
	MinimumSetpoint float64
	// Force keeps PWM enabled regardless of cycle outcomes
	Force bool
}

// HeatingCurve provides the curve value and base offset the duty cycle is relative to
type HeatingCurve interface {
	Value() *float64
	BaseOffset() float64
}

// CycleOutcome is the classification of a completed flame cycle
type CycleOutcome interface {
	IsOvershoot() bool
	IsSustainedUnderheat() bool
}

// Thresholds are the duty cycle breakpoints derived from the configured cycles per hour
type Thresholds struct {
	OnTimeLower int
	OnTimeUpper int
	OnTimeMax   int

	DutyLower float64
	DutyUpper float64

	MinPercentage float64
	MaxPercentage float64
}

func NewThresholds(cyclesPerHour int) Thresholds {
	if cyclesPerHour < 1 {
		cyclesPerHour = 1
	}
	upper := 3600 / cyclesPerHour
	dutyLower := float64(HeaterStartupTimeframe) / float64(upper)
	minPercentage := dutyLower / 2
	return Thresholds{
		OnTimeLower:   HeaterStartupTimeframe,
		OnTimeUpper:   upper,
		OnTimeMax:     2 * upper,
		DutyLower:     dutyLower,
		DutyUpper:     1 - dutyLower,
		MinPercentage: minPercentage,
		MaxPercentage: 1 - minPercentage,
	}
}
