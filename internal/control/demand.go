package control

import "time"

type HvacMode string

const (
	HvacModeHeat HvacMode = "heat"
	HvacModeOff  HvacMode = "off"
)

type ControlMode string

const (
	ControlModePwm        ControlMode = "pwm"
	ControlModeContinuous ControlMode = "continuous"
)

// Demand is the thermostat input of a single control loop tick
type Demand struct {
	Timestamp time.Time
	HvacMode  HvacMode

	TargetTemperature  float64
	InsideTemperature  *float64
	OutsideTemperature *float64
}

// DemandSource provides the thermostat input for a control loop tick
type DemandSource interface {
	Demand(now time.Time) Demand
}

// StaticDemand always heats towards the same target using the given temperature readers
type StaticDemand struct {
	TargetTemperature float64
	Inside            func() *float64
	Outside           func() *float64
}

func (d StaticDemand) Demand(now time.Time) Demand {
	demand := Demand{
		Timestamp:         now,
		HvacMode:          HvacModeHeat,
		TargetTemperature: d.TargetTemperature,
	}
	if d.Inside != nil {
		demand.InsideTemperature = d.Inside()
	}
	if d.Outside != nil {
		demand.OutsideTemperature = d.Outside()
	}
	return demand
}
