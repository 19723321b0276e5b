package boiler

// State is an immutable snapshot of the boiler, replaced on every coordinator update
type State struct {
	FlameActive    bool `json:"flameActive"`
	CentralHeating bool `json:"centralHeating"`
	HotWaterActive bool `json:"hotWaterActive"`

	Setpoint                *float64 `json:"setpoint"`
	FlowTemperature         *float64 `json:"flowTemperature"`
	ReturnTemperature       *float64 `json:"returnTemperature"`
	MaxModulationLevel      *float64 `json:"maxModulationLevel"`
	RelativeModulationLevel *float64 `json:"relativeModulationLevel"`
}

// FlowReturnDelta is flow minus return temperature, nil if either is unknown
func (s State) FlowReturnDelta() *float64 {
	if s.FlowTemperature == nil || s.ReturnTemperature == nil {
		return nil
	}
	delta := *s.FlowTemperature - *s.ReturnTemperature
	return &delta
}

// FlowSetpointError is flow temperature minus setpoint, nil if either is unknown
func (s State) FlowSetpointError() *float64 {
	if s.FlowTemperature == nil || s.Setpoint == nil {
		return nil
	}
	e := *s.FlowTemperature - *s.Setpoint
	return &e
}

// HasDemand is true when central heating asks for a setpoint above the current flow temperature
func (s State) HasDemand() bool {
	if s.Setpoint == nil || s.FlowTemperature == nil {
		return false
	}
	return *s.Setpoint > *s.FlowTemperature+DemandHysteresis
}

// Capabilities are the setpoint limits of the boiler
type Capabilities struct {
	MinimumSetpoint float64 `json:"minimumSetpoint"`
	MaximumSetpoint float64 `json:"maximumSetpoint"`
}

// Clamp limits the given setpoint to the capability bounds
func (c Capabilities) Clamp(setpoint float64) float64 {
	if setpoint < c.MinimumSetpoint {
		return c.MinimumSetpoint
	}
	if setpoint > c.MaximumSetpoint {
		return c.MaximumSetpoint
	}
	return setpoint
}

// ControlIntent is what the control core asks the boiler to do
type ControlIntent struct {
	Setpoint           *float64 `json:"setpoint"`
	RelativeModulation *float64 `json:"relativeModulation"`
}

type HeaterState string

const (
	HeaterOn  HeaterState = "on"
	HeaterOff HeaterState = "off"
)
