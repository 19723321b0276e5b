package control

import (
	"time"

	"github.com/markusressel/boiler2go/internal/boiler"
	"github.com/markusressel/boiler2go/internal/cycles"
	"github.com/markusressel/boiler2go/internal/pwm"
	"github.com/markusressel/boiler2go/internal/setpoint"
	"github.com/markusressel/boiler2go/internal/util"
)

type PidSnapshot struct {
	Available    bool    `json:"available"`
	Kp           float64 `json:"kp"`
	Ki           float64 `json:"ki"`
	Kd           float64 `json:"kd"`
	LastError    float64 `json:"lastError"`
	Proportional float64 `json:"proportional"`
	Integral     float64 `json:"integral"`
	Derivative   float64 `json:"derivative"`
	Output       float64 `json:"output"`
}

type PwmSnapshot struct {
	pwm.State
	CurrentCycle            int      `json:"currentCycle"`
	LastDutyCyclePercentage *float64 `json:"lastDutyCyclePercentage"`
	EffectiveOnTemperature  float64  `json:"effectiveOnTemperature"`
}

type RegimeSnapshot struct {
	Key string `json:"key"`
	setpoint.RegimeState
}

// Snapshot is a consistent view of the control state for diagnostics
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`

	ControlMode        ControlMode `json:"controlMode"`
	ControlSetpoint    float64     `json:"controlSetpoint"`
	RequestedSetpoint  *float64    `json:"requestedSetpoint"`
	RelativeModulation *float64    `json:"relativeModulation"`
	MinimumSetpoint    float64     `json:"minimumSetpoint"`

	HeatingCurve            *float64 `json:"heatingCurve"`
	HeatingCurveCoefficient float64  `json:"heatingCurveCoefficient"`

	Pid PidSnapshot `json:"pid"`
	Pwm PwmSnapshot `json:"pwm"`

	BoilerState        boiler.State  `json:"boilerState"`
	BoilerStatus       boiler.Status `json:"boilerStatus"`
	ModulationReliable *bool         `json:"modulationReliable"`

	Cycles    cycles.Statistics `json:"cycles"`
	LastCycle *cycles.Cycle     `json:"lastCycle"`

	ActiveRegime *string          `json:"activeRegime"`
	Regimes      []RegimeSnapshot `json:"regimes"`
}

func (h *HeatingControl) Snapshot(now time.Time) Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	snapshot := Snapshot{
		Timestamp:          now,
		ControlMode:        h.controlMode(),
		ControlSetpoint:    h.controlSetpoint,
		RequestedSetpoint:  util.RoundPtr(h.requestedSetpoint, 1),
		RelativeModulation: util.RoundPtr(h.relativeModulation, 1),
		MinimumSetpoint:    h.minimumSetpointValue(),

		HeatingCurve:            util.RoundPtr(h.curve.Value(), 1),
		HeatingCurveCoefficient: h.curve.Coefficient(),

		Pid: PidSnapshot{
			Available:    h.pid.Available(),
			Kp:           h.pid.Kp(),
			Ki:           h.pid.Ki(),
			Kd:           h.pid.Kd(),
			LastError:    h.pid.LastError(),
			Proportional: h.pid.Proportional(),
			Integral:     h.pid.Integral(),
			Derivative:   h.pid.Derivative(),
			Output:       h.pid.Output(),
		},
		Pwm: PwmSnapshot{
			State:                   h.pwm.State(),
			CurrentCycle:            h.pwm.CurrentCycle(),
			LastDutyCyclePercentage: h.pwm.LastDutyCyclePercentage(),
			EffectiveOnTemperature:  h.pwm.EffectiveOnTemperature(),
		},

		BoilerState:        h.coordinator.State(),
		BoilerStatus:       h.boilerTracker.Status(),
		ModulationReliable: h.boilerTracker.ModulationReliable(),

		Cycles:    h.history.Statistics(now),
		LastCycle: h.history.LastCycle(now),
	}

	if key := h.minimumSetpoint.ActiveKey(); key != nil {
		snapshot.ActiveRegime = util.Ptr(key.String())
	}
	for _, regime := range h.minimumSetpoint.Regimes() {
		snapshot.Regimes = append(snapshot.Regimes, RegimeSnapshot{
			Key:         regime.Key.String(),
			RegimeState: regime,
		})
	}
	return snapshot
}

// MinimumSetpointLearner provides the learned regimes
func (h *HeatingControl) MinimumSetpointLearner() *setpoint.DynamicMinimumSetpoint {
	return h.minimumSetpoint
}
