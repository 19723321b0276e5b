package boiler

import "time"

type Status string

const (
	StatusOff              Status = "off"
	StatusIdle             Status = "idle"
	StatusInsufficientData Status = "insufficient_data"

	StatusPreheating      Status = "preheating"
	StatusAtSetpointBand  Status = "at_setpoint_band"
	StatusStalledIgnition Status = "stalled_ignition"

	StatusModulatingUp    Status = "modulating_up"
	StatusModulatingDown  Status = "modulating_down"
	StatusIgnitionSurge   Status = "ignition_surge"
	StatusCentralHeating  Status = "central_heating"
	StatusHeatingHotWater Status = "heating_hot_water"

	StatusCooling           Status = "cooling"
	StatusAntiCycling       Status = "anti_cycling"
	StatusPumpStarting      Status = "pump_starting"
	StatusWaitingForFlame   Status = "waiting_for_flame"
	StatusOvershootCooling  Status = "overshoot_cooling"
	StatusPostCycleSettling Status = "post_cycle_settling"
)

// StatusSnapshot is everything the status evaluation looks at
type StatusSnapshot struct {
	State         State
	PreviousState *State

	LastUpdateAt     time.Time
	PreviousUpdateAt time.Time

	LastFlameOnAt            time.Time
	LastFlameOffAt           time.Time
	LastFlameOffWasOvershoot bool

	// LastCycleDuration is zero when no cycle completed yet
	LastCycleDuration time.Duration

	// ModulationDirection is +1, -1 or 0
	ModulationDirection int
}

// EvaluateStatus derives the operating status of the boiler
func EvaluateStatus(snapshot StatusSnapshot) Status {
	state := snapshot.State
	previous := snapshot.PreviousState

	if !state.CentralHeating {
		return StatusOff
	}

	if !state.FlameActive {
		if isOvershootCooling(state, snapshot.LastFlameOffWasOvershoot) {
			return StatusOvershootCooling
		}
		if isInAntiCycling(state, snapshot.LastUpdateAt, snapshot.LastFlameOffAt) {
			return StatusAntiCycling
		}
		if isIgnitionStalled(snapshot) {
			return StatusStalledIgnition
		}
		if previous != nil && previous.FlameActive {
			return StatusCooling
		}
		if isPumpStartPhase(state, previous, snapshot.LastFlameOnAt) {
			return StatusPumpStarting
		}
		if state.HasDemand() {
			return StatusWaitingForFlame
		}
		if isInPostCycleSettling(state, snapshot.LastUpdateAt, snapshot.LastFlameOffAt) {
			return StatusPostCycleSettling
		}
		return StatusIdle
	}

	if state.HotWaterActive {
		return StatusHeatingHotWater
	}

	if state.Setpoint == nil || state.FlowTemperature == nil {
		return StatusCentralHeating
	}

	if isRampingUp(snapshot) {
		return StatusIgnitionSurge
	}

	deltaToSetpoint := *state.Setpoint - *state.FlowTemperature
	if deltaToSetpoint > PreheatDelta {
		return StatusPreheating
	}
	if deltaToSetpoint >= -SetpointBand && deltaToSetpoint <= SetpointBand {
		return StatusAtSetpointBand
	}

	if snapshot.ModulationDirection > 0 {
		return StatusModulatingUp
	}
	if snapshot.ModulationDirection < 0 {
		return StatusModulatingDown
	}

	return StatusCentralHeating
}

// didOvershootAtFlameOff is true if the flame went out above the setpoint plus margin
func didOvershootAtFlameOff(state State) bool {
	if state.Setpoint == nil || state.FlowTemperature == nil {
		return false
	}
	return *state.FlowTemperature >= *state.Setpoint+OvershootDelta
}

func timeSinceFlameOff(lastUpdateAt time.Time, lastFlameOffAt time.Time) (time.Duration, bool) {
	if lastUpdateAt.IsZero() || lastFlameOffAt.IsZero() {
		return 0, false
	}
	since := lastUpdateAt.Sub(lastFlameOffAt)
	if since < 0 {
		return 0, false
	}
	return since, true
}

func isInAntiCycling(state State, lastUpdateAt time.Time, lastFlameOffAt time.Time) bool {
	if state.FlameActive || !state.HasDemand() {
		return false
	}
	since, ok := timeSinceFlameOff(lastUpdateAt, lastFlameOffAt)
	return ok && since < AntiCyclingMinOff
}

func isOvershootCooling(state State, lastFlameOffWasOvershoot bool) bool {
	if !lastFlameOffWasOvershoot || state.Setpoint == nil || state.FlowTemperature == nil {
		return false
	}
	return !state.FlameActive && *state.FlowTemperature > *state.Setpoint
}

func isIgnitionStalled(snapshot StatusSnapshot) bool {
	state := snapshot.State
	if state.FlameActive || !state.HasDemand() {
		return false
	}
	if isInAntiCycling(state, snapshot.LastUpdateAt, snapshot.LastFlameOffAt) {
		return false
	}
	if isOvershootCooling(state, snapshot.LastFlameOffWasOvershoot) {
		return false
	}

	since, ok := timeSinceFlameOff(snapshot.LastUpdateAt, snapshot.LastFlameOffAt)
	if !ok {
		return false
	}

	threshold := StallIgnitionMinOff
	if ratioThreshold := time.Duration(float64(snapshot.LastCycleDuration) * StallIgnitionOffRatio); ratioThreshold > threshold {
		threshold = ratioThreshold
	}
	return since >= threshold
}

func isInPostCycleSettling(state State, lastUpdateAt time.Time, lastFlameOffAt time.Time) bool {
	if state.HasDemand() {
		return false
	}
	since, ok := timeSinceFlameOff(lastUpdateAt, lastFlameOffAt)
	return ok && since <= PostCycleSettling
}

func isPumpStartPhase(state State, previous *State, lastFlameOnAt time.Time) bool {
	// once the flame was seen in this session it is no longer a pump start
	if !lastFlameOnAt.IsZero() {
		return false
	}
	if state.Setpoint == nil || state.FlowTemperature == nil {
		return false
	}
	if previous == nil || previous.FlowTemperature == nil {
		return false
	}
	if *state.Setpoint-*state.FlowTemperature <= PreheatDelta {
		return false
	}
	return *state.FlowTemperature-*previous.FlowTemperature <= 0
}

func isRampingUp(snapshot StatusSnapshot) bool {
	state := snapshot.State
	previous := snapshot.PreviousState
	if previous == nil || state.FlowTemperature == nil || previous.FlowTemperature == nil {
		return false
	}
	if snapshot.LastFlameOnAt.IsZero() || snapshot.LastUpdateAt.IsZero() || snapshot.PreviousUpdateAt.IsZero() {
		return false
	}
	if snapshot.LastUpdateAt.Sub(snapshot.LastFlameOnAt) > RampUpWindow {
		return false
	}

	elapsed := snapshot.LastUpdateAt.Sub(snapshot.PreviousUpdateAt).Seconds()
	if elapsed <= 0 {
		return false
	}
	delta := *state.FlowTemperature - *previous.FlowTemperature
	if delta <= 0 {
		return false
	}
	return delta/elapsed >= RampUpRateCelsiusPerSecond
}
