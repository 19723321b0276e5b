package control

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/markusressel/boiler2go/internal/boiler"
	"github.com/markusressel/boiler2go/internal/configuration"
	"github.com/markusressel/boiler2go/internal/coordinator"
	"github.com/markusressel/boiler2go/internal/cycles"
	"github.com/markusressel/boiler2go/internal/events"
	"github.com/markusressel/boiler2go/internal/heating"
	"github.com/markusressel/boiler2go/internal/persistence"
	"github.com/markusressel/boiler2go/internal/pid"
	"github.com/markusressel/boiler2go/internal/pwm"
	"github.com/markusressel/boiler2go/internal/setpoint"
	"github.com/markusressel/boiler2go/internal/ui"
	"github.com/markusressel/boiler2go/internal/util"
)

// HeatingControl turns thermostat demand into boiler commands.
// It combines the heating curve, the PID controller, pulse width modulation
// and the learned minimum setpoint, and tracks the flame cycles of the boiler.
type HeatingControl struct {
	mu sync.RWMutex

	config       configuration.Configuration
	manufacturer boiler.Manufacturer
	coordinator  coordinator.Coordinator
	store        persistence.KeyValueStore
	publisher    events.Publisher
	flusher      *persistence.Flusher

	curve           *heating.HeatingCurve
	pid             *pid.Controller
	pwm             *pwm.Controller
	history         *cycles.History
	cycleTracker    *cycles.Tracker
	boilerTracker   *boiler.Tracker
	minimumSetpoint *setpoint.DynamicMinimumSetpoint

	controlSetpoint      float64
	relativeModulation   *float64
	requestedSetpoint    *float64
	outsideTemperature   *float64
	flameOffHoldSetpoint *float64
	lastDemand           *Demand

	pendingEvents []func(publisher events.Publisher) error
}

type commands struct {
	heaterState        boiler.HeaterState
	setpoint           float64
	relativeModulation *float64
}

// NewHeatingControl wires all control components. store may be nil to keep
// all state in memory, publisher may be nil to skip cycle events.
func NewHeatingControl(
	config configuration.Configuration,
	boilerCoordinator coordinator.Coordinator,
	store persistence.KeyValueStore,
	publisher events.Publisher,
) (*HeatingControl, error) {
	if boilerCoordinator == nil {
		return nil, errors.New("coordinator is required")
	}
	system, err := heating.ParseHeatingSystem(string(config.HeatingSystem))
	if err != nil {
		return nil, err
	}
	manufacturer, err := boiler.ManufacturerByName(config.Manufacturer)
	if err != nil {
		return nil, err
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}

	curve := heating.NewHeatingCurve(system, config.HeatingCurve.Coefficient)

	h := &HeatingControl{
		config:       config,
		manufacturer: manufacturer,
		coordinator:  boilerCoordinator,
		store:        store,
		publisher:    publisher,

		curve: curve,
		pid: pid.NewController(pid.Config{
			AutomaticGains:     config.Pid.AutomaticGains.Get(),
			AutomaticGainValue: config.Pid.AutomaticGainValue,
			Kp:                 config.Pid.Proportional,
			Ki:                 config.Pid.Integral,
			Kd:                 config.Pid.Derivative,
			SampleTimeLimit:    config.Pid.SampleTimeLimit,
			HeatingSystem:      system,
		}, curve),
		pwm: pwm.NewController(pwm.Config{
			CyclesPerHour:   config.Pwm.CyclesPerHour,
			MinimumSetpoint: config.Boiler.MinimumSetpoint,
			Force:           config.Pwm.Force,
		}, curve),
		history:       cycles.NewHistory(),
		boilerTracker: boiler.NewTracker(),
		minimumSetpoint: setpoint.NewDynamicMinimumSetpoint(setpoint.Config{
			MinimumSetpoint: config.Boiler.MinimumSetpoint,
		}, store),

		controlSetpoint: boiler.MinimumSetpoint,
	}
	h.relativeModulation = h.maximumRelativeModulation()

	h.cycleTracker, err = cycles.NewTracker(h.history, config.Cycles.MinimumSamplesPerCycle, cycleListener{control: h})
	if err != nil {
		return nil, err
	}

	return h, nil
}

// SetFlusher registers the flusher that is notified about state changes worth persisting
func (h *HeatingControl) SetFlusher(flusher *persistence.Flusher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.flusher = flusher
}

func (h *HeatingControl) markDirty() {
	if h.flusher != nil {
		h.flusher.MarkDirty()
	}
}

// Update runs a single control step for the given demand and forwards the
// resulting commands to the boiler.
func (h *HeatingControl) Update(ctx context.Context, demand Demand) error {
	h.mu.Lock()
	result, ok := h.update(demand)
	h.mu.Unlock()

	if !ok {
		return nil
	}
	return h.apply(ctx, result)
}

func (h *HeatingControl) update(demand Demand) (commands, bool) {
	h.lastDemand = &demand
	h.outsideTemperature = demand.OutsideTemperature

	if demand.HvacMode != HvacModeHeat {
		return h.turnOff(), true
	}

	if demand.InsideTemperature == nil || demand.OutsideTemperature == nil {
		ui.Warning("Missing inside or outside temperature, keeping control setpoint at %.1f", h.controlSetpoint)
		return commands{}, false
	}

	h.curve.Update(demand.TargetTemperature, *demand.OutsideTemperature)
	curveValue := *h.curve.Value()

	temperatureError := util.Round(demand.TargetTemperature-*demand.InsideTemperature, 2)
	h.pid.Update(temperatureError, curveValue, demand.Timestamp)

	requested := util.Round(curveValue+h.pid.Output(), 1)
	h.requestedSetpoint = &requested

	state := h.coordinator.State()
	h.pwm.Update(state, &requested, demand.Timestamp)
	h.updatePwmEnabled(requested, demand.Timestamp)

	if h.controlMode() == ControlModePwm {
		h.updatePwmControlSetpoint(state, requested, demand.Timestamp)
	} else {
		h.flameOffHoldSetpoint = nil
		h.updateContinuousControlSetpoint(state, requested)
	}
	h.relativeModulation = h.computeRelativeModulation(state)

	ui.Debug(
		"Control step: curve=%.1f error=%.2f pid=%.2f requested=%.1f setpoint=%.1f mode=%s",
		curveValue, temperatureError, h.pid.Output(), requested, h.controlSetpoint, h.controlMode(),
	)

	return h.commands(), true
}

func (h *HeatingControl) turnOff() commands {
	h.controlSetpoint = boiler.MinimumSetpoint
	h.relativeModulation = h.maximumRelativeModulation()
	h.requestedSetpoint = nil
	h.flameOffHoldSetpoint = nil
	h.pid.Reset()
	h.pwm.Disable()
	h.curve.Reset()
	ui.Debug("HVAC is off, resetting controllers.")
	return commands{
		heaterState:        boiler.HeaterOff,
		setpoint:           h.controlSetpoint,
		relativeModulation: h.relativeModulation,
	}
}

func (h *HeatingControl) commands() commands {
	heaterState := boiler.HeaterOff
	if h.controlSetpoint > boiler.ColdSetpoint {
		heaterState = boiler.HeaterOn
	}
	var relativeModulation *float64
	if h.relativeModulation != nil {
		relativeModulation = util.Ptr(*h.relativeModulation)
	}
	return commands{
		heaterState:        heaterState,
		setpoint:           h.controlSetpoint,
		relativeModulation: relativeModulation,
	}
}

func (h *HeatingControl) apply(ctx context.Context, c commands) error {
	if err := h.coordinator.SetHeaterState(ctx, c.heaterState); err != nil {
		return fmt.Errorf("set heater state: %w", err)
	}
	if c.relativeModulation != nil && h.coordinator.SupportsRelativeModulationManagement() {
		if err := h.coordinator.SetMaxRelativeModulation(ctx, *c.relativeModulation); err != nil {
			return fmt.Errorf("set max relative modulation: %w", err)
		}
	}
	if h.coordinator.SupportsSetpointManagement() {
		if err := h.coordinator.SetControlSetpoint(ctx, c.setpoint); err != nil {
			return fmt.Errorf("set control setpoint: %w", err)
		}
	}
	return nil
}

// updatePwmEnabled switches between PWM and continuous control based on the last cycle
func (h *HeatingControl) updatePwmEnabled(requested float64, now time.Time) {
	last := h.history.LastCycle(now)
	if last == nil {
		return
	}
	if last.Classification.IsOvershoot() {
		h.pwm.Enable()
	}
	if p90 := last.Tail.IntentSetpoint.P90; p90 != nil && *p90 < requested {
		h.pwm.Disable()
	}
}

func (h *HeatingControl) controlMode() ControlMode {
	if h.pwm.Enabled() && h.pwm.Status() != pwm.StatusIdle {
		return ControlModePwm
	}
	return ControlModeContinuous
}

func (h *HeatingControl) updatePwmControlSetpoint(state boiler.State, requested float64, now time.Time) {
	if state.HotWaterActive || requested <= boiler.ColdSetpoint {
		return
	}
	if h.pwm.Status() == pwm.StatusOff {
		h.controlSetpoint = boiler.MinimumSetpoint
		return
	}

	minimum := h.minimumSetpointValue()
	if !h.config.Boiler.DynamicMinimumSetpoint.Get() {
		h.controlSetpoint = minimum
		return
	}

	behavior := h.manufacturer.Behavior()
	if !state.FlameActive {
		if state.ReturnTemperature == nil {
			ui.Warning("No return temperature available, using minimum setpoint %.1f", minimum)
			h.controlSetpoint = minimum
			return
		}
		hold := util.Round(*state.ReturnTemperature+behavior.FlameOffSetpointOffset, 1)
		h.flameOffHoldSetpoint = &hold
		h.controlSetpoint = hold
		return
	}

	flameOnSince := h.boilerTracker.FlameOnSince()
	if flameOnSince.IsZero() {
		h.controlSetpoint = minimum
		return
	}
	if now.Sub(flameOnSince) < behavior.ModulationSuppressionDelay {
		h.controlSetpoint = util.ValueOr(h.flameOffHoldSetpoint, minimum)
		return
	}

	h.flameOffHoldSetpoint = nil
	if state.FlowTemperature == nil {
		h.controlSetpoint = minimum
		return
	}
	h.controlSetpoint = util.Round(math.Max(minimum, *state.FlowTemperature-behavior.ModulationSuppressionOffset), 1)
}

// updateContinuousControlSetpoint follows the requested setpoint but never
// drops the setpoint far below a flow temperature that is still above it
func (h *HeatingControl) updateContinuousControlSetpoint(state boiler.State, requested float64) {
	flow := state.FlowTemperature
	if flow == nil || *flow <= requested {
		h.controlSetpoint = requested
		return
	}
	h.controlSetpoint = util.Round(math.Max(requested, *flow-h.config.Boiler.FlowSetpointOffset), 1)
}

func (h *HeatingControl) computeRelativeModulation(state boiler.State) *float64 {
	if !h.coordinator.SupportsRelativeModulationManagement() {
		return nil
	}
	value := h.config.Pwm.MaximumRelativeModulation
	if !state.HotWaterActive && h.controlMode() == ControlModePwm {
		value = boiler.MinimumRelativeModulation
	}
	value = h.manufacturer.Behavior().ClampRelativeModulation(value)
	return &value
}

func (h *HeatingControl) maximumRelativeModulation() *float64 {
	if !h.coordinator.SupportsRelativeModulationManagement() {
		return nil
	}
	value := h.manufacturer.Behavior().ClampRelativeModulation(h.config.Pwm.MaximumRelativeModulation)
	return &value
}

// minimumSetpointValue is the learned minimum, or the configured one if learning is disabled
func (h *HeatingControl) minimumSetpointValue() float64 {
	if !h.config.Boiler.DynamicMinimumSetpoint.Get() {
		return h.config.Boiler.MinimumSetpoint
	}
	return h.coordinator.Capabilities().Clamp(h.minimumSetpoint.Value())
}

// OnCoordinatorUpdate consumes a new boiler state reported by the coordinator
func (h *HeatingControl) OnCoordinatorUpdate(now time.Time) {
	h.mu.Lock()
	state := h.coordinator.State()

	var lastCycleDuration time.Duration
	if last := h.history.LastCycle(now); last != nil {
		lastCycleDuration = last.Duration()
	}
	if h.boilerTracker.Update(state, lastCycleDuration, now) {
		h.markDirty()
	}

	var relativeModulation *float64
	if h.relativeModulation != nil {
		relativeModulation = util.Ptr(*h.relativeModulation)
	}
	var requested *float64
	if h.requestedSetpoint != nil {
		requested = util.Ptr(*h.requestedSetpoint)
	}
	h.cycleTracker.Update(cycles.Sample{
		Timestamp: now,
		PWM:       h.pwm.State(),
		State:     state,
		Intent: boiler.ControlIntent{
			Setpoint:           util.Ptr(h.controlSetpoint),
			RelativeModulation: relativeModulation,
		},
		RequestedSetpoint:  requested,
		OutsideTemperature: h.outsideTemperature,
	})

	pending := h.pendingEvents
	h.pendingEvents = nil
	h.mu.Unlock()

	for _, publish := range pending {
		if err := publish(h.publisher); err != nil {
			ui.Warning("Failed to publish cycle event: %v", err)
		}
	}
}

func (h *HeatingControl) onCycleStart(sample cycles.Sample) {
	if h.config.Boiler.DynamicMinimumSetpoint.Get() {
		h.minimumSetpoint.OnCycleStart(h.coordinator.Capabilities(), sample)
	}
	h.pendingEvents = append(h.pendingEvents, func(publisher events.Publisher) error {
		return publisher.PublishCycleStarted(sample)
	})
}

func (h *HeatingControl) onCycleEnd(cycle cycles.Cycle, sample cycles.Sample) {
	ui.Info("Cycle ended after %s: %s (%s)", cycle.Duration(), cycle.Classification, cycle.Kind)

	h.pwm.OnCycleEnd(cycle.Classification, sample.PWM.ActivelyDutyCycling())
	if h.config.Boiler.DynamicMinimumSetpoint.Get() {
		h.minimumSetpoint.OnCycleEnd(h.coordinator.Capabilities(), h.history.Statistics(cycle.End), cycle)
	}
	h.markDirty()

	h.pendingEvents = append(h.pendingEvents, func(publisher events.Publisher) error {
		return publisher.PublishCycleEnded(cycle)
	})
}

// cycleListener forwards cycle boundaries while the control mutex is held
type cycleListener struct {
	control *HeatingControl
}

func (l cycleListener) OnCycleStart(sample cycles.Sample) {
	l.control.onCycleStart(sample)
}

func (l cycleListener) OnCycleEnd(cycle cycles.Cycle, sample cycles.Sample) {
	l.control.onCycleEnd(cycle, sample)
}

func (h *HeatingControl) ControlSetpoint() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.controlSetpoint
}

func (h *HeatingControl) RequestedSetpoint() *float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.requestedSetpoint == nil {
		return nil
	}
	return util.Ptr(*h.requestedSetpoint)
}

func (h *HeatingControl) RelativeModulation() *float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.relativeModulation == nil {
		return nil
	}
	return util.Ptr(*h.relativeModulation)
}

func (h *HeatingControl) ControlMode() ControlMode {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.controlMode()
}

// Coordinator is the boiler connection the control is driving
func (h *HeatingControl) Coordinator() coordinator.Coordinator {
	return h.coordinator
}
