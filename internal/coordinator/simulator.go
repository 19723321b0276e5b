package coordinator

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/markusressel/boiler2go/internal/boiler"
	"github.com/markusressel/boiler2go/internal/util"
)

const (
	SimulatorAmbientTemperature = 20.0
	// SimulatorHeatingTimeConstant is the time constant of the flow temperature while the flame is on
	SimulatorHeatingTimeConstant = 300.0
	// SimulatorCoolingTimeConstant is the time constant of the flow temperature while the flame is off
	SimulatorCoolingTimeConstant = 1800.0
	// SimulatorFlameHeadroom is how far above the setpoint the burner drives the water
	SimulatorFlameHeadroom     = 10.0
	SimulatorReturnDeltaFlame  = 7.0
	SimulatorReturnDeltaIdle   = 2.0
	SimulatorModulationPerDegC = 10.0
)

type CommandKind string

const (
	CommandSetpoint    CommandKind = "setpoint"
	CommandModulation  CommandKind = "max_relative_modulation"
	CommandHeaterState CommandKind = "heater_state"
)

// Command is a control command received by the Simulator
type Command struct {
	Kind  CommandKind
	Value float64
	State boiler.HeaterState
}

// Simulator is an in-memory boiler with a first order flow temperature model.
// The flame ignites when the setpoint exceeds the flow temperature and
// extinguishes once the flow overshoots the setpoint.
type Simulator struct {
	mu sync.RWMutex

	capabilities boiler.Capabilities
	state        boiler.State
	heaterOn     bool
	commands     []Command
	lastStep     time.Time
	updates      chan time.Time
}

func NewSimulator(capabilities boiler.Capabilities) *Simulator {
	return &Simulator{
		capabilities: capabilities,
		heaterOn:     true,
		state: boiler.State{
			CentralHeating:          true,
			Setpoint:                util.Ptr(boiler.MinimumSetpoint),
			FlowTemperature:         util.Ptr(SimulatorAmbientTemperature),
			ReturnTemperature:       util.Ptr(SimulatorAmbientTemperature),
			MaxModulationLevel:      util.Ptr(float64(boiler.MaximumRelativeModulation)),
			RelativeModulationLevel: util.Ptr(0.0),
		},
		updates: make(chan time.Time, 1),
	}
}

func (s *Simulator) State() boiler.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Simulator) Capabilities() boiler.Capabilities {
	return s.capabilities
}

func (s *Simulator) SupportsSetpointManagement() bool {
	return true
}

func (s *Simulator) SupportsRelativeModulationManagement() bool {
	return true
}

func (s *Simulator) SetHeaterState(ctx context.Context, state boiler.HeaterState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heaterOn = state == boiler.HeaterOn
	s.state.CentralHeating = s.heaterOn
	s.commands = append(s.commands, Command{Kind: CommandHeaterState, State: state})
	return nil
}

func (s *Simulator) SetControlSetpoint(ctx context.Context, value float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Setpoint = util.Ptr(value)
	s.commands = append(s.commands, Command{Kind: CommandSetpoint, Value: value})
	return nil
}

func (s *Simulator) SetMaxRelativeModulation(ctx context.Context, value float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.MaxModulationLevel = util.Ptr(value)
	s.commands = append(s.commands, Command{Kind: CommandModulation, Value: value})
	return nil
}

func (s *Simulator) Updates() <-chan time.Time {
	return s.updates
}

func (s *Simulator) Close() error {
	return nil
}

// Commands returns a copy of all received commands, in order
func (s *Simulator) Commands() []Command {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Command(nil), s.commands...)
}

// LastCommand returns the most recent command of the given kind
func (s *Simulator) LastCommand(kind CommandKind) (Command, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.commands) - 1; i >= 0; i-- {
		if s.commands[i].Kind == kind {
			return s.commands[i], true
		}
	}
	return Command{}, false
}

// SetState replaces the simulated state and signals an update
func (s *Simulator) SetState(state boiler.State, now time.Time) {
	s.mu.Lock()
	s.state = state
	s.lastStep = now
	s.mu.Unlock()
	notify(s.updates, now)
}

// Step advances the flow temperature model to now and signals an update
func (s *Simulator) Step(now time.Time) {
	s.mu.Lock()
	if s.lastStep.IsZero() {
		s.lastStep = now
	}
	elapsed := now.Sub(s.lastStep).Seconds()
	s.lastStep = now
	s.advance(elapsed)
	s.mu.Unlock()
	notify(s.updates, now)
}

func (s *Simulator) advance(elapsed float64) {
	flow := util.ValueOr(s.state.FlowTemperature, SimulatorAmbientTemperature)
	setpoint := util.ValueOr(s.state.Setpoint, boiler.MinimumSetpoint)

	if s.heaterOn && !s.state.FlameActive && setpoint > flow+boiler.DemandHysteresis {
		s.state.FlameActive = true
	} else if s.state.FlameActive && (!s.heaterOn || flow >= setpoint+boiler.OvershootDelta) {
		s.state.FlameActive = false
	}

	target := SimulatorAmbientTemperature
	timeConstant := SimulatorCoolingTimeConstant
	returnDelta := SimulatorReturnDeltaIdle
	modulation := 0.0
	if s.state.FlameActive {
		target = setpoint + SimulatorFlameHeadroom
		timeConstant = SimulatorHeatingTimeConstant
		returnDelta = SimulatorReturnDeltaFlame
		maxModulation := util.ValueOr(s.state.MaxModulationLevel, float64(boiler.MaximumRelativeModulation))
		modulation = util.Coerce((setpoint-flow)*SimulatorModulationPerDegC, 0, maxModulation)
	}

	if elapsed > 0 {
		flow += (target - flow) * (1 - math.Exp(-elapsed/timeConstant))
	}
	flow = util.Round(flow, 2)

	s.state.FlowTemperature = util.Ptr(flow)
	s.state.ReturnTemperature = util.Ptr(util.Round(math.Max(SimulatorAmbientTemperature, flow-returnDelta), 2))
	s.state.RelativeModulationLevel = util.Ptr(util.Round(modulation, 1))
}
