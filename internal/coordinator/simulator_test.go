package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/markusressel/boiler2go/internal/boiler"
	"github.com/stretchr/testify/assert"
)

var (
	start        = time.Date(2024, 1, 10, 6, 0, 0, 0, time.UTC)
	capabilities = boiler.Capabilities{MinimumSetpoint: 40, MaximumSetpoint: 75}
)

func TestSimulator_InitialState(t *testing.T) {
	// GIVEN
	simulator := NewSimulator(capabilities)

	// WHEN
	state := simulator.State()

	// THEN
	assert.False(t, state.FlameActive)
	assert.Equal(t, boiler.MinimumSetpoint, *state.Setpoint)
	assert.Equal(t, SimulatorAmbientTemperature, *state.FlowTemperature)
	assert.Equal(t, capabilities, simulator.Capabilities())
}

func TestSimulator_FlameHeatsAndStopsOnOvershoot(t *testing.T) {
	// GIVEN
	ctx := context.Background()
	simulator := NewSimulator(capabilities)
	assert.NoError(t, simulator.SetControlSetpoint(ctx, 45))

	// WHEN
	simulator.Step(start)
	ignited := simulator.State()
	simulator.Step(start.Add(300 * time.Second))
	heated := simulator.State()

	now := start.Add(300 * time.Second)
	for i := 0; i < 60 && simulator.State().FlameActive; i++ {
		now = now.Add(time.Minute)
		simulator.Step(now)
	}

	// THEN
	assert.True(t, ignited.FlameActive)
	assert.Equal(t, 100.0, *ignited.RelativeModulationLevel)
	assert.True(t, heated.FlameActive)
	assert.Equal(t, 42.12, *heated.FlowTemperature)
	assert.Equal(t, 35.12, *heated.ReturnTemperature)
	assert.False(t, simulator.State().FlameActive)
	assert.Greater(t, *simulator.State().FlowTemperature, 45.0)
}

func TestSimulator_HeaterOffExtinguishesFlame(t *testing.T) {
	// GIVEN
	ctx := context.Background()
	simulator := NewSimulator(capabilities)
	assert.NoError(t, simulator.SetControlSetpoint(ctx, 45))
	simulator.Step(start)

	// WHEN
	assert.NoError(t, simulator.SetHeaterState(ctx, boiler.HeaterOff))
	simulator.Step(start.Add(time.Minute))

	// THEN
	state := simulator.State()
	assert.False(t, state.FlameActive)
	assert.False(t, state.CentralHeating)
	assert.Equal(t, 0.0, *state.RelativeModulationLevel)
}

func TestSimulator_RecordsCommands(t *testing.T) {
	// GIVEN
	ctx := context.Background()
	simulator := NewSimulator(capabilities)

	// WHEN
	_ = simulator.SetHeaterState(ctx, boiler.HeaterOn)
	_ = simulator.SetControlSetpoint(ctx, 45)
	_ = simulator.SetMaxRelativeModulation(ctx, 0)
	_ = simulator.SetControlSetpoint(ctx, 10)

	// THEN
	assert.Len(t, simulator.Commands(), 4)
	last, ok := simulator.LastCommand(CommandSetpoint)
	assert.True(t, ok)
	assert.Equal(t, 10.0, last.Value)
	modulation, ok := simulator.LastCommand(CommandModulation)
	assert.True(t, ok)
	assert.Equal(t, 0.0, modulation.Value)
	assert.Equal(t, 0.0, *simulator.State().MaxModulationLevel)
}

func TestSimulator_RejectsCancelledContext(t *testing.T) {
	// GIVEN
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	simulator := NewSimulator(capabilities)

	// WHEN
	err := simulator.SetControlSetpoint(ctx, 45)

	// THEN
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, simulator.Commands())
}

func TestSimulator_CoalescesUpdates(t *testing.T) {
	// GIVEN
	simulator := NewSimulator(capabilities)

	// WHEN
	simulator.Step(start)
	simulator.Step(start.Add(time.Second))

	// THEN
	assert.Equal(t, start, <-simulator.Updates())
	select {
	case <-simulator.Updates():
		t.Fatal("expected a single coalesced update")
	default:
	}
}
