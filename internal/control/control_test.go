package control

import (
	"context"
	"testing"
	"time"

	"github.com/markusressel/boiler2go/internal/boiler"
	"github.com/markusressel/boiler2go/internal/configuration"
	"github.com/markusressel/boiler2go/internal/coordinator"
	"github.com/markusressel/boiler2go/internal/events"
	"github.com/markusressel/boiler2go/internal/heating"
	"github.com/markusressel/boiler2go/internal/persistence"
	"github.com/markusressel/boiler2go/internal/pwm"
	"github.com/markusressel/boiler2go/internal/util"
	"github.com/stretchr/testify/assert"
)

var start = time.Date(2024, 1, 10, 6, 0, 0, 0, time.UTC)

func at(seconds float64) time.Time {
	return start.Add(time.Duration(seconds * float64(time.Second)))
}

func enabled(value bool) configuration.DefaultTrueBool {
	return configuration.DefaultTrueBool{
		Optional: configuration.Optional[bool]{Value: value, Present: true},
	}
}

func createConfig(coefficient float64, minimumSetpoint float64) configuration.Configuration {
	return configuration.Configuration{
		HeatingSystem: heating.HeatingSystemRadiators,
		Manufacturer:  "Other",
		HeatingCurve:  configuration.HeatingCurveConfig{Coefficient: coefficient},
		Pid: configuration.PidConfig{
			AutomaticGains:  enabled(false),
			Proportional:    10,
			SampleTimeLimit: 10 * time.Second,
		},
		Pwm: configuration.PwmConfig{
			Force:                     true,
			CyclesPerHour:             3,
			MaximumRelativeModulation: 100,
		},
		Boiler: configuration.BoilerConfig{
			MinimumSetpoint:        minimumSetpoint,
			MaximumSetpoint:        75,
			Adapter:                configuration.AdapterSimulator,
			DynamicMinimumSetpoint: enabled(false),
			FlowSetpointOffset:     2,
		},
		Cycles: configuration.CyclesConfig{MinimumSamplesPerCycle: 3},
	}
}

func createControl(t *testing.T, config configuration.Configuration, store persistence.KeyValueStore) (*HeatingControl, *coordinator.Simulator, *events.FakePublisher) {
	simulator := coordinator.NewSimulator(boiler.Capabilities{
		MinimumSetpoint: config.Boiler.MinimumSetpoint,
		MaximumSetpoint: config.Boiler.MaximumSetpoint,
	})
	publisher := events.NewFakePublisher()
	control, err := NewHeatingControl(config, simulator, store, publisher)
	assert.NoError(t, err)
	return control, simulator, publisher
}

func boilerState(flame bool, flow float64, ret float64, setpoint float64) boiler.State {
	return boiler.State{
		FlameActive:       flame,
		CentralHeating:    true,
		Setpoint:          util.Ptr(setpoint),
		FlowTemperature:   util.Ptr(flow),
		ReturnTemperature: util.Ptr(ret),
	}
}

func heatDemand(now time.Time, target float64, inside float64, outside float64) Demand {
	return Demand{
		Timestamp:          now,
		HvacMode:           HvacModeHeat,
		TargetTemperature:  target,
		InsideTemperature:  util.Ptr(inside),
		OutsideTemperature: util.Ptr(outside),
	}
}

func lastCommand(t *testing.T, simulator *coordinator.Simulator, kind coordinator.CommandKind) coordinator.Command {
	command, ok := simulator.LastCommand(kind)
	assert.True(t, ok, "expected a %s command", kind)
	return command
}

func TestNewHeatingControl_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(config *configuration.Configuration)
		err    string
	}{
		{
			name:   "heating system",
			modify: func(config *configuration.Configuration) { config.HeatingSystem = "steam" },
			err:    "unknown heating system: steam",
		},
		{
			name:   "manufacturer",
			modify: func(config *configuration.Configuration) { config.Manufacturer = "Acme" },
			err:    "unknown manufacturer: Acme",
		},
		{
			name:   "minimum samples",
			modify: func(config *configuration.Configuration) { config.Cycles.MinimumSamplesPerCycle = 0 },
			err:    "minimum samples per cycle must be >= 1, was 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN
			config := createConfig(1.8, 57)
			tt.modify(&config)

			// WHEN
			control, err := NewHeatingControl(config, coordinator.NewSimulator(boiler.Capabilities{}), nil, nil)

			// THEN
			assert.Nil(t, control)
			assert.EqualError(t, err, tt.err)
		})
	}
}

func TestUpdate_PwmOnWithConfiguredMinimumSetpoint(t *testing.T) {
	// GIVEN
	control, simulator, _ := createControl(t, createConfig(1.8, 57), nil)
	simulator.SetState(boilerState(false, 40, 35, 10), at(0))

	// WHEN
	err := control.Update(context.Background(), heatDemand(at(0), 21, 20.79, 9.9))

	// THEN
	assert.NoError(t, err)
	snapshot := control.Snapshot(at(0))
	assert.Equal(t, 32.2, *snapshot.HeatingCurve)
	assert.Equal(t, 34.3, *snapshot.RequestedSetpoint)
	assert.Equal(t, 23.83, *snapshot.Pwm.LastDutyCyclePercentage)
	assert.Equal(t, pwm.DutyCycle{On: 285, Off: 914}, *snapshot.Pwm.DutyCycle)
	assert.Equal(t, pwm.StatusOn, snapshot.Pwm.Status)
	assert.Equal(t, ControlModePwm, snapshot.ControlMode)
	assert.Equal(t, 57.0, snapshot.ControlSetpoint)

	assert.Equal(t, 57.0, lastCommand(t, simulator, coordinator.CommandSetpoint).Value)
	assert.Equal(t, boiler.HeaterOn, lastCommand(t, simulator, coordinator.CommandHeaterState).State)
	assert.Equal(t, 0.0, lastCommand(t, simulator, coordinator.CommandModulation).Value)
}

func TestUpdate_PwmOffKeepsMinimumSetpoint(t *testing.T) {
	// GIVEN
	control, simulator, _ := createControl(t, createConfig(1.3, 58), nil)
	simulator.SetState(boilerState(false, 40, 35, 10), at(0))

	// WHEN
	err := control.Update(context.Background(), heatDemand(at(0), 19, 18.98, 11.1))

	// THEN
	assert.NoError(t, err)
	snapshot := control.Snapshot(at(0))
	assert.Equal(t, 27.8, *snapshot.HeatingCurve)
	assert.Equal(t, 28.0, *snapshot.RequestedSetpoint)
	assert.Equal(t, pwm.DutyCycle{On: 0, Off: 2400}, *snapshot.Pwm.DutyCycle)
	assert.Equal(t, pwm.StatusOff, snapshot.Pwm.Status)
	assert.Equal(t, boiler.MinimumSetpoint, snapshot.ControlSetpoint)

	assert.Equal(t, boiler.MinimumSetpoint, lastCommand(t, simulator, coordinator.CommandSetpoint).Value)
	assert.Equal(t, boiler.HeaterOff, lastCommand(t, simulator, coordinator.CommandHeaterState).State)
}

func TestUpdate_ContinuousClampsToFlowTemperature(t *testing.T) {
	// GIVEN
	config := createConfig(1.8, 57)
	config.Pwm.Force = false
	control, simulator, _ := createControl(t, config, nil)
	simulator.SetState(boilerState(true, 40, 33, 40), at(0))

	// WHEN
	err := control.Update(context.Background(), heatDemand(at(0), 21, 20.79, 9.9))

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, ControlModeContinuous, control.ControlMode())
	assert.Equal(t, 38.0, control.ControlSetpoint())
	assert.Equal(t, 100.0, *control.RelativeModulation())
}

func TestUpdate_ContinuousFollowsRequestedSetpoint(t *testing.T) {
	// GIVEN
	config := createConfig(1.8, 57)
	config.Pwm.Force = false
	control, simulator, _ := createControl(t, config, nil)
	simulator.SetState(boilerState(false, 30, 28, 10), at(0))

	// WHEN
	err := control.Update(context.Background(), heatDemand(at(0), 21, 20.79, 9.9))

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, 34.3, control.ControlSetpoint())
	assert.Equal(t, 34.3, lastCommand(t, simulator, coordinator.CommandSetpoint).Value)
}

func TestUpdate_HvacOffResetsControllers(t *testing.T) {
	// GIVEN
	config := createConfig(1.8, 57)
	config.Pwm.Force = false
	control, simulator, _ := createControl(t, config, nil)
	simulator.SetState(boilerState(true, 40, 33, 40), at(0))
	assert.NoError(t, control.Update(context.Background(), heatDemand(at(0), 21, 20.79, 9.9)))
	assert.Equal(t, 38.0, control.ControlSetpoint())

	// WHEN
	err := control.Update(context.Background(), Demand{Timestamp: at(30), HvacMode: HvacModeOff})

	// THEN
	assert.NoError(t, err)
	snapshot := control.Snapshot(at(30))
	assert.Equal(t, boiler.MinimumSetpoint, snapshot.ControlSetpoint)
	assert.Nil(t, snapshot.RequestedSetpoint)
	assert.Nil(t, snapshot.HeatingCurve)
	assert.False(t, snapshot.Pid.Available)
	assert.Equal(t, 0.0, snapshot.Pid.Output)
	assert.False(t, snapshot.Pwm.Enabled)
	assert.Equal(t, pwm.StatusIdle, snapshot.Pwm.Status)
	assert.Equal(t, 100.0, *snapshot.RelativeModulation)

	assert.Equal(t, boiler.HeaterOff, lastCommand(t, simulator, coordinator.CommandHeaterState).State)
	assert.Equal(t, boiler.MinimumSetpoint, lastCommand(t, simulator, coordinator.CommandSetpoint).Value)
}

func TestUpdate_MissingTemperatureHoldsState(t *testing.T) {
	// GIVEN
	control, simulator, _ := createControl(t, createConfig(1.8, 57), nil)
	demand := heatDemand(at(0), 21, 20.79, 9.9)
	demand.InsideTemperature = nil

	// WHEN
	err := control.Update(context.Background(), demand)

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, boiler.MinimumSetpoint, control.ControlSetpoint())
	assert.Nil(t, control.RequestedSetpoint())
	assert.Empty(t, simulator.Commands())
}

func TestUpdate_CancelledContext(t *testing.T) {
	// GIVEN
	control, _, _ := createControl(t, createConfig(1.8, 57), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// WHEN
	err := control.Update(ctx, heatDemand(at(0), 21, 20.79, 9.9))

	// THEN
	assert.EqualError(t, err, "set heater state: context canceled")
}

func TestUpdate_PwmFlameOffHoldAndModulationSuppression(t *testing.T) {
	// GIVEN
	config := createConfig(1.8, 40)
	config.Boiler.DynamicMinimumSetpoint = configuration.DefaultTrueBool{}
	control, simulator, _ := createControl(t, config, nil)
	ctx := context.Background()

	// WHEN the flame is off
	simulator.SetState(boilerState(false, 35, 30, 10), at(0))
	control.OnCoordinatorUpdate(at(0))
	assert.NoError(t, control.Update(ctx, heatDemand(at(0), 21, 20.79, 9.9)))

	// THEN the setpoint is held just above the return temperature
	assert.Equal(t, ControlModePwm, control.ControlMode())
	assert.Equal(t, 35.0, control.ControlSetpoint())

	// WHEN the flame just ignited
	simulator.SetState(boilerState(true, 36, 30, 35), at(5))
	control.OnCoordinatorUpdate(at(5))
	assert.NoError(t, control.Update(ctx, heatDemand(at(10), 21, 20.79, 9.9)))

	// THEN the hold is kept during the suppression delay
	assert.Equal(t, 35.0, control.ControlSetpoint())

	// WHEN the flame burns past the suppression delay
	simulator.SetState(boilerState(true, 50, 40, 35), at(30))
	control.OnCoordinatorUpdate(at(30))
	assert.NoError(t, control.Update(ctx, heatDemand(at(30), 21, 20.79, 9.9)))

	// THEN the setpoint tracks the flow temperature
	assert.Equal(t, 48.0, control.ControlSetpoint())
	assert.Equal(t, 48.0, lastCommand(t, simulator, coordinator.CommandSetpoint).Value)
}

func TestOnCoordinatorUpdate_TracksCycles(t *testing.T) {
	// GIVEN
	config := createConfig(1.8, 40)
	config.Pwm.Force = false
	config.Boiler.DynamicMinimumSetpoint = configuration.DefaultTrueBool{}
	control, simulator, publisher := createControl(t, config, nil)

	simulator.SetState(boilerState(false, 30, 28, 10), at(0))
	assert.NoError(t, control.Update(context.Background(), heatDemand(at(0), 21, 20.79, 9.9)))
	control.OnCoordinatorUpdate(at(0))

	// WHEN
	for i, flow := range []float64{36, 38, 40, 42} {
		now := at(float64(60 * (i + 1)))
		simulator.SetState(boilerState(true, flow, flow-6, 34.3), now)
		control.OnCoordinatorUpdate(now)
	}
	simulator.SetState(boilerState(false, 42, 36, 34.3), at(300))
	control.OnCoordinatorUpdate(at(300))

	// THEN
	assert.Len(t, publisher.Started, 1)
	assert.Equal(t, at(60), publisher.Started[0].Timestamp)
	assert.Len(t, publisher.Ended, 1)
	assert.Equal(t, 4, publisher.Ended[0].SampleCount)

	snapshot := control.Snapshot(at(300))
	assert.NotNil(t, snapshot.LastCycle)
	assert.NotNil(t, snapshot.ActiveRegime)
	assert.Len(t, snapshot.Regimes, 1)
	assert.Equal(t, 1, snapshot.Regimes[0].CompletedCycles)
}

func TestOnCoordinatorUpdate_PublishErrorDoesNotStopTracking(t *testing.T) {
	// GIVEN
	config := createConfig(1.8, 40)
	control, simulator, publisher := createControl(t, config, nil)
	publisher.PublishError = assert.AnError

	// WHEN
	simulator.SetState(boilerState(true, 36, 30, 40), at(0))
	control.OnCoordinatorUpdate(at(0))

	// THEN
	assert.Empty(t, publisher.Started)
	assert.Equal(t, boiler.MinimumSetpoint, control.ControlSetpoint())
}

func TestSaveAndLoad(t *testing.T) {
	// GIVEN
	store := persistence.NewMemoryStore()
	config := createConfig(1.8, 57)
	config.Pwm.Force = false
	control, simulator, _ := createControl(t, config, store)
	simulator.SetState(boilerState(true, 40, 33, 40), at(0))
	assert.NoError(t, control.Update(context.Background(), heatDemand(at(0), 21, 20.79, 9.9)))
	control.pwm.Enable()

	// WHEN
	assert.NoError(t, control.Save())
	restored, _, _ := createControl(t, config, store)
	err := restored.Load(at(60))

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, control.pid.State(), restored.pid.State())
	assert.True(t, restored.pwm.Enabled())
	assert.Equal(t, 38.0, restored.ControlSetpoint())
	assert.Equal(t, 100.0, *restored.RelativeModulation())
}

func TestLoad_EmptyStore(t *testing.T) {
	// GIVEN
	control, _, _ := createControl(t, createConfig(1.8, 57), persistence.NewMemoryStore())

	// WHEN
	err := control.Load(at(0))

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, boiler.MinimumSetpoint, control.ControlSetpoint())
	assert.True(t, control.pwm.Enabled())
}
