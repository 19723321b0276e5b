package setpoint

import (
	"testing"

	"github.com/markusressel/boiler2go/internal/boiler"
	"github.com/markusressel/boiler2go/internal/cycles"
	"github.com/markusressel/boiler2go/internal/util"
	"github.com/stretchr/testify/assert"
)

var capabilities = boiler.Capabilities{MinimumSetpoint: 40, MaximumSetpoint: 75}

func TestRelax_FlowFloorWhenRunningNearMinimum(t *testing.T) {
	// GIVEN
	cycle := cycles.Cycle{}
	cycle.Tail.Setpoint.P50 = util.Ptr(46.0)
	cycle.Tail.FlowTemperature.P50 = util.Ptr(50.0)

	// WHEN
	result := Relax(capabilities, cycle, 45, RelaxFactorWhenUntunable)

	// THEN
	assert.True(t, result.RanNearMinimum)
	assert.Equal(t, AnchorSourceFlowFloor, result.Source)
	assert.InDelta(t, 47.0, result.Anchor, 0.001)
	assert.InDelta(t, 45.4, result.MinimumSetpoint, 0.001)
}

func TestRelax_TailSetpointWhenFarFromMinimum(t *testing.T) {
	// GIVEN
	cycle := cycles.Cycle{}
	cycle.Tail.Setpoint.P90 = util.Ptr(55.0)
	cycle.Tail.FlowTemperature.P50 = util.Ptr(58.0)

	// WHEN
	result := Relax(capabilities, cycle, 45, RelaxFactorWhenUntunable)

	// THEN
	assert.False(t, result.RanNearMinimum)
	assert.Equal(t, AnchorSourceTailSetpoint, result.Source)
	assert.InDelta(t, 47.0, result.MinimumSetpoint, 0.001)
}

func TestRelax_IntentSetpointFallback(t *testing.T) {
	// GIVEN
	cycle := cycles.Cycle{}
	cycle.Metrics.IntentSetpoint.P90 = util.Ptr(60.0)

	// WHEN
	result := Relax(capabilities, cycle, 45, RelaxFactorWhenUntunable)

	// THEN
	assert.Equal(t, AnchorSourceIntentSetpoint, result.Source)
	assert.InDelta(t, 48.0, result.MinimumSetpoint, 0.001)
}

func TestRelax_AnchorIsClamped(t *testing.T) {
	// GIVEN
	cycle := cycles.Cycle{}
	cycle.Tail.Setpoint.P50 = util.Ptr(44.0)
	cycle.MaxFlowTemperature = util.Ptr(30.0)

	// WHEN
	result := Relax(capabilities, cycle, 45, RelaxFactorWhenUntunable)

	// THEN
	assert.Equal(t, AnchorSourceFlowFloor, result.Source)
	assert.Equal(t, 40.0, result.Anchor)
	assert.InDelta(t, 44.0, result.MinimumSetpoint, 0.001)
}

func TestRelax_NoAnchorKeepsMinimum(t *testing.T) {
	// GIVEN
	cycle := cycles.Cycle{}

	// WHEN
	result := Relax(capabilities, cycle, 45, RelaxFactorWhenUntunable)

	// THEN
	assert.Equal(t, 45.0, result.MinimumSetpoint)
}
