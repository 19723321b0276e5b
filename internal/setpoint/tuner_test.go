package setpoint

import (
	"testing"
	"time"

	"github.com/markusressel/boiler2go/internal/cycles"
	"github.com/markusressel/boiler2go/internal/util"
	"github.com/stretchr/testify/assert"
)

var start = time.Date(2024, time.January, 10, 6, 0, 0, 0, time.UTC)

func createCycle(classification cycles.Classification, duration time.Duration) cycles.Cycle {
	cycle := cycles.Cycle{
		Kind:                 cycles.KindCentralHeating,
		Classification:       classification,
		Start:                start,
		End:                  start.Add(duration),
		SampleCount:          10,
		FractionSpaceHeating: 1,
	}
	cycle.Tail.Setpoint.P50 = util.Ptr(45.0)
	return cycle
}

func tunableStatistics() cycles.Statistics {
	return cycles.Statistics{
		Window: cycles.WindowStatistics{
			SampleCount4h:    5,
			LastHourCount:    4,
			DutyRatioLast15m: 0.8,
		},
	}
}

func createState(minimum float64, completed int, stable int) *RegimeState {
	return &RegimeState{
		Key:             RegimeKey{SetpointBand: 15, OutsideBand: OutsideBandMild, DeltaBand: DeltaBandLow},
		MinimumSetpoint: minimum,
		CompletedCycles: completed,
		StableCycles:    stable,
	}
}

func TestTune_IgnoresHotWaterCycles(t *testing.T) {
	// GIVEN
	cycle := createCycle(cycles.ClassificationPrematureOff, 10*time.Minute)
	cycle.Kind = cycles.KindDomesticHotWater
	state := createState(45, 5, 0)

	// WHEN
	decision := Tune(capabilities, tunableStatistics(), cycle, state, cycle.End)

	// THEN
	assert.Equal(t, DecisionIgnored, decision)
	assert.Equal(t, 45.0, state.MinimumSetpoint)
}

func TestTune_IgnoresLowSpaceHeatingFraction(t *testing.T) {
	// GIVEN
	cycle := createCycle(cycles.ClassificationGood, 10*time.Minute)
	cycle.Kind = cycles.KindMixed
	cycle.FractionSpaceHeating = 0.5
	state := createState(45, 5, 5)

	// WHEN
	decision := Tune(capabilities, tunableStatistics(), cycle, state, cycle.End)

	// THEN
	assert.Equal(t, DecisionIgnored, decision)
	assert.Equal(t, 45.0, state.MinimumSetpoint)
}

func TestTune_PrematureOffIncreasesByOffWithDemandDuration(t *testing.T) {
	tests := []struct {
		name       string
		offSeconds *float64
		completed  int
		expected   float64
	}{
		{name: "long off period", offSeconds: util.Ptr(600.0), completed: 5, expected: 46.5},
		{name: "short off period", offSeconds: util.Ptr(120.0), completed: 5, expected: 45.7},
		{name: "unknown off period", offSeconds: nil, completed: 5, expected: 46.0},
		{name: "young regime", offSeconds: nil, completed: 0, expected: 46.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN
			cycle := createCycle(cycles.ClassificationPrematureOff, 10*time.Minute)
			statistics := cycles.Statistics{}
			statistics.Window.OffWithDemandDurationSeconds = tt.offSeconds
			state := createState(45, tt.completed, 0)

			// WHEN
			decision := Tune(capabilities, statistics, cycle, state, cycle.End)

			// THEN
			assert.Equal(t, DecisionIncreased, decision)
			assert.InDelta(t, tt.expected, state.MinimumSetpoint, 0.001)
		})
	}
}

func TestTune_RelaxesWhenNotTunable(t *testing.T) {
	// GIVEN
	cycle := createCycle(cycles.ClassificationFastOvershoot, 5*time.Minute)
	cycle.Tail.FlowTemperature.P50 = util.Ptr(50.0)
	statistics := tunableStatistics()
	statistics.Window.LastHourCount = 2
	state := createState(45, 5, 0)

	// WHEN
	decision := Tune(capabilities, statistics, cycle, state, cycle.End)

	// THEN
	assert.Equal(t, DecisionRelaxed, decision)
	assert.InDelta(t, 45.4, state.MinimumSetpoint, 0.001)
}

func TestTune_SkipsWithoutTailSetpoint(t *testing.T) {
	// GIVEN
	cycle := createCycle(cycles.ClassificationLongUnderheat, 20*time.Minute)
	cycle.Tail.Setpoint.P50 = nil
	state := createState(45, 5, 0)

	// WHEN
	decision := Tune(capabilities, tunableStatistics(), cycle, state, cycle.End)

	// THEN
	assert.Equal(t, DecisionSkipped, decision)
	assert.Equal(t, 45.0, state.MinimumSetpoint)
}

func TestTune_SkipsOutsideLearningBand(t *testing.T) {
	// GIVEN
	cycle := createCycle(cycles.ClassificationLongUnderheat, 20*time.Minute)
	cycle.Tail.Setpoint.P50 = util.Ptr(49.0)
	state := createState(45, 5, 0)
	youngState := createState(45, 0, 0)

	// WHEN
	decision := Tune(capabilities, tunableStatistics(), cycle, state, cycle.End)
	youngDecision := Tune(capabilities, tunableStatistics(), cycle, youngState, cycle.End)

	// THEN
	assert.Equal(t, DecisionSkipped, decision)
	assert.Equal(t, 45.0, state.MinimumSetpoint)
	// the band of a young regime is 5.0
	assert.Equal(t, DecisionDecreased, youngDecision)
}

func TestTune_UncertainIsUnchanged(t *testing.T) {
	// GIVEN
	cycle := createCycle(cycles.ClassificationUncertain, 20*time.Minute)
	state := createState(45, 5, 5)

	// WHEN
	decision := Tune(capabilities, tunableStatistics(), cycle, state, cycle.End)

	// THEN
	assert.Equal(t, DecisionUnchanged, decision)
	assert.Equal(t, 45.0, state.MinimumSetpoint)
}

func TestTune_GoodCycle(t *testing.T) {
	tests := []struct {
		name              string
		stable            int
		returnTemperature *float64
		expected          float64
	}{
		{name: "not yet stable", stable: 1, expected: 45.0},
		{name: "stable", stable: 2, expected: 44.7},
		{name: "stable with high return temperature", stable: 2, returnTemperature: util.Ptr(65.0), expected: 44.3},
		{name: "condensing bias only", stable: 0, returnTemperature: util.Ptr(60.0), expected: 44.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN
			cycle := createCycle(cycles.ClassificationGood, 20*time.Minute)
			cycle.Tail.ReturnTemperature.P90 = tt.returnTemperature
			state := createState(45, 5, tt.stable)

			// WHEN
			Tune(capabilities, tunableStatistics(), cycle, state, cycle.End)

			// THEN
			assert.InDelta(t, tt.expected, state.MinimumSetpoint, 0.001)
		})
	}
}

func TestTune_ShortUnderheatDecreases(t *testing.T) {
	// GIVEN
	cycle := createCycle(cycles.ClassificationTooShortUnderheat, 5*time.Minute)
	state := createState(45, 5, 0)
	youngState := createState(45, 1, 0)

	// WHEN
	Tune(capabilities, tunableStatistics(), cycle, state, cycle.End)
	Tune(capabilities, tunableStatistics(), cycle, youngState, cycle.End)

	// THEN
	assert.InDelta(t, 44.0, state.MinimumSetpoint, 0.001)
	assert.InDelta(t, 43.7, youngState.MinimumSetpoint, 0.001)
}

func TestTune_LongUnderheatScalesWithError(t *testing.T) {
	// GIVEN
	cycle := createCycle(cycles.ClassificationLongUnderheat, 20*time.Minute)
	cycle.Tail.FlowSetpointError.P90 = util.Ptr(-5.0)
	state := createState(45, 5, 0)

	// WHEN
	decision := Tune(capabilities, tunableStatistics(), cycle, state, cycle.End)

	// THEN
	assert.Equal(t, DecisionDecreased, decision)
	assert.InDelta(t, 44.2, state.MinimumSetpoint, 0.001)
}

func TestTune_IgnoresShortOvershootUnderLowLoad(t *testing.T) {
	// GIVEN
	cycle := createCycle(cycles.ClassificationTooShortOvershoot, 200*time.Second)
	statistics := tunableStatistics()
	statistics.Window.DutyRatioLast15m = 0.4
	state := createState(45, 5, 0)

	// WHEN
	decision := Tune(capabilities, statistics, cycle, state, cycle.End)

	// THEN
	assert.Equal(t, DecisionSkipped, decision)
	assert.Equal(t, 45.0, state.MinimumSetpoint)
}

func TestTune_IgnoresLoadDropOvershoot(t *testing.T) {
	// GIVEN
	cycle := createCycle(cycles.ClassificationLongOvershoot, 20*time.Minute)
	cycle.Tail.FlowTemperature.P90 = util.Ptr(50.0)
	cycle.Tail.FlowReturnDelta.P90 = util.Ptr(20.0)
	state := createState(45, 5, 0)

	// WHEN
	decision := Tune(capabilities, tunableStatistics(), cycle, state, cycle.End)

	// THEN
	assert.Equal(t, DecisionSkipped, decision)
	assert.Equal(t, 45.0, state.MinimumSetpoint)
}

func TestTune_OvershootIncreaseRespectsCooldown(t *testing.T) {
	// GIVEN
	cycle := createCycle(cycles.ClassificationFastOvershoot, 60*time.Second)
	state := createState(45, 5, 0)

	// WHEN
	first := Tune(capabilities, tunableStatistics(), cycle, state, start)
	second := Tune(capabilities, tunableStatistics(), cycle, state, start.Add(time.Hour))
	third := Tune(capabilities, tunableStatistics(), cycle, state, start.Add(IncreaseCooldown))

	// THEN
	assert.Equal(t, DecisionIncreased, first)
	assert.Equal(t, DecisionSkipped, second)
	assert.Equal(t, DecisionIncreased, third)
	assert.InDelta(t, 47.0, state.MinimumSetpoint, 0.001)
}

func TestTune_OvershootIncreaseIsCappedPerDay(t *testing.T) {
	// GIVEN
	cycle := createCycle(cycles.ClassificationFastOvershoot, 60*time.Second)
	state := createState(45, 5, 0)

	// WHEN
	var applied []float64
	for hours := 0; hours <= 24; hours += 2 {
		previous := state.MinimumSetpoint
		cycle.Tail.Setpoint.P50 = util.Ptr(state.MinimumSetpoint)
		Tune(capabilities, tunableStatistics(), cycle, state, start.Add(time.Duration(hours)*time.Hour))
		applied = append(applied, state.MinimumSetpoint-previous)
	}

	// THEN
	assert.InDelta(t, 1.0, applied[0], 0.001)
	assert.InDelta(t, 1.0, applied[1], 0.001)
	for _, step := range applied[2:12] {
		assert.Equal(t, 0.0, step)
	}
	// the first increase left the window
	assert.InDelta(t, 1.0, applied[12], 0.001)
	assert.InDelta(t, 48.0, state.MinimumSetpoint, 0.001)
}
