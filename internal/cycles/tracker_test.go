package cycles

import (
	"testing"
	"time"

	"github.com/markusressel/boiler2go/internal/boiler"
	"github.com/markusressel/boiler2go/internal/pwm"
	"github.com/markusressel/boiler2go/internal/util"
	"github.com/stretchr/testify/assert"
)

var start = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func at(seconds int) time.Time {
	return start.Add(time.Duration(seconds) * time.Second)
}

func createSample(timestamp time.Time, flameActive bool, setpoint float64, flow float64) Sample {
	return Sample{
		Timestamp: timestamp,
		PWM:       pwm.State{Enabled: false, Status: pwm.StatusIdle},
		State: boiler.State{
			FlameActive:       flameActive,
			CentralHeating:    true,
			Setpoint:          util.Ptr(setpoint),
			FlowTemperature:   util.Ptr(flow),
			ReturnTemperature: util.Ptr(flow - 10),
		},
		Intent:             boiler.ControlIntent{Setpoint: util.Ptr(setpoint)},
		RequestedSetpoint:  util.Ptr(setpoint),
		OutsideTemperature: util.Ptr(5.0),
	}
}

type recordingListener struct {
	started []Sample
	ended   []Cycle
}

func (r *recordingListener) OnCycleStart(sample Sample) {
	r.started = append(r.started, sample)
}

func (r *recordingListener) OnCycleEnd(cycle Cycle, sample Sample) {
	r.ended = append(r.ended, cycle)
}

func TestNewTracker_InvalidMinimumSamples(t *testing.T) {
	// GIVEN
	minimumSamples := 0

	// WHEN
	tracker, err := NewTracker(NewHistory(), minimumSamples)

	// THEN
	assert.Nil(t, tracker)
	assert.EqualError(t, err, "minimum samples per cycle must be >= 1, was 0")
}

func TestTracker_EmitsCycleWithMinimumSamples(t *testing.T) {
	// GIVEN
	history := NewHistory()
	listener := &recordingListener{}
	tracker, err := NewTracker(history, 3, listener)
	assert.NoError(t, err)

	// WHEN
	tracker.Update(createSample(at(0), false, 40, 40))
	tracker.Update(createSample(at(1), true, 40, 40))
	assert.Equal(t, at(1), tracker.StartedSince())
	tracker.Update(createSample(at(2), true, 40, 40))
	tracker.Update(createSample(at(3), true, 40, 40))
	tracker.Update(createSample(at(4), false, 40, 40))

	// THEN
	lastCycle := history.LastCycle(at(4))
	assert.NotNil(t, lastCycle)
	assert.Equal(t, 3, lastCycle.SampleCount)
	assert.Equal(t, 3*time.Second, lastCycle.Duration())
	assert.Equal(t, KindCentralHeating, lastCycle.Kind)
	assert.Len(t, listener.started, 1)
	assert.Len(t, listener.ended, 1)
	assert.True(t, tracker.StartedSince().IsZero())
}

func TestTracker_DropsCycleBelowMinimumSamples(t *testing.T) {
	// GIVEN
	history := NewHistory()
	listener := &recordingListener{}
	tracker, _ := NewTracker(history, 3, listener)

	// WHEN
	tracker.Update(createSample(at(0), false, 40, 40))
	tracker.Update(createSample(at(1), true, 40, 40))
	tracker.Update(createSample(at(2), true, 40, 40))
	tracker.Update(createSample(at(3), false, 40, 40))

	// THEN
	assert.Nil(t, history.LastCycle(at(3)))
	assert.Len(t, listener.started, 1)
	assert.Empty(t, listener.ended)
}

func TestTracker_UncertainWithHotWaterInTail(t *testing.T) {
	// GIVEN
	history := NewHistory()
	tracker, _ := NewTracker(history, 3)

	// WHEN
	for i := 0; i < 10; i++ {
		sample := createSample(at(i*60), true, 40, 44)
		if i == 9 {
			sample.State.HotWaterActive = true
		}
		tracker.Update(sample)
	}
	tracker.Update(createSample(at(600), false, 40, 44))

	// THEN
	lastCycle := history.LastCycle(at(600))
	assert.NotNil(t, lastCycle)
	assert.Equal(t, KindCentralHeating, lastCycle.Kind)
	assert.Greater(t, lastCycle.Tail.HotWaterActiveFraction, 0.0)
	assert.Equal(t, ClassificationUncertain, lastCycle.Classification)
}

func TestTracker_LongOvershoot(t *testing.T) {
	// GIVEN
	history := NewHistory()
	tracker, _ := NewTracker(history, 3)

	// WHEN
	for i := 0; i < 10; i++ {
		tracker.Update(createSample(at(i*60), true, 40, 44))
	}
	tracker.Update(createSample(at(600), false, 40, 44))

	// THEN
	lastCycle := history.LastCycle(at(600))
	assert.NotNil(t, lastCycle)
	assert.Equal(t, ClassificationLongOvershoot, lastCycle.Classification)
	assert.Equal(t, 44.0, *lastCycle.MaxFlowTemperature)
	assert.Equal(t, 4.0, *lastCycle.Tail.FlowSetpointError.P90)
	assert.Equal(t, 10.0, *lastCycle.Metrics.FlowReturnDelta.P50)
	// warmup ends at 120s, samples from 120s to 540s are 60s apart
	assert.Equal(t, 420.0, lastCycle.Shape.TotalOvershootSeconds)
	assert.Equal(t, 120.0, *lastCycle.Shape.TimeToFirstOvershootSeconds)
	assert.Equal(t, 120.0, *lastCycle.Shape.TimeToSustainedOvershootSeconds)
	assert.Equal(t, 0.0, lastCycle.Shape.TimeInBandSeconds)
}

func TestTracker_OffWithDemandDuration(t *testing.T) {
	// GIVEN
	history := NewHistory()
	tracker, _ := NewTracker(history, 1)
	tracker.Update(createSample(at(0), true, 50, 45))
	tracker.Update(createSample(at(60), false, 50, 45))

	// WHEN
	tracker.Update(createSample(at(120), false, 50, 40))
	tracker.Update(createSample(at(360), true, 50, 40))
	tracker.Update(createSample(at(420), false, 50, 48))

	// THEN
	lastCycle := history.LastCycle(at(420))
	assert.NotNil(t, lastCycle)
	assert.Equal(t, 300.0, *lastCycle.OffWithDemandDuration)
	assert.Equal(t, 300.0, *history.Statistics(at(420)).Window.OffWithDemandDurationSeconds)
}

func TestTracker_OffWithoutDemandIsDiscarded(t *testing.T) {
	// GIVEN
	history := NewHistory()
	tracker, _ := NewTracker(history, 1)
	tracker.Update(createSample(at(0), true, 50, 45))
	tracker.Update(createSample(at(60), false, 50, 45))

	// WHEN
	tracker.Update(createSample(at(120), false, 30, 40))
	tracker.Update(createSample(at(360), true, 50, 40))
	tracker.Update(createSample(at(420), false, 50, 48))

	// THEN
	lastCycle := history.LastCycle(at(420))
	assert.NotNil(t, lastCycle)
	assert.Nil(t, lastCycle.OffWithDemandDuration)
}

func TestTracker_Reset(t *testing.T) {
	// GIVEN
	history := NewHistory()
	tracker, _ := NewTracker(history, 1)
	tracker.Update(createSample(at(0), true, 50, 45))

	// WHEN
	tracker.Reset()
	tracker.Update(createSample(at(60), false, 50, 45))

	// THEN
	assert.Nil(t, history.LastCycle(at(60)))
}

func TestDetermineKind(t *testing.T) {
	assert.Equal(t, KindDomesticHotWater, determineKind(0.9, 0.1))
	assert.Equal(t, KindCentralHeating, determineKind(0.1, 0.9))
	assert.Equal(t, KindMixed, determineKind(0.5, 0.5))
	assert.Equal(t, KindUnknown, determineKind(0.05, 0.05))
}
