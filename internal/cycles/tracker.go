package cycles

import (
	"errors"
	"fmt"
	"time"

	"github.com/markusressel/boiler2go/internal/ui"
	"github.com/markusressel/boiler2go/internal/util"
)

// Tracker follows the flame state of consecutive samples and emits completed cycles
type Tracker struct {
	history        *History
	minimumSamples int
	listeners      []Listener

	samples         []Sample
	lastFlameActive *bool
	cycleStart      time.Time
	lastFlameOffAt  time.Time
	offWithDemand   *float64
}

func NewTracker(history *History, minimumSamples int, listeners ...Listener) (*Tracker, error) {
	if minimumSamples < 1 {
		return nil, errors.New(fmt.Sprintf("minimum samples per cycle must be >= 1, was %d", minimumSamples))
	}
	if history == nil {
		history = NewHistory()
	}
	return &Tracker{
		history:        history,
		minimumSamples: minimumSamples,
		listeners:      listeners,
	}, nil
}

func (t *Tracker) History() *History {
	return t.history
}

// StartedSince is the start of the running cycle, zero while the flame is off
func (t *Tracker) StartedSince() time.Time {
	return t.cycleStart
}

// Reset forgets the running cycle, the history is kept
func (t *Tracker) Reset() {
	t.samples = nil
	t.lastFlameActive = nil
	t.cycleStart = time.Time{}
	t.lastFlameOffAt = time.Time{}
	t.offWithDemand = nil
}

// Update consumes the sample of a control loop tick
func (t *Tracker) Update(sample Sample) {
	previouslyActive := t.lastFlameActive != nil && *t.lastFlameActive
	currentlyActive := sample.State.FlameActive

	if !currentlyActive && !previouslyActive {
		t.checkDemandWhileOff(sample)
	}

	if currentlyActive && !previouslyActive {
		t.offWithDemand = t.offWithDemandDuration(sample)
		t.history.RecordOffWithDemandDuration(t.offWithDemand)

		ui.Debug("Flame transition OFF->ON, starting new cycle.")
		t.cycleStart = sample.Timestamp
		t.samples = nil
		for _, listener := range t.listeners {
			listener.OnCycleStart(sample)
		}
	}

	if currentlyActive {
		t.samples = append(t.samples, sample)
	}

	if !currentlyActive && previouslyActive {
		ui.Debug("Flame transition ON->OFF, finalizing cycle.")
		t.lastFlameOffAt = sample.Timestamp

		if cycle, ok := t.buildCycle(sample); ok {
			t.history.RecordCycle(cycle)
			for _, listener := range t.listeners {
				listener.OnCycleEnd(cycle, sample)
			}
		}

		t.samples = nil
		t.cycleStart = time.Time{}
	}

	t.lastFlameActive = util.Ptr(currentlyActive)
}

func hasDemand(sample Sample) bool {
	state := sample.State
	return !state.HotWaterActive &&
		state.CentralHeating &&
		state.Setpoint != nil &&
		state.FlowTemperature != nil &&
		*state.Setpoint > *state.FlowTemperature
}

// checkDemandWhileOff discards the running off period as soon as there is no demand
func (t *Tracker) checkDemandWhileOff(sample Sample) {
	if t.lastFlameOffAt.IsZero() {
		return
	}
	if !hasDemand(sample) {
		t.lastFlameOffAt = time.Time{}
	}
}

func (t *Tracker) offWithDemandDuration(sample Sample) *float64 {
	if t.lastFlameOffAt.IsZero() {
		return nil
	}
	if !hasDemand(sample) {
		t.lastFlameOffAt = time.Time{}
		return nil
	}
	seconds := sample.Timestamp.Sub(t.lastFlameOffAt).Seconds()
	if seconds < 0 {
		seconds = 0
	}
	return &seconds
}

func (t *Tracker) buildCycle(last Sample) (Cycle, bool) {
	if t.cycleStart.IsZero() {
		ui.Debug("No start time, ignoring cycle.")
		return Cycle{}, false
	}

	sampleCount := len(t.samples)
	if sampleCount < t.minimumSamples {
		ui.Debug("Too few samples (%d < %d), ignoring cycle.", sampleCount, t.minimumSamples)
		return Cycle{}, false
	}

	start := t.cycleStart
	end := last.Timestamp

	hotWater := 0
	spaceHeating := 0
	var maxFlow *float64
	for _, sample := range t.samples {
		if sample.State.HotWaterActive {
			hotWater++
		} else if sample.State.CentralHeating {
			spaceHeating++
		}
		if flow := sample.State.FlowTemperature; flow != nil && (maxFlow == nil || *flow > *maxFlow) {
			maxFlow = util.Ptr(*flow)
		}
	}
	fractionHotWater := float64(hotWater) / float64(sampleCount)
	fractionSpaceHeating := float64(spaceHeating) / float64(sampleCount)
	kind := determineKind(fractionHotWater, fractionSpaceHeating)

	observationStart, tailStart := observationWindow(start, end)
	tail := buildMetrics(t.samples, tailStart)

	cycle := Cycle{
		Kind:                     kind,
		Tail:                     tail,
		Metrics:                  buildMetrics(t.samples, time.Time{}),
		Shape:                    buildShapeMetrics(t.samples, start, observationStart),
		Start:                    start,
		End:                      end,
		SampleCount:              sampleCount,
		MaxFlowTemperature:       maxFlow,
		FractionSpaceHeating:     fractionSpaceHeating,
		FractionDomesticHotWater: fractionHotWater,
		OffWithDemandDuration:    t.offWithDemand,
	}
	cycle.Classification = Classify(ClassifierInput{
		Duration: cycle.Duration(),
		Kind:     kind,
		PWM:      last.PWM,
		Tail:     tail,
		State:    last.State,
	})

	return cycle, true
}
