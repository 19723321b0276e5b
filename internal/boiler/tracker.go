package boiler

import (
	"time"

	"github.com/markusressel/boiler2go/internal/util"
)

// Tracker follows the boiler over consecutive updates and derives its status
type Tracker struct {
	current  *State
	previous *State
	status   *Status

	lastUpdateAt     time.Time
	previousUpdateAt time.Time

	lastFlameOnAt            time.Time
	lastFlameOffAt           time.Time
	lastFlameOffWasOvershoot bool

	modulation *ModulationReliability
}

func NewTracker() *Tracker {
	return &Tracker{
		modulation: NewModulationReliability(),
	}
}

// Update records a new boiler state. lastCycleDuration is zero if no cycle completed yet.
// Returns true if the modulation reliability verdict changed.
func (t *Tracker) Update(state State, lastCycleDuration time.Duration, now time.Time) (modulationChanged bool) {
	t.previous = t.current
	t.current = &state

	t.previousUpdateAt = t.lastUpdateAt
	t.lastUpdateAt = now

	if !state.HasDemand() {
		t.lastFlameOffAt = time.Time{}
	}

	t.recordFlameTransitions(t.previous, state)
	modulationChanged = t.modulation.Update(state)

	status := EvaluateStatus(StatusSnapshot{
		State:                    state,
		PreviousState:            t.previous,
		LastUpdateAt:             t.lastUpdateAt,
		PreviousUpdateAt:         t.previousUpdateAt,
		LastFlameOnAt:            t.lastFlameOnAt,
		LastFlameOffAt:           t.lastFlameOffAt,
		LastFlameOffWasOvershoot: t.lastFlameOffWasOvershoot,
		LastCycleDuration:        lastCycleDuration,
		ModulationDirection:      t.modulationDirection(),
	})
	t.status = &status

	return modulationChanged
}

func (t *Tracker) recordFlameTransitions(previous *State, current State) {
	if previous == nil {
		if current.FlameActive {
			t.lastFlameOnAt = t.lastUpdateAt
		}
		return
	}

	if previous.FlameActive && !current.FlameActive {
		t.lastFlameOffAt = t.lastUpdateAt
		t.lastFlameOffWasOvershoot = didOvershootAtFlameOff(*previous)
	} else if !previous.FlameActive && current.FlameActive {
		t.lastFlameOnAt = t.lastUpdateAt
		t.lastFlameOffWasOvershoot = false
	}
}

func (t *Tracker) modulationDirection() int {
	if t.current == nil || t.previous == nil {
		return 0
	}

	if reliable := t.modulation.Reliable(); reliable != nil && *reliable {
		current := t.current.RelativeModulationLevel
		previous := t.previous.RelativeModulationLevel
		if current != nil && previous != nil {
			delta := *current - *previous
			if delta > ModulationDeltaThreshold {
				return 1
			}
			if delta < -ModulationDeltaThreshold {
				return -1
			}
		}
	}

	if t.current.FlowTemperature == nil || t.previous.FlowTemperature == nil {
		return 0
	}
	delta := *t.current.FlowTemperature - *t.previous.FlowTemperature
	if delta > GradientThresholdUp {
		return 1
	}
	if delta < GradientThresholdDown {
		return -1
	}
	return 0
}

func (t *Tracker) Status() Status {
	if t.status == nil {
		return StatusInsufficientData
	}
	return *t.status
}

func (t *Tracker) Current() *State {
	return t.current
}

// FlameOnSince is zero if the flame was never seen
func (t *Tracker) FlameOnSince() time.Time {
	return t.lastFlameOnAt
}

func (t *Tracker) FlameOffSince() time.Time {
	return t.lastFlameOffAt
}

func (t *Tracker) ModulationReliable() *bool {
	return t.modulation.Reliable()
}

func (t *Tracker) LoadModulationReliable(reliable *bool) {
	t.modulation.Load(reliable)
}

// ModulationReliability decides whether the reported relative modulation level
// shows meaningful variation while the flame is on
type ModulationReliability struct {
	reliable *bool
	window   *util.RollingWindow
}

func NewModulationReliability() *ModulationReliability {
	return &ModulationReliability{
		window: util.NewRollingWindow(ModulationReliabilityMinSample),
	}
}

func (m *ModulationReliability) Reliable() *bool {
	return m.reliable
}

func (m *ModulationReliability) Load(reliable *bool) {
	m.reliable = reliable
}

// Update returns true if the verdict changed
func (m *ModulationReliability) Update(state State) bool {
	if !state.FlameActive {
		return false
	}
	if state.RelativeModulationLevel == nil || state.MaxModulationLevel == nil || *state.MaxModulationLevel < ModulationDeltaThreshold {
		return false
	}

	m.window.Append(*state.RelativeModulationLevel)
	count := m.window.Len()
	if count < ModulationReliabilityMinSample {
		return false
	}

	aboveThreshold := m.window.CountAtLeast(ModulationDeltaThreshold)
	required := count * 4 / 10
	if required < 2 {
		required = 2
	}

	previous := m.reliable
	reliable := aboveThreshold >= required
	m.reliable = &reliable

	return previous == nil || *previous != reliable
}
