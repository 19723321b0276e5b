package setpoint

import (
	"errors"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/markusressel/boiler2go/internal/boiler"
	"github.com/markusressel/boiler2go/internal/cycles"
	"github.com/markusressel/boiler2go/internal/persistence"
	"github.com/markusressel/boiler2go/internal/ui"
	"github.com/markusressel/boiler2go/internal/util"
)

type Config struct {
	// MinimumSetpoint is reported until a regime was learned
	MinimumSetpoint float64
}

// DynamicMinimumSetpoint learns a minimum setpoint per operating regime
// from the classification of completed cycles.
type DynamicMinimumSetpoint struct {
	mu sync.RWMutex

	config Config
	store  persistence.KeyValueStore

	value   *float64
	regimes map[RegimeKey]*RegimeState
	active  *RegimeState

	bucketizer *Bucketizer
	setpoints  *util.RollingWindow
}

// NewDynamicMinimumSetpoint creates a learner, store may be nil to keep state in memory only
func NewDynamicMinimumSetpoint(config Config, store persistence.KeyValueStore) *DynamicMinimumSetpoint {
	return &DynamicMinimumSetpoint{
		config:     config,
		store:      store,
		regimes:    map[RegimeKey]*RegimeState{},
		bucketizer: NewBucketizer(),
		setpoints:  util.NewRollingWindow(RegimeSetpointSmoothingSamples),
	}
}

// Value is the learned minimum setpoint of the active regime, or the configured minimum
func (d *DynamicMinimumSetpoint) Value() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return util.Round(util.ValueOr(d.value, d.config.MinimumSetpoint), 1)
}

// ActiveKey returns the key of the active regime, if any
func (d *DynamicMinimumSetpoint) ActiveKey() *RegimeKey {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.active == nil {
		return nil
	}
	key := d.active.Key
	return &key
}

// Regimes returns a copy of all known regimes, ordered by key
func (d *DynamicMinimumSetpoint) Regimes() []RegimeState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	result := make([]RegimeState, 0, len(d.regimes))
	for _, state := range d.regimes {
		result = append(result, state.clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Key.String() < result[j].Key.String()
	})
	return result
}

// Reset forgets all learned regimes
func (d *DynamicMinimumSetpoint) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.value = nil
	d.regimes = map[RegimeKey]*RegimeState{}
	d.active = nil
	d.bucketizer = NewBucketizer()
	d.setpoints = util.NewRollingWindow(RegimeSetpointSmoothingSamples)
}

// OnCycleStart selects (or creates) the regime matching the conditions at the start of a cycle
func (d *DynamicMinimumSetpoint) OnCycleStart(capabilities boiler.Capabilities, sample cycles.Sample) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if sample.State.HotWaterActive {
		return
	}
	intent := sample.Intent.Setpoint
	if sample.RequestedSetpoint == nil && (intent == nil || *intent <= boiler.MinimumSetpoint) {
		return
	}

	key := d.bucketizer.Key(d.regimeSetpoint(sample), sample.State.FlowReturnDelta(), sample.OutsideTemperature)
	now := sample.Timestamp

	state, ok := d.regimes[key]
	if !ok {
		state = &RegimeState{
			Key:             key,
			MinimumSetpoint: d.seed(key, capabilities, intent),
		}
		d.regimes[key] = state
		ui.Info("Initialized regime %s with minimum setpoint %.1f", key, state.MinimumSetpoint)
	}

	d.active = state
	state.LastSeen = util.Ptr(now)
	d.prune(now)
	d.value = util.Ptr(state.MinimumSetpoint)
}

// OnCycleEnd tunes the active regime based on the outcome of the completed cycle
func (d *DynamicMinimumSetpoint) OnCycleEnd(capabilities boiler.Capabilities, statistics cycles.Statistics, cycle cycles.Cycle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	state := d.active
	if state == nil {
		return
	}

	state.CompletedCycles++
	if cycle.Classification == cycles.ClassificationGood {
		state.StableCycles++
	}

	previous := state.MinimumSetpoint
	decision := Tune(capabilities, statistics, cycle, state, cycle.End)
	state.MinimumSetpoint = capabilities.Clamp(state.MinimumSetpoint)

	if state.MinimumSetpoint != previous {
		ui.Info("Regime %s minimum setpoint adjusted (%s): %.2f -> %.2f", state.Key, decision, previous, state.MinimumSetpoint)
	} else {
		ui.Debug(
			"Regime %s minimum setpoint unchanged at %.2f (%s, completed=%d, stable=%d)",
			state.Key, state.MinimumSetpoint, decision, state.CompletedCycles, state.StableCycles,
		)
	}

	d.value = util.Ptr(state.MinimumSetpoint)
}

// regimeSetpoint smooths the requested setpoint over the last cycle starts,
// falling back to the intent setpoint
func (d *DynamicMinimumSetpoint) regimeSetpoint(sample cycles.Sample) float64 {
	if sample.RequestedSetpoint != nil {
		d.setpoints.Append(*sample.RequestedSetpoint)
		if avg, ok := d.setpoints.Avg(); ok {
			return avg
		}
		return *sample.RequestedSetpoint
	}
	return *sample.Intent.Setpoint
}

func (d *DynamicMinimumSetpoint) seed(key RegimeKey, capabilities boiler.Capabilities, intent *float64) float64 {
	if initial := InitialMinimum(key, d.regimes, d.value); initial != nil {
		return capabilities.Clamp(*initial)
	}
	if d.value != nil {
		return capabilities.Clamp(*d.value)
	}
	if intent != nil {
		return capabilities.Clamp(*intent)
	}
	return capabilities.MinimumSetpoint
}

func (d *DynamicMinimumSetpoint) prune(now time.Time) {
	cutoff := now.Add(-RegimeRetention)
	for key, state := range d.regimes {
		if state.LastSeen == nil || !state.LastSeen.Before(cutoff) {
			continue
		}
		delete(d.regimes, key)
		if d.active != nil && d.active.Key == key {
			d.active = nil
		}
		ui.Debug("Pruned regime %s, last seen %s", key, state.LastSeen.Format(time.RFC3339))
	}
}

// Load restores the learned regimes from the store.
// Regimes without a last seen timestamp are treated as seen at now.
func (d *DynamicMinimumSetpoint) Load(now time.Time) error {
	if d.store == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	var stored map[string]RegimeState
	err := d.store.Load(persistence.BucketMinimumSetpoint, StorageKeyRegimes, &stored)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	d.regimes = map[RegimeKey]*RegimeState{}
	d.active = nil
	for storageKey, state := range stored {
		key, err := ParseRegimeKey(storageKey)
		if err != nil {
			ui.Warning("Ignoring stored regime: %v", err)
			continue
		}
		state.Key = key
		if state.CompletedCycles < 0 {
			state.CompletedCycles = 0
		}
		if state.StableCycles < 0 {
			state.StableCycles = 0
		}
		if state.LastSeen == nil {
			state.LastSeen = util.Ptr(now)
		}
		d.regimes[key] = &state
	}

	var value *float64
	err = d.store.Load(persistence.BucketMinimumSetpoint, StorageKeyValue, &value)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	d.value = value

	d.prune(now)
	ui.Debug("Loaded %d minimum setpoint regimes", len(d.regimes))
	return nil
}

// Save persists the learned regimes to the store
func (d *DynamicMinimumSetpoint) Save() error {
	if d.store == nil {
		return nil
	}
	d.mu.RLock()
	stored := make(map[string]RegimeState, len(d.regimes))
	for key, state := range d.regimes {
		stored[key.String()] = state.clone()
	}
	var value *float64
	if d.value != nil {
		value = util.Ptr(*d.value)
	}
	d.mu.RUnlock()

	if err := d.store.Save(persistence.BucketMinimumSetpoint, StorageKeyRegimes, stored); err != nil {
		return err
	}
	if err := d.store.Save(persistence.BucketMinimumSetpoint, StorageKeyValue, value); err != nil {
		return err
	}
	ui.Debug("Saved %d minimum setpoint regimes", len(stored))
	return nil
}
