package control

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/markusressel/boiler2go/internal/persistence"
	"github.com/markusressel/boiler2go/internal/pid"
	"github.com/markusressel/boiler2go/internal/ui"
	"github.com/markusressel/boiler2go/internal/util"
)

const (
	StorageKeyPid                = "pid"
	StorageKeyPwm                = "pwm"
	StorageKeyControl            = "setpoint"
	StorageKeyModulationReliable = "modulation_reliable"
)

type pwmState struct {
	Enabled bool `json:"pulse_width_modulation_enabled"`
}

type controlState struct {
	Setpoint           float64  `json:"setpoint"`
	RelativeModulation *float64 `json:"relative_modulation_value"`
}

type modulationState struct {
	Reliable *bool `json:"modulation_reliable"`
}

// Load restores the persisted control state. Missing values are skipped.
func (h *HeatingControl) Load(now time.Time) error {
	if h.store == nil {
		return nil
	}

	h.mu.Lock()
	err := h.load()
	h.mu.Unlock()
	if err != nil {
		return err
	}

	if h.config.Boiler.DynamicMinimumSetpoint.Get() {
		if err := h.minimumSetpoint.Load(now); err != nil {
			return fmt.Errorf("load minimum setpoint: %w", err)
		}
	}
	return nil
}

func (h *HeatingControl) load() error {
	var pidState pid.State
	if found, err := h.loadValue(persistence.BucketControl, StorageKeyPid, &pidState); err != nil {
		return err
	} else if found {
		h.pid.Restore(pidState)
	}

	var pwmValue pwmState
	if found, err := h.loadValue(persistence.BucketControl, StorageKeyPwm, &pwmValue); err != nil {
		return err
	} else if found {
		h.pwm.Restore(pwmValue.Enabled)
	}

	var control controlState
	if found, err := h.loadValue(persistence.BucketControl, StorageKeyControl, &control); err != nil {
		return err
	} else if found {
		h.controlSetpoint = control.Setpoint
		if control.RelativeModulation != nil && h.coordinator.SupportsRelativeModulationManagement() {
			h.relativeModulation = util.Ptr(*control.RelativeModulation)
		}
	}

	var modulation modulationState
	if found, err := h.loadValue(persistence.BucketDevice, StorageKeyModulationReliable, &modulation); err != nil {
		return err
	} else if found {
		h.boilerTracker.LoadModulationReliable(modulation.Reliable)
	}
	return nil
}

func (h *HeatingControl) loadValue(bucket string, key string, out interface{}) (bool, error) {
	err := h.store.Load(bucket, key, out)
	if errors.Is(err, os.ErrNotExist) {
		ui.Debug("No persisted value for %s/%s", bucket, key)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s/%s: %w", bucket, key, err)
	}
	return true, nil
}

// Save persists the control state, it is used as the flush function of the flusher
func (h *HeatingControl) Save() error {
	if h.store == nil {
		return nil
	}

	h.mu.RLock()
	pidState := h.pid.State()
	pwmValue := pwmState{Enabled: h.pwm.Enabled()}
	control := controlState{Setpoint: h.controlSetpoint}
	if h.relativeModulation != nil {
		control.RelativeModulation = util.Ptr(*h.relativeModulation)
	}
	modulation := modulationState{Reliable: h.boilerTracker.ModulationReliable()}
	h.mu.RUnlock()

	values := []struct {
		bucket string
		key    string
		value  interface{}
	}{
		{persistence.BucketControl, StorageKeyPid, pidState},
		{persistence.BucketControl, StorageKeyPwm, pwmValue},
		{persistence.BucketControl, StorageKeyControl, control},
		{persistence.BucketDevice, StorageKeyModulationReliable, modulation},
	}
	for _, v := range values {
		if err := h.store.Save(v.bucket, v.key, v.value); err != nil {
			return fmt.Errorf("save %s/%s: %w", v.bucket, v.key, err)
		}
	}

	if h.config.Boiler.DynamicMinimumSetpoint.Get() {
		if err := h.minimumSetpoint.Save(); err != nil {
			return fmt.Errorf("save minimum setpoint: %w", err)
		}
	}
	return nil
}
