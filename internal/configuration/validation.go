package configuration

import (
	"errors"
	"fmt"
	"strings"

	"github.com/markusressel/boiler2go/internal/boiler"
	"github.com/markusressel/boiler2go/internal/heating"
	"github.com/markusressel/boiler2go/internal/ui"
	"github.com/markusressel/boiler2go/internal/util"
	"golang.org/x/exp/slices"
)

func Validate(configPath string) error {
	return validateConfig(&CurrentConfig, configPath)
}

func validateConfig(config *Configuration, path string) error {
	validators := []func(config *Configuration) error{
		validateSensors,
		validateThermostat,
		validateHeatingSystem,
		validateBoiler,
		validatePwm,
		validateCycles,
		validatePorts,
	}
	for _, validator := range validators {
		if err := validator(config); err != nil {
			return err
		}
	}

	if containsCmdSensors(config) {
		if _, err := util.CheckFilePermissionsForExecution(path); err != nil {
			return errors.New(fmt.Sprintf("Config file '%s' has invalid permissions: %s", path, err))
		}
	}

	return nil
}

func containsCmdSensors(config *Configuration) bool {
	for _, sensorConfig := range config.Sensors {
		if sensorConfig.Cmd != nil {
			return true
		}
	}

	return false
}

func validateSensors(config *Configuration) error {
	var sensorIds []string
	for _, sensorConfig := range config.Sensors {
		if slices.Contains(sensorIds, sensorConfig.ID) {
			return errors.New(fmt.Sprintf("duplicate sensor id detected: %s", sensorConfig.ID))
		}
		sensorIds = append(sensorIds, sensorConfig.ID)

		subConfigs := 0
		if sensorConfig.File != nil {
			subConfigs++
		}
		if sensorConfig.Cmd != nil {
			subConfigs++
		}
		if sensorConfig.Static != nil {
			subConfigs++
		}
		if subConfigs > 1 {
			return errors.New(fmt.Sprintf("Sensor %s: only one sensor type can be used per sensor definition block", sensorConfig.ID))
		}
		if subConfigs <= 0 {
			return errors.New(fmt.Sprintf("Sensor %s: sub-configuration for sensor is missing, use one of: file | cmd | static", sensorConfig.ID))
		}

		if sensorConfig.File != nil && len(sensorConfig.File.Path) <= 0 {
			return errors.New(fmt.Sprintf("Sensor %s: missing path", sensorConfig.ID))
		}
		if sensorConfig.Cmd != nil && len(sensorConfig.Cmd.Exec) <= 0 {
			return errors.New(fmt.Sprintf("Sensor %s: missing exec", sensorConfig.ID))
		}

		if !isSensorConfigInUse(sensorConfig, config.Thermostat) {
			ui.Warning("Unused sensor configuration: %s", sensorConfig.ID)
		}
	}

	return nil
}

func isSensorConfigInUse(config SensorConfig, thermostat ThermostatConfig) bool {
	return thermostat.InsideSensor == config.ID || thermostat.OutsideSensor == config.ID
}

func sensorIdExists(sensorId string, config *Configuration) bool {
	for _, sensor := range config.Sensors {
		if sensor.ID == sensorId {
			return true
		}
	}

	return false
}

func validateThermostat(config *Configuration) error {
	references := []struct {
		name string
		id   string
	}{
		{"insideSensor", config.Thermostat.InsideSensor},
		{"outsideSensor", config.Thermostat.OutsideSensor},
	}
	for _, reference := range references {
		if len(reference.id) <= 0 {
			return errors.New(fmt.Sprintf("Thermostat: missing %s", reference.name))
		}
		if !sensorIdExists(reference.id, config) {
			return errors.New(fmt.Sprintf("Thermostat: no sensor definition with id '%s' found", reference.id))
		}
	}

	return nil
}

func validateHeatingSystem(config *Configuration) error {
	if _, err := heating.ParseHeatingSystem(string(config.HeatingSystem)); err != nil {
		var names []string
		for _, system := range heating.HeatingSystems {
			names = append(names, string(system))
		}
		return errors.New(fmt.Sprintf("unsupported heating system '%s', use one of: %s", config.HeatingSystem, strings.Join(names, " | ")))
	}

	if _, err := boiler.ManufacturerByName(config.Manufacturer); err != nil {
		return errors.New(fmt.Sprintf("unsupported manufacturer '%s'", config.Manufacturer))
	}

	return nil
}

func validateBoiler(config *Configuration) error {
	supportedAdapters := []string{AdapterSimulator, AdapterMqtt}
	if !slices.Contains(supportedAdapters, config.Boiler.Adapter) {
		return errors.New(fmt.Sprintf("Boiler: unsupported adapter '%s', use one of: %s", config.Boiler.Adapter, strings.Join(supportedAdapters, " | ")))
	}

	if config.Boiler.Adapter == AdapterMqtt || config.Mqtt.Events {
		if len(config.Mqtt.Broker) <= 0 {
			return errors.New("Mqtt: missing broker")
		}
		if len(config.Mqtt.TopicPrefix) <= 0 {
			return errors.New("Mqtt: missing topicPrefix")
		}
	}

	if config.Boiler.MinimumSetpoint <= 0 {
		return errors.New(fmt.Sprintf("Boiler: minimumSetpoint must be > 0, was %.1f", config.Boiler.MinimumSetpoint))
	}
	if config.Boiler.MinimumSetpoint >= config.Boiler.MaximumSetpoint {
		return errors.New(fmt.Sprintf("Boiler: minimumSetpoint (%.1f) must be lower than maximumSetpoint (%.1f)", config.Boiler.MinimumSetpoint, config.Boiler.MaximumSetpoint))
	}

	return nil
}

func validatePwm(config *Configuration) error {
	if config.Pwm.CyclesPerHour < 1 {
		return errors.New(fmt.Sprintf("Pwm: cyclesPerHour must be >= 1, was %d", config.Pwm.CyclesPerHour))
	}
	if config.Pwm.MaximumRelativeModulation < 0 || config.Pwm.MaximumRelativeModulation > 100 {
		return errors.New(fmt.Sprintf("Pwm: maximumRelativeModulation must be in range [0..100], was %.1f", config.Pwm.MaximumRelativeModulation))
	}

	return nil
}

func validateCycles(config *Configuration) error {
	if config.Cycles.MinimumSamplesPerCycle < 1 {
		return errors.New(fmt.Sprintf("Cycles: minimumSamplesPerCycle must be >= 1, was %d", config.Cycles.MinimumSamplesPerCycle))
	}

	return nil
}

func validatePorts(config *Configuration) error {
	if config.Api.Enabled && (config.Api.Port < 1 || config.Api.Port > 65535) {
		return errors.New(fmt.Sprintf("Api: invalid port %d", config.Api.Port))
	}
	if config.Statistics.Enabled && (config.Statistics.Port < 1 || config.Statistics.Port > 65535) {
		return errors.New(fmt.Sprintf("Statistics: invalid port %d", config.Statistics.Port))
	}

	return nil
}
