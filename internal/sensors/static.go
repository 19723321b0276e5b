package sensors

import (
	"github.com/markusressel/boiler2go/internal/configuration"
)

// StaticSensor always reports the configured value
type StaticSensor struct {
	Config configuration.SensorConfig `json:"configuration"`
}

func (sensor StaticSensor) GetId() string {
	return sensor.Config.ID
}

func (sensor StaticSensor) GetConfig() configuration.SensorConfig {
	return sensor.Config
}

func (sensor StaticSensor) GetValue() (float64, error) {
	return sensor.Config.Static.Value, nil
}
