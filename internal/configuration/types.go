package configuration

import "time"

const (
	AdapterSimulator = "simulator"
	AdapterMqtt      = "mqtt"
)

type ThermostatConfig struct {
	// InsideSensor is the id of the sensor measuring the room temperature
	InsideSensor string `json:"insideSensor"`
	// OutsideSensor is the id of the sensor measuring the outside temperature
	OutsideSensor     string  `json:"outsideSensor"`
	TargetTemperature float64 `json:"targetTemperature"`
}

type HeatingCurveConfig struct {
	Coefficient float64 `json:"coefficient"`
}

type PidConfig struct {
	AutomaticGains     DefaultTrueBool `json:"automaticGains"`
	AutomaticGainValue float64         `json:"automaticGainValue"`

	Proportional float64 `json:"proportional"`
	Integral     float64 `json:"integral"`
	Derivative   float64 `json:"derivative"`

	SampleTimeLimit time.Duration `json:"sampleTimeLimit"`
}

type PwmConfig struct {
	Force                     bool    `json:"force"`
	CyclesPerHour             int     `json:"cyclesPerHour"`
	MaximumRelativeModulation float64 `json:"maximumRelativeModulation"`
}

type BoilerConfig struct {
	MinimumSetpoint float64 `json:"minimumSetpoint"`
	MaximumSetpoint float64 `json:"maximumSetpoint"`
	// Adapter selects the boiler coordinator, one of: simulator | mqtt
	Adapter                string          `json:"adapter"`
	DynamicMinimumSetpoint DefaultTrueBool `json:"dynamicMinimumSetpoint"`
	FlowSetpointOffset     float64         `json:"flowSetpointOffset"`
}

type CyclesConfig struct {
	MinimumSamplesPerCycle int `json:"minimumSamplesPerCycle"`
}

type PersistenceConfig struct {
	FlushDelay time.Duration `json:"flushDelay"`
}

type MqttConfig struct {
	Broker      string `json:"broker"`
	ClientId    string `json:"clientId"`
	TopicPrefix string `json:"topicPrefix"`
	// Events enables publishing cycle started / ended events
	Events bool `json:"events"`
}

type StatisticsConfig struct {
	Enabled bool `json:"enabled"`
	Port    int  `json:"port"`
}
