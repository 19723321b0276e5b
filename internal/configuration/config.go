package configuration

import (
	"os"
	"time"

	"github.com/markusressel/boiler2go/internal/heating"
	"github.com/markusressel/boiler2go/internal/ui"
	"github.com/mitchellh/go-homedir"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Configuration struct {
	DbPath string `json:"dbPath"`

	HeatingSystem heating.HeatingSystem `json:"heatingSystem"`
	Manufacturer  string                `json:"manufacturer"`

	ControlLoopTickRate     time.Duration `json:"controlLoopTickRate"`
	SensorPollingRate       time.Duration `json:"sensorPollingRate"`
	SensorRollingWindowSize int           `json:"sensorRollingWindowSize"`

	Thermostat   ThermostatConfig   `json:"thermostat"`
	HeatingCurve HeatingCurveConfig `json:"heatingCurve"`
	Pid          PidConfig          `json:"pid"`
	Pwm          PwmConfig          `json:"pwm"`
	Boiler       BoilerConfig       `json:"boiler"`
	Cycles       CyclesConfig       `json:"cycles"`
	Persistence  PersistenceConfig  `json:"persistence"`
	Mqtt         MqttConfig         `json:"mqtt"`

	Sensors []SensorConfig `json:"sensors"`

	Api        ApiConfig        `json:"api"`
	Statistics StatisticsConfig `json:"statistics"`
}

var CurrentConfig Configuration

// InitConfig reads in config file and ENV variables if set.
func InitConfig(cfgFile string) {
	viper.SetConfigName("boiler2go")

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			ui.Error("Couldn't detect home directory: %v", err)
			os.Exit(1)
		}

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.AddConfigPath("/etc/boiler2go/")
	}

	viper.AutomaticEnv() // read in environment variables that match

	setDefaultValues()
}

func setDefaultValues() {
	viper.SetDefault("dbpath", "/etc/boiler2go/boiler2go.db")
	viper.SetDefault("heatingSystem", string(heating.HeatingSystemRadiators))
	viper.SetDefault("manufacturer", "Other")

	viper.SetDefault("controlLoopTickRate", 30*time.Second)
	viper.SetDefault("sensorPollingRate", 10*time.Second)
	viper.SetDefault("sensorRollingWindowSize", 6)

	viper.SetDefault("thermostat.targetTemperature", 20.0)
	viper.SetDefault("heatingCurve.coefficient", 1.0)

	viper.SetDefault("pid.automaticGainValue", 0.0)
	viper.SetDefault("pid.proportional", 45.0)
	viper.SetDefault("pid.integral", 0.0)
	viper.SetDefault("pid.derivative", 6000.0)
	viper.SetDefault("pid.sampleTimeLimit", 10*time.Second)

	viper.SetDefault("pwm.force", false)
	viper.SetDefault("pwm.cyclesPerHour", 3)
	viper.SetDefault("pwm.maximumRelativeModulation", 100.0)

	viper.SetDefault("boiler.minimumSetpoint", 40.0)
	viper.SetDefault("boiler.maximumSetpoint", 75.0)
	viper.SetDefault("boiler.adapter", AdapterSimulator)
	viper.SetDefault("boiler.flowSetpointOffset", 2.0)

	viper.SetDefault("cycles.minimumSamplesPerCycle", 3)
	viper.SetDefault("persistence.flushDelay", 10*time.Second)

	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.clientId", "boiler2go")
	viper.SetDefault("mqtt.topicPrefix", "boiler2go")

	viper.SetDefault("api.enabled", false)
	viper.SetDefault("api.host", "localhost")
	viper.SetDefault("api.port", 9001)

	viper.SetDefault("statistics.enabled", false)
	viper.SetDefault("statistics.port", 9000)

	viper.SetDefault("sensors", []SensorConfig{})
}

// ReadConfigFile reads and decodes the config file, returning its path
func ReadConfigFile() (configPath string) {
	if err := viper.ReadInConfig(); err != nil {
		// config file is required, so we fail here
		ui.Fatal("Error reading config file, %s", err)
	}
	// this is only populated _after_ ReadInConfig()
	configPath = viper.ConfigFileUsed()
	ui.Info("Using configuration file at: %s", configPath)

	LoadConfig()
	return configPath
}

func LoadConfig() {
	// load default configuration values
	err := viper.Unmarshal(
		&CurrentConfig,
		viper.DecodeHook(
			mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
				HeatingSystemHookFunc(),
				DefaultTrueBoolHookFunc(),
			),
		),
	)
	if err != nil {
		ui.Fatal("unable to decode into struct, %v", err)
	}
}
