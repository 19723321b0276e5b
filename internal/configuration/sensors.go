package configuration

type SensorConfig struct {
	ID     string              `json:"id"`
	File   *FileSensorConfig   `json:"file,omitempty"`
	Cmd    *CmdSensorConfig    `json:"cmd,omitempty"`
	Static *StaticSensorConfig `json:"static,omitempty"`
}

type FileSensorConfig struct {
	// Path to a file containing a single temperature value
	Path string `json:"path"`
	// Scale divides the raw file value, e.g. 1000 for millidegrees
	Scale float64 `json:"scale"`
}

type CmdSensorConfig struct {
	Exec string   `json:"exec"`
	Args []string `json:"args"`
}

type StaticSensorConfig struct {
	Value float64 `json:"value"`
}
