package sensors

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/markusressel/boiler2go/internal/configuration"
	"github.com/stretchr/testify/assert"
)

type failingSensor struct {
	err error
}

func (s failingSensor) GetId() string {
	return "failing"
}

func (s failingSensor) GetConfig() configuration.SensorConfig {
	return configuration.SensorConfig{ID: "failing"}
}

func (s failingSensor) GetValue() (float64, error) {
	return 0, s.err
}

func writeSensorFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "temperature")
	err := os.WriteFile(path, []byte(content), 0644)
	assert.NoError(t, err)
	return path
}

func TestNewSensor(t *testing.T) {
	tests := []struct {
		name     string
		config   configuration.SensorConfig
		expected Sensor
	}{
		{
			name:     "file",
			config:   configuration.SensorConfig{ID: "a", File: &configuration.FileSensorConfig{Path: "/tmp/a"}},
			expected: &FileSensor{Config: configuration.SensorConfig{ID: "a", File: &configuration.FileSensorConfig{Path: "/tmp/a"}}},
		},
		{
			name:     "cmd",
			config:   configuration.SensorConfig{ID: "b", Cmd: &configuration.CmdSensorConfig{Exec: "/bin/cat"}},
			expected: &CmdSensor{Config: configuration.SensorConfig{ID: "b", Cmd: &configuration.CmdSensorConfig{Exec: "/bin/cat"}}},
		},
		{
			name:     "static",
			config:   configuration.SensorConfig{ID: "c", Static: &configuration.StaticSensorConfig{Value: 5}},
			expected: &StaticSensor{Config: configuration.SensorConfig{ID: "c", Static: &configuration.StaticSensorConfig{Value: 5}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// WHEN
			sensor, err := NewSensor(tt.config)

			// THEN
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, sensor)
			assert.Equal(t, tt.config.ID, sensor.GetId())
		})
	}
}

func TestNewSensor_MissingType(t *testing.T) {
	// WHEN
	sensor, err := NewSensor(configuration.SensorConfig{ID: "empty"})

	// THEN
	assert.Nil(t, sensor)
	assert.EqualError(t, err, "no matching sensor type for sensor: empty")
}

func TestFileSensor_GetValue(t *testing.T) {
	// GIVEN
	path := writeSensorFile(t, "21.5\n")
	sensor := FileSensor{Config: configuration.SensorConfig{ID: "room", File: &configuration.FileSensorConfig{Path: path}}}

	// WHEN
	value, err := sensor.GetValue()

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, 21.5, value)
}

func TestFileSensor_GetValueScaled(t *testing.T) {
	// GIVEN
	path := writeSensorFile(t, "21500")
	sensor := FileSensor{Config: configuration.SensorConfig{ID: "room", File: &configuration.FileSensorConfig{Path: path, Scale: 1000}}}

	// WHEN
	value, err := sensor.GetValue()

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, 21.5, value)
}

func TestFileSensor_MissingFile(t *testing.T) {
	// GIVEN
	sensor := FileSensor{Config: configuration.SensorConfig{ID: "room", File: &configuration.FileSensorConfig{Path: "/does/not/exist"}}}

	// WHEN
	_, err := sensor.GetValue()

	// THEN
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCmdSensor_MissingExecutable(t *testing.T) {
	// GIVEN
	sensor := CmdSensor{Config: configuration.SensorConfig{ID: "outside", Cmd: &configuration.CmdSensorConfig{Exec: "/does/not/exist"}}}

	// WHEN
	_, err := sensor.GetValue()

	// THEN
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sensor outside:")
}

func TestStaticSensor_GetValue(t *testing.T) {
	// GIVEN
	sensor := StaticSensor{Config: configuration.SensorConfig{ID: "outside", Static: &configuration.StaticSensorConfig{Value: -3.5}}}

	// WHEN
	value, err := sensor.GetValue()

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, -3.5, value)
}

func TestSensorMonitor_MovingAvg(t *testing.T) {
	// GIVEN
	path := writeSensorFile(t, "20")
	sensor := &FileSensor{Config: configuration.SensorConfig{ID: "room", File: &configuration.FileSensorConfig{Path: path}}}
	monitor := NewSensorMonitor(sensor, time.Second, 2)
	now := time.Date(2024, 1, 10, 6, 0, 0, 0, time.UTC)

	// WHEN
	assert.Nil(t, monitor.MovingAvg())
	assert.NoError(t, monitor.update(now))
	assert.NoError(t, os.WriteFile(path, []byte("21"), 0644))
	assert.NoError(t, monitor.update(now.Add(time.Second)))
	assert.NoError(t, os.WriteFile(path, []byte("22"), 0644))
	assert.NoError(t, monitor.update(now.Add(2*time.Second)))

	// THEN
	assert.Equal(t, 21.5, *monitor.MovingAvg())
	assert.Equal(t, 22.0, *monitor.Last())
	assert.Equal(t, now.Add(2*time.Second), monitor.LastUpdated())
}

func TestSensorMonitor_KeepsAverageOnError(t *testing.T) {
	// GIVEN
	expected := errors.New("bus error")
	monitor := NewSensorMonitor(failingSensor{err: expected}, time.Second, 3)

	// WHEN
	err := monitor.update(time.Now())

	// THEN
	assert.ErrorIs(t, err, expected)
	assert.Nil(t, monitor.MovingAvg())
	assert.Nil(t, monitor.Last())
}
