package statistics

import (
	"testing"
	"time"

	"github.com/markusressel/boiler2go/internal/boiler"
	"github.com/markusressel/boiler2go/internal/configuration"
	"github.com/markusressel/boiler2go/internal/control"
	"github.com/markusressel/boiler2go/internal/pwm"
	"github.com/markusressel/boiler2go/internal/sensors"
	"github.com/markusressel/boiler2go/internal/setpoint"
	"github.com/markusressel/boiler2go/internal/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

type staticSnapshotSource struct {
	snapshot control.Snapshot
}

func (s staticSnapshotSource) Snapshot(now time.Time) control.Snapshot {
	return s.snapshot
}

func collect(collector prometheus.Collector) []prometheus.Metric {
	ch := make(chan prometheus.Metric, 100)
	collector.Collect(ch)
	close(ch)

	var result []prometheus.Metric
	for metric := range ch {
		result = append(result, metric)
	}
	return result
}

func describe(collector prometheus.Collector) []*prometheus.Desc {
	ch := make(chan *prometheus.Desc, 100)
	collector.Describe(ch)
	close(ch)

	var result []*prometheus.Desc
	for desc := range ch {
		result = append(result, desc)
	}
	return result
}

func TestControlCollector_Describe(t *testing.T) {
	// GIVEN
	collector := NewControlCollector(staticSnapshotSource{})

	// WHEN
	descriptions := describe(collector)

	// THEN
	assert.Len(t, descriptions, 19)
}

func TestControlCollector_CollectFullSnapshot(t *testing.T) {
	// GIVEN
	snapshot := control.Snapshot{
		ControlMode:        control.ControlModePwm,
		ControlSetpoint:    57,
		RequestedSetpoint:  util.Ptr(34.3),
		RelativeModulation: util.Ptr(0.0),
		MinimumSetpoint:    57,
		HeatingCurve:       util.Ptr(32.2),
		Pwm: control.PwmSnapshot{
			State: pwm.State{Enabled: true, Status: pwm.StatusOn, DutyCycle: &pwm.DutyCycle{On: 285, Off: 914}},
		},
		BoilerState: boiler.State{
			FlameActive:       true,
			FlowTemperature:   util.Ptr(45.0),
			ReturnTemperature: util.Ptr(38.0),
		},
		BoilerStatus: boiler.StatusCentralHeating,
		Regimes: []control.RegimeSnapshot{
			{Key: "10:cold:normal", RegimeState: setpoint.RegimeState{MinimumSetpoint: 45, CompletedCycles: 3}},
		},
	}
	collector := NewControlCollector(staticSnapshotSource{snapshot: snapshot})

	// WHEN
	metrics := collect(collector)

	// THEN
	assert.Len(t, metrics, 23)
}

func TestControlCollector_SkipsMissingValues(t *testing.T) {
	// GIVEN
	collector := NewControlCollector(staticSnapshotSource{})

	// WHEN
	metrics := collect(collector)

	// THEN
	assert.Len(t, metrics, 14)
}

func TestSensorCollector_Collect(t *testing.T) {
	// GIVEN
	sensor := &sensors.StaticSensor{Config: configuration.SensorConfig{ID: "outside", Static: &configuration.StaticSensorConfig{Value: 5}}}
	unread := sensors.NewSensorMonitor(sensor, time.Second, 3)
	collector := NewSensorCollector([]*sensors.SensorMonitor{unread})

	// WHEN
	metrics := collect(collector)

	// THEN
	assert.Empty(t, metrics)
	assert.Len(t, describe(collector), 2)
}
