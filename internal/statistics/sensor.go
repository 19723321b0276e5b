package statistics

import (
	"github.com/markusressel/boiler2go/internal/sensors"
	"github.com/prometheus/client_golang/prometheus"
)

const subsystemSensor = "sensor"

type SensorCollector struct {
	monitors []*sensors.SensorMonitor
	value    *prometheus.Desc
	average  *prometheus.Desc
}

func NewSensorCollector(monitors []*sensors.SensorMonitor) *SensorCollector {
	return &SensorCollector{
		monitors: monitors,
		value: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemSensor, "value"),
			"Last value read from the sensor",
			[]string{"id"}, nil,
		),
		average: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemSensor, "moving_avg"),
			"Moving average of the sensor value",
			[]string{"id"}, nil,
		),
	}
}

func (collector *SensorCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.value
	ch <- collector.average
}

// Collect implements required collect function for all prometheus collectors
func (collector *SensorCollector) Collect(ch chan<- prometheus.Metric) {
	for _, monitor := range collector.monitors {
		sensorId := monitor.Sensor().GetId()
		if last := monitor.Last(); last != nil {
			ch <- prometheus.MustNewConstMetric(collector.value, prometheus.GaugeValue, *last, sensorId)
		}
		if avg := monitor.MovingAvg(); avg != nil {
			ch <- prometheus.MustNewConstMetric(collector.average, prometheus.GaugeValue, *avg, sensorId)
		}
	}
}
