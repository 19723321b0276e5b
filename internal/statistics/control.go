package statistics

import (
	"time"

	"github.com/markusressel/boiler2go/internal/control"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	subsystemControl = "control"
	subsystemPid     = "pid"
	subsystemPwm     = "pwm"
	subsystemBoiler  = "boiler"
	subsystemCycles  = "cycles"
	subsystemRegime  = "regime"
)

// SnapshotSource provides the current control state
type SnapshotSource interface {
	Snapshot(now time.Time) control.Snapshot
}

type ControlCollector struct {
	source SnapshotSource
	clock  func() time.Time

	controlSetpoint    *prometheus.Desc
	requestedSetpoint  *prometheus.Desc
	minimumSetpoint    *prometheus.Desc
	relativeModulation *prometheus.Desc
	heatingCurve       *prometheus.Desc
	pwmMode            *prometheus.Desc

	pidTerm *prometheus.Desc

	pwmEnabled      *prometheus.Desc
	pwmStatus       *prometheus.Desc
	pwmDutyCycle    *prometheus.Desc
	pwmCurrentCycle *prometheus.Desc

	flameActive       *prometheus.Desc
	boilerStatus      *prometheus.Desc
	flowTemperature   *prometheus.Desc
	returnTemperature *prometheus.Desc

	cyclesLastHour *prometheus.Desc
	dutyRatio      *prometheus.Desc

	regimeMinimumSetpoint *prometheus.Desc
	regimeCompleted       *prometheus.Desc
}

func NewControlCollector(source SnapshotSource) *ControlCollector {
	return &ControlCollector{
		source: source,
		clock:  time.Now,

		controlSetpoint: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemControl, "setpoint"),
			"Control setpoint sent to the boiler",
			nil, nil,
		),
		requestedSetpoint: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemControl, "requested_setpoint"),
			"Setpoint requested by heating curve and PID controller",
			nil, nil,
		),
		minimumSetpoint: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemControl, "minimum_setpoint"),
			"Minimum setpoint used while pulse width modulation is active",
			nil, nil,
		),
		relativeModulation: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemControl, "relative_modulation"),
			"Maximum relative modulation sent to the boiler",
			nil, nil,
		),
		heatingCurve: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemControl, "heating_curve"),
			"Current heating curve value",
			nil, nil,
		),
		pwmMode: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemControl, "pwm_mode"),
			"1 if pulse width modulation is in control, 0 for continuous control",
			nil, nil,
		),
		pidTerm: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemPid, "term"),
			"Terms of the PID controller",
			[]string{"term"}, nil,
		),
		pwmEnabled: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemPwm, "enabled"),
			"1 if pulse width modulation is enabled",
			nil, nil,
		),
		pwmStatus: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemPwm, "status"),
			"Current pulse width modulation status",
			[]string{"status"}, nil,
		),
		pwmDutyCycle: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemPwm, "duty_cycle_seconds"),
			"Current duty cycle split",
			[]string{"phase"}, nil,
		),
		pwmCurrentCycle: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemPwm, "current_cycle"),
			"Duty cycles started in the current hour",
			nil, nil,
		),
		flameActive: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemBoiler, "flame_active"),
			"1 if the flame of the boiler is burning",
			nil, nil,
		),
		boilerStatus: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemBoiler, "status"),
			"Derived operating status of the boiler",
			[]string{"status"}, nil,
		),
		flowTemperature: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemBoiler, "flow_temperature"),
			"Flow temperature reported by the boiler",
			nil, nil,
		),
		returnTemperature: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemBoiler, "return_temperature"),
			"Return temperature reported by the boiler",
			nil, nil,
		),
		cyclesLastHour: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemCycles, "last_hour"),
			"Flame cycles within the last hour",
			nil, nil,
		),
		dutyRatio: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemCycles, "duty_ratio_15m"),
			"Fraction of the last 15 minutes the flame was burning",
			nil, nil,
		),
		regimeMinimumSetpoint: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemRegime, "minimum_setpoint"),
			"Learned minimum setpoint of a regime",
			[]string{"regime"}, nil,
		),
		regimeCompleted: prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystemRegime, "completed_cycles"),
			"Completed cycles of a regime",
			[]string{"regime"}, nil,
		),
	}
}

func (collector *ControlCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.controlSetpoint
	ch <- collector.requestedSetpoint
	ch <- collector.minimumSetpoint
	ch <- collector.relativeModulation
	ch <- collector.heatingCurve
	ch <- collector.pwmMode
	ch <- collector.pidTerm
	ch <- collector.pwmEnabled
	ch <- collector.pwmStatus
	ch <- collector.pwmDutyCycle
	ch <- collector.pwmCurrentCycle
	ch <- collector.flameActive
	ch <- collector.boilerStatus
	ch <- collector.flowTemperature
	ch <- collector.returnTemperature
	ch <- collector.cyclesLastHour
	ch <- collector.dutyRatio
	ch <- collector.regimeMinimumSetpoint
	ch <- collector.regimeCompleted
}

// Collect implements required collect function for all prometheus collectors
func (collector *ControlCollector) Collect(ch chan<- prometheus.Metric) {
	snapshot := collector.source.Snapshot(collector.clock())

	gauge := func(desc *prometheus.Desc, value float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, value, labels...)
	}
	optionalGauge := func(desc *prometheus.Desc, value *float64) {
		if value != nil {
			gauge(desc, *value)
		}
	}

	gauge(collector.controlSetpoint, snapshot.ControlSetpoint)
	optionalGauge(collector.requestedSetpoint, snapshot.RequestedSetpoint)
	gauge(collector.minimumSetpoint, snapshot.MinimumSetpoint)
	optionalGauge(collector.relativeModulation, snapshot.RelativeModulation)
	optionalGauge(collector.heatingCurve, snapshot.HeatingCurve)
	gauge(collector.pwmMode, boolToFloat(snapshot.ControlMode == control.ControlModePwm))

	gauge(collector.pidTerm, snapshot.Pid.Proportional, "proportional")
	gauge(collector.pidTerm, snapshot.Pid.Integral, "integral")
	gauge(collector.pidTerm, snapshot.Pid.Derivative, "derivative")
	gauge(collector.pidTerm, snapshot.Pid.Output, "output")

	gauge(collector.pwmEnabled, boolToFloat(snapshot.Pwm.Enabled))
	gauge(collector.pwmStatus, 1, string(snapshot.Pwm.Status))
	if dutyCycle := snapshot.Pwm.DutyCycle; dutyCycle != nil {
		gauge(collector.pwmDutyCycle, float64(dutyCycle.On), "on")
		gauge(collector.pwmDutyCycle, float64(dutyCycle.Off), "off")
	}
	gauge(collector.pwmCurrentCycle, float64(snapshot.Pwm.CurrentCycle))

	gauge(collector.flameActive, boolToFloat(snapshot.BoilerState.FlameActive))
	gauge(collector.boilerStatus, 1, string(snapshot.BoilerStatus))
	optionalGauge(collector.flowTemperature, snapshot.BoilerState.FlowTemperature)
	optionalGauge(collector.returnTemperature, snapshot.BoilerState.ReturnTemperature)

	gauge(collector.cyclesLastHour, snapshot.Cycles.Window.LastHourCount)
	gauge(collector.dutyRatio, snapshot.Cycles.Window.DutyRatioLast15m)

	for _, regime := range snapshot.Regimes {
		gauge(collector.regimeMinimumSetpoint, regime.MinimumSetpoint, regime.Key)
		ch <- prometheus.MustNewConstMetric(collector.regimeCompleted, prometheus.CounterValue, float64(regime.CompletedCycles), regime.Key)
	}
}
