package cycles

import (
	"time"

	"github.com/markusressel/boiler2go/internal/boiler"
	"github.com/markusressel/boiler2go/internal/pwm"
)

type Kind string

const (
	KindCentralHeating   Kind = "central_heating"
	KindDomesticHotWater Kind = "domestic_hot_water"
	KindMixed            Kind = "mixed"
	KindUnknown          Kind = "unknown"
)

type Classification string

const (
	ClassificationInsufficientData  Classification = "insufficient_data"
	ClassificationUncertain         Classification = "uncertain"
	ClassificationGood              Classification = "good"
	ClassificationPrematureOff      Classification = "premature_off"
	ClassificationFastOvershoot     Classification = "fast_overshoot"
	ClassificationFastUnderheat     Classification = "fast_underheat"
	ClassificationTooShortOvershoot Classification = "too_short_overshoot"
	ClassificationTooShortUnderheat Classification = "too_short_underheat"
	ClassificationLongOvershoot     Classification = "long_overshoot"
	ClassificationLongUnderheat     Classification = "long_underheat"
)

// Classifications lists every classification, in a stable order
var Classifications = []Classification{
	ClassificationInsufficientData,
	ClassificationUncertain,
	ClassificationGood,
	ClassificationPrematureOff,
	ClassificationFastOvershoot,
	ClassificationFastUnderheat,
	ClassificationTooShortOvershoot,
	ClassificationTooShortUnderheat,
	ClassificationLongOvershoot,
	ClassificationLongUnderheat,
}

func (c Classification) IsOvershoot() bool {
	switch c {
	case ClassificationFastOvershoot, ClassificationTooShortOvershoot, ClassificationLongOvershoot:
		return true
	}
	return false
}

func (c Classification) IsUnderheat() bool {
	switch c {
	case ClassificationFastUnderheat, ClassificationTooShortUnderheat, ClassificationLongUnderheat:
		return true
	}
	return false
}

// IsSustainedUnderheat is true for long cycles that never reached the setpoint
func (c Classification) IsSustainedUnderheat() bool {
	return c == ClassificationLongUnderheat
}

// Sample is a single control loop tick as seen by the cycle tracker
type Sample struct {
	Timestamp          time.Time            `json:"timestamp"`
	PWM                pwm.State            `json:"pwm"`
	State              boiler.State         `json:"state"`
	Intent             boiler.ControlIntent `json:"intent"`
	RequestedSetpoint  *float64             `json:"requestedSetpoint"`
	OutsideTemperature *float64             `json:"outsideTemperature"`
}

type Percentiles struct {
	P50 *float64 `json:"p50"`
	P90 *float64 `json:"p90"`
}

// Metrics are percentile statistics over (a part of) a cycle
type Metrics struct {
	Setpoint                Percentiles `json:"setpoint"`
	IntentSetpoint          Percentiles `json:"intentSetpoint"`
	RequestedSetpoint       Percentiles `json:"requestedSetpoint"`
	FlowTemperature         Percentiles `json:"flowTemperature"`
	ReturnTemperature       Percentiles `json:"returnTemperature"`
	RelativeModulationLevel Percentiles `json:"relativeModulationLevel"`
	FlowReturnDelta         Percentiles `json:"flowReturnDelta"`
	FlowSetpointError       Percentiles `json:"flowSetpointError"`

	HotWaterActiveFraction float64 `json:"hotWaterActiveFraction"`
}

// ShapeMetrics describe how the flow temperature approached the setpoint over time
type ShapeMetrics struct {
	TimeInBandSeconds               float64  `json:"timeInBandSeconds"`
	TimeToFirstOvershootSeconds     *float64 `json:"timeToFirstOvershootSeconds"`
	TimeToSustainedOvershootSeconds *float64 `json:"timeToSustainedOvershootSeconds"`
	TotalOvershootSeconds           float64  `json:"totalOvershootSeconds"`
	MaxFlowSetpointError            *float64 `json:"maxFlowSetpointError"`
}

// Cycle is a completed flame on interval
type Cycle struct {
	Kind           Kind           `json:"kind"`
	Classification Classification `json:"classification"`

	Tail    Metrics      `json:"tail"`
	Metrics Metrics      `json:"metrics"`
	Shape   ShapeMetrics `json:"shape"`

	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	SampleCount int       `json:"sampleCount"`

	MaxFlowTemperature       *float64 `json:"maxFlowTemperature"`
	FractionSpaceHeating     float64  `json:"fractionSpaceHeating"`
	FractionDomesticHotWater float64  `json:"fractionDomesticHotWater"`

	// OffWithDemandDuration is the off time with pending demand right before this cycle, in seconds
	OffWithDemandDuration *float64 `json:"offWithDemandDuration"`
}

func (c Cycle) Duration() time.Duration {
	if c.End.Before(c.Start) {
		return 0
	}
	return c.End.Sub(c.Start)
}

// WindowStatistics summarize cycle rate and duty over the rolling windows
type WindowStatistics struct {
	SampleCount4h                int      `json:"sampleCount4h"`
	LastHourCount                float64  `json:"lastHourCount"`
	DutyRatioLast15m             float64  `json:"dutyRatioLast15m"`
	MedianOnDurationSeconds4h    *float64 `json:"medianOnDurationSeconds4h"`
	OffWithDemandDurationSeconds *float64 `json:"offWithDemandDurationSeconds"`
}

// Statistics is a read only snapshot derived from recent cycles
type Statistics struct {
	Window            WindowStatistics `json:"window"`
	FlowReturnDelta   Percentiles      `json:"flowReturnDelta"`
	FlowSetpointError Percentiles      `json:"flowSetpointError"`
}

// Listener is notified about cycle boundaries
type Listener interface {
	OnCycleStart(sample Sample)
	OnCycleEnd(cycle Cycle, sample Sample)
}
