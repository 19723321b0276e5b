// Package events publishes cycle boundaries for external consumers.
package events

import (
	"encoding/json"
	"time"

	"github.com/markusressel/boiler2go/internal/cycles"
	"github.com/markusressel/boiler2go/internal/pwm"
)

const (
	TopicCycleStarted = "cycle/started"
	TopicCycleEnded   = "cycle/ended"
)

// Publisher publishes cycle events.
type Publisher interface {
	// PublishCycleStarted is called when the flame of a new cycle was detected.
	// Errors are reported to the caller but must not stop the control loop.
	PublishCycleStarted(sample cycles.Sample) error

	// PublishCycleEnded is called for every completed cycle
	PublishCycleEnded(cycle cycles.Cycle) error

	Close() error
}

type CycleStartedPayload struct {
	Timestamp          string     `json:"timestamp"`
	PwmStatus          pwm.Status `json:"pwmStatus"`
	Setpoint           *float64   `json:"setpoint"`
	RequestedSetpoint  *float64   `json:"requestedSetpoint"`
	FlowTemperature    *float64   `json:"flowTemperature"`
	ReturnTemperature  *float64   `json:"returnTemperature"`
	OutsideTemperature *float64   `json:"outsideTemperature"`
	HotWaterActive     bool       `json:"hotWaterActive"`
}

type CycleEndedPayload struct {
	Start           string                `json:"start"`
	End             string                `json:"end"`
	DurationSeconds float64               `json:"durationSeconds"`
	Kind            cycles.Kind           `json:"kind"`
	Classification  cycles.Classification `json:"classification"`
	SampleCount     int                   `json:"sampleCount"`

	MaxFlowTemperature       *float64 `json:"maxFlowTemperature"`
	FractionSpaceHeating     float64  `json:"fractionSpaceHeating"`
	FractionDomesticHotWater float64  `json:"fractionDomesticHotWater"`
	OffWithDemandDuration    *float64 `json:"offWithDemandDuration"`

	TailFlowSetpointErrorP90 *float64 `json:"tailFlowSetpointErrorP90"`
	TailFlowReturnDeltaP50   *float64 `json:"tailFlowReturnDeltaP50"`
}

// FormatCycleStarted creates the JSON payload for a cycle start
func FormatCycleStarted(sample cycles.Sample) ([]byte, error) {
	payload := CycleStartedPayload{
		Timestamp:          sample.Timestamp.UTC().Format(time.RFC3339),
		PwmStatus:          sample.PWM.Status,
		Setpoint:           sample.State.Setpoint,
		RequestedSetpoint:  sample.RequestedSetpoint,
		FlowTemperature:    sample.State.FlowTemperature,
		ReturnTemperature:  sample.State.ReturnTemperature,
		OutsideTemperature: sample.OutsideTemperature,
		HotWaterActive:     sample.State.HotWaterActive,
	}
	return json.Marshal(payload)
}

// FormatCycleEnded creates the JSON payload for a completed cycle
func FormatCycleEnded(cycle cycles.Cycle) ([]byte, error) {
	payload := CycleEndedPayload{
		Start:                    cycle.Start.UTC().Format(time.RFC3339),
		End:                      cycle.End.UTC().Format(time.RFC3339),
		DurationSeconds:          cycle.Duration().Seconds(),
		Kind:                     cycle.Kind,
		Classification:           cycle.Classification,
		SampleCount:              cycle.SampleCount,
		MaxFlowTemperature:       cycle.MaxFlowTemperature,
		FractionSpaceHeating:     cycle.FractionSpaceHeating,
		FractionDomesticHotWater: cycle.FractionDomesticHotWater,
		OffWithDemandDuration:    cycle.OffWithDemandDuration,
		TailFlowSetpointErrorP90: cycle.Tail.FlowSetpointError.P90,
		TailFlowReturnDeltaP50:   cycle.Tail.FlowReturnDelta.P50,
	}
	return json.Marshal(payload)
}

// NoopPublisher discards all events, used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishCycleStarted(cycles.Sample) error { return nil }
func (NoopPublisher) PublishCycleEnded(cycles.Cycle) error    { return nil }
func (NoopPublisher) Close() error                            { return nil }
