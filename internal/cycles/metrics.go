package cycles

import (
	"math"
	"time"

	"github.com/markusressel/boiler2go/internal/util"
)

type sampleValue func(sample Sample) *float64

func stateSetpoint(s Sample) *float64 { return s.State.Setpoint }
func intentSetpoint(s Sample) *float64 { return s.Intent.Setpoint }
func requestedSetpoint(s Sample) *float64 { return s.RequestedSetpoint }
func flowTemperature(s Sample) *float64 { return s.State.FlowTemperature }
func returnTemperature(s Sample) *float64 { return s.State.ReturnTemperature }
func relativeModulationLevel(s Sample) *float64 { return s.State.RelativeModulationLevel }
func flowReturnDelta(s Sample) *float64 { return s.State.FlowReturnDelta() }
func flowSetpointError(s Sample) *float64 { return s.State.FlowSetpointError() }

func collect(samples []Sample, value sampleValue) []float64 {
	var result []float64
	for _, sample := range samples {
		if v := value(sample); v != nil {
			result = append(result, *v)
		}
	}
	return result
}

func percentilesOf(samples []Sample, value sampleValue) Percentiles {
	values := collect(samples, value)
	return Percentiles{
		P50: util.Percentile(values, 0.5),
		P90: util.Percentile(values, 0.9),
	}
}

// samplesSince returns all samples at or after the given time, a zero time selects all samples
func samplesSince(samples []Sample, since time.Time) []Sample {
	if since.IsZero() {
		return samples
	}
	var result []Sample
	for _, sample := range samples {
		if !sample.Timestamp.Before(since) {
			result = append(result, sample)
		}
	}
	return result
}

func buildMetrics(samples []Sample, since time.Time) Metrics {
	relevant := samplesSince(samples, since)

	hotWaterFraction := 0.0
	if len(relevant) > 0 {
		hotWater := 0
		for _, sample := range relevant {
			if sample.State.HotWaterActive {
				hotWater++
			}
		}
		hotWaterFraction = float64(hotWater) / float64(len(relevant))
	}

	return Metrics{
		Setpoint:                percentilesOf(relevant, stateSetpoint),
		IntentSetpoint:          percentilesOf(relevant, intentSetpoint),
		RequestedSetpoint:       percentilesOf(relevant, requestedSetpoint),
		FlowTemperature:         percentilesOf(relevant, flowTemperature),
		ReturnTemperature:       percentilesOf(relevant, returnTemperature),
		RelativeModulationLevel: percentilesOf(relevant, relativeModulationLevel),
		FlowReturnDelta:         percentilesOf(relevant, flowReturnDelta),
		FlowSetpointError:       percentilesOf(relevant, flowSetpointError),
		HotWaterActiveFraction:  hotWaterFraction,
	}
}

// buildShapeMetrics integrates the flow setpoint error over the samples after warmup.
// Each sample contributes the interval until the next sample.
func buildShapeMetrics(samples []Sample, start time.Time, observationStart time.Time) ShapeMetrics {
	relevant := samplesSince(samples, observationStart)
	shape := ShapeMetrics{}
	if len(relevant) < 2 {
		return shape
	}

	overshootStreak := 0.0
	for i := 0; i < len(relevant)-1; i++ {
		current := relevant[i]
		next := relevant[i+1]

		interval := math.Max(0, next.Timestamp.Sub(current.Timestamp).Seconds())
		flowError := current.State.FlowSetpointError()
		if flowError == nil {
			overshootStreak = 0
			continue
		}

		if shape.MaxFlowSetpointError == nil || *flowError > *shape.MaxFlowSetpointError {
			shape.MaxFlowSetpointError = util.Ptr(*flowError)
		}

		if math.Abs(*flowError) <= InBandMargin {
			shape.TimeInBandSeconds += interval
		}

		if *flowError < OvershootMargin {
			overshootStreak = 0
			continue
		}

		sinceStart := math.Max(0, current.Timestamp.Sub(start).Seconds())
		shape.TotalOvershootSeconds += interval
		if shape.TimeToFirstOvershootSeconds == nil {
			shape.TimeToFirstOvershootSeconds = util.Ptr(sinceStart)
		}

		overshootStreak += interval
		if shape.TimeToSustainedOvershootSeconds == nil && overshootStreak >= OvershootSustain.Seconds() {
			shape.TimeToSustainedOvershootSeconds = util.Ptr(sinceStart)
		}
	}

	return shape
}

func determineKind(fractionHotWater float64, fractionSpaceHeating float64) Kind {
	switch {
	case fractionHotWater > pureKindFraction && fractionSpaceHeating < impureKindFraction:
		return KindDomesticHotWater
	case fractionSpaceHeating > pureKindFraction && fractionHotWater < impureKindFraction:
		return KindCentralHeating
	case fractionHotWater > mixedKindFraction && fractionSpaceHeating > mixedKindFraction:
		return KindMixed
	default:
		return KindUnknown
	}
}

// observationWindow returns the end of the warmup phase and the start of the tail
func observationWindow(start time.Time, end time.Time) (observationStart time.Time, tailStart time.Time) {
	duration := end.Sub(start)
	if duration < 0 {
		duration = 0
	}

	warmup := time.Duration(float64(duration) * WarmupFraction)
	if warmup > MaxWarmup {
		warmup = MaxWarmup
	}

	observationStart = start.Add(warmup)
	tailStart = end.Add(-TailDuration)
	if tailStart.Before(observationStart) {
		tailStart = observationStart
	}
	return observationStart, tailStart
}
