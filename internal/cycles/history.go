package cycles

import (
	"time"

	"github.com/markusressel/boiler2go/internal/ui"
	"github.com/markusressel/boiler2go/internal/util"
)

type durationSample struct {
	end      time.Time
	duration float64
}

type deltaSample struct {
	end               time.Time
	flowReturnDelta   *float64
	flowSetpointError *float64
}

// History keeps rolling windows over recently completed cycles.
// Both windows are ordered by end time and never hold entries older than MedianWindow
// relative to the most recently recorded cycle.
type History struct {
	durations []durationSample
	deltas    []deltaSample

	lastCycle     *Cycle
	offWithDemand *float64
}

func NewHistory() *History {
	return &History{}
}

// RecordCycle adds a completed cycle to the rolling windows
func (h *History) RecordCycle(cycle Cycle) {
	end := cycle.End
	duration := cycle.Duration()
	capped := duration
	if capped > MaxRecordedOnTime {
		capped = MaxRecordedOnTime
	}

	h.durations = append(h.durations, durationSample{end: end, duration: capped.Seconds()})
	h.deltas = append(h.deltas, deltaSample{
		end:               end,
		flowReturnDelta:   cycle.Metrics.FlowReturnDelta.P50,
		flowSetpointError: cycle.Metrics.FlowSetpointError.P50,
	})
	h.prune(end)
	h.lastCycle = &cycle

	ui.Debug(
		"Recorded cycle kind=%s classification=%s duration=%.0fs samples_4h=%d",
		cycle.Kind, cycle.Classification, duration.Seconds(), len(h.durations),
	)
}

// RecordOffWithDemandDuration stores the off-with-demand duration (seconds) measured before the latest cycle start
func (h *History) RecordOffWithDemandDuration(seconds *float64) {
	h.offWithDemand = seconds
}

// LastCycle returns the last completed cycle, nil if there is none or it is too old
func (h *History) LastCycle(now time.Time) *Cycle {
	if h.lastCycle == nil {
		return nil
	}
	if now.Sub(h.lastCycle.End) > LastCycleMaxAge {
		return nil
	}
	result := *h.lastCycle
	return &result
}

// Statistics derives a snapshot of all rolling metrics relative to now
func (h *History) Statistics(now time.Time) Statistics {
	return Statistics{
		Window: WindowStatistics{
			SampleCount4h:                len(h.durationsSince(now, MedianWindow)),
			LastHourCount:                h.cyclesPerHour(now),
			DutyRatioLast15m:             h.dutyRatio(now),
			MedianOnDurationSeconds4h:    util.Median(h.durationsSince(now, MedianWindow)),
			OffWithDemandDurationSeconds: h.offWithDemand,
		},
		FlowReturnDelta: h.deltaPercentiles(now, func(s deltaSample) *float64 {
			return s.flowReturnDelta
		}),
		FlowSetpointError: h.deltaPercentiles(now, func(s deltaSample) *float64 {
			return s.flowSetpointError
		}),
	}
}

func (h *History) durationsSince(now time.Time, window time.Duration) []float64 {
	cutoff := now.Add(-window)
	var result []float64
	for _, sample := range h.durations {
		if !sample.end.Before(cutoff) {
			result = append(result, sample.duration)
		}
	}
	return result
}

// cyclesPerHour extrapolates the number of cycles in the rate window to one hour
func (h *History) cyclesPerHour(now time.Time) float64 {
	count := len(h.durationsSince(now, CyclesWindow))
	return float64(count) * float64(time.Hour) / float64(CyclesWindow)
}

func (h *History) dutyRatio(now time.Time) float64 {
	onSeconds := 0.0
	for _, duration := range h.durationsSince(now, DutyWindow) {
		onSeconds += duration
	}
	if onSeconds <= 0 {
		return 0
	}
	return util.Coerce(onSeconds/DutyWindow.Seconds(), 0, 1)
}

func (h *History) deltaPercentiles(now time.Time, value func(s deltaSample) *float64) Percentiles {
	cutoff := now.Add(-MedianWindow)
	var values []float64
	for _, sample := range h.deltas {
		if sample.end.Before(cutoff) {
			continue
		}
		if v := value(sample); v != nil {
			values = append(values, *v)
		}
	}
	return Percentiles{
		P50: util.Percentile(values, 0.5),
		P90: util.Percentile(values, 0.9),
	}
}

func (h *History) prune(now time.Time) {
	cutoff := now.Add(-MedianWindow)

	durationIndex := 0
	for durationIndex < len(h.durations) && h.durations[durationIndex].end.Before(cutoff) {
		durationIndex++
	}
	h.durations = h.durations[durationIndex:]

	deltaIndex := 0
	for deltaIndex < len(h.deltas) && h.deltas[deltaIndex].end.Before(cutoff) {
		deltaIndex++
	}
	h.deltas = h.deltas[deltaIndex:]
}
