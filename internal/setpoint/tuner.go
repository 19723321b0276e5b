package setpoint

import (
	"math"
	"time"

	"github.com/markusressel/boiler2go/internal/boiler"
	"github.com/markusressel/boiler2go/internal/cycles"
	"github.com/markusressel/boiler2go/internal/ui"
	"github.com/markusressel/boiler2go/internal/util"
)

// Decision describes what Tune did to the regime
type Decision string

const (
	DecisionIgnored   Decision = "ignored"
	DecisionSkipped   Decision = "skipped"
	DecisionRelaxed   Decision = "relaxed"
	DecisionIncreased Decision = "increased"
	DecisionDecreased Decision = "decreased"
	DecisionUnchanged Decision = "unchanged"
)

// Tune adjusts the learned minimum setpoint of the given regime based on the outcome of a cycle.
// Missing metrics never lead to a guess, the adjustment is skipped instead.
func Tune(capabilities boiler.Capabilities, statistics cycles.Statistics, cycle cycles.Cycle, state *RegimeState, now time.Time) Decision {
	if cycle.Kind != cycles.KindCentralHeating && cycle.Kind != cycles.KindMixed {
		ui.Debug("Ignoring cycle of kind %s for minimum setpoint tuning", cycle.Kind)
		return DecisionIgnored
	}
	if cycle.FractionSpaceHeating < MinimumSpaceHeatingFractionToTune {
		ui.Debug("Ignoring cycle with space heating fraction %.2f for minimum setpoint tuning", cycle.FractionSpaceHeating)
		return DecisionIgnored
	}

	classification := cycle.Classification

	if classification == cycles.ClassificationPrematureOff {
		var offMinutes *float64
		if offSeconds := statistics.Window.OffWithDemandDurationSeconds; offSeconds != nil {
			offMinutes = util.Ptr(math.Max(0, *offSeconds/60))
		}
		step := scaleStepForRegime(state, scaledStep(PrematureOffStepBase, PrematureOffStepScale, offMinutes, PrematureOffStepDefault))
		state.MinimumSetpoint += step
		ui.Debug("Premature flame off, increasing minimum setpoint of regime %s to %.2f", state.Key, state.MinimumSetpoint)
		return DecisionIncreased
	}

	if !isTunable(statistics) {
		old := state.MinimumSetpoint
		relaxation := Relax(capabilities, cycle, old, RelaxFactorWhenUntunable)
		state.MinimumSetpoint = relaxation.MinimumSetpoint
		ui.Debug(
			"Relaxing minimum setpoint of regime %s toward anchor %.1f (%s): %.1f -> %.1f",
			state.Key, relaxation.Anchor, relaxation.Source, old, relaxation.MinimumSetpoint,
		)
		return DecisionRelaxed
	}

	reference := cycle.Tail.Setpoint.P50
	if reference == nil {
		ui.Debug("No tail setpoint for cycle, skipping minimum setpoint tuning")
		return DecisionSkipped
	}

	band := learningBand(state)
	if math.Abs(*reference-state.MinimumSetpoint) > band {
		ui.Debug(
			"Cycle setpoint %.1f is too far from minimum setpoint %.1f of regime %s (band %.1f), skipping",
			*reference, state.MinimumSetpoint, state.Key, band,
		)
		return DecisionSkipped
	}

	duration := cycle.Duration()

	switch classification {
	case cycles.ClassificationFastOvershoot, cycles.ClassificationTooShortOvershoot:
		ultraShort := duration < cycles.UltraShortOnTime
		veryShort := duration < cycles.TargetMinOnTime/2
		lowDuty := statistics.Window.DutyRatioLast15m <= LowLoadMaximumDutyRatio15m
		frequent := statistics.Window.LastHourCount >= LowLoadMinimumCyclesPerHour
		if veryShort && lowDuty && frequent && !ultraShort {
			ui.Debug(
				"Ignoring %s under low load: duration=%.0fs duty_15m=%.2f cycles_last_hour=%.1f",
				classification, duration.Seconds(), statistics.Window.DutyRatioLast15m, statistics.Window.LastHourCount,
			)
			return DecisionSkipped
		}
	}

	switch classification {
	case cycles.ClassificationInsufficientData, cycles.ClassificationUncertain:
		return DecisionUnchanged

	case cycles.ClassificationGood:
		decision := DecisionUnchanged
		if state.StableCycles >= MinimumStableCyclesToTrust {
			step := scaleStepForRegime(state, GoodStableDecreaseStep)
			state.MinimumSetpoint -= step
			decision = DecisionDecreased
			ui.Debug("Stable cycle, decreasing minimum setpoint of regime %s by %.2f", state.Key, step)
		}
		if applyCondensingBias(cycle, state) {
			decision = DecisionDecreased
		}
		return decision

	case cycles.ClassificationFastUnderheat, cycles.ClassificationTooShortUnderheat:
		step := scaleStepForRegime(state, ShortUnderheatStep)
		state.MinimumSetpoint -= step
		ui.Debug("Underheat cycle, decreasing minimum setpoint of regime %s by %.2f", state.Key, step)
		return DecisionDecreased

	case cycles.ClassificationFastOvershoot, cycles.ClassificationTooShortOvershoot:
		if isLoadDropOvershoot(cycle) {
			ui.Debug("Overshoot likely caused by a load drop, skipping minimum setpoint increase")
			return DecisionSkipped
		}
		step := scaleStepForRegime(state, ShortOvershootStep)
		if applied := increaseWithLimits(state, step, now); applied > 0 {
			ui.Debug("Overshoot cycle, increasing minimum setpoint of regime %s by %.2f", state.Key, applied)
			return DecisionIncreased
		}
		return DecisionSkipped

	case cycles.ClassificationLongUnderheat:
		step := scaleStepForRegime(state, longCycleStep(cycle))
		state.MinimumSetpoint -= step
		ui.Debug("Long underheat, decreasing minimum setpoint of regime %s by %.2f", state.Key, step)
		applyCondensingBias(cycle, state)
		return DecisionDecreased

	case cycles.ClassificationLongOvershoot:
		if isLoadDropOvershoot(cycle) {
			ui.Debug("Overshoot likely caused by a load drop, skipping minimum setpoint increase")
			return DecisionSkipped
		}
		step := scaleStepForRegime(state, longCycleStep(cycle))
		if applied := increaseWithLimits(state, step, now); applied > 0 {
			ui.Debug("Long overshoot, increasing minimum setpoint of regime %s by %.2f", state.Key, applied)
			return DecisionIncreased
		}
		return DecisionSkipped
	}

	return DecisionUnchanged
}

func isTunable(statistics cycles.Statistics) bool {
	if statistics.Window.SampleCount4h < MinimumOnSamplesForTuning {
		return false
	}
	return statistics.Window.LastHourCount >= LowLoadMinimumCyclesPerHour
}

// learningBand is widened during the first cycles of a regime
func learningBand(state *RegimeState) float64 {
	if state.CompletedCycles >= EarlyTuningCycles {
		return LearningBand
	}
	remaining := float64(EarlyTuningCycles - state.CompletedCycles)
	return LearningBand + LearningBandEarlyBonus*(remaining/EarlyTuningCycles)
}

// scaledStep computes base + scale * value clamped to the step bounds, fallback if value is unknown
func scaledStep(base float64, scale float64, value *float64, fallback float64) float64 {
	if value == nil {
		return fallback
	}
	return util.Coerce(base+scale*(*value), StepMinimum, StepMaximum)
}

// scaleStepForRegime speeds up convergence of young regimes, keeping the sign of step
func scaleStepForRegime(state *RegimeState, step float64) float64 {
	if step == 0 {
		return 0
	}
	multiplier := 1.0
	if state.CompletedCycles < EarlyTuningCycles {
		multiplier = EarlyTuningMultiplier
	}
	scaled := step * multiplier
	magnitude := util.Coerce(math.Abs(scaled), StepMinimum, StepMaximum)
	if scaled < 0 {
		return -magnitude
	}
	return magnitude
}

func longCycleStep(cycle cycles.Cycle) float64 {
	var magnitude *float64
	if e := cycle.Tail.FlowSetpointError.P90; e != nil {
		magnitude = util.Ptr(math.Abs(*e))
	}
	return scaledStep(LongCycleStepBase, LongCycleStepScale, magnitude, LongCycleStepFallback)
}

// isLoadDropOvershoot detects overshoots caused by the heat demand suddenly dropping,
// visible as an unusually large flow/return delta for the flow temperature
func isLoadDropOvershoot(cycle cycles.Cycle) bool {
	delta := cycle.Tail.FlowReturnDelta.P90
	if delta == nil {
		return false
	}
	threshold := LoadDropFlowReturnDeltaThreshold
	if flow := cycle.Tail.FlowTemperature.P90; flow != nil {
		threshold = math.Max(threshold, *flow*LoadDropFlowReturnDeltaFraction)
	}
	return *delta >= threshold
}

// applyCondensingBias lowers the minimum while the return temperature prevents condensing
func applyCondensingBias(cycle cycles.Cycle, state *RegimeState) bool {
	returnTemperature := cycle.Tail.ReturnTemperature.P90
	if returnTemperature == nil || *returnTemperature <= CondensingReturnTemperature {
		return false
	}
	excess := *returnTemperature - CondensingReturnTemperature
	step := scaledStep(CondensingStepBase, CondensingStepScale, &excess, CondensingStepFallback)
	state.MinimumSetpoint -= step
	ui.Debug(
		"Condensing bias applied to regime %s: return=%.1f target=%.1f step=%.2f",
		state.Key, *returnTemperature, CondensingReturnTemperature, step,
	)
	return true
}

// increaseWithLimits applies an increase subject to the cooldown and the cap on increases
// within a sliding IncreaseWindow, returning the step that was actually applied
func increaseWithLimits(state *RegimeState, step float64, now time.Time) float64 {
	if step <= 0 {
		return 0
	}

	if state.LastIncreaseAt != nil && now.Sub(*state.LastIncreaseAt) < IncreaseCooldown {
		ui.Debug("Skipping minimum setpoint increase of regime %s due to cooldown", state.Key)
		return 0
	}

	state.pruneIncreases(now)
	remaining := MaximumIncreasePerDay - state.IncreaseWindowTotal(now)
	if remaining <= 0 {
		ui.Debug("Daily minimum setpoint increase limit of regime %s reached", state.Key)
		return 0
	}

	applied := math.Min(step, remaining)
	state.LastIncreaseAt = util.Ptr(now)
	state.MinimumSetpoint += applied
	state.Increases = append(state.Increases, Increase{At: now, Amount: applied})

	ui.Debug(
		"Increased minimum setpoint of regime %s by %.2f, %.2f remaining today",
		state.Key, applied, MaximumIncreasePerDay-state.IncreaseWindowTotal(now),
	)
	return applied
}
