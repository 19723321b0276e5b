package cycles

import (
	"time"

	"github.com/markusressel/boiler2go/internal/boiler"
	"github.com/markusressel/boiler2go/internal/pwm"
)

// ClassifierInput is everything the classification of a finished cycle depends on
type ClassifierInput struct {
	Duration time.Duration
	Kind     Kind
	PWM      pwm.State
	Tail     Metrics
	// State is the boiler state at the end of the cycle
	State boiler.State
}

// Classify labels a finished cycle. It is a pure function of its input.
func Classify(input ClassifierInput) Classification {
	seconds := input.Duration.Seconds()
	if seconds <= 0 {
		return ClassificationInsufficientData
	}

	if input.Kind == KindDomesticHotWater || input.Kind == KindUnknown {
		return ClassificationUncertain
	}

	if input.Tail.HotWaterActiveFraction > 0 {
		return ClassificationUncertain
	}

	tailError := input.Tail.FlowSetpointError.P90
	if tailError == nil {
		return ClassificationUncertain
	}

	shortThreshold := shortCycleThreshold(input.PWM).Seconds()
	ultraShortThreshold := UltraShortOnTime.Seconds()

	switch {
	case *tailError >= OvershootMargin:
		if seconds < ultraShortThreshold {
			return ClassificationFastOvershoot
		}
		if seconds < shortThreshold {
			return ClassificationTooShortOvershoot
		}
		return ClassificationLongOvershoot

	case *tailError <= UndershootMargin:
		if seconds < shortThreshold && isBelowColdSetpoint(input) {
			return ClassificationUncertain
		}
		if seconds < ultraShortThreshold {
			return ClassificationFastUnderheat
		}
		if seconds < shortThreshold {
			return ClassificationTooShortUnderheat
		}
		return ClassificationLongUnderheat
	}

	if input.PWM.Enabled && input.PWM.Status == pwm.StatusOn {
		return ClassificationPrematureOff
	}

	return ClassificationGood
}

// shortCycleThreshold is 90% of the PWM on time while duty cycling, the target minimum on time otherwise
func shortCycleThreshold(state pwm.State) time.Duration {
	if state.ActivelyDutyCycling() && state.DutyCycle.On > 0 {
		return time.Duration(PWMShortFraction * float64(state.DutyCycle.On) * float64(time.Second))
	}
	return TargetMinOnTime
}

// isBelowColdSetpoint is true when the boiler was not really asked for heat,
// underheat is meaningless then
func isBelowColdSetpoint(input ClassifierInput) bool {
	effective := input.Tail.RequestedSetpoint.P50
	if effective == nil {
		effective = input.State.Setpoint
	}
	return effective != nil && *effective < boiler.ColdSetpoint
}
