package setpoint

import (
	"math"

	"github.com/markusressel/boiler2go/internal/boiler"
	"github.com/markusressel/boiler2go/internal/cycles"
	"github.com/markusressel/boiler2go/internal/util"
)

type AnchorSource string

const (
	AnchorSourceFlowFloor      AnchorSource = "flow_floor"
	AnchorSourceTailSetpoint   AnchorSource = "tail_setpoint"
	AnchorSourceIntentSetpoint AnchorSource = "intent_setpoint"
)

// Relaxation is the result of moving a minimum setpoint toward an anchor
type Relaxation struct {
	MinimumSetpoint float64
	Anchor          float64
	RanNearMinimum  bool
	Source          AnchorSource
}

// Relax moves the old minimum toward an anchor derived from the outcome of the cycle,
// keeping factor of the old value.
// A cycle that ran close to the old minimum anchors on the flow temperature it actually reached.
func Relax(capabilities boiler.Capabilities, cycle cycles.Cycle, oldMinimum float64, factor float64) Relaxation {
	effectiveSetpoint := util.FirstNonNil(cycle.Tail.Setpoint.P50, cycle.Tail.Setpoint.P90)

	ranNearMinimum := effectiveSetpoint != nil && math.Abs(*effectiveSetpoint-oldMinimum) <= LearningBand

	var anchor float64
	var source AnchorSource
	flowReference := util.FirstNonNil(cycle.Tail.FlowTemperature.P50, cycle.Tail.FlowTemperature.P90, cycle.MaxFlowTemperature)
	switch {
	case ranNearMinimum && flowReference != nil:
		anchor = *flowReference - FloorMargin
		source = AnchorSourceFlowFloor
	case effectiveSetpoint != nil:
		anchor = *effectiveSetpoint
		source = AnchorSourceTailSetpoint
	case cycle.Metrics.IntentSetpoint.P90 != nil:
		anchor = *cycle.Metrics.IntentSetpoint.P90
		source = AnchorSourceIntentSetpoint
	default:
		// nothing to relax toward
		return Relaxation{
			MinimumSetpoint: capabilities.Clamp(oldMinimum),
			Anchor:          oldMinimum,
			Source:          AnchorSourceIntentSetpoint,
		}
	}

	anchor = capabilities.Clamp(anchor)
	minimum := util.Round(factor*oldMinimum+(1-factor)*anchor, 1)

	return Relaxation{
		MinimumSetpoint: capabilities.Clamp(minimum),
		Anchor:          anchor,
		RanNearMinimum:  ranNearMinimum,
		Source:          source,
	}
}
