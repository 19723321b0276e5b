package boiler

import "time"

const (
	// MinimumSetpoint is the setpoint commanded when no heat is wanted
	MinimumSetpoint = 10.0
	// ColdSetpoint is the highest setpoint that does not count as heat demand
	ColdSetpoint = 28.2

	MinimumRelativeModulation = 0
	MaximumRelativeModulation = 100

	DemandHysteresis = 0.5
	PreheatDelta     = 6.0
	SetpointBand     = 1.5
	OvershootDelta   = 2.0

	AntiCyclingMinOff     = 3 * time.Minute
	PostCycleSettling     = 2 * time.Minute
	StallIgnitionMinOff   = 15 * time.Minute
	StallIgnitionOffRatio = 3.0

	RampUpWindow               = 3 * time.Minute
	RampUpRateCelsiusPerSecond = 0.1

	GradientThresholdUp   = 0.3
	GradientThresholdDown = -0.3

	ModulationDeltaThreshold       = 3.0
	ModulationReliabilityMinSample = 8
)
