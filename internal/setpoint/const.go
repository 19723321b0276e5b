package setpoint

import "time"

const (
	// low-load detection
	LowLoadMinimumCyclesPerHour = 3.0
	LowLoadMaximumDutyRatio15m  = 0.5

	MinimumOnSamplesForTuning         = 3
	MinimumSpaceHeatingFractionToTune = 0.6

	// only cycles whose setpoint is close to the learned minimum are used for learning
	LearningBand           = 3.0
	LearningBandEarlyBonus = 2.0
	EarlyTuningCycles      = 3
	EarlyTuningMultiplier  = 1.3

	RelaxFactorWhenUntunable = 0.8

	RegimeBandWidth = 3.0

	OutsideTemperatureMargin       = 0.5
	OutsideTemperatureFreezing     = 0.0
	OutsideTemperatureCold         = 5.0
	OutsideTemperatureMild         = 15.0
	DeltaBandMargin                = 1.0
	DeltaBandLowThreshold          = 5.0
	DeltaBandMedThreshold          = 10.0
	DeltaBandHighThreshold         = 15.0
	FloorMargin                    = 3.0
	RegimeRetention                = 90 * 24 * time.Hour
	MinimumStableCyclesToTrust     = 2
	MinimumCompletedCyclesToTrust  = 3
	MaximumSeedRegimes             = 3
	SeedCurrentValueWeight         = 0.7
	RegimeSetpointSmoothingSamples = 5

	StepMinimum             = 0.3
	StepMaximum             = 1.5
	MaximumIncreasePerDay   = 2.0
	IncreaseCooldown        = 2 * time.Hour
	IncreaseWindow          = 24 * time.Hour
	GoodStableDecreaseStep  = 0.3
	ShortUnderheatStep      = 1.0
	ShortOvershootStep      = 1.0
	LongCycleStepBase       = 0.3
	LongCycleStepScale      = 0.1
	LongCycleStepFallback   = 0.5
	PrematureOffStepBase    = 0.5
	PrematureOffStepScale   = 0.1
	PrematureOffStepDefault = 1.0

	LoadDropFlowReturnDeltaThreshold = 20.0
	LoadDropFlowReturnDeltaFraction  = 0.35

	CondensingStepBase          = 0.2
	CondensingStepScale         = 0.02
	CondensingStepFallback      = 0.2
	CondensingReturnTemperature = 55.0
)

// storage keys
const (
	StorageKeyValue   = "value"
	StorageKeyRegimes = "regimes"
)
