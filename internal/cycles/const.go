package cycles

import "time"

const (
	InBandMargin      = 1.0
	OvershootMargin   = 3.0
	UndershootMargin  = -3.0
	OvershootSustain  = 60 * time.Second
	TailDuration      = 180 * time.Second
	MaxWarmup         = 120 * time.Second
	WarmupFraction    = 0.25
	TargetMinOnTime   = 600 * time.Second
	UltraShortOnTime  = 90 * time.Second
	PWMShortFraction  = 0.9
	MaxRecordedOnTime = 1800 * time.Second
	LastCycleMaxAge   = 6 * time.Hour

	DutyWindow   = 15 * time.Minute
	CyclesWindow = time.Hour
	MedianWindow = 4 * time.Hour

	DefaultMinimumSamplesPerCycle = 3

	pureKindFraction   = 0.8
	impureKindFraction = 0.2
	mixedKindFraction  = 0.1
)
