package setpoint

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type OutsideBand string

const (
	OutsideBandUnknown  OutsideBand = "unknown"
	OutsideBandFreezing OutsideBand = "freezing"
	OutsideBandCold     OutsideBand = "cold"
	OutsideBandMild     OutsideBand = "mild"
	OutsideBandWarm     OutsideBand = "warm"
)

// order is used to measure the distance between two bands
func (b OutsideBand) order() int {
	switch b {
	case OutsideBandFreezing:
		return 1
	case OutsideBandCold:
		return 2
	case OutsideBandMild:
		return 3
	case OutsideBandWarm:
		return 4
	}
	return 0
}

type DeltaBand string

const (
	DeltaBandUnknown DeltaBand = "d_unknown"
	DeltaBandVeryLow DeltaBand = "d_vlow"
	DeltaBandLow     DeltaBand = "d_low"
	DeltaBandMedium  DeltaBand = "d_med"
	DeltaBandHigh    DeltaBand = "d_high"
)

func (b DeltaBand) order() int {
	switch b {
	case DeltaBandVeryLow:
		return 1
	case DeltaBandLow:
		return 2
	case DeltaBandMedium:
		return 3
	case DeltaBandHigh:
		return 4
	}
	return 0
}

// RegimeKey is a bucketed fingerprint of the operating conditions
type RegimeKey struct {
	SetpointBand int
	OutsideBand  OutsideBand
	DeltaBand    DeltaBand
}

// String returns the storage form "{band}:{outside}:{delta}"
func (k RegimeKey) String() string {
	return fmt.Sprintf("%d:%s:%s", k.SetpointBand, k.OutsideBand, k.DeltaBand)
}

func (k RegimeKey) distance(other RegimeKey) int {
	return absInt(k.SetpointBand-other.SetpointBand) +
		absInt(k.OutsideBand.order()-other.OutsideBand.order()) +
		absInt(k.DeltaBand.order()-other.DeltaBand.order())
}

// ParseRegimeKey parses the storage form of a RegimeKey
func ParseRegimeKey(value string) (RegimeKey, error) {
	parts := strings.Split(value, ":")
	if len(parts) < 3 {
		return RegimeKey{}, errors.New(fmt.Sprintf("invalid regime key: %s", value))
	}
	band, err := strconv.Atoi(parts[0])
	if err != nil {
		return RegimeKey{}, fmt.Errorf("invalid setpoint band in regime key %s: %w", value, err)
	}
	return RegimeKey{
		SetpointBand: band,
		OutsideBand:  OutsideBand(parts[1]),
		DeltaBand:    DeltaBand(parts[2]),
	}, nil
}

// RegimeState is the learned minimum setpoint of a single regime
type RegimeState struct {
	Key             RegimeKey `json:"-"`
	MinimumSetpoint float64   `json:"minimum_setpoint"`

	CompletedCycles int        `json:"completed_cycles"`
	StableCycles    int        `json:"stable_cycles"`
	LastSeen        *time.Time `json:"last_seen"`
	LastIncreaseAt  *time.Time `json:"last_increase_at,omitempty"`

	// Increases within the last IncreaseWindow, oldest first
	Increases []Increase `json:"increases,omitempty"`
}

type Increase struct {
	At     time.Time `json:"at"`
	Amount float64   `json:"amount"`
}

// IncreaseWindowTotal sums the increases applied within IncreaseWindow before now
func (s *RegimeState) IncreaseWindowTotal(now time.Time) float64 {
	total := 0.0
	for _, increase := range s.Increases {
		if now.Sub(increase.At) < IncreaseWindow {
			total += increase.Amount
		}
	}
	return total
}

func (s *RegimeState) pruneIncreases(now time.Time) {
	kept := s.Increases[:0]
	for _, increase := range s.Increases {
		if now.Sub(increase.At) < IncreaseWindow {
			kept = append(kept, increase)
		}
	}
	s.Increases = kept
}

func (s RegimeState) clone() RegimeState {
	result := s
	result.Increases = append([]Increase(nil), s.Increases...)
	return result
}

// Trusted is true once the regime has seen enough stable cycles to seed others from it
func (s RegimeState) Trusted() bool {
	return s.StableCycles >= MinimumStableCyclesToTrust && s.CompletedCycles >= MinimumCompletedCyclesToTrust
}

// Bucketizer maps operating conditions to regime keys.
// Every dimension uses hysteresis so that values near a boundary do not flap between regimes.
type Bucketizer struct {
	setpointBand *int
	outsideBand  *OutsideBand
	deltaBand    *DeltaBand
}

func NewBucketizer() *Bucketizer {
	return &Bucketizer{}
}

func (b *Bucketizer) Key(setpoint float64, flowReturnDelta *float64, outsideTemperature *float64) RegimeKey {
	return RegimeKey{
		SetpointBand: b.bucketSetpoint(setpoint),
		OutsideBand:  b.bucketOutside(outsideTemperature),
		DeltaBand:    b.bucketDelta(flowReturnDelta),
	}
}

func (b *Bucketizer) bucketSetpoint(setpoint float64) int {
	raw := int(math.Floor((setpoint + RegimeBandWidth/2) / RegimeBandWidth))
	if b.setpointBand == nil {
		b.setpointBand = &raw
		return raw
	}

	previous := *b.setpointBand
	margin := RegimeBandWidth * 0.25
	center := float64(previous) * RegimeBandWidth
	upper := center + RegimeBandWidth/2 + margin
	lower := center - RegimeBandWidth/2 - margin

	band := previous
	if setpoint >= upper || setpoint <= lower {
		band = raw
	}
	b.setpointBand = &band
	return band
}

func initialOutsideBand(value float64) OutsideBand {
	switch {
	case value < OutsideTemperatureFreezing:
		return OutsideBandFreezing
	case value < OutsideTemperatureCold:
		return OutsideBandCold
	case value < OutsideTemperatureMild:
		return OutsideBandMild
	default:
		return OutsideBandWarm
	}
}

func (b *Bucketizer) bucketOutside(value *float64) OutsideBand {
	if value == nil {
		if b.outsideBand != nil {
			return *b.outsideBand
		}
		return OutsideBandUnknown
	}
	if b.outsideBand == nil {
		band := initialOutsideBand(*value)
		b.outsideBand = &band
		return band
	}

	t := *value
	band := *b.outsideBand
	switch band {
	case OutsideBandFreezing:
		if t >= OutsideTemperatureFreezing+OutsideTemperatureMargin {
			band = OutsideBandCold
		}
	case OutsideBandCold:
		if t < OutsideTemperatureFreezing-OutsideTemperatureMargin {
			band = OutsideBandFreezing
		} else if t >= OutsideTemperatureCold+OutsideTemperatureMargin {
			band = OutsideBandMild
		}
	case OutsideBandMild:
		if t < OutsideTemperatureCold-OutsideTemperatureMargin {
			band = OutsideBandCold
		} else if t >= OutsideTemperatureMild+OutsideTemperatureMargin {
			band = OutsideBandWarm
		}
	case OutsideBandWarm:
		if t < OutsideTemperatureMild-OutsideTemperatureMargin {
			band = OutsideBandMild
		}
	}
	b.outsideBand = &band
	return band
}

func initialDeltaBand(value float64) DeltaBand {
	switch {
	case value < DeltaBandLowThreshold:
		return DeltaBandVeryLow
	case value < DeltaBandMedThreshold:
		return DeltaBandLow
	case value < DeltaBandHighThreshold:
		return DeltaBandMedium
	default:
		return DeltaBandHigh
	}
}

func (b *Bucketizer) bucketDelta(value *float64) DeltaBand {
	if value == nil {
		if b.deltaBand != nil {
			return *b.deltaBand
		}
		return DeltaBandUnknown
	}
	if b.deltaBand == nil {
		band := initialDeltaBand(*value)
		b.deltaBand = &band
		return band
	}

	d := *value
	band := *b.deltaBand
	switch band {
	case DeltaBandVeryLow:
		if d >= DeltaBandLowThreshold+DeltaBandMargin {
			band = DeltaBandLow
		}
	case DeltaBandLow:
		if d < DeltaBandLowThreshold-DeltaBandMargin {
			band = DeltaBandVeryLow
		} else if d >= DeltaBandMedThreshold+DeltaBandMargin {
			band = DeltaBandMedium
		}
	case DeltaBandMedium:
		if d < DeltaBandMedThreshold-DeltaBandMargin {
			band = DeltaBandLow
		} else if d >= DeltaBandHighThreshold+DeltaBandMargin {
			band = DeltaBandHigh
		}
	case DeltaBandHigh:
		if d < DeltaBandHighThreshold-DeltaBandMargin {
			band = DeltaBandMedium
		}
	}
	b.deltaBand = &band
	return band
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
