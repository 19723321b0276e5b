package boiler

import (
	"fmt"
	"strings"
	"time"
)

type Manufacturer int

const (
	ManufacturerOther Manufacturer = iota
	ManufacturerAtag
	ManufacturerBaxi
	ManufacturerBrotge
	ManufacturerDeDietrich
	ManufacturerFerroli
	ManufacturerGeminox
	ManufacturerIdeal
	ManufacturerImmergas
	ManufacturerIntergas
	ManufacturerItho
	ManufacturerNefit
	ManufacturerRadiant
	ManufacturerRemeha
	ManufacturerSime
	ManufacturerVaillant
	ManufacturerViessmann
	ManufacturerWorcester
)

const (
	DefaultFlameOffSetpointOffset      = 5.0
	DefaultModulationSuppressionDelay  = 20 * time.Second
	DefaultModulationSuppressionOffset = 2.0
	GeminoxMinimumRelativeModulation   = 10.0

	memberIdUnknown = -1
)

// Behavior describes vendor specific quirks the control core has to honor
type Behavior struct {
	// MinimumRelativeModulation is the lowest relative modulation the boiler accepts
	MinimumRelativeModulation float64
	// FlameOffSetpointOffset is added to the return temperature while the flame is off
	FlameOffSetpointOffset float64
	// ModulationSuppressionDelay is how long after flame on the flow based setpoint kicks in
	ModulationSuppressionDelay time.Duration
	// ModulationSuppressionOffset is subtracted from the flow temperature
	ModulationSuppressionOffset float64
	// ReportsRelativeModulation is false for boilers that do not expose a usable modulation level
	ReportsRelativeModulation bool
}

type manufacturerEntry struct {
	name         string
	friendlyName string
	memberId     int
	behavior     Behavior
}

var defaultBehavior = Behavior{
	MinimumRelativeModulation:   MinimumRelativeModulation,
	FlameOffSetpointOffset:      DefaultFlameOffSetpointOffset,
	ModulationSuppressionDelay:  DefaultModulationSuppressionDelay,
	ModulationSuppressionOffset: DefaultModulationSuppressionOffset,
	ReportsRelativeModulation:   true,
}

func withoutModulationReading(b Behavior) Behavior {
	b.ReportsRelativeModulation = false
	return b
}

func withMinimumModulation(b Behavior, minimum float64) Behavior {
	b.MinimumRelativeModulation = minimum
	return b
}

var manufacturers = map[Manufacturer]manufacturerEntry{
	ManufacturerOther:      {"Other", "Other", memberIdUnknown, defaultBehavior},
	ManufacturerAtag:       {"Atag", "ATAG", 4, defaultBehavior},
	ManufacturerBaxi:       {"Baxi", "Baxi", 4, defaultBehavior},
	ManufacturerBrotge:     {"Brotge", "Brötge", 4, defaultBehavior},
	ManufacturerDeDietrich: {"DeDietrich", "De Dietrich", 4, defaultBehavior},
	ManufacturerFerroli:    {"Ferroli", "Ferroli", 9, defaultBehavior},
	ManufacturerGeminox:    {"Geminox", "Geminox", 4, withMinimumModulation(withoutModulationReading(defaultBehavior), GeminoxMinimumRelativeModulation)},
	ManufacturerIdeal:      {"Ideal", "Ideal", 6, withoutModulationReading(defaultBehavior)},
	ManufacturerImmergas:   {"Immergas", "Immergas", 27, defaultBehavior},
	ManufacturerIntergas:   {"Intergas", "Intergas", 173, withoutModulationReading(defaultBehavior)},
	ManufacturerItho:       {"Itho", "Itho", 29, defaultBehavior},
	ManufacturerNefit:      {"Nefit", "Nefit", 131, withoutModulationReading(defaultBehavior)},
	ManufacturerRadiant:    {"Radiant", "Radiant", 41, defaultBehavior},
	ManufacturerRemeha:     {"Remeha", "Remeha", 11, defaultBehavior},
	ManufacturerSime:       {"Sime", "Sime", 27, defaultBehavior},
	ManufacturerVaillant:   {"Vaillant", "Vaillant", 24, defaultBehavior},
	ManufacturerViessmann:  {"Viessmann", "Viessmann", 33, defaultBehavior},
	ManufacturerWorcester:  {"Worcester", "Worcester", 95, defaultBehavior},
}

// ManufacturerByName resolves a manufacturer by its configuration name (case insensitive)
func ManufacturerByName(name string) (Manufacturer, error) {
	for _, m := range AllManufacturers() {
		if strings.EqualFold(manufacturers[m].name, name) {
			return m, nil
		}
	}
	return ManufacturerOther, fmt.Errorf("unknown manufacturer: %s", name)
}

// ManufacturersByMemberID returns all manufacturers sharing the given OpenTherm member id
func ManufacturersByMemberID(memberId int) []Manufacturer {
	var result []Manufacturer
	for _, m := range AllManufacturers() {
		if manufacturers[m].memberId == memberId {
			result = append(result, m)
		}
	}
	return result
}

// AllManufacturers returns every known manufacturer in declaration order
func AllManufacturers() []Manufacturer {
	result := make([]Manufacturer, 0, len(manufacturers))
	for m := ManufacturerOther; m <= ManufacturerWorcester; m++ {
		result = append(result, m)
	}
	return result
}

func (m Manufacturer) entry() manufacturerEntry {
	if entry, ok := manufacturers[m]; ok {
		return entry
	}
	return manufacturers[ManufacturerOther]
}

func (m Manufacturer) Name() string {
	return m.entry().name
}

func (m Manufacturer) FriendlyName() string {
	return m.entry().friendlyName
}

func (m Manufacturer) MemberId() int {
	return m.entry().memberId
}

func (m Manufacturer) Behavior() Behavior {
	return m.entry().behavior
}

func (m Manufacturer) String() string {
	return m.Name()
}

// ClampRelativeModulation raises the given value to the vendor floor
func (b Behavior) ClampRelativeModulation(value float64) float64 {
	if value < b.MinimumRelativeModulation {
		return b.MinimumRelativeModulation
	}
	return value
}
