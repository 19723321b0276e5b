package heating

import (
	"fmt"
	"strings"
)

type HeatingSystem string

const (
	HeatingSystemUnknown    HeatingSystem = "unknown"
	HeatingSystemHeatPump   HeatingSystem = "heat_pump"
	HeatingSystemRadiators  HeatingSystem = "radiators"
	HeatingSystemUnderfloor HeatingSystem = "underfloor"
)

var HeatingSystems = []HeatingSystem{
	HeatingSystemUnknown,
	HeatingSystemHeatPump,
	HeatingSystemRadiators,
	HeatingSystemUnderfloor,
}

// ParseHeatingSystem resolves the given name (case-insensitive) to a HeatingSystem
func ParseHeatingSystem(name string) (HeatingSystem, error) {
	for _, system := range HeatingSystems {
		if strings.EqualFold(string(system), strings.TrimSpace(name)) {
			return system, nil
		}
	}
	return HeatingSystemUnknown, fmt.Errorf("unknown heating system: %s", name)
}

// BaseOffset is the water temperature a heating curve starts from
func (s HeatingSystem) BaseOffset() float64 {
	if s == HeatingSystemUnderfloor {
		return 20
	}
	return 27.2
}
