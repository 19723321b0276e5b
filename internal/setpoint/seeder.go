package setpoint

import (
	"sort"

	"github.com/markusressel/boiler2go/internal/util"
)

type weightedRegime struct {
	key      RegimeKey
	state    *RegimeState
	distance int
}

// InitialMinimum seeds the minimum setpoint of a regime that was never visited before
// from the closest trusted regimes, blended with the current global value if there is one.
// Returns nil if no trusted regime exists.
func InitialMinimum(active RegimeKey, regimes map[RegimeKey]*RegimeState, current *float64) *float64 {
	var candidates []weightedRegime
	for key, state := range regimes {
		if !state.Trusted() {
			continue
		}
		candidates = append(candidates, weightedRegime{
			key:      key,
			state:    state,
			distance: key.distance(active),
		})
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].key.String() < candidates[j].key.String()
	})
	if len(candidates) > MaximumSeedRegimes {
		candidates = candidates[:MaximumSeedRegimes]
	}

	weightedTotal := 0.0
	weightSum := 0.0
	for _, candidate := range candidates {
		weight := 1.0 / (1.0 + float64(candidate.distance))
		weightedTotal += candidate.state.MinimumSetpoint * weight
		weightSum += weight
	}
	if weightSum <= 0 {
		return nil
	}

	blended := weightedTotal / weightSum
	if current != nil {
		blended = SeedCurrentValueWeight*(*current) + (1-SeedCurrentValueWeight)*blended
	}
	return util.Ptr(util.Round(blended, 1))
}
