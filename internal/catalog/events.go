package catalog

import (
	"fmt"
	"math"

	"github.com/user/cfo-challenge/internal/types"
)

const (
	cyberBreachPenalty   = 500_000
	positiveRegulationUp = 300_000
	downturnFactor       = 0.8
)

// Transform applies a market event's effect to a cash-flow schedule.
// The input is never modified and the output has the same length.
func Transform(kind types.EventKind, schedule []float64) ([]float64, error) {
	if !KnownKind(kind) {
		return nil, fmt.Errorf("unknown market event kind: %q", kind)
	}

	out := make([]float64, len(schedule))
	for i, cf := range schedule {
		switch kind {
		case types.EventRegulatoryOverhaul, types.EventDowntime:
			out[i] = cf * downturnFactor
		case types.EventCyberBreach:
			out[i] = math.Max(0, cf-cyberBreachPenalty)
		case types.EventPositiveRegulation:
			out[i] = cf + positiveRegulationUp
		default:
			out[i] = cf
		}
	}
	return out, nil
}

// KnownKind reports whether kind maps to a transformation
func KnownKind(kind types.EventKind) bool {
	switch kind {
	case types.EventRegulatoryOverhaul, types.EventCyberBreach, types.EventRateHike,
		types.EventDowntime, types.EventPositiveRegulation:
		return true
	}
	return false
}

// ShiftForward delays a schedule by one period: a zero is prepended and the last
// period is dropped, so the length is unchanged.
func ShiftForward(schedule []float64) []float64 {
	out := make([]float64, len(schedule))
	if len(schedule) > 0 {
		copy(out[1:], schedule[:len(schedule)-1])
	}
	return out
}
