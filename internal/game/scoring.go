package game

import (
	"sort"

	"github.com/user/cfo-challenge/internal/types"
)

// Score ranks players by ROI, then by cumulative NPV. Players tied on both keep
// their roster order.
func Score(players []types.Player, initialCapital float64) []types.Result {
	results := make([]types.Result, 0, len(players))
	for _, p := range players {
		finalCapital := p.Capital + p.CumulativeNPV
		roi := 0.0
		if initialCapital != 0 {
			roi = (finalCapital - initialCapital) / initialCapital
		}
		results = append(results, types.Result{
			Player:        p.Name,
			FinalCapital:  finalCapital,
			CumulativeNPV: p.CumulativeNPV,
			ROI:           roi,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].ROI != results[j].ROI {
			return results[i].ROI > results[j].ROI
		}
		return results[i].CumulativeNPV > results[j].CumulativeNPV
	})

	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}

// Winner returns the top-ranked result
func Winner(results []types.Result) (types.Result, bool) {
	if len(results) == 0 {
		return types.Result{}, false
	}
	return results[0], true
}
