package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/user/cfo-challenge/internal/types"
)

func TestScoreOrdersByROI(t *testing.T) {
	players := []types.Player{
		{Name: "A", Capital: 3_000_000, CumulativeNPV: 500_000},
		{Name: "B", Capital: 4_000_000, CumulativeNPV: 500_000},
		{Name: "C", Capital: 5_000_000, CumulativeNPV: 0},
	}

	results := Score(players, 5_000_000)

	assert.Equal(t, "C", results[0].Player)
	assert.Equal(t, "B", results[1].Player)
	assert.Equal(t, "A", results[2].Player)

	assert.Zero(t, results[0].ROI)
	assert.Equal(t, 4_500_000.0, results[1].FinalCapital)
	assert.InDelta(t, -0.1, results[1].ROI, 1e-12)
	assert.InDelta(t, -0.3, results[2].ROI, 1e-12)

	for i, r := range results {
		assert.Equal(t, i+1, r.Rank)
	}
}

func TestScoreBreaksTiesOnCumulativeNPV(t *testing.T) {
	players := []types.Player{
		{Name: "A", Capital: 4_500_000, CumulativeNPV: 500_000},
		{Name: "B", Capital: 4_000_000, CumulativeNPV: 1_000_000},
	}

	results := Score(players, 5_000_000)

	assert.Equal(t, results[0].ROI, results[1].ROI)
	assert.Equal(t, "B", results[0].Player)
	assert.Equal(t, "A", results[1].Player)
}

func TestScoreKeepsRosterOrderOnFullTie(t *testing.T) {
	players := []types.Player{
		{Name: "D", Capital: 5_000_000},
		{Name: "A", Capital: 5_000_000},
		{Name: "C", Capital: 5_000_000},
	}

	results := Score(players, 5_000_000)

	assert.Equal(t, "D", results[0].Player)
	assert.Equal(t, "A", results[1].Player)
	assert.Equal(t, "C", results[2].Player)
}

func TestWinner(t *testing.T) {
	_, ok := Winner(nil)
	assert.False(t, ok)

	results := Score([]types.Player{
		{Name: "A", Capital: 5_000_000},
		{Name: "B", Capital: 5_000_000, CumulativeNPV: 10},
	}, 5_000_000)
	winner, ok := Winner(results)
	assert.True(t, ok)
	assert.Equal(t, "B", winner.Player)
	assert.Equal(t, 1, winner.Rank)
}
