package game

import (
	"fmt"

	"github.com/user/cfo-challenge/internal/catalog"
	"github.com/user/cfo-challenge/internal/types"
	"github.com/user/cfo-challenge/internal/valuation"
)

// Resolution is the outcome of one turn, computed without touching game state
type Resolution struct {
	Project           types.Project
	Financing         types.FinancingOption
	EffectiveSchedule []float64
	NPV               float64
	Charged           bool
	HistoryEntry      string

	// Player is the input player with capital, cumulative NPV and history updated
	Player types.Player
}

// ResolveTurn values a player's choice under the round's market event.
// On error nothing is returned and the caller must re-prompt the player.
func ResolveTurn(player types.Player, cat *catalog.Catalog, sub types.TurnSubmission, event types.MarketEvent, rate float64) (*Resolution, error) {
	project, ok := cat.Project(sub.Project)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProject, sub.Project)
	}
	financing, ok := cat.Financing(sub.Financing)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFinancing, sub.Financing)
	}
	if !sub.Decision.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecision, sub.Decision)
	}

	// Apply the round's market event
	schedule, err := catalog.Transform(event.Kind, project.CashInflows)
	if err != nil {
		return nil, err
	}

	// A delayed project starts paying one period later
	if sub.Decision == types.DecisionDelay {
		schedule = catalog.ShiftForward(schedule)
	}

	res := &Resolution{
		Project:           project,
		Financing:         financing,
		EffectiveSchedule: schedule,
		Player:            player.Clone(),
	}

	if sub.Decision == types.DecisionAbandon {
		res.HistoryEntry = fmt.Sprintf("%s (Abandoned)", project.Name)
		res.Player.History = append(res.Player.History, res.HistoryEntry)
		return res, nil
	}

	res.NPV = valuation.NPV(schedule, project.Cost, rate)
	res.Charged = true
	res.HistoryEntry = fmt.Sprintf("%s (%s, %s) NPV: $%s", project.Name, sub.Decision, financing.Name, FormatMoney(res.NPV))

	res.Player.Capital -= project.Cost
	res.Player.CumulativeNPV += res.NPV
	res.Player.History = append(res.Player.History, res.HistoryEntry)

	return res, nil
}
