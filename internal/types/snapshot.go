package types

import "fmt"

// RosterSnapshot is the dashboard view of every player
type RosterSnapshot struct {
	Round   int      `json:"round"`
	Phase   Phase    `json:"phase"`
	Players []Player `json:"players"`
}

// RoundBanner announces a round and its market event
type RoundBanner struct {
	Round            int    `json:"round"`
	Rounds           int    `json:"rounds"`
	EventName        string `json:"event_name"`
	EventDescription string `json:"event_description"`
}

// ProjectMetrics are a project's figures under the active market event.
// IRR and PaybackPeriod are nil when undefined (JSON cannot carry NaN or Inf).
type ProjectMetrics struct {
	NPV                float64  `json:"npv"`
	IRR                *float64 `json:"irr,omitempty"`
	PaybackPeriod      *float64 `json:"payback_period,omitempty"`
	ProfitabilityIndex float64  `json:"profitability_index"`
}

// ProjectOption is one entry of the project menu
type ProjectOption struct {
	Label   string         `json:"label"`
	Project Project        `json:"project"`
	Metrics ProjectMetrics `json:"metrics"`
}

// FinancingChoice is one entry of the financing menu
type FinancingChoice struct {
	Label string `json:"label"`
	Name  string `json:"name"`
}

// DecisionChoice is one entry of the decision menu
type DecisionChoice struct {
	Label    string   `json:"label"`
	Decision Decision `json:"decision"`
}

// TurnPrompt is the decision menu shown to the active player
type TurnPrompt struct {
	Round     int               `json:"round"`
	Player    string            `json:"player"`
	Projects  []ProjectOption   `json:"projects"`
	Financing []FinancingChoice `json:"financing"`
	Decisions []DecisionChoice  `json:"decisions"`
}

// GameSnapshot is a read-only deep copy of the game
type GameSnapshot struct {
	ID           string       `json:"id"`
	Phase        Phase        `json:"phase"`
	Round        int          `json:"round"`
	Rounds       int          `json:"rounds"`
	ActivePlayer string       `json:"active_player,omitempty"`
	Event        *MarketEvent `json:"event,omitempty"`
	Players      []Player     `json:"players"`
	Log          []TurnRecord `json:"log"`
	Prompt       *TurnPrompt  `json:"prompt,omitempty"`
	Results      []Result     `json:"results,omitempty"`
}

// LogHeader lists the columns of the tabular game log
var LogHeader = []string{"Round", "Player", "Project", "Financing", "Decision", "NPV"}

// LogTable renders the game log as rows under LogHeader
func LogTable(records []TurnRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			fmt.Sprintf("%d", r.Round),
			r.Player,
			r.Project,
			r.Financing,
			string(r.Decision),
			fmt.Sprintf("%.2f", r.NPV),
		})
	}
	return rows
}

// RoundProgress is the running NPV total of every player after a round
type RoundProgress struct {
	Round  int                `json:"round"`
	Totals map[string]float64 `json:"totals"`
}

// CumulativeByRound sums NPV per player per round and accumulates across rounds.
// Players with no turn in a round keep their previous total.
func CumulativeByRound(records []TurnRecord, players []string) []RoundProgress {
	last := 0
	for _, r := range records {
		if r.Round > last {
			last = r.Round
		}
	}

	running := make(map[string]float64, len(players))
	for _, name := range players {
		running[name] = 0
	}

	progress := make([]RoundProgress, 0, last)
	for round := 1; round <= last; round++ {
		for _, r := range records {
			if r.Round == round {
				running[r.Player] += r.NPV
			}
		}
		totals := make(map[string]float64, len(running))
		for name, v := range running {
			totals[name] = v
		}
		progress = append(progress, RoundProgress{Round: round, Totals: totals})
	}
	return progress
}
