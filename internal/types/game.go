package types

import "time"

// Phase is a step of the round/turn lifecycle
type Phase string

const (
	// PhaseAwaitingSetup waits for the roster of player names
	PhaseAwaitingSetup Phase = "awaiting_setup"
	// PhaseRoundStart draws the round's market event
	PhaseRoundStart Phase = "round_start"
	// PhaseAwaitingTurn waits for the active player's decision
	PhaseAwaitingTurn Phase = "awaiting_turn"
	// PhaseTurnSubmitted is entered right after a turn is resolved
	PhaseTurnSubmitted Phase = "turn_submitted"
	// PhaseRoundComplete waits for an explicit advance signal
	PhaseRoundComplete Phase = "round_complete"
	// PhaseGameOver is terminal
	PhaseGameOver Phase = "game_over"
)

// Decision is what a player does with the selected project
type Decision string

const (
	DecisionContinue Decision = "Continue"
	DecisionDelay    Decision = "Delay"
	DecisionAbandon  Decision = "Abandon"
)

// Valid reports whether d is one of the three known decisions
func (d Decision) Valid() bool {
	switch d {
	case DecisionContinue, DecisionDelay, DecisionAbandon:
		return true
	}
	return false
}

// RealOption is the strategic flexibility declared on a project
type RealOption string

const (
	OptionExpand          RealOption = "Expand"
	OptionDelay           RealOption = "Delay"
	OptionAbandon         RealOption = "Abandon"
	OptionExpandOrAbandon RealOption = "Expand or Abandon"
)

// RiskTier classifies a project's risk
type RiskTier string

const (
	RiskLow    RiskTier = "Low"
	RiskMedium RiskTier = "Medium"
	RiskHigh   RiskTier = "High"
)

// EventKind selects the cash-flow transformation of a market event
type EventKind string

const (
	EventRegulatoryOverhaul EventKind = "regulatory_overhaul"
	EventCyberBreach        EventKind = "cyber_breach"
	EventRateHike           EventKind = "rate_hike"
	EventDowntime           EventKind = "downtime"
	EventPositiveRegulation EventKind = "positive_regulation"
)

// Project is an investment a player can make
type Project struct {
	Name        string     `json:"name" yaml:"name"`
	Icon        string     `json:"icon" yaml:"icon"`
	Cost        float64    `json:"cost" yaml:"cost"`
	Life        int        `json:"life" yaml:"life"`
	CashInflows []float64  `json:"cash_inflows" yaml:"cash_inflows"`
	Option      RealOption `json:"option" yaml:"option"`
	Risk        RiskTier   `json:"risk" yaml:"risk"`
}

// FinancingOption is recorded on a turn for the log only
type FinancingOption struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// MarketEvent perturbs every project's cash flows for one round
type MarketEvent struct {
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	Kind        EventKind `json:"kind" yaml:"kind"`
}

// Player represents a finance officer taking part in the game
type Player struct {
	Name          string   `json:"name"`
	Capital       float64  `json:"capital"`
	CumulativeNPV float64  `json:"cumulative_npv"`
	History       []string `json:"history"`
}

// Clone returns a copy that shares no memory with p
func (p Player) Clone() Player {
	p.History = append([]string(nil), p.History...)
	return p
}

// TurnRecord is the immutable log entry written when a turn is finalized
type TurnRecord struct {
	ID         string    `json:"id"`
	Round      int       `json:"round"`
	Player     string    `json:"player"`
	Project    string    `json:"project"`
	Financing  string    `json:"financing"`
	Decision   Decision  `json:"decision"`
	NPV        float64   `json:"npv"`
	EventName  string    `json:"event_name"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// GameState is the whole mutable state of one running game
type GameState struct {
	ID          string       `json:"id"`
	Phase       Phase        `json:"phase"`
	Round       int          `json:"round"`
	PlayerIndex int          `json:"player_index"`
	Event       *MarketEvent `json:"event,omitempty"`
	Players     []*Player    `json:"players"`
	Log         []TurnRecord `json:"log"`
}

// Result is one player's end-of-game standing
type Result struct {
	Rank          int     `json:"rank"`
	Player        string  `json:"player"`
	FinalCapital  float64 `json:"final_capital"`
	CumulativeNPV float64 `json:"cumulative_npv"`
	ROI           float64 `json:"roi"`
}
