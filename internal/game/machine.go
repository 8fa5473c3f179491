package game

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/user/cfo-challenge/config"
	"github.com/user/cfo-challenge/internal/catalog"
	"github.com/user/cfo-challenge/internal/types"
	"github.com/user/cfo-challenge/internal/valuation"
)

// Rules are the fixed parameters of a game
type Rules struct {
	Rounds         int
	PlayerCount    int
	InitialCapital float64
	DiscountRate   float64
}

// DefaultRules returns five rounds for four players with $5M each at 10%
func DefaultRules() Rules {
	return Rules{
		Rounds:         5,
		PlayerCount:    4,
		InitialCapital: 5_000_000,
		DiscountRate:   valuation.DefaultDiscountRate,
	}
}

// RulesFromConfig reads the rules from the game configuration
func RulesFromConfig(cfg config.GameConfig) Rules {
	rules := DefaultRules()
	if cfg.Rounds > 0 {
		rules.Rounds = cfg.Rounds
	}
	if cfg.PlayerCount > 0 {
		rules.PlayerCount = cfg.PlayerCount
	}
	if cfg.InitialCapital > 0 {
		rules.InitialCapital = cfg.InitialCapital
	}
	if cfg.DiscountRate > 0 {
		rules.DiscountRate = cfg.DiscountRate
	}
	return rules
}

// Transition is one phase entered by the state machine, with what it publishes
type Transition struct {
	Phase   types.Phase
	Round   int
	Banner  *types.RoundBanner
	Prompt  *types.TurnPrompt
	Roster  *types.RosterSnapshot
	Record  *types.TurnRecord
	Results []types.Result
}

// Machine is the round/turn state machine of one game.
// It is not safe for concurrent use; GameManager serializes access.
type Machine struct {
	rules   Rules
	catalog *catalog.Catalog
	roller  Roller
	now     func() time.Time
	state   types.GameState
}

// NewMachine creates a machine waiting for its roster
func NewMachine(cat *catalog.Catalog, rules Rules, roller Roller) *Machine {
	m := &Machine{
		rules:   rules,
		catalog: cat,
		roller:  roller,
		now:     time.Now,
	}
	m.state = freshState()
	return m
}

func freshState() types.GameState {
	return types.GameState{
		Phase:   types.PhaseAwaitingSetup,
		Players: make([]*types.Player, 0),
		Log:     make([]types.TurnRecord, 0),
	}
}

// Phase returns the current phase
func (m *Machine) Phase() types.Phase {
	return m.state.Phase
}

// Rules returns the rules the machine was built with
func (m *Machine) Rules() Rules {
	return m.rules
}

// ActivePlayer returns the name of the player whose turn is pending
func (m *Machine) ActivePlayer() (string, bool) {
	if m.state.Phase != types.PhaseAwaitingTurn {
		return "", false
	}
	return m.state.Players[m.state.PlayerIndex].Name, true
}

// Start seats the roster and opens round one
func (m *Machine) Start(names []string) ([]Transition, error) {
	if m.state.Phase != types.PhaseAwaitingSetup {
		return nil, fmt.Errorf("%w: game already started", ErrOutOfSequence)
	}

	roster, err := m.validateRoster(names)
	if err != nil {
		return nil, err
	}

	m.state.ID = uuid.New().String()
	m.state.Players = make([]*types.Player, 0, len(roster))
	for _, name := range roster {
		m.state.Players = append(m.state.Players, &types.Player{
			Name:          name,
			Capital:       m.rules.InitialCapital,
			CumulativeNPV: 0,
			History:       make([]string, 0),
		})
	}
	m.state.Log = make([]types.TurnRecord, 0, m.rules.Rounds*len(roster))
	m.state.Round = 1

	return m.startRound(), nil
}

func (m *Machine) validateRoster(names []string) ([]string, error) {
	if len(names) != m.rules.PlayerCount {
		return nil, fmt.Errorf("%w: need %d players, got %d", ErrInvalidRoster, m.rules.PlayerCount, len(names))
	}

	roster := make([]string, 0, len(names))
	seen := make(map[string]bool)
	for i, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			return nil, fmt.Errorf("%w: player %d has no name", ErrInvalidRoster, i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidRoster, name)
		}
		seen[name] = true
		roster = append(roster, name)
	}
	return roster, nil
}

// startRound draws the round's market event and hands the turn to the first player
func (m *Machine) startRound() []Transition {
	events := m.catalog.MarketEvents()
	event := events[m.roller.Roll(len(events))-1]

	m.state.Phase = types.PhaseRoundStart
	m.state.Event = &event
	m.state.PlayerIndex = 0

	roster := m.roster()
	transitions := []Transition{{
		Phase: types.PhaseRoundStart,
		Round: m.state.Round,
		Banner: &types.RoundBanner{
			Round:            m.state.Round,
			Rounds:           m.rules.Rounds,
			EventName:        event.Name,
			EventDescription: event.Description,
		},
		Roster: &roster,
	}}

	return append(transitions, m.awaitTurn())
}

func (m *Machine) awaitTurn() Transition {
	m.state.Phase = types.PhaseAwaitingTurn
	prompt := m.prompt()
	return Transition{
		Phase:  types.PhaseAwaitingTurn,
		Round:  m.state.Round,
		Prompt: &prompt,
	}
}

// SubmitTurn resolves the active player's decision and moves the cursor on
func (m *Machine) SubmitTurn(sub types.TurnSubmission) ([]Transition, error) {
	if m.state.Phase != types.PhaseAwaitingTurn {
		return nil, fmt.Errorf("%w: no turn pending in phase %s", ErrOutOfSequence, m.state.Phase)
	}

	active := m.state.Players[m.state.PlayerIndex]
	if sub.Player != "" && sub.Player != active.Name {
		return nil, fmt.Errorf("%w: waiting for %s", ErrNotYourTurn, active.Name)
	}

	res, err := ResolveTurn(*active, m.catalog, sub, *m.state.Event, m.rules.DiscountRate)
	if err != nil {
		return nil, err
	}

	*active = res.Player
	record := types.TurnRecord{
		ID:         uuid.New().String(),
		Round:      m.state.Round,
		Player:     active.Name,
		Project:    res.Project.Name,
		Financing:  res.Financing.Name,
		Decision:   sub.Decision,
		NPV:        res.NPV,
		EventName:  m.state.Event.Name,
		ResolvedAt: m.now(),
	}
	m.state.Log = append(m.state.Log, record)

	m.state.Phase = types.PhaseTurnSubmitted
	roster := m.roster()
	transitions := []Transition{{
		Phase:  types.PhaseTurnSubmitted,
		Round:  m.state.Round,
		Record: &record,
		Roster: &roster,
	}}

	m.state.PlayerIndex++
	if m.state.PlayerIndex < len(m.state.Players) {
		return append(transitions, m.awaitTurn()), nil
	}

	m.state.Phase = types.PhaseRoundComplete
	return append(transitions, Transition{
		Phase: types.PhaseRoundComplete,
		Round: m.state.Round,
	}), nil
}

// AdvanceRound opens the next round, or ends the game after the last one
func (m *Machine) AdvanceRound() ([]Transition, error) {
	if m.state.Phase != types.PhaseRoundComplete {
		return nil, fmt.Errorf("%w: round %d is not complete", ErrOutOfSequence, m.state.Round)
	}

	if m.state.Round < m.rules.Rounds {
		m.state.Round++
		return m.startRound(), nil
	}

	m.state.Phase = types.PhaseGameOver
	return []Transition{{
		Phase:   types.PhaseGameOver,
		Round:   m.state.Round,
		Results: Score(m.players(), m.rules.InitialCapital),
	}}, nil
}

// Restart throws the whole game away and waits for a new roster
func (m *Machine) Restart() []Transition {
	m.state = freshState()
	roster := m.roster()
	return []Transition{{
		Phase:  types.PhaseAwaitingSetup,
		Roster: &roster,
	}}
}

// Results ranks the players once the game is over
func (m *Machine) Results() ([]types.Result, error) {
	if m.state.Phase != types.PhaseGameOver {
		return nil, fmt.Errorf("%w: game is not over", ErrOutOfSequence)
	}
	return Score(m.players(), m.rules.InitialCapital), nil
}

// Snapshot returns a deep copy of the game
func (m *Machine) Snapshot() types.GameSnapshot {
	snap := types.GameSnapshot{
		ID:      m.state.ID,
		Phase:   m.state.Phase,
		Round:   m.state.Round,
		Rounds:  m.rules.Rounds,
		Players: m.players(),
		Log:     append([]types.TurnRecord(nil), m.state.Log...),
	}
	if m.state.Event != nil {
		event := *m.state.Event
		snap.Event = &event
	}
	if name, ok := m.ActivePlayer(); ok {
		snap.ActivePlayer = name
		prompt := m.prompt()
		snap.Prompt = &prompt
	}
	if m.state.Phase == types.PhaseGameOver {
		snap.Results = Score(m.players(), m.rules.InitialCapital)
	}
	return snap
}

// GameID returns the identifier assigned at Start
func (m *Machine) GameID() string {
	return m.state.ID
}

func (m *Machine) players() []types.Player {
	out := make([]types.Player, len(m.state.Players))
	for i, p := range m.state.Players {
		out[i] = p.Clone()
	}
	return out
}

func (m *Machine) roster() types.RosterSnapshot {
	return types.RosterSnapshot{
		Round:   m.state.Round,
		Phase:   m.state.Phase,
		Players: m.players(),
	}
}

// prompt builds the active player's decision menu with each project valued
// under the round's market event
func (m *Machine) prompt() types.TurnPrompt {
	prompt := types.TurnPrompt{
		Round:     m.state.Round,
		Player:    m.state.Players[m.state.PlayerIndex].Name,
		Decisions: m.catalog.DecisionOptions(),
	}

	for _, p := range m.catalog.Projects() {
		schedule := p.CashInflows
		if m.state.Event != nil {
			if adjusted, err := catalog.Transform(m.state.Event.Kind, p.CashInflows); err == nil {
				schedule = adjusted
			}
		}
		metrics := valuation.Analyze(schedule, p.Cost, m.rules.DiscountRate)

		option := types.ProjectOption{
			Label:   fmt.Sprintf("%s %s ($%s)", p.Icon, p.Name, FormatWhole(p.Cost)),
			Project: p,
			Metrics: types.ProjectMetrics{
				NPV:                metrics.NPV,
				IRR:                metrics.IRR,
				ProfitabilityIndex: metrics.ProfitabilityIndex,
			},
		}
		if !math.IsInf(metrics.PaybackPeriod, 0) {
			payback := metrics.PaybackPeriod
			option.Metrics.PaybackPeriod = &payback
		}
		prompt.Projects = append(prompt.Projects, option)
	}

	for _, f := range m.catalog.FinancingOptions() {
		prompt.Financing = append(prompt.Financing, types.FinancingChoice{
			Label: fmt.Sprintf("%s - %s", f.Name, f.Description),
			Name:  f.Name,
		})
	}
	return prompt
}
