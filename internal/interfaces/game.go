package interfaces

import (
	"context"

	"github.com/user/cfo-challenge/internal/types"
)

// MessageSender defines the interface for sending messages
type MessageSender interface {
	SendMessage(phoneNumber, recipient, message string) (string, error)
}

// Presenter receives read-only snapshots at every state transition.
// Implementations must not block for long: they run on the game loop.
type Presenter interface {
	RenderDashboard(roster types.RosterSnapshot)
	RenderRoundBanner(banner types.RoundBanner)
	RenderTurnPrompt(prompt types.TurnPrompt)
	RenderRoundComplete(round int)
	RenderFinalResults(results []types.Result, log []types.TurnRecord)
	RenderRejection(player string, err error)
}

// Recorder persists the game log outside the process
type Recorder interface {
	RecordTurn(ctx context.Context, gameID string, record types.TurnRecord) error
	RecordResults(ctx context.Context, gameID string, results []types.Result) error
}

// GameManager defines the operations transports use to drive a game
type GameManager interface {
	Submit(ctx context.Context, cmd types.Command) error
	Snapshot() types.GameSnapshot
	Results() ([]types.Result, error)
	Projects() []types.Project
	FinancingOptions() []types.FinancingOption
	MarketEvents() []types.MarketEvent
}

// Presenters fans every call out to each presenter in order
type Presenters []Presenter

func (ps Presenters) RenderDashboard(roster types.RosterSnapshot) {
	for _, p := range ps {
		p.RenderDashboard(roster)
	}
}

func (ps Presenters) RenderRoundBanner(banner types.RoundBanner) {
	for _, p := range ps {
		p.RenderRoundBanner(banner)
	}
}

func (ps Presenters) RenderTurnPrompt(prompt types.TurnPrompt) {
	for _, p := range ps {
		p.RenderTurnPrompt(prompt)
	}
}

func (ps Presenters) RenderRoundComplete(round int) {
	for _, p := range ps {
		p.RenderRoundComplete(round)
	}
}

func (ps Presenters) RenderFinalResults(results []types.Result, log []types.TurnRecord) {
	for _, p := range ps {
		p.RenderFinalResults(results, log)
	}
}

func (ps Presenters) RenderRejection(player string, err error) {
	for _, p := range ps {
		p.RenderRejection(player, err)
	}
}
