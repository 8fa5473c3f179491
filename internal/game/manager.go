package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/user/cfo-challenge/config"
	"github.com/user/cfo-challenge/internal/catalog"
	"github.com/user/cfo-challenge/internal/interfaces"
	"github.com/user/cfo-challenge/internal/types"
	"go.uber.org/zap"
)

// ErrManagerStopped is returned by Submit once the game loop has exited
var ErrManagerStopped = errors.New("game manager stopped")

type envelope struct {
	cmd   types.Command
	reply chan error
}

// GameManager owns the game state and serializes every command through one loop
type GameManager struct {
	machine    *Machine
	catalog    *catalog.Catalog
	stateLock  sync.RWMutex
	config     config.Config
	Logger     *zap.Logger
	presenters interfaces.Presenters
	recorder   interfaces.Recorder
	commands   chan envelope
	done       chan struct{}

	// RecordTimeout bounds every recorder call
	RecordTimeout time.Duration
}

// Ensure GameManager satifies the interfaces.GameManager interface
var _ interfaces.GameManager = (*GameManager)(nil)

// NewGameManager creates a new game manager
func NewGameManager(cfg config.Config, cat *catalog.Catalog) *GameManager {
	return NewGameManagerWithRoller(cfg, cat, NewDiceRoller(cfg.Game.Seed))
}

// NewGameManagerWithRoller creates a game manager drawing market events from roller
func NewGameManagerWithRoller(cfg config.Config, cat *catalog.Catalog, roller Roller) *GameManager {
	return &GameManager{
		machine:       NewMachine(cat, RulesFromConfig(cfg.Game), roller),
		catalog:       cat,
		config:        cfg,
		Logger:        zap.NewNop(), // Will be set by the server
		commands:      make(chan envelope),
		done:          make(chan struct{}),
		RecordTimeout: 5 * time.Second,
	}
}

// SetLogger replaces the manager's logger
func (gm *GameManager) SetLogger(logger *zap.Logger) {
	gm.Logger = logger
}

// AddPresenter registers a presenter for every following transition
func (gm *GameManager) AddPresenter(p interfaces.Presenter) {
	gm.stateLock.Lock()
	defer gm.stateLock.Unlock()
	gm.presenters = append(gm.presenters, p)
}

// SetRecorder sets where resolved turns and final results are persisted
func (gm *GameManager) SetRecorder(r interfaces.Recorder) {
	gm.stateLock.Lock()
	defer gm.stateLock.Unlock()
	gm.recorder = r
}

// Run processes commands until ctx is cancelled
func (gm *GameManager) Run(ctx context.Context) error {
	defer close(gm.done)

	gm.Logger.Info("Game loop started",
		zap.Int("rounds", gm.machine.Rules().Rounds),
		zap.Int("players", gm.machine.Rules().PlayerCount))

	for {
		select {
		case <-ctx.Done():
			gm.Logger.Info("Game loop stopped")
			return ctx.Err()
		case env := <-gm.commands:
			env.reply <- gm.handle(ctx, env.cmd)
		}
	}
}

// Submit delivers a command to the game loop and waits for its outcome
func (gm *GameManager) Submit(ctx context.Context, cmd types.Command) error {
	env := envelope{cmd: cmd, reply: make(chan error, 1)}

	select {
	case gm.commands <- env:
	case <-gm.done:
		return ErrManagerStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-env.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (gm *GameManager) handle(ctx context.Context, cmd types.Command) error {
	gm.stateLock.Lock()
	transitions, err := gm.apply(cmd)
	gameID := gm.machine.GameID()
	active, awaiting := gm.machine.ActivePlayer()
	var reprompt types.TurnPrompt
	if err != nil && awaiting {
		reprompt = gm.machine.prompt()
	}
	presenters := append(interfaces.Presenters(nil), gm.presenters...)
	recorder := gm.recorder
	gm.stateLock.Unlock()

	if err != nil {
		player := active
		if cmd.Turn != nil && cmd.Turn.Player != "" {
			player = cmd.Turn.Player
		}
		gm.Logger.Warn("Command rejected",
			zap.String("command", string(cmd.Kind)),
			zap.String("player", player),
			zap.Error(err))

		presenters.RenderRejection(player, err)
		if awaiting {
			presenters.RenderTurnPrompt(reprompt)
		}
		return err
	}

	gm.publish(ctx, presenters, recorder, gameID, transitions)
	return nil
}

func (gm *GameManager) apply(cmd types.Command) ([]Transition, error) {
	switch cmd.Kind {
	case types.CommandStartGame:
		return gm.machine.Start(cmd.Names)
	case types.CommandSubmitTurn:
		if cmd.Turn == nil {
			return nil, fmt.Errorf("%w: missing turn", ErrInvalidDecision)
		}
		return gm.machine.SubmitTurn(*cmd.Turn)
	case types.CommandAdvanceRound:
		return gm.machine.AdvanceRound()
	case types.CommandRestart:
		return gm.machine.Restart(), nil
	default:
		return nil, fmt.Errorf("%w: unknown command %q", ErrOutOfSequence, cmd.Kind)
	}
}

// publish hands each transition to the presenters and the recorder
func (gm *GameManager) publish(ctx context.Context, presenters interfaces.Presenters, recorder interfaces.Recorder, gameID string, transitions []Transition) {
	for _, t := range transitions {
		gm.Logger.Debug("Phase entered",
			zap.String("game_id", gameID),
			zap.String("phase", string(t.Phase)),
			zap.Int("round", t.Round))

		switch t.Phase {
		case types.PhaseAwaitingSetup:
			presenters.RenderDashboard(*t.Roster)

		case types.PhaseRoundStart:
			presenters.RenderRoundBanner(*t.Banner)
			presenters.RenderDashboard(*t.Roster)

		case types.PhaseAwaitingTurn:
			presenters.RenderTurnPrompt(*t.Prompt)

		case types.PhaseTurnSubmitted:
			gm.Logger.Info("Turn resolved",
				zap.String("game_id", gameID),
				zap.Int("round", t.Record.Round),
				zap.String("player", t.Record.Player),
				zap.String("project", t.Record.Project),
				zap.String("decision", string(t.Record.Decision)),
				zap.Float64("npv", t.Record.NPV))

			presenters.RenderDashboard(*t.Roster)
			if recorder != nil {
				rctx, cancel := context.WithTimeout(ctx, gm.RecordTimeout)
				if err := recorder.RecordTurn(rctx, gameID, *t.Record); err != nil {
					gm.Logger.Error("Failed to record turn", zap.String("game_id", gameID), zap.Error(err))
				}
				cancel()
			}

		case types.PhaseRoundComplete:
			presenters.RenderRoundComplete(t.Round)

		case types.PhaseGameOver:
			if winner, ok := Winner(t.Results); ok {
				gm.Logger.Info("Game over",
					zap.String("game_id", gameID),
					zap.String("winner", winner.Player),
					zap.Float64("roi", winner.ROI))
			}

			presenters.RenderFinalResults(t.Results, gm.Snapshot().Log)
			if recorder != nil {
				rctx, cancel := context.WithTimeout(ctx, gm.RecordTimeout)
				if err := recorder.RecordResults(rctx, gameID, t.Results); err != nil {
					gm.Logger.Error("Failed to record results", zap.String("game_id", gameID), zap.Error(err))
				}
				cancel()
			}
		}
	}
}

// Snapshot returns a deep copy of the current game
func (gm *GameManager) Snapshot() types.GameSnapshot {
	gm.stateLock.RLock()
	defer gm.stateLock.RUnlock()
	return gm.machine.Snapshot()
}

// Results returns the final ranking once the game is over
func (gm *GameManager) Results() ([]types.Result, error) {
	gm.stateLock.RLock()
	defer gm.stateLock.RUnlock()
	return gm.machine.Results()
}

// Progression returns every player's running NPV total after each round
func (gm *GameManager) Progression() []types.RoundProgress {
	snap := gm.Snapshot()
	names := make([]string, 0, len(snap.Players))
	for _, p := range snap.Players {
		names = append(names, p.Name)
	}
	return types.CumulativeByRound(snap.Log, names)
}

// Projects returns the project catalog
func (gm *GameManager) Projects() []types.Project {
	return gm.catalog.Projects()
}

// FinancingOptions returns the financing catalog
func (gm *GameManager) FinancingOptions() []types.FinancingOption {
	return gm.catalog.FinancingOptions()
}

// MarketEvents returns the market event catalog
func (gm *GameManager) MarketEvents() []types.MarketEvent {
	return gm.catalog.MarketEvents()
}
