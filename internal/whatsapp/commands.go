package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/user/cfo-challenge/internal/game"
	"github.com/user/cfo-challenge/internal/interfaces"
	"github.com/user/cfo-challenge/internal/types"
)

// CommandHandler turns chat commands into game commands
type CommandHandler struct {
	gameManager interfaces.GameManager
	formatter   *MessageFormatter
}

// NewCommandHandler creates a command handler driving gameManager
func NewCommandHandler(gameManager interfaces.GameManager) *CommandHandler {
	return &CommandHandler{
		gameManager: gameManager,
		formatter:   NewMessageFormatter(),
	}
}

// Handle runs one command sent by senderName and returns the direct reply.
// Game transitions and rejections are broadcast by the presenter, so commands
// that reach the game loop reply with an empty string.
func (ch *CommandHandler) Handle(ctx context.Context, senderName, text string) string {
	text = cleanCommand(text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}

	name, args, _ := strings.Cut(strings.TrimPrefix(text, "/"), " ")
	args = strings.TrimSpace(args)

	switch strings.ToLower(name) {
	case "help":
		return ch.formatter.FormatHelp()

	case "start":
		return ch.handleStart(ctx, args)

	case "invest", "continue":
		return ch.handleTurn(ctx, senderName, types.DecisionContinue, args)
	case "delay":
		return ch.handleTurn(ctx, senderName, types.DecisionDelay, args)
	case "abandon":
		return ch.handleTurn(ctx, senderName, types.DecisionAbandon, args)

	case "next":
		return ch.submit(ctx, types.AdvanceRound())
	case "restart":
		return ch.submit(ctx, types.Restart())

	case "status":
		return ch.handleStatus()
	case "log":
		return ch.formatter.FormatLog(ch.gameManager.Snapshot().Log)
	case "projects":
		return ch.handleProjects()
	}

	return "Unknown command. Type */help* for the list of commands."
}

func (ch *CommandHandler) handleStart(ctx context.Context, args string) string {
	if args == "" {
		return "Name the players: */start A, B, C, D*"
	}

	names := make([]string, 0)
	for _, n := range strings.Split(args, ",") {
		names = append(names, strings.TrimSpace(n))
	}
	return ch.submit(ctx, types.StartGame(names...))
}

func (ch *CommandHandler) handleTurn(ctx context.Context, senderName string, decision types.Decision, args string) string {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return fmt.Sprintf("Usage: */%s <project#> <financing#>*", commandFor(decision))
	}

	projects := ch.gameManager.Projects()
	p, err := parseIndex(fields[0], "p", len(projects))
	if err != nil {
		return fmt.Sprintf("Invalid project number: choose 1 to %d.", len(projects))
	}
	financing := ch.gameManager.FinancingOptions()
	f, err := parseIndex(fields[1], "f", len(financing))
	if err != nil {
		return fmt.Sprintf("Invalid financing number: choose 1 to %d.", len(financing))
	}

	sub := types.TurnSubmission{
		Project:   projects[p].Name,
		Financing: financing[f].Name,
		Decision:  decision,
	}
	// Only a sender seated in the game is held to turn order
	for _, player := range ch.gameManager.Snapshot().Players {
		if strings.EqualFold(player.Name, senderName) {
			sub.Player = player.Name
			break
		}
	}

	return ch.submit(ctx, types.SubmitTurn(sub))
}

// submit forwards cmd to the game loop. Only a loop that never answered gets a reply.
func (ch *CommandHandler) submit(ctx context.Context, cmd types.Command) string {
	err := ch.gameManager.Submit(ctx, cmd)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.Is(err, game.ErrManagerStopped) {
		return "⚠️ The game is not responding, try again in a moment."
	}
	return ""
}

func (ch *CommandHandler) handleStatus() string {
	snap := ch.gameManager.Snapshot()
	status := ch.formatter.FormatDashboard(types.RosterSnapshot{
		Round:   snap.Round,
		Phase:   snap.Phase,
		Players: snap.Players,
	})

	switch snap.Phase {
	case types.PhaseAwaitingTurn:
		status += fmt.Sprintf("\n⏳ Waiting for *%s*", snap.ActivePlayer)
	case types.PhaseRoundComplete:
		status += "\n" + ch.formatter.FormatRoundComplete(snap.Round)
	case types.PhaseGameOver:
		status += "\n🏁 Game over. Type */restart* to play again."
	}
	return status
}

func (ch *CommandHandler) handleProjects() string {
	snap := ch.gameManager.Snapshot()
	if snap.Prompt != nil {
		return ch.formatter.FormatTurnPrompt(*snap.Prompt)
	}
	return ch.formatter.FormatCatalog(ch.gameManager.Projects(), ch.gameManager.FinancingOptions())
}

// parseIndex reads a 1-based menu number, optionally prefixed ("p3", "f1")
func parseIndex(field, prefix string, size int) (int, error) {
	field = strings.TrimPrefix(strings.ToLower(field), prefix)
	n, err := strconv.Atoi(field)
	if err != nil {
		return 0, err
	}
	if n < 1 || n > size {
		return 0, fmt.Errorf("index %d out of range", n)
	}
	return n - 1, nil
}

// cleanCommand trims whitespace and drops the "/ " group prefix some clients insert
func cleanCommand(command string) string {
	command = strings.TrimSpace(command)
	if strings.HasPrefix(command, "/ ") {
		command = "/" + strings.TrimSpace(strings.TrimPrefix(command, "/ "))
	}
	return command
}
