package types

// CommandKind names an input event delivered to the game loop
type CommandKind string

const (
	CommandStartGame    CommandKind = "start_game"
	CommandSubmitTurn   CommandKind = "submit_turn"
	CommandAdvanceRound CommandKind = "advance_round"
	CommandRestart      CommandKind = "restart"
)

// TurnSubmission carries one player's choice.
// Player may be left empty when the transport cannot identify the sender.
type TurnSubmission struct {
	Player    string   `json:"player,omitempty"`
	Project   string   `json:"project"`
	Financing string   `json:"financing"`
	Decision  Decision `json:"decision"`
}

// Command is an input event for the game loop
type Command struct {
	Kind  CommandKind     `json:"kind"`
	Names []string        `json:"names,omitempty"`
	Turn  *TurnSubmission `json:"turn,omitempty"`
}

// StartGame builds a StartGame command
func StartGame(names ...string) Command {
	return Command{Kind: CommandStartGame, Names: names}
}

// SubmitTurn builds a TurnSubmission command
func SubmitTurn(sub TurnSubmission) Command {
	return Command{Kind: CommandSubmitTurn, Turn: &sub}
}

// AdvanceRound builds an AdvanceRound command
func AdvanceRound() Command {
	return Command{Kind: CommandAdvanceRound}
}

// Restart builds a Restart command
func Restart() Command {
	return Command{Kind: CommandRestart}
}
