package whatsapp

import (
	"fmt"
	"strings"

	"github.com/user/cfo-challenge/internal/game"
	"github.com/user/cfo-challenge/internal/types"
)

// MessageFormatter renders game views as WhatsApp text
type MessageFormatter struct{}

// NewMessageFormatter creates a new message formatter
func NewMessageFormatter() *MessageFormatter {
	return &MessageFormatter{}
}

// FormatDashboard lists every player's capital, projects and cumulative NPV
func (mf *MessageFormatter) FormatDashboard(roster types.RosterSnapshot) string {
	if len(roster.Players) == 0 {
		return "🆕 *NEW GAME*\n\nNo players yet. Type */start A, B, C, D* to begin."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 *DASHBOARD* (round %d)\n", roster.Round)
	for _, p := range roster.Players {
		fmt.Fprintf(&b, "\n*%s*\n", p.Name)
		fmt.Fprintf(&b, "Capital: $%s 💰\n", game.FormatWhole(p.Capital))
		fmt.Fprintf(&b, "Cumulative NPV: $%s 📈\n", game.FormatMoney(p.CumulativeNPV))
		if len(p.History) == 0 {
			b.WriteString("Projects: none\n")
			continue
		}
		b.WriteString("Projects:\n")
		for _, h := range p.History {
			fmt.Fprintf(&b, "  • %s\n", h)
		}
	}
	return b.String()
}

// FormatRoundBanner announces a round and its market event
func (mf *MessageFormatter) FormatRoundBanner(banner types.RoundBanner) string {
	return fmt.Sprintf("🔔 *ROUND %d/%d*\n\nMarket Event: *%s*\n_%s_",
		banner.Round, banner.Rounds, banner.EventName, banner.EventDescription)
}

// FormatTurnPrompt shows the active player's menus
func (mf *MessageFormatter) FormatTurnPrompt(prompt types.TurnPrompt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎯 *%s's Turn*\n\n", prompt.Player)
	b.WriteString(mf.formatProjectOptions(prompt.Projects))

	b.WriteString("\n*Financing:*\n")
	for i, f := range prompt.Financing {
		fmt.Fprintf(&b, "%d. %s\n", i+1, f.Label)
	}

	b.WriteString("\n*Decision:*\n")
	for _, d := range prompt.Decisions {
		fmt.Fprintf(&b, "/%s <project#> <financing#> - %s\n", commandFor(d.Decision), d.Label)
	}
	return b.String()
}

func (mf *MessageFormatter) formatProjectOptions(projects []types.ProjectOption) string {
	var b strings.Builder
	b.WriteString("*Projects:*\n")
	for i, p := range projects {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p.Label)
		fmt.Fprintf(&b, "    NPV $%s | IRR %s | Payback %s | PI %.2f\n",
			game.FormatMoney(p.Metrics.NPV),
			formatRate(p.Metrics.IRR),
			formatPayback(p.Metrics.PaybackPeriod),
			p.Metrics.ProfitabilityIndex)
	}
	return b.String()
}

// FormatCatalog lists the projects without event-adjusted metrics
func (mf *MessageFormatter) FormatCatalog(projects []types.Project, financing []types.FinancingOption) string {
	var b strings.Builder
	b.WriteString("*Projects:*\n")
	for i, p := range projects {
		fmt.Fprintf(&b, "%d. %s %s ($%s) - %d yrs, %s risk, %s\n",
			i+1, p.Icon, p.Name, game.FormatWhole(p.Cost), p.Life, p.Risk, p.Option)
	}
	b.WriteString("\n*Financing:*\n")
	for i, f := range financing {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, f.Name, f.Description)
	}
	return b.String()
}

// FormatRoundComplete tells the group the round is over
func (mf *MessageFormatter) FormatRoundComplete(round int) string {
	return fmt.Sprintf("✅ End of Round %d. Type */next* to proceed.", round)
}

// FormatFinalResults shows the winner, the standings and the game log
func (mf *MessageFormatter) FormatFinalResults(results []types.Result, log []types.TurnRecord) string {
	var b strings.Builder
	if winner, ok := game.Winner(results); ok {
		fmt.Fprintf(&b, "🏆 *Winner: %s!*\n\n", winner.Player)
	}

	b.WriteString("*Final Results*\n")
	for _, r := range results {
		fmt.Fprintf(&b, "%d. %s - Final Capital $%s | Cumulative NPV $%s | ROI %.2f%%\n",
			r.Rank, r.Player, game.FormatMoney(r.FinalCapital), game.FormatMoney(r.CumulativeNPV), r.ROI*100)
	}

	b.WriteString("\n")
	b.WriteString(mf.FormatLog(log))
	return b.String()
}

// FormatLog renders the game log one turn per line
func (mf *MessageFormatter) FormatLog(log []types.TurnRecord) string {
	if len(log) == 0 {
		return "📜 *Game Log*\nNo turns played yet."
	}

	var b strings.Builder
	b.WriteString("📜 *Game Log*\n")
	b.WriteString(strings.Join(types.LogHeader, " | "))
	b.WriteString("\n")
	for _, row := range types.LogTable(log) {
		b.WriteString(strings.Join(row, " | "))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatRejection explains why input was refused
func (mf *MessageFormatter) FormatRejection(player string, err error) string {
	if player == "" {
		return fmt.Sprintf("⚠️ %s", err)
	}
	return fmt.Sprintf("⚠️ %s: %s", player, err)
}

// FormatHelp lists the available commands
func (mf *MessageFormatter) FormatHelp() string {
	return "💼 *CFO INVESTMENT CHALLENGE*\n\n" +
		"*/start A, B, C, D* - seat four CFOs and start\n" +
		"*/invest <project#> <financing#>* - invest in a project\n" +
		"*/delay <project#> <financing#>* - invest, cash flows start a year later\n" +
		"*/abandon <project#> <financing#>* - walk away, no cost\n" +
		"*/next* - start the next round\n" +
		"*/status* - dashboard and whose turn it is\n" +
		"*/projects* - project and financing menus\n" +
		"*/log* - game log\n" +
		"*/restart* - discard the game and start over\n" +
		"*/help* - this message"
}

func commandFor(d types.Decision) string {
	switch d {
	case types.DecisionDelay:
		return "delay"
	case types.DecisionAbandon:
		return "abandon"
	default:
		return "invest"
	}
}

func formatRate(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", *v*100)
}

func formatPayback(v *float64) string {
	if v == nil {
		return "never"
	}
	return fmt.Sprintf("%.0f yrs", *v)
}
