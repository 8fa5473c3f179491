package game

import (
	"github.com/user/cfo-challenge/internal/interfaces"
	"github.com/user/cfo-challenge/internal/types"
	"go.uber.org/zap"
)

// LogPresenter writes every transition to a zap logger
type LogPresenter struct {
	logger *zap.Logger
}

var _ interfaces.Presenter = (*LogPresenter)(nil)

// NewLogPresenter creates a presenter logging under the "presenter" name
func NewLogPresenter(logger *zap.Logger) *LogPresenter {
	return &LogPresenter{logger: logger.Named("presenter")}
}

func (lp *LogPresenter) RenderDashboard(roster types.RosterSnapshot) {
	for _, p := range roster.Players {
		lp.logger.Info("Dashboard",
			zap.Int("round", roster.Round),
			zap.String("player", p.Name),
			zap.String("capital", FormatMoney(p.Capital)),
			zap.String("cumulative_npv", FormatMoney(p.CumulativeNPV)))
	}
}

func (lp *LogPresenter) RenderRoundBanner(banner types.RoundBanner) {
	lp.logger.Info("Round started",
		zap.Int("round", banner.Round),
		zap.Int("rounds", banner.Rounds),
		zap.String("event", banner.EventName))
}

func (lp *LogPresenter) RenderTurnPrompt(prompt types.TurnPrompt) {
	lp.logger.Info("Awaiting turn",
		zap.Int("round", prompt.Round),
		zap.String("player", prompt.Player))
}

func (lp *LogPresenter) RenderRoundComplete(round int) {
	lp.logger.Info("Round complete", zap.Int("round", round))
}

func (lp *LogPresenter) RenderFinalResults(results []types.Result, log []types.TurnRecord) {
	for _, r := range results {
		lp.logger.Info("Final standing",
			zap.Int("rank", r.Rank),
			zap.String("player", r.Player),
			zap.String("final_capital", FormatMoney(r.FinalCapital)),
			zap.Float64("roi", r.ROI))
	}
	lp.logger.Info("Game log closed", zap.Int("turns", len(log)))
}

func (lp *LogPresenter) RenderRejection(player string, err error) {
	lp.logger.Warn("Input rejected", zap.String("player", player), zap.Error(err))
}
