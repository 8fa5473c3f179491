package whatsapp

import (
	"github.com/user/cfo-challenge/internal/interfaces"
	"github.com/user/cfo-challenge/internal/types"
	"go.uber.org/zap"
)

// Presenter posts every game transition to a WhatsApp group
type Presenter struct {
	sender      interfaces.MessageSender
	phoneNumber string
	groupJID    string
	formatter   *MessageFormatter
	logger      *zap.Logger
}

var _ interfaces.Presenter = (*Presenter)(nil)

// NewPresenter creates a presenter sending from the bot account phoneNumber to groupJID
func NewPresenter(sender interfaces.MessageSender, phoneNumber, groupJID string, logger *zap.Logger) *Presenter {
	return &Presenter{
		sender:      sender,
		phoneNumber: phoneNumber,
		groupJID:    groupJID,
		formatter:   NewMessageFormatter(),
		logger:      logger,
	}
}

func (p *Presenter) send(text string) {
	if _, err := p.sender.SendMessage(p.phoneNumber, p.groupJID, text); err != nil {
		p.logger.Error("Failed to send game message",
			zap.String("group", p.groupJID),
			zap.Error(err))
	}
}

func (p *Presenter) RenderDashboard(roster types.RosterSnapshot) {
	p.send(p.formatter.FormatDashboard(roster))
}

func (p *Presenter) RenderRoundBanner(banner types.RoundBanner) {
	p.send(p.formatter.FormatRoundBanner(banner))
}

func (p *Presenter) RenderTurnPrompt(prompt types.TurnPrompt) {
	p.send(p.formatter.FormatTurnPrompt(prompt))
}

func (p *Presenter) RenderRoundComplete(round int) {
	p.send(p.formatter.FormatRoundComplete(round))
}

func (p *Presenter) RenderFinalResults(results []types.Result, log []types.TurnRecord) {
	p.send(p.formatter.FormatFinalResults(results, log))
}

func (p *Presenter) RenderRejection(player string, err error) {
	p.send(p.formatter.FormatRejection(player, err))
}
