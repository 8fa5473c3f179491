package whatsapp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/user/cfo-challenge/config"
	"github.com/user/cfo-challenge/internal/catalog"
	"github.com/user/cfo-challenge/internal/game"
	"github.com/user/cfo-challenge/internal/types"
	waTypes "go.mau.fi/whatsmeow/types"
	"go.uber.org/zap"
)

// MockGameManager is a mock implementation of interfaces.GameManager
type MockGameManager struct {
	mock.Mock
}

func (m *MockGameManager) Submit(ctx context.Context, cmd types.Command) error {
	args := m.Called(ctx, cmd)
	return args.Error(0)
}

func (m *MockGameManager) Snapshot() types.GameSnapshot {
	args := m.Called()
	return args.Get(0).(types.GameSnapshot)
}

func (m *MockGameManager) Results() ([]types.Result, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Result), args.Error(1)
}

func (m *MockGameManager) Projects() []types.Project {
	return catalog.Default().Projects()
}

func (m *MockGameManager) FinancingOptions() []types.FinancingOption {
	return catalog.Default().FinancingOptions()
}

func (m *MockGameManager) MarketEvents() []types.MarketEvent {
	return catalog.Default().MarketEvents()
}

// MockMessageSender is a mock implementation of interfaces.MessageSender
type MockMessageSender struct {
	mock.Mock
}

func (m *MockMessageSender) SendMessage(phoneNumber, recipient, message string) (string, error) {
	args := m.Called(phoneNumber, recipient, message)
	return args.String(0), args.Error(1)
}

func seated() types.GameSnapshot {
	return types.GameSnapshot{
		Phase:        types.PhaseAwaitingTurn,
		Round:        1,
		ActivePlayer: "Ana",
		Players: []types.Player{
			{Name: "Ana", Capital: 5_000_000},
			{Name: "Bia", Capital: 5_000_000},
			{Name: "Caio", Capital: 5_000_000},
			{Name: "Duda", Capital: 5_000_000},
		},
	}
}

func TestProcessGameCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("start splits the roster on commas", func(t *testing.T) {
		gm := new(MockGameManager)
		gm.On("Submit", ctx, types.StartGame("Ana", "Bia", "Caio", "Duda")).Return(nil)

		handler := NewCommandHandler(gm)
		assert.Empty(t, handler.Handle(ctx, "Ana", "/start Ana, Bia,Caio ,  Duda"))
		gm.AssertExpectations(t)
	})

	t.Run("start without names asks for them", func(t *testing.T) {
		gm := new(MockGameManager)
		handler := NewCommandHandler(gm)
		assert.Contains(t, handler.Handle(ctx, "Ana", "/start"), "/start A, B, C, D")
		gm.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
	})

	t.Run("invest maps menu numbers to names", func(t *testing.T) {
		gm := new(MockGameManager)
		gm.On("Snapshot").Return(seated())
		gm.On("Submit", ctx, types.SubmitTurn(types.TurnSubmission{
			Player:    "Ana",
			Project:   "Fintech Compliance Tool",
			Financing: "Bank Loan",
			Decision:  types.DecisionContinue,
		})).Return(nil)

		handler := NewCommandHandler(gm)
		assert.Empty(t, handler.Handle(ctx, "ana", "/invest 9 2"))
		gm.AssertExpectations(t)
	})

	t.Run("unseated sender plays for the active player", func(t *testing.T) {
		gm := new(MockGameManager)
		gm.On("Snapshot").Return(seated())
		gm.On("Submit", ctx, types.SubmitTurn(types.TurnSubmission{
			Project:   "Crypto Exchange Expansion",
			Financing: "Government Grant",
			Decision:  types.DecisionDelay,
		})).Return(nil)

		handler := NewCommandHandler(gm)
		assert.Empty(t, handler.Handle(ctx, "Moderator", "/ delay p1 f5"))
		gm.AssertExpectations(t)
	})

	t.Run("abandon is submitted with its decision", func(t *testing.T) {
		gm := new(MockGameManager)
		gm.On("Snapshot").Return(seated())
		gm.On("Submit", ctx, mock.MatchedBy(func(cmd types.Command) bool {
			return cmd.Turn != nil && cmd.Turn.Decision == types.DecisionAbandon
		})).Return(nil)

		handler := NewCommandHandler(gm)
		assert.Empty(t, handler.Handle(ctx, "Ana", "/abandon 3 1"))
		gm.AssertExpectations(t)
	})

	t.Run("bad menu numbers never reach the game", func(t *testing.T) {
		gm := new(MockGameManager)
		handler := NewCommandHandler(gm)

		assert.Contains(t, handler.Handle(ctx, "Ana", "/invest 11 1"), "choose 1 to 10")
		assert.Contains(t, handler.Handle(ctx, "Ana", "/invest 1 0"), "choose 1 to 5")
		assert.Contains(t, handler.Handle(ctx, "Ana", "/invest x 1"), "Invalid project")
		assert.Contains(t, handler.Handle(ctx, "Ana", "/invest 1"), "Usage")
		gm.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
	})

	t.Run("game errors are left to the presenter", func(t *testing.T) {
		gm := new(MockGameManager)
		gm.On("Submit", ctx, types.AdvanceRound()).Return(game.ErrOutOfSequence)

		handler := NewCommandHandler(gm)
		assert.Empty(t, handler.Handle(ctx, "Ana", "/next"))
	})

	t.Run("stopped game gets a direct reply", func(t *testing.T) {
		gm := new(MockGameManager)
		gm.On("Submit", ctx, types.Restart()).Return(game.ErrManagerStopped)

		handler := NewCommandHandler(gm)
		assert.Contains(t, handler.Handle(ctx, "Ana", "/restart"), "not responding")
	})

	t.Run("status shows whose turn it is", func(t *testing.T) {
		gm := new(MockGameManager)
		gm.On("Snapshot").Return(seated())

		handler := NewCommandHandler(gm)
		status := handler.Handle(ctx, "Ana", "/status")
		assert.Contains(t, status, "DASHBOARD")
		assert.Contains(t, status, "Waiting for *Ana*")
		assert.Contains(t, status, "Capital: $5,000,000")
	})

	t.Run("projects without a prompt lists the catalog", func(t *testing.T) {
		gm := new(MockGameManager)
		gm.On("Snapshot").Return(types.GameSnapshot{Phase: types.PhaseAwaitingSetup})

		handler := NewCommandHandler(gm)
		list := handler.Handle(ctx, "Ana", "/projects")
		assert.Contains(t, list, "1. 💹 Crypto Exchange Expansion ($2,000,000)")
		assert.Contains(t, list, "5. Government Grant")
	})

	t.Run("help and unknown commands", func(t *testing.T) {
		handler := NewCommandHandler(new(MockGameManager))
		assert.Contains(t, handler.Handle(ctx, "Ana", "/help"), "/invest")
		assert.Contains(t, handler.Handle(ctx, "Ana", "/dance"), "Unknown command")
		assert.Empty(t, handler.Handle(ctx, "Ana", "good morning"))
	})
}

func TestCommandsAgainstRealGame(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gm := game.NewGameManager(config.DefaultConfig(), catalog.Default())
	sender := new(MockMessageSender)
	sender.On("SendMessage", "5521999999999", "123@g.us", mock.Anything).Return("msg-id", nil)
	gm.AddPresenter(NewPresenter(sender, "5521999999999", "123@g.us", zap.NewNop()))
	go gm.Run(ctx)

	handler := NewCommandHandler(gm)
	assert.Empty(t, handler.Handle(ctx, "Ana", "/start Ana, Bia, Caio, Duda"))
	assert.Empty(t, handler.Handle(ctx, "Ana", "/invest 9 1"))

	// Caio is seated but it is Bia's turn; the rejection goes to the group
	assert.Empty(t, handler.Handle(ctx, "Caio", "/invest 9 1"))

	snap := gm.Snapshot()
	require.Len(t, snap.Log, 1)
	assert.Equal(t, "Ana", snap.Log[0].Player)
	assert.Equal(t, "Bia", snap.ActivePlayer)

	sender.AssertCalled(t, "SendMessage", "5521999999999", "123@g.us",
		"⚠️ Caio: input out of sequence: not your turn: waiting for Bia")
}

func TestPresenter(t *testing.T) {
	sender := new(MockMessageSender)
	sender.On("SendMessage", "5521999999999", "123@g.us", mock.Anything).Return("msg-id", nil)

	p := NewPresenter(sender, "5521999999999", "123@g.us", zap.NewNop())
	p.RenderRoundBanner(types.RoundBanner{Round: 2, Rounds: 5, EventName: "Economic Downtime", EventDescription: "Inflows reduced by 20%"})
	p.RenderRoundComplete(2)
	p.RenderRejection("Ana", game.ErrUnknownProject)

	sender.AssertCalled(t, "SendMessage", "5521999999999", "123@g.us", "🔔 *ROUND 2/5*\n\nMarket Event: *Economic Downtime*\n_Inflows reduced by 20%_")
	sender.AssertCalled(t, "SendMessage", "5521999999999", "123@g.us", "✅ End of Round 2. Type */next* to proceed.")
	sender.AssertCalled(t, "SendMessage", "5521999999999", "123@g.us", "⚠️ Ana: unknown project")
	sender.AssertNumberOfCalls(t, "SendMessage", 3)
}

func TestPresenterSendFailureIsLogged(t *testing.T) {
	sender := new(MockMessageSender)
	sender.On("SendMessage", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("not connected"))

	p := NewPresenter(sender, "5521999999999", "123@g.us", zap.NewNop())
	assert.NotPanics(t, func() { p.RenderRoundComplete(1) })
}

func TestFormatFinalResults(t *testing.T) {
	mf := NewMessageFormatter()
	text := mf.FormatFinalResults([]types.Result{
		{Rank: 1, Player: "Bia", FinalCapital: 5_250_000, CumulativeNPV: 250_000, ROI: 0.05},
		{Rank: 2, Player: "Ana", FinalCapital: 4_933_057.85, CumulativeNPV: -66_942.15, ROI: -0.0133},
	}, []types.TurnRecord{
		{Round: 1, Player: "Ana", Project: "Fintech Compliance Tool", Financing: "Equity", Decision: types.DecisionContinue, NPV: -66_942.15},
	})

	assert.Contains(t, text, "🏆 *Winner: Bia!*")
	assert.Contains(t, text, "1. Bia - Final Capital $5,250,000.00 | Cumulative NPV $250,000.00 | ROI 5.00%")
	assert.Contains(t, text, "Round | Player | Project | Financing | Decision | NPV")
	assert.Contains(t, text, "1 | Ana | Fintech Compliance Tool | Equity | Continue | -66942.15")
}

func TestFormatTurnPrompt(t *testing.T) {
	irr := 0.044
	payback := 2.0
	text := NewMessageFormatter().FormatTurnPrompt(types.TurnPrompt{
		Player: "Ana",
		Projects: []types.ProjectOption{{
			Label:   "✅ Fintech Compliance Tool ($900,000)",
			Metrics: types.ProjectMetrics{NPV: -66_942.15, IRR: &irr, PaybackPeriod: &payback, ProfitabilityIndex: 0.93},
		}, {
			Label:   "🤖 AI Customer Support Chatbots ($500,000)",
			Metrics: types.ProjectMetrics{NPV: -500_000},
		}},
		Financing: []types.FinancingChoice{{Label: "Equity - Issue shares; no repayment; dilutes ownership", Name: "Equity"}},
		Decisions: catalog.Default().DecisionOptions(),
	})

	assert.Contains(t, text, "🎯 *Ana's Turn*")
	assert.Contains(t, text, "1. ✅ Fintech Compliance Tool ($900,000)")
	assert.Contains(t, text, "NPV $-66,942.15 | IRR 4.4% | Payback 2 yrs | PI 0.93")
	assert.Contains(t, text, "IRR n/a | Payback never")
	assert.Contains(t, text, "1. Equity - Issue shares; no repayment; dilutes ownership")
	assert.Contains(t, text, "/invest <project#> <financing#> - Invest (Continue)")
	assert.Contains(t, text, "/abandon <project#> <financing#> - Abandon")
}

func TestAcceptsChat(t *testing.T) {
	group := waTypes.NewJID("123", waTypes.GroupServer)
	other := waTypes.NewJID("456", waTypes.GroupServer)
	private := waTypes.NewJID("5521999999999", waTypes.DefaultUserServer)

	cm := &ClientManager{config: config.DefaultConfig(), logger: zap.NewNop()}
	assert.True(t, cm.acceptsChat(group))
	assert.True(t, cm.acceptsChat(other))
	assert.False(t, cm.acceptsChat(private))

	cm.config.WhatsApp.GroupJID = "123@g.us"
	assert.True(t, cm.acceptsChat(group))
	assert.False(t, cm.acceptsChat(other))
}

func TestParseJID(t *testing.T) {
	jid, err := parseJID("5521999999999")
	require.NoError(t, err)
	assert.Equal(t, "5521999999999@s.whatsapp.net", jid.String())

	jid, err = parseJID("123@g.us")
	require.NoError(t, err)
	assert.Equal(t, waTypes.GroupServer, jid.Server)
}

func TestSessionManager(t *testing.T) {
	dir := t.TempDir()
	touch := func(name string, age time.Duration) {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, nil, 0644))
		at := time.Now().Add(-age)
		require.NoError(t, os.Chtimes(path, at, at))
	}
	touch("store_5521999999999_old.db", 2*time.Hour)
	touch("store_5521999999999_new.db", time.Minute)
	touch("store_5511888888888_only.db", time.Hour)
	touch("store_broken.db", time.Hour)

	sm := NewSessionManager(dir, zap.NewNop())

	sessions, err := sm.ListSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.Equal(t, "new", sessions[0].ID)

	latest, err := sm.Latest()
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "new", latest[0].ID)
	assert.Equal(t, "only", latest[1].ID)

	require.NoError(t, sm.Prune())
	_, err = os.Stat(filepath.Join(dir, "store_5521999999999_old.db"))
	assert.True(t, os.IsNotExist(err))

	sessions, err = sm.ListSessions()
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}
