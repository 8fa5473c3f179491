package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/cfo-challenge/config"
	"github.com/user/cfo-challenge/internal/catalog"
	"github.com/user/cfo-challenge/internal/game"
	"github.com/user/cfo-challenge/internal/types"
	"go.uber.org/zap"
)

// downtimeRoller always draws Economic Downtime
type downtimeRoller struct{}

func (downtimeRoller) Roll(sides int) int { return 4 }

func newTestServer(t *testing.T, withHub bool) (*httptest.Server, *Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	gm := game.NewGameManagerWithRoller(config.DefaultConfig(), catalog.Default(), downtimeRoller{})
	done := make(chan struct{})
	go func() {
		gm.Run(ctx)
		close(done)
	}()

	var hub *Hub
	if withHub {
		hub = NewHub(zap.NewNop())
		gm.AddPresenter(hub)
		go hub.Run(ctx)
	}

	srv := httptest.NewServer(NewServer(gm, hub, zap.NewNop()).Router())
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return srv, hub
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func startGame(t *testing.T, srv *httptest.Server) {
	t.Helper()
	resp := postJSON(t, srv.URL+"/api/game/start", StartRequest{Players: []string{"A", "B", "C", "D"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func fintech(player string) types.TurnSubmission {
	return types.TurnSubmission{
		Player:    player,
		Project:   "Fintech Compliance Tool",
		Financing: "Equity",
		Decision:  types.DecisionContinue,
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, false)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCatalog(t *testing.T) {
	srv, _ := newTestServer(t, false)

	resp, err := http.Get(srv.URL + "/api/catalog")
	require.NoError(t, err)

	var cat CatalogResponse
	decode(t, resp, &cat)
	assert.Len(t, cat.Projects, 10)
	assert.Len(t, cat.FinancingOptions, 5)
	assert.Len(t, cat.MarketEvents, 5)
}

func TestStartAndTurn(t *testing.T) {
	srv, _ := newTestServer(t, false)

	resp := postJSON(t, srv.URL+"/api/game/start", StartRequest{Players: []string{"A", "B", "C", "D"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap types.GameSnapshot
	decode(t, resp, &snap)
	assert.Equal(t, types.PhaseAwaitingTurn, snap.Phase)
	assert.Equal(t, "A", snap.ActivePlayer)
	require.NotNil(t, snap.Prompt)
	assert.Len(t, snap.Prompt.Projects, 10)

	resp = postJSON(t, srv.URL+"/api/game/turn", fintech("A"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &snap)
	assert.Equal(t, "B", snap.ActivePlayer)
	assert.Equal(t, 4_100_000.0, snap.Players[0].Capital)
	assert.InDelta(t, -66_942.15, snap.Players[0].CumulativeNPV, 0.01)
}

func TestErrorStatusCodes(t *testing.T) {
	srv, _ := newTestServer(t, false)

	// Turn before the game starts
	resp := postJSON(t, srv.URL+"/api/game/turn", fintech("A"))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Bad roster
	resp = postJSON(t, srv.URL+"/api/game/start", StartRequest{Players: []string{"A", "A", "C", "D"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body errorResponse
	decode(t, resp, &body)
	assert.Contains(t, body.Error, "duplicate")

	// Malformed JSON
	resp, err := http.Post(srv.URL+"/api/game/start", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	startGame(t, srv)

	sub := fintech("A")
	sub.Project = "Moon Base"
	resp = postJSON(t, srv.URL+"/api/game/turn", sub)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/game/turn", fintech("C"))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/game/advance", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/game/results")
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestFullGameOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t, false)
	startGame(t, srv)

	for round := 1; round <= 5; round++ {
		for _, name := range []string{"A", "B", "C", "D"} {
			resp := postJSON(t, srv.URL+"/api/game/turn", fintech(name))
			require.Equal(t, http.StatusOK, resp.StatusCode)
			resp.Body.Close()
		}
		resp := postJSON(t, srv.URL+"/api/game/advance", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	resp, err := http.Get(srv.URL + "/api/game/results")
	require.NoError(t, err)
	var results []types.Result
	decode(t, resp, &results)
	require.Len(t, results, 4)
	assert.Equal(t, "A", results[0].Player)

	resp, err = http.Get(srv.URL + "/api/game/log")
	require.NoError(t, err)
	var log []types.TurnRecord
	decode(t, resp, &log)
	assert.Len(t, log, 20)

	resp, err = http.Get(srv.URL + "/api/game/log.csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	rows, err := csv.NewReader(resp.Body).ReadAll()
	resp.Body.Close()
	require.NoError(t, err)
	require.Len(t, rows, 21)
	assert.Equal(t, types.LogHeader, rows[0])
	assert.Equal(t, []string{"1", "A", "Fintech Compliance Tool", "Equity", "Continue", "-66942.15"}, rows[1])

	resp, err = http.Get(srv.URL + "/api/game/progression")
	require.NoError(t, err)
	var progression []types.RoundProgress
	decode(t, resp, &progression)
	require.Len(t, progression, 5)
	assert.InDelta(t, -5*66_942.15, progression[4].Totals["D"], 0.1)

	resp = postJSON(t, srv.URL+"/api/game/restart", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap types.GameSnapshot
	decode(t, resp, &snap)
	assert.Equal(t, types.PhaseAwaitingSetup, snap.Phase)
	assert.Empty(t, snap.Log)
}

func TestWebSocketFeed(t *testing.T) {
	srv, _ := newTestServer(t, true)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Registration goes through the hub loop; give it a moment before publishing
	time.Sleep(50 * time.Millisecond)
	startGame(t, srv)

	want := []string{MessageRoundBanner, MessageDashboard, MessageTurnPrompt}
	for _, kind := range want {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, kind, msg.Type)
		assert.Equal(t, "game", msg.Sender)
	}
}
