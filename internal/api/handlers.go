// Package api serves the game over HTTP and streams transitions over a WebSocket feed.
package api

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/user/cfo-challenge/internal/game"
	"github.com/user/cfo-challenge/internal/interfaces"
	"github.com/user/cfo-challenge/internal/types"
	"go.uber.org/zap"
)

// StartRequest names the roster of a new game
type StartRequest struct {
	Players []string `json:"players"`
}

// CatalogResponse is the static game data
type CatalogResponse struct {
	Projects         []types.Project         `json:"projects"`
	FinancingOptions []types.FinancingOption `json:"financing_options"`
	MarketEvents     []types.MarketEvent     `json:"market_events"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server holds the handlers' dependencies
type Server struct {
	manager interfaces.GameManager
	hub     *Hub
	logger  *zap.Logger
}

// NewServer creates the HTTP handlers. hub may be nil to disable the feed.
func NewServer(manager interfaces.GameManager, hub *Hub, logger *zap.Logger) *Server {
	return &Server{
		manager: manager,
		hub:     hub,
		logger:  logger,
	}
}

// Router builds the chi router with every game route mounted. Callers may add more routes.
func (s *Server) Router() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/catalog", s.handleCatalog)

		r.Route("/game", func(r chi.Router) {
			r.Get("/", s.handleSnapshot)
			r.Post("/start", s.handleStart)
			r.Post("/turn", s.handleTurn)
			r.Post("/advance", s.handleCommand(types.AdvanceRound))
			r.Post("/restart", s.handleCommand(types.Restart))
			r.Get("/log", s.handleLog)
			r.Get("/log.csv", s.handleLogCSV)
			r.Get("/results", s.handleResults)
			r.Get("/progression", s.handleProgression)
		})
	})

	if s.hub != nil {
		router.Get("/ws", s.hub.ServeWs)
	}

	return router
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CatalogResponse{
		Projects:         s.manager.Projects(),
		FinancingOptions: s.manager.FinancingOptions(),
		MarketEvents:     s.manager.MarketEvents(),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Snapshot())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request"})
		return
	}
	s.submit(w, r, types.StartGame(req.Players...))
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var sub types.TurnSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request"})
		return
	}
	s.submit(w, r, types.SubmitTurn(sub))
}

func (s *Server) handleCommand(build func() types.Command) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.submit(w, r, build())
	}
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, cmd types.Command) {
	if err := s.manager.Submit(r.Context(), cmd); err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("Command failed", zap.String("command", string(cmd.Kind)), zap.Error(err))
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.manager.Snapshot())
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Snapshot().Log)
}

func (s *Server) handleLogCSV(w http.ResponseWriter, r *http.Request) {
	snap := s.manager.Snapshot()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="game_log.csv"`)

	writer := csv.NewWriter(w)
	writer.Write(types.LogHeader)
	writer.WriteAll(types.LogTable(snap.Log))
	if err := writer.Error(); err != nil {
		s.logger.Error("Failed to write CSV log", zap.Error(err))
	}
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	results, err := s.manager.Results()
	if err != nil {
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleProgression(w http.ResponseWriter, r *http.Request) {
	snap := s.manager.Snapshot()
	names := make([]string, 0, len(snap.Players))
	for _, p := range snap.Players {
		names = append(names, p.Name)
	}
	writeJSON(w, http.StatusOK, types.CumulativeByRound(snap.Log, names))
}

// statusFor maps game errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrOutOfSequence):
		return http.StatusConflict
	case errors.Is(err, game.ErrUnknownProject),
		errors.Is(err, game.ErrUnknownFinancing),
		errors.Is(err, game.ErrInvalidDecision),
		errors.Is(err, game.ErrInvalidRoster):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrManagerStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
