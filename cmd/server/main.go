package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/mattn/go-sqlite3" // SQLite3 driver
	"github.com/user/cfo-challenge/config"
	"github.com/user/cfo-challenge/internal/api"
	"github.com/user/cfo-challenge/internal/catalog"
	"github.com/user/cfo-challenge/internal/game"
	"github.com/user/cfo-challenge/internal/store"
	"github.com/user/cfo-challenge/internal/whatsapp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	configPath := flag.String("config", "./config/config.json", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		// No logger yet, the level comes from the config
		logger := setupLogger("info")
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger := setupLogger(cfg.Server.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat, err := loadCatalog(cfg.Game.CatalogPath)
	if err != nil {
		logger.Fatal("Failed to load catalog", zap.Error(err))
	}
	logger.Info("Loaded catalog",
		zap.Int("projects", len(cat.Projects())),
		zap.Int("financing_options", len(cat.FinancingOptions())),
		zap.Int("market_events", len(cat.MarketEvents())))

	// Initialize game manager
	gameManager := game.NewGameManager(cfg, cat)
	gameManager.SetLogger(logger)
	gameManager.AddPresenter(game.NewLogPresenter(logger))

	recorder, closeStore, err := store.Open(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to open game log store", zap.Error(err))
	}
	defer closeStore()
	if recorder != nil {
		gameManager.SetRecorder(recorder)
		logger.Info("Recording game log", zap.String("driver", cfg.Database.Driver))
	}

	hub := api.NewHub(logger)
	go hub.Run(ctx)
	gameManager.AddPresenter(hub)

	router := api.NewServer(gameManager, hub, logger).Router()

	var clientManager *whatsapp.ClientManager
	if cfg.WhatsApp.Enabled {
		clientManager = whatsapp.NewClientManager(gameManager, cfg, logger)
		sessionManager := whatsapp.NewSessionManager(cfg.WhatsApp.StoreDir, logger)
		if err := sessionManager.RestoreSessions(clientManager); err != nil {
			logger.Error("Failed to restore existing sessions", zap.Error(err))
		}

		gameManager.AddPresenter(whatsapp.NewPresenter(clientManager, cfg.WhatsApp.PhoneNumber, cfg.WhatsApp.GroupJID, logger))
		mountWhatsAppRoutes(router, clientManager, whatsapp.NewQRCodeManager(clientManager, cfg, logger), sessionManager, logger)
	}

	go func() {
		if err := gameManager.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("Game loop stopped", zap.Error(err))
		}
	}()

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if clientManager != nil {
		clientManager.DisconnectAll()
	}
}

func setupLogger(level string) *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		config.Level = lvl
	}
	logger, _ := config.Build()
	return logger
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(path)
}

func mountWhatsAppRoutes(router chi.Router, clientManager *whatsapp.ClientManager, qrManager *whatsapp.QRCodeManager, sessionManager *whatsapp.SessionManager, logger *zap.Logger) {
	// QR code generation endpoint
	router.Post("/qr", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			PhoneNumber string `json:"phone_number"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PhoneNumber == "" {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		qrCode, err := qrManager.GenerateQRCode(r.Context(), req.PhoneNumber)
		if err != nil {
			logger.Error("Failed to generate QR code",
				zap.String("phone_number", req.PhoneNumber),
				zap.Error(err))
			http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(qrCode)
	})

	// Session management endpoints
	router.Get("/sessions", func(w http.ResponseWriter, r *http.Request) {
		sessions, err := sessionManager.ListSessions()
		if err != nil {
			logger.Error("Failed to list sessions", zap.Error(err))
			http.Error(w, "Failed to list sessions", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(sessions)
	})

	router.Delete("/sessions/{phone_number}/{session_id}", func(w http.ResponseWriter, r *http.Request) {
		phoneNumber := chi.URLParam(r, "phone_number")
		sessionID := chi.URLParam(r, "session_id")

		// Disconnect client if connected
		if err := clientManager.Disconnect(phoneNumber); err != nil {
			logger.Debug("No connected client for session", zap.String("phone_number", phoneNumber))
		}

		if err := sessionManager.DeleteSession(phoneNumber, sessionID); err != nil {
			logger.Error("Failed to delete session",
				zap.String("phone_number", phoneNumber),
				zap.String("session_id", sessionID),
				zap.Error(err))
			http.Error(w, "Failed to delete session", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
	})
}
