package whatsapp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"
	"github.com/user/cfo-challenge/config"
	"go.uber.org/zap"
)

// QRCodeManager handles QR code generation and authentication
type QRCodeManager struct {
	clientManager *ClientManager
	config        config.Config
	logger        *zap.Logger
}

// NewQRCodeManager creates a new QR code manager
func NewQRCodeManager(clientManager *ClientManager, cfg config.Config, logger *zap.Logger) *QRCodeManager {
	return &QRCodeManager{
		clientManager: clientManager,
		config:        cfg,
		logger:        logger,
	}
}

// QRCode is a login code and the PNG it was rendered to
type QRCode struct {
	Code string `json:"qr_code"`
	Path string `json:"path"`
}

// GenerateQRCode starts a new session for phoneNumber and renders its first login code
func (qm *QRCodeManager) GenerateQRCode(ctx context.Context, phoneNumber string) (*QRCode, error) {
	if client, exists := qm.clientManager.GetClient(phoneNumber); exists && client.IsLoggedIn() {
		return nil, fmt.Errorf("client already logged in")
	}

	qrChan, err := qm.clientManager.GetQRChannel(context.Background(), phoneNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to set up client: %w", err)
	}

	// Create QR code directory
	qrDir := filepath.Join(qm.config.WhatsApp.StoreDir, "qrcodes")
	if err := os.MkdirAll(qrDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create QR code directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	// Wait for QR code
	select {
	case evt := <-qrChan:
		if evt.Event != "code" {
			return nil, fmt.Errorf("unexpected QR event: %s", evt.Event)
		}

		qrPath := filepath.Join(qrDir, fmt.Sprintf("%s.png", phoneNumber))
		if err := qrcode.WriteFile(evt.Code, qrcode.Medium, 256, qrPath); err != nil {
			return nil, fmt.Errorf("failed to generate QR code image: %w", err)
		}

		qm.logger.Info("QR code generated",
			zap.String("phone_number", phoneNumber),
			zap.String("path", qrPath))

		return &QRCode{Code: evt.Code, Path: qrPath}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("timeout waiting for QR code: %w", ctx.Err())
	}
}

// SessionManager handles WhatsApp session files
type SessionManager struct {
	storeDir string
	logger   *zap.Logger
}

// NewSessionManager creates a new session manager
func NewSessionManager(storeDir string, logger *zap.Logger) *SessionManager {
	return &SessionManager{
		storeDir: storeDir,
		logger:   logger,
	}
}

// SessionInfo holds information about a WhatsApp session
type SessionInfo struct {
	ID          string    `json:"id"`
	PhoneNumber string    `json:"phone_number"`
	Path        string    `json:"path"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// parseSessionFile reads "store_<phone>_<session>.db"
func parseSessionFile(path string) (phoneNumber, sessionID string, ok bool) {
	base := strings.TrimSuffix(filepath.Base(path), ".db")
	parts := strings.SplitN(base, "_", 3)
	if len(parts) != 3 || parts[0] != "store" || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

// ListSessions returns every session on disk, newest first
func (sm *SessionManager) ListSessions() ([]SessionInfo, error) {
	// Create store directory if it doesn't exist
	if err := os.MkdirAll(sm.storeDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	matches, err := storeFiles(sm.storeDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list session files: %w", err)
	}

	sessions := make([]SessionInfo, 0, len(matches))
	for _, match := range matches {
		phoneNumber, sessionID, ok := parseSessionFile(match)
		if !ok {
			sm.logger.Warn("Failed to parse session filename", zap.String("filename", match))
			continue
		}

		fileInfo, err := os.Stat(match)
		if err != nil {
			sm.logger.Warn("Failed to get file info", zap.String("file", match), zap.Error(err))
			continue
		}

		sessions = append(sessions, SessionInfo{
			ID:          sessionID,
			PhoneNumber: phoneNumber,
			Path:        match,
			UpdatedAt:   fileInfo.ModTime(),
		})
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

// Latest returns the most recent session of each phone number
func (sm *SessionManager) Latest() ([]SessionInfo, error) {
	sessions, err := sm.ListSessions()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	latest := make([]SessionInfo, 0)
	for _, s := range sessions {
		if seen[s.PhoneNumber] {
			continue
		}
		seen[s.PhoneNumber] = true
		latest = append(latest, s)
	}
	return latest, nil
}

// Prune deletes every session except the most recent one of each phone number
func (sm *SessionManager) Prune() error {
	sessions, err := sm.ListSessions()
	if err != nil {
		return err
	}

	seen := make(map[string]bool)
	for _, s := range sessions {
		if !seen[s.PhoneNumber] {
			seen[s.PhoneNumber] = true
			continue
		}
		if err := sm.DeleteSession(s.PhoneNumber, s.ID); err != nil {
			return err
		}
		sm.logger.Info("Removed old session file", zap.String("file", s.Path))
	}
	return nil
}

// DeleteSession removes a WhatsApp session
func (sm *SessionManager) DeleteSession(phoneNumber, sessionID string) error {
	dbPath := filepath.Join(sm.storeDir, fmt.Sprintf("store_%s_%s.db", phoneNumber, sessionID))
	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session database: %w", err)
	}
	return nil
}

// RestoreSessions reconnects the latest logged-in session of each phone number
func (sm *SessionManager) RestoreSessions(clientManager *ClientManager) error {
	if err := sm.Prune(); err != nil {
		sm.logger.Error("Failed to prune old sessions", zap.Error(err))
	}

	sessions, err := sm.Latest()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	sm.logger.Info("Found existing sessions", zap.Int("count", len(sessions)))

	for _, session := range sessions {
		client, err := clientManager.SetupClient(session.ID, session.PhoneNumber)
		if err != nil {
			sm.logger.Error("Failed to set up client",
				zap.String("phone_number", session.PhoneNumber),
				zap.Error(err))
			continue
		}

		if client.Store.ID == nil {
			sm.logger.Info("Session requires QR code login",
				zap.String("phone_number", session.PhoneNumber))
			continue
		}

		if err := client.Connect(); err != nil {
			sm.logger.Error("Failed to connect client",
				zap.String("phone_number", session.PhoneNumber),
				zap.Error(err))
			continue
		}

		sm.logger.Info("Session restored successfully",
			zap.String("phone_number", session.PhoneNumber))
	}

	return nil
}
