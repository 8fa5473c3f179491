package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/user/cfo-challenge/internal/interfaces"
	"github.com/user/cfo-challenge/internal/types"
)

// GameLog is everything recorded for one game
type GameLog struct {
	Turns   []types.TurnRecord `json:"turns"`
	Results []types.Result     `json:"results,omitempty"`
}

// JSONRecorder keeps every game log in a single JSON file
type JSONRecorder struct {
	savePath  string
	stateLock sync.RWMutex
}

var _ interfaces.Recorder = (*JSONRecorder)(nil)

// NewJSONRecorder creates a recorder writing to savePath
func NewJSONRecorder(savePath string) *JSONRecorder {
	// Create data directory if it doesn't exist
	dir := filepath.Dir(savePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		// If we can't create the directory, we'll just use the default path
		savePath = "./data/game_log.json"
	}

	return &JSONRecorder{
		savePath: savePath,
	}
}

// RecordTurn appends a turn to its game's log
func (jr *JSONRecorder) RecordTurn(ctx context.Context, gameID string, record types.TurnRecord) error {
	return jr.update(ctx, func(games map[string]*GameLog) {
		game := entry(games, gameID)
		game.Turns = append(game.Turns, record)
	})
}

// RecordResults stores the final standings of a game
func (jr *JSONRecorder) RecordResults(ctx context.Context, gameID string, results []types.Result) error {
	return jr.update(ctx, func(games map[string]*GameLog) {
		entry(games, gameID).Results = results
	})
}

// Games loads every recorded game
func (jr *JSONRecorder) Games() (map[string]*GameLog, error) {
	jr.stateLock.RLock()
	defer jr.stateLock.RUnlock()
	return jr.load()
}

func entry(games map[string]*GameLog, gameID string) *GameLog {
	game, ok := games[gameID]
	if !ok {
		game = &GameLog{Turns: make([]types.TurnRecord, 0)}
		games[gameID] = game
	}
	return game
}

func (jr *JSONRecorder) update(ctx context.Context, fn func(map[string]*GameLog)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	jr.stateLock.Lock()
	defer jr.stateLock.Unlock()

	games, err := jr.load()
	if err != nil {
		return err
	}
	fn(games)
	return jr.save(games)
}

func (jr *JSONRecorder) load() (map[string]*GameLog, error) {
	// Check if file exists
	if _, err := os.Stat(jr.savePath); os.IsNotExist(err) {
		return make(map[string]*GameLog), nil
	}

	// Read file
	data, err := os.ReadFile(jr.savePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read game log file: %w", err)
	}

	games := make(map[string]*GameLog)
	if err := json.Unmarshal(data, &games); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game log: %w", err)
	}
	return games, nil
}

func (jr *JSONRecorder) save(games map[string]*GameLog) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(jr.savePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Marshal log to JSON
	data, err := json.MarshalIndent(games, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal game log: %w", err)
	}

	// Write to a temp file, then rename over the log
	tmp := jr.savePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write game log: %w", err)
	}
	if err := os.Rename(tmp, jr.savePath); err != nil {
		return fmt.Errorf("failed to replace game log: %w", err)
	}

	return nil
}
