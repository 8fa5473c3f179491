package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver
	"github.com/user/cfo-challenge/internal/interfaces"
	"github.com/user/cfo-challenge/internal/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS turns (
	id          TEXT PRIMARY KEY,
	game_id     TEXT NOT NULL,
	round       INTEGER NOT NULL,
	player      TEXT NOT NULL,
	project     TEXT NOT NULL,
	financing   TEXT NOT NULL,
	decision    TEXT NOT NULL,
	npv         REAL NOT NULL,
	event_name  TEXT NOT NULL,
	resolved_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS turns_game_id ON turns (game_id);
CREATE TABLE IF NOT EXISTS results (
	game_id        TEXT NOT NULL,
	rank           INTEGER NOT NULL,
	player         TEXT NOT NULL,
	final_capital  REAL NOT NULL,
	cumulative_npv REAL NOT NULL,
	roi            REAL NOT NULL,
	PRIMARY KEY (game_id, rank)
);`

// SQLiteRecorder writes game logs to a SQLite database
type SQLiteRecorder struct {
	db *sql.DB
}

var _ interfaces.Recorder = (*SQLiteRecorder)(nil)

// OpenSQLite opens (and migrates) the database at dsn
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sqlite schema: %w", err)
	}
	return &SQLiteRecorder{db: db}, nil
}

// RecordTurn inserts one turn record
func (r *SQLiteRecorder) RecordTurn(ctx context.Context, gameID string, record types.TurnRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO turns (id, game_id, round, player, project, financing, decision, npv, event_name, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, gameID, record.Round, record.Player, record.Project, record.Financing,
		string(record.Decision), record.NPV, record.EventName, record.ResolvedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}
	return nil
}

// RecordResults replaces the final standings of a game
func (r *SQLiteRecorder) RecordResults(ctx context.Context, gameID string, results []types.Result) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM results WHERE game_id = ?`, gameID); err != nil {
		return fmt.Errorf("failed to clear results: %w", err)
	}
	for _, res := range results {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO results (game_id, rank, player, final_capital, cumulative_npv, roi)
			VALUES (?, ?, ?, ?, ?, ?)`,
			gameID, res.Rank, res.Player, res.FinalCapital, res.CumulativeNPV, res.ROI,
		)
		if err != nil {
			return fmt.Errorf("failed to insert result: %w", err)
		}
	}
	return tx.Commit()
}

// Turns returns a game's turn records in resolution order
func (r *SQLiteRecorder) Turns(ctx context.Context, gameID string) ([]types.TurnRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, round, player, project, financing, decision, npv, event_name, resolved_at
		FROM turns WHERE game_id = ? ORDER BY rowid`, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	records := make([]types.TurnRecord, 0)
	for rows.Next() {
		var rec types.TurnRecord
		var decision string
		var resolvedAt time.Time
		if err := rows.Scan(&rec.ID, &rec.Round, &rec.Player, &rec.Project, &rec.Financing,
			&decision, &rec.NPV, &rec.EventName, &resolvedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		rec.Decision = types.Decision(decision)
		rec.ResolvedAt = resolvedAt
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Results returns a game's recorded standings by rank
func (r *SQLiteRecorder) Results(ctx context.Context, gameID string) ([]types.Result, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT rank, player, final_capital, cumulative_npv, roi
		FROM results WHERE game_id = ? ORDER BY rank`, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	results := make([]types.Result, 0)
	for rows.Next() {
		var res types.Result
		if err := rows.Scan(&res.Rank, &res.Player, &res.FinalCapital, &res.CumulativeNPV, &res.ROI); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// Close closes the database
func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
