package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/cfo-challenge/internal/interfaces"
	"github.com/user/cfo-challenge/internal/types"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS cfo_turns (
	id          UUID PRIMARY KEY,
	game_id     UUID NOT NULL,
	round       INTEGER NOT NULL,
	player      TEXT NOT NULL,
	project     TEXT NOT NULL,
	financing   TEXT NOT NULL,
	decision    TEXT NOT NULL,
	npv         DOUBLE PRECISION NOT NULL,
	event_name  TEXT NOT NULL,
	resolved_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS cfo_results (
	game_id        UUID NOT NULL,
	rank           INTEGER NOT NULL,
	player         TEXT NOT NULL,
	final_capital  DOUBLE PRECISION NOT NULL,
	cumulative_npv DOUBLE PRECISION NOT NULL,
	roi            DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (game_id, rank)
);`

// PostgresRecorder writes game logs to PostgreSQL
type PostgresRecorder struct {
	pool *pgxpool.Pool
}

var _ interfaces.Recorder = (*PostgresRecorder)(nil)

// OpenPostgres connects to the database at dsn and creates the tables
func OpenPostgres(ctx context.Context, dsn string) (*PostgresRecorder, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &PostgresRecorder{pool: pool}, nil
}

// RecordTurn inserts one turn record
func (r *PostgresRecorder) RecordTurn(ctx context.Context, gameID string, record types.TurnRecord) error {
	query := `
		INSERT INTO cfo_turns (
			id, game_id, round, player, project, financing, decision, npv, event_name, resolved_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query,
		record.ID, gameID, record.Round, record.Player, record.Project, record.Financing,
		string(record.Decision), record.NPV, record.EventName, record.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save turn: %w", err)
	}
	return nil
}

// RecordResults stores the final standings of a game in one batch
func (r *PostgresRecorder) RecordResults(ctx context.Context, gameID string, results []types.Result) error {
	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM cfo_results WHERE game_id = $1`, gameID)
	for _, res := range results {
		batch.Queue(`
			INSERT INTO cfo_results (game_id, rank, player, final_capital, cumulative_npv, roi)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			gameID, res.Rank, res.Player, res.FinalCapital, res.CumulativeNPV, res.ROI,
		)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (r *PostgresRecorder) Close() error {
	r.pool.Close()
	return nil
}
