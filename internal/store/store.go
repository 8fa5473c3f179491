// Package store persists the game log outside the process.
package store

import (
	"context"
	"fmt"

	"github.com/user/cfo-challenge/config"
	"github.com/user/cfo-challenge/internal/interfaces"
)

// Drivers understood by Open
const (
	DriverJSON     = "json"
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// Open returns the recorder selected by cfg.Driver and a function releasing it.
// DriverNone returns a nil recorder.
func Open(ctx context.Context, cfg config.DatabaseConfig) (interfaces.Recorder, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Driver {
	case DriverJSON, "":
		return NewJSONRecorder(cfg.DSN), noop, nil
	case DriverSQLite:
		r, err := OpenSQLite(ctx, cfg.DSN)
		if err != nil {
			return nil, noop, err
		}
		return r, r.Close, nil
	case DriverPostgres:
		r, err := OpenPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, noop, err
		}
		return r, r.Close, nil
	case DriverNone:
		return nil, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
