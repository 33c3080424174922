package database

import (
	"context"
	"fmt"

	"github.com/yourusername/fx-backtest/internal/config"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS backtest_jobs (
	job_id          UUID PRIMARY KEY,
	status          TEXT NOT NULL,
	pair            TEXT NOT NULL,
	start_date      DATE NOT NULL,
	end_date        DATE NOT NULL,
	initial_capital NUMERIC NOT NULL,
	model_type      TEXT NOT NULL,
	model_config    JSONB NOT NULL DEFAULT '{}',
	metrics         JSONB,
	trade_log       JSONB,
	error_message   TEXT,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL,
	completed_at    TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS fx_candles (
	pair   TEXT NOT NULL,
	date   DATE NOT NULL,
	open   NUMERIC NOT NULL,
	high   NUMERIC NOT NULL,
	low    NUMERIC NOT NULL,
	close  NUMERIC NOT NULL,
	volume NUMERIC,
	PRIMARY KEY (pair, date)
);`

// Initialize creates a database connection pool and ensures the schema exists
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	if _, err := db.pool.Exec(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return db, nil
}
