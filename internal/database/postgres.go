// Package database implements the durable form and response stores on
// PostgreSQL. Field definitions and answer maps are stored as JSONB, keeping
// answers schema-less until the aggregator reads them.
package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Database connected", "max_conns", poolCfg.MaxConns)
	return pool, nil
}

// RunMigrations applies the schema. Statements are idempotent so a restart
// can always re-run them.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS forms (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			fields JSONB NOT NULL DEFAULT '[]',
			is_published BOOLEAN NOT NULL DEFAULT FALSE,
			share_token TEXT UNIQUE NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_forms_share_token ON forms(share_token)`,
		`CREATE TABLE IF NOT EXISTS responses (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			form_id UUID NOT NULL REFERENCES forms(id) ON DELETE CASCADE,
			answers JSONB NOT NULL DEFAULT '{}',
			metadata JSONB,
			ip_address TEXT NOT NULL DEFAULT '',
			user_agent TEXT NOT NULL DEFAULT '',
			submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_responses_form_id ON responses(form_id)`,
		`CREATE INDEX IF NOT EXISTS idx_responses_submitted_at ON responses(form_id, submitted_at)`,
	}

	for _, migration := range migrations {
		if _, err := pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	slog.Info("Database migrations completed")
	return nil
}
