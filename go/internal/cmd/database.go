package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mdevlab/buzzroom/go/internal/dbconfig"
	"github.com/rs/zerolog/log"
)

func setupDatabase(ctx context.Context) (*pgxpool.Pool, error) {
	cfg := dbconfig.NewConfigFromEnv()

	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("connected to database")

	return pool, nil
}

// migrations is applied in order at startup. Statements are idempotent so
// repeated boots are safe.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id uuid PRIMARY KEY,
		code text NOT NULL UNIQUE,
		status text NOT NULL DEFAULT 'LOBBY',
		current_question_index int NOT NULL DEFAULT -1,
		debt_amount int NOT NULL DEFAULT 0,
		questions_per_topic int NOT NULL DEFAULT 0,
		moderator_local_id text NOT NULL,
		account_id text,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS players (
		id uuid PRIMARY KEY,
		session_id uuid NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		local_id text NOT NULL,
		name text NOT NULL,
		is_moderator boolean NOT NULL DEFAULT false,
		score int NOT NULL DEFAULT 0,
		topics jsonb NOT NULL DEFAULT '[]'::jsonb,
		topic_scores jsonb NOT NULL DEFAULT '{}'::jsonb,
		account_id text,
		created_at timestamptz NOT NULL DEFAULT now(),
		UNIQUE (session_id, local_id),
		UNIQUE (session_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS questions (
		id uuid PRIMARY KEY,
		session_id uuid NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		topic text NOT NULL,
		prompt text NOT NULL,
		answer text NOT NULL,
		difficulty text NOT NULL,
		position int NOT NULL,
		UNIQUE (session_id, position)
	)`,
	// UNIQUE (session_id, player_id) is the buzz arbiter's mutual-exclusion
	// primitive; do not relax it.
	`CREATE TABLE IF NOT EXISTS buzzes (
		id uuid PRIMARY KEY,
		session_id uuid NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		player_id uuid NOT NULL REFERENCES players(id) ON DELETE CASCADE,
		timestamp_ms bigint NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now(),
		UNIQUE (session_id, player_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_buzzes_session_order
		ON buzzes (session_id, timestamp_ms, created_at, id)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id uuid PRIMARY KEY,
		session_id uuid NOT NULL,
		event_type text NOT NULL,
		payload jsonb NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now(),
		sent_at timestamptz
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_events_unsent
		ON outbox_events (created_at) WHERE sent_at IS NULL`,
	`CREATE OR REPLACE FUNCTION notify_outbox_event() RETURNS trigger AS $$
	BEGIN
		PERFORM pg_notify('session_outbox_events', NEW.id::text);
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS outbox_events_notify ON outbox_events`,
	`CREATE TRIGGER outbox_events_notify
		AFTER INSERT ON outbox_events
		FOR EACH ROW EXECUTE FUNCTION notify_outbox_event()`,
}

func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	log.Info().Int("statements", len(migrations)).Msg("migrations applied")
	return nil
}
