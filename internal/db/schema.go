package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// globalSchema holds the tables shared by every game. Per-game player data
// lives in the partition schemas managed by the partition package.
var globalSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL DEFAULT '',
		turns BIGINT NOT NULL DEFAULT 0 CHECK (turns >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS locations (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS resource_types (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS resources (
		id BIGSERIAL PRIMARY KEY,
		resource_type_id BIGINT NOT NULL REFERENCES resource_types(id),
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS resource_attributes (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS resource_attribute_values (
		resource_id BIGINT NOT NULL REFERENCES resources(id) ON DELETE CASCADE,
		attribute_id BIGINT NOT NULL REFERENCES resource_attributes(id) ON DELETE CASCADE,
		value TEXT NOT NULL,
		PRIMARY KEY (resource_id, attribute_id)
	)`,
	`CREATE TABLE IF NOT EXISTS resource_sets (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS resource_set_members (
		resource_set_id BIGINT NOT NULL REFERENCES resource_sets(id) ON DELETE CASCADE,
		resource_id BIGINT NOT NULL REFERENCES resources(id) ON DELETE CASCADE,
		PRIMARY KEY (resource_set_id, resource_id)
	)`,
	`CREATE TABLE IF NOT EXISTS games (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		start_at TIMESTAMPTZ NOT NULL,
		length_days INT NOT NULL CHECK (length_days > 0),
		status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'closing', 'complete')),
		resource_set_id BIGINT REFERENCES resource_sets(id),
		starting_reserve BIGINT NOT NULL DEFAULT 0 CHECK (starting_reserve >= 0),
		starting_bank NUMERIC(20,2) NOT NULL DEFAULT 0 CHECK (starting_bank >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS idempotency_keys (
		user_id TEXT NOT NULL,
		key TEXT NOT NULL,
		action TEXT NOT NULL,
		game_id BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, key)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_resources_type ON resources(resource_type_id)`,
	`CREATE INDEX IF NOT EXISTS idx_resource_set_members_resource ON resource_set_members(resource_id)`,
	`CREATE INDEX IF NOT EXISTS idx_games_status ON games(status)`,
	`CREATE INDEX IF NOT EXISTS idx_idempotency_keys_created ON idempotency_keys(created_at)`,
}

// EnsureSchema creates the global tables and indexes when missing.
func EnsureSchema(ctx context.Context, q Querier, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()
	for _, stmt := range globalSchema {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	logger.Info("global schema ready", "statements", len(globalSchema), "took", time.Since(start))
	return nil
}
