// Package partition provisions the isolated per-game schema that holds a
// game's players and their resource holdings.
//
// Every game owns exactly one schema named game_<id>. The schema is created in
// the same transaction as the game row and dropped in the same transaction as
// its deletion, so callers pass the transaction they are already running in.
package partition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"syndicate/internal/db"
)

const (
	PlayersTable         = "players"
	PlayerResourcesTable = "player_resources"
)

// ErrMissing is returned by Require when a game's schema does not exist.
var ErrMissing = errors.New("partition missing")

type Manager struct {
	log *slog.Logger
}

func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{log: logger}
}

// Name returns the unquoted schema name for a game.
func Name(gameID int64) string {
	return "game_" + strconv.FormatInt(gameID, 10)
}

// Table returns a quoted, schema-qualified relation name usable in SQL text.
func Table(gameID int64, table string) string {
	return pq.QuoteIdentifier(Name(gameID)) + "." + pq.QuoteIdentifier(table)
}

func ddl(gameID int64) []string {
	schema := pq.QuoteIdentifier(Name(gameID))
	players := Table(gameID, PlayersTable)
	holdings := Table(gameID, PlayerResourcesTable)
	return []string{
		"CREATE SCHEMA IF NOT EXISTS " + schema,
		`CREATE TABLE IF NOT EXISTS ` + players + ` (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL UNIQUE REFERENCES public.users(id),
			name TEXT NOT NULL UNIQUE,
			location_id BIGINT REFERENCES public.locations(id),
			turns_active BIGINT NOT NULL DEFAULT 0 CHECK (turns_active >= 0),
			turns_reserve BIGINT NOT NULL DEFAULT 0 CHECK (turns_reserve >= 0),
			turns_transferred BIGINT NOT NULL DEFAULT 0 CHECK (turns_transferred >= 0),
			money_cash NUMERIC(20,2) NOT NULL DEFAULT 0 CHECK (money_cash >= 0),
			money_bank NUMERIC(20,2) NOT NULL DEFAULT 0 CHECK (money_bank >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS ` + holdings + ` (
			id BIGSERIAL PRIMARY KEY,
			player_id UUID NOT NULL REFERENCES ` + players + `(id) ON DELETE CASCADE,
			resource_id BIGINT NOT NULL REFERENCES public.resources(id),
			quantity BIGINT NOT NULL DEFAULT 0 CHECK (quantity >= 0),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (player_id, resource_id)
		)`,
		"CREATE INDEX IF NOT EXISTS idx_players_user_id ON " + players + " (user_id)",
		"CREATE INDEX IF NOT EXISTS idx_players_location_id ON " + players + " (location_id)",
		"CREATE INDEX IF NOT EXISTS idx_player_resources_player_id ON " + holdings + " (player_id)",
		"CREATE INDEX IF NOT EXISTS idx_player_resources_resource_id ON " + holdings + " (resource_id)",
	}
}

// Ensure creates the game's schema, tables, and indexes. It is idempotent.
func (m *Manager) Ensure(ctx context.Context, q db.Querier, gameID int64) error {
	for _, stmt := range ddl(gameID) {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure partition %s: %w", Name(gameID), err)
		}
	}
	m.log.Info("partition ensured", "game_id", gameID, "schema", Name(gameID))
	return nil
}

// Drop removes the game's schema and every row in it. A schema that is
// already gone counts as dropped.
func (m *Manager) Drop(ctx context.Context, q db.Querier, gameID int64) error {
	ok, err := m.Exists(ctx, q, gameID)
	if err != nil {
		return err
	}
	if !ok {
		m.log.Warn("partition already absent on drop", "game_id", gameID, "schema", Name(gameID))
		return nil
	}
	if _, err := q.Exec(ctx, "DROP SCHEMA "+pq.QuoteIdentifier(Name(gameID))+" CASCADE"); err != nil {
		return fmt.Errorf("drop partition %s: %w", Name(gameID), err)
	}
	m.log.Info("partition dropped", "game_id", gameID, "schema", Name(gameID))
	return nil
}

func (m *Manager) Exists(ctx context.Context, q db.Querier, gameID int64) (bool, error) {
	var ok bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM pg_namespace WHERE nspname = $1)
	`, Name(gameID)).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check partition %s: %w", Name(gameID), err)
	}
	return ok, nil
}

// Require returns ErrMissing when the game's schema does not exist.
func (m *Manager) Require(ctx context.Context, q db.Querier, gameID int64) error {
	ok, err := m.Exists(ctx, q, gameID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissing, Name(gameID))
	}
	return nil
}

// IsMissing reports whether err came from a statement touching a schema or
// relation that no longer exists.
func IsMissing(err error) bool {
	if errors.Is(err, ErrMissing) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "3F000" || pgErr.Code == "42P01"
	}
	return false
}
