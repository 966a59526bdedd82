package partition

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestNameAndTable(t *testing.T) {
	if got := Name(42); got != "game_42" {
		t.Fatalf("got %q want game_42", got)
	}
	if got := Table(42, PlayersTable); got != `"game_42"."players"` {
		t.Fatalf("got %q", got)
	}
}

func TestDDLCoversRelationsAndIndexes(t *testing.T) {
	stmts := ddl(7)
	joined := strings.Join(stmts, "\n")
	for _, want := range []string{
		`CREATE SCHEMA IF NOT EXISTS "game_7"`,
		`"game_7"."players"`,
		`"game_7"."player_resources"`,
		"UNIQUE (player_id, resource_id)",
		"CHECK (quantity >= 0)",
		"idx_players_user_id",
		"idx_players_location_id",
		"idx_player_resources_player_id",
		"idx_player_resources_resource_id",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("partition ddl missing %q", want)
		}
	}
	tables := 0
	for _, stmt := range stmts {
		if strings.HasPrefix(stmt, "CREATE TABLE") {
			tables++
		}
	}
	if tables != 2 {
		t.Fatalf("got %d tables want 2", tables)
	}
}

func TestDDLIsolatedPerGame(t *testing.T) {
	a := strings.Join(ddl(1), "\n")
	if strings.Contains(a, "game_2") {
		t.Fatalf("game 1 ddl references game 2")
	}
}

func TestIsMissing(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{err: &pgconn.PgError{Code: "3F000"}, want: true},
		{err: fmt.Errorf("query: %w", &pgconn.PgError{Code: "42P01"}), want: true},
		{err: fmt.Errorf("%w: game_3", ErrMissing), want: true},
		{err: &pgconn.PgError{Code: "40001"}, want: false},
		{err: errors.New("boom"), want: false},
	}
	for _, tc := range cases {
		if got := IsMissing(tc.err); got != tc.want {
			t.Fatalf("IsMissing(%v) got %v want %v", tc.err, got, tc.want)
		}
	}
}
