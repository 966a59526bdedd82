package game

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/sync/errgroup"

	"syndicate/internal/partition"
)

const gameColumns = `id, name, start_at, length_days, status, resource_set_id, starting_reserve, starting_bank, created_at`

func scanGame(row pgx.Row) (Game, error) {
	var g Game
	err := row.Scan(&g.ID, &g.Name, &g.StartAt, &g.LengthDays, &g.Status, &g.ResourceSetID, &g.StartingReserve, &g.StartingBank, &g.CreatedAt)
	return g, err
}

func validateCreateGame(in CreateGameInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return validationError(CodeInvalidGame, "game name is required")
	}
	if in.LengthDays <= 0 {
		return validationError(CodeInvalidGame, "length_days must be greater than zero")
	}
	if in.StartingReserve < 0 {
		return validationError(CodeInvalidGame, "starting_reserve must be zero or more")
	}
	if in.StartingBank.IsNegative() {
		return validationError(CodeInvalidGame, "starting_bank must be zero or more")
	}
	return nil
}

// CreateGame inserts the game row and provisions its partition in one
// transaction. If provisioning fails the game row is rolled back too.
func (s *Service) CreateGame(ctx context.Context, in CreateGameInput) (g Game, err error) {
	ctx, span := s.startSpan(ctx, "CreateGame", 0)
	defer func() { endSpan(span, err) }()

	in.Name = strings.TrimSpace(in.Name)
	if in.StartAt.IsZero() {
		in.StartAt = s.now().UTC()
	}
	if err := validateCreateGame(in); err != nil {
		return g, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return g, fmt.Errorf("begin create game: %w", err)
	}
	defer tx.Rollback(ctx)

	g, err = scanGame(tx.QueryRow(ctx, `
		INSERT INTO games (name, start_at, length_days, status, resource_set_id, starting_reserve, starting_bank)
		VALUES ($1, $2, $3, 'active', $4, $5, $6)
		RETURNING `+gameColumns,
		in.Name, in.StartAt, in.LengthDays, in.ResourceSetID, in.StartingReserve, in.StartingBank))
	if err != nil {
		return g, translateStoreError(0, err)
	}
	if err := s.partitions.Ensure(ctx, tx, g.ID); err != nil {
		return Game{}, partitionError(CodePartitionFailed, g.ID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Game{}, fmt.Errorf("commit create game: %w", err)
	}
	s.log.Info("game created", "game_id", g.ID, "name", g.Name, "length_days", g.LengthDays)
	s.publish(ctx, Target{GameID: g.ID}, "game.created", map[string]any{"name": g.Name})
	return g, nil
}

// DeleteGame drops the game's partition and removes the game row. The game
// row is locked first so in-flight economy transactions finish before the
// partition goes away.
func (s *Service) DeleteGame(ctx context.Context, gameID int64) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteGame", gameID)
	defer func() { endSpan(span, err) }()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete game: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	if err := tx.QueryRow(ctx, `SELECT id FROM games WHERE id = $1 FOR UPDATE`, gameID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrGameNotFound
		}
		return err
	}
	if err := s.partitions.Drop(ctx, tx, gameID); err != nil {
		return partitionError(CodePartitionFailed, gameID, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM idempotency_keys WHERE game_id = $1`, gameID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM games WHERE id = $1`, gameID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete game: %w", err)
	}
	s.log.Info("game deleted", "game_id", gameID)
	s.publish(ctx, Target{GameID: gameID}, "game.deleted", nil)
	return nil
}

func (s *Service) GetGame(ctx context.Context, gameID int64) (Game, error) {
	g, err := scanGame(s.db.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE id = $1`, gameID))
	if errors.Is(err, pgx.ErrNoRows) {
		return g, ErrGameNotFound
	}
	return g, err
}

// ListGames returns games newest first. An empty status lists every game.
func (s *Service) ListGames(ctx context.Context, status string) ([]Game, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+gameColumns+`
		FROM games
		WHERE $1 = '' OR status = $1
		ORDER BY start_at DESC, id DESC
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Game, 0, 8)
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// EnsureUser creates the global user record on first sight.
func (s *Service) EnsureUser(ctx context.Context, userID, username string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return validationError(CodeInvalidName, "user id is required")
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO users (id, username)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`, userID, strings.TrimSpace(username))
	return err
}

// JoinGame creates the caller's player in a game, seeded with the game's
// starting reserve turns and starting bank.
func (s *Service) JoinGame(ctx context.Context, in JoinGameInput) (p Player, err error) {
	ctx, span := s.startSpan(ctx, "JoinGame", in.GameID)
	defer func() { endSpan(span, err) }()

	in.Name = strings.TrimSpace(in.Name)
	if err := validatePlayerName(in.Name); err != nil {
		return p, err
	}
	if err := s.EnsureUser(ctx, in.UserID, in.Username); err != nil {
		return p, err
	}

	err = s.inTx(ctx, in.GameID, func(tx pgx.Tx) error {
		g, err := lockGame(ctx, tx, in.GameID)
		if err != nil {
			return err
		}
		if err := s.partitions.Require(ctx, tx, in.GameID); err != nil {
			return err
		}
		players := partition.Table(in.GameID, partition.PlayersTable)
		var taken string
		err = tx.QueryRow(ctx, `
			SELECT CASE WHEN user_id = $1 THEN 'user' ELSE 'name' END
			FROM `+players+`
			WHERE user_id = $1 OR lower(name) = lower($2)
			LIMIT 1
		`, in.UserID, in.Name).Scan(&taken)
		switch {
		case err == nil && taken == "user":
			return errAlreadyJoined()
		case err == nil:
			return errNameTaken(in.Name)
		case !errors.Is(err, pgx.ErrNoRows):
			return err
		}
		p, err = scanPlayer(tx.QueryRow(ctx, `
			INSERT INTO `+players+` (id, user_id, name, location_id, turns_reserve, money_cash, money_bank)
			VALUES ($1, $2, $3, $4, $5, 0, $6)
			RETURNING `+playerColumns,
			uuid.New(), in.UserID, in.Name, in.LocationID, g.StartingReserve, g.StartingBank), in.GameID)
		return joinConflictError(in.Name, err)
	})
	if err != nil {
		return Player{}, err
	}
	s.publish(ctx, Target{GameID: in.GameID, PlayerID: p.ID, UserID: in.UserID}, "player.joined", map[string]any{"name": p.Name})
	return p, nil
}

func errAlreadyJoined() *Error {
	return &Error{Kind: KindConflict, Code: CodeAlreadyJoined, Message: "you already have a player in this game"}
}

func errNameTaken(name string) *Error {
	return &Error{Kind: KindConflict, Code: CodeNameTaken, Message: fmt.Sprintf("name %q is taken", name)}
}

// joinConflictError maps a unique violation from a racing join onto the
// same codes the pre-insert check returns.
func joinConflictError(name string, err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch pgErr.ConstraintName {
	case "players_user_id_key":
		return errAlreadyJoined()
	case "players_name_key":
		return errNameTaken(name)
	}
	return err
}

// PlayerForUser resolves the user's player in a game.
func (s *Service) PlayerForUser(ctx context.Context, gameID int64, userID string) (Player, error) {
	p, err := scanPlayer(s.db.QueryRow(ctx, `
		SELECT `+playerColumns+`
		FROM `+partition.Table(gameID, partition.PlayersTable)+`
		WHERE user_id = $1
	`, userID), gameID)
	if err != nil {
		return p, s.playerReadError(ctx, gameID, err)
	}
	return p, nil
}

// playerReadError maps a failed player read outside a transaction. A
// partition that is missing because the game itself is gone reports the game
// as not found.
func (s *Service) playerReadError(ctx context.Context, gameID int64, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrPlayerNotFound
	}
	gameExists := true
	if partition.IsMissing(err) {
		if _, gerr := s.GetGame(ctx, gameID); errors.Is(gerr, ErrGameNotFound) {
			gameExists = false
		}
	}
	return missingGameError(gameID, gameExists, err)
}

func missingGameError(gameID int64, gameExists bool, err error) error {
	if !gameExists && partition.IsMissing(err) {
		return ErrGameNotFound
	}
	return translateStoreError(gameID, err)
}

func (s *Service) GetPlayer(ctx context.Context, gameID int64, playerID uuid.UUID) (Player, error) {
	p, err := scanPlayer(s.db.QueryRow(ctx, `
		SELECT `+playerColumns+`
		FROM `+partition.Table(gameID, partition.PlayersTable)+`
		WHERE id = $1
	`, playerID), gameID)
	if err != nil {
		return p, s.playerReadError(ctx, gameID, err)
	}
	return p, nil
}

// UserPlayers collects the user's player from every game. Games whose
// partition is missing are skipped.
func (s *Service) UserPlayers(ctx context.Context, userID string) ([]Player, error) {
	games, err := s.ListGames(ctx, "")
	if err != nil {
		return nil, err
	}

	var (
		mu  sync.Mutex
		out = make([]Player, 0, len(games))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, game := range games {
		game := game
		g.Go(func() error {
			ok, err := s.partitions.Exists(gctx, s.db, game.ID)
			if err != nil {
				return err
			}
			if !ok {
				s.log.Warn("skipping game without partition", "game_id", game.ID)
				return nil
			}
			p, err := s.PlayerForUser(gctx, game.ID, userID)
			if errors.Is(err, ErrPlayerNotFound) || errors.Is(err, ErrGameNotFound) || errors.Is(err, ErrPartition) {
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			out = append(out, p)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b Player) int { return cmp.Compare(b.GameID, a.GameID) })
	return out, nil
}

func (s *Service) GetUser(ctx context.Context, userID string) (User, error) {
	var u User
	err := s.db.QueryRow(ctx, `SELECT id, username, turns FROM users WHERE id = $1`, userID).Scan(&u.ID, &u.Username, &u.Turns)
	if errors.Is(err, pgx.ErrNoRows) {
		return u, ErrUserNotFound
	}
	return u, err
}

// GrantAccountTurns adds turns to a user's account balance.
func (s *Service) GrantAccountTurns(ctx context.Context, userID string, amount int64) (User, error) {
	var u User
	if amount <= 0 {
		return u, validationError(CodeInvalidAmount, "amount must be greater than zero")
	}
	if err := s.EnsureUser(ctx, userID, ""); err != nil {
		return u, err
	}
	err := s.db.QueryRow(ctx, `
		UPDATE users SET turns = turns + $2
		WHERE id = $1
		RETURNING id, username, turns
	`, userID, amount).Scan(&u.ID, &u.Username, &u.Turns)
	if err != nil {
		return u, err
	}
	s.log.Info("account turns granted", "user_id", userID, "amount", amount, "turns", u.Turns)
	return u, nil
}

// AdvanceRounds moves games through their lifecycle: active games whose
// length has elapsed start closing, and games already closing complete.
func (s *Service) AdvanceRounds(ctx context.Context) (closed, completed int64, err error) {
	ctx, span := s.startSpan(ctx, "AdvanceRounds", 0)
	defer func() { endSpan(span, err) }()

	now := s.now().UTC()
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback(ctx)

	completedIDs, err := collectIDs(tx.Query(ctx, `
		UPDATE games SET status = 'complete'
		WHERE status = 'closing'
		RETURNING id
	`))
	if err != nil {
		return 0, 0, err
	}
	closedIDs, err := collectIDs(tx.Query(ctx, `
		UPDATE games SET status = 'closing'
		WHERE status = 'active'
		  AND start_at + make_interval(days => length_days) <= $1
		RETURNING id
	`, now))
	if err != nil {
		return 0, 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, 0, err
	}
	closed, completed = int64(len(closedIDs)), int64(len(completedIDs))
	if closed > 0 || completed > 0 {
		s.log.Info("rounds advanced", "closing", closed, "completed", completed)
	}
	for _, id := range completedIDs {
		s.publish(ctx, Target{GameID: id}, "game.complete", nil)
	}
	for _, id := range closedIDs {
		s.publish(ctx, Target{GameID: id}, "game.closing", nil)
	}
	return closed, completed, nil
}

func collectIDs(rows pgx.Rows, err error) ([]int64, error) {
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// Remaining is the time left before g stops accepting play.
func (g Game) Remaining(now time.Time) time.Duration {
	d := g.EndsAt().Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
