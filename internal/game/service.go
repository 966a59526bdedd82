package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"syndicate/internal/catalog"
	"syndicate/internal/db"
	"syndicate/internal/events"
	"syndicate/internal/partition"
)

// Catalog is the read side of the resource catalog the economy prices from.
type Catalog interface {
	Get(ctx context.Context, id int64, types ...string) (catalog.Resource, error)
	ListTypes(ctx context.Context, types []string) ([]catalog.Resource, error)
	ListSet(ctx context.Context, setID int64, types []string) ([]catalog.Resource, error)
}

// partitions provisions and checks the per-game schemas.
type partitions interface {
	Ensure(ctx context.Context, q db.Querier, gameID int64) error
	Drop(ctx context.Context, q db.Querier, gameID int64) error
	Exists(ctx context.Context, q db.Querier, gameID int64) (bool, error)
	Require(ctx context.Context, q db.Querier, gameID int64) error
}

// Rand is the uniform source used for recruitment draws.
type Rand interface {
	Float64() float64
}

type Service struct {
	db         *pgxpool.Pool
	catalog    Catalog
	partitions partitions
	events     events.Publisher
	log        *slog.Logger
	tracer     trace.Tracer
	now        func() time.Time

	mu   sync.Mutex
	rand Rand
}

type Option func(*Service)

func WithRand(r Rand) Option {
	return func(s *Service) { s.rand = r }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(db *pgxpool.Pool, cat Catalog, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		db:         db,
		catalog:    cat,
		partitions: partition.NewManager(logger),
		events:     events.Nop{},
		log:        logger,
		tracer:     otel.Tracer("syndicate/internal/game"),
		now:        time.Now,
		rand:       newRand(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) nextFloat() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Float64()
}

func (s *Service) startSpan(ctx context.Context, name string, gameID int64) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "game."+name, trace.WithAttributes(attribute.Int64("game.id", gameID)))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// inTx runs fn in a serializable transaction, retrying on serialization
// failures with doubling backoff. Errors other than serialization failures
// are translated into domain errors and returned without retry.
func (s *Service) inTx(ctx context.Context, gameID int64, fn func(pgx.Tx) error) error {
	retryDelay := 75 * time.Millisecond
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		err = func() error {
			defer tx.Rollback(ctx)
			if err := fn(tx); err != nil {
				return err
			}
			return tx.Commit(ctx)
		}()
		if err == nil {
			return nil
		}
		if !isSerializationError(err) {
			return translateStoreError(gameID, err)
		}
		if attempt == maxTxAttempts-1 {
			break
		}
		s.log.Debug("serialization conflict, retrying", "game_id", gameID, "attempt", attempt+1)
		if err := sleepWithContext(ctx, retryDelay); err != nil {
			return err
		}
		if retryDelay < 1200*time.Millisecond {
			retryDelay *= 2
		}
	}
	return ErrTxConflict
}

func isSerializationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01")
}

func translateStoreError(gameID int64, err error) error {
	var domain *Error
	if errors.As(err, &domain) {
		return err
	}
	if partition.IsMissing(err) {
		return partitionError(CodePartitionMissing, gameID, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return &Error{Kind: KindConflict, Code: CodeDuplicateRequest, Message: "already exists", Cause: err}
		case "23514":
			return &Error{Kind: KindConflict, Code: CodeConcurrentUpdateLost, Message: "balance changed, try again", Cause: err}
		case "23503":
			return &Error{Kind: KindValidation, Code: CodeInvalidResource, Message: "referenced record does not exist", Cause: err}
		}
	}
	return err
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// lockGame takes a shared lock on the game row for the rest of the
// transaction, so the game cannot be deleted underneath an economy call.
func lockGame(ctx context.Context, tx pgx.Tx, gameID int64) (Game, error) {
	g, err := scanGame(tx.QueryRow(ctx, `
		SELECT `+gameColumns+`
		FROM games
		WHERE id = $1
		FOR SHARE
	`, gameID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return g, ErrGameNotFound
		}
		return g, err
	}
	if g.Status == StatusComplete {
		return g, ErrGameComplete
	}
	return g, nil
}

const playerColumns = `id, user_id, name, location_id, turns_active, turns_reserve, turns_transferred, money_cash, money_bank`

func scanPlayer(row pgx.Row, gameID int64) (Player, error) {
	p := Player{GameID: gameID}
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.LocationID, &p.TurnsActive, &p.TurnsReserve, &p.TurnsTransferred, &p.MoneyCash, &p.MoneyBank)
	return p, err
}

func lockPlayer(ctx context.Context, tx pgx.Tx, gameID int64, playerID uuid.UUID) (Player, error) {
	p, err := scanPlayer(tx.QueryRow(ctx, `
		SELECT `+playerColumns+`
		FROM `+partition.Table(gameID, partition.PlayersTable)+`
		WHERE id = $1
		FOR UPDATE
	`, playerID), gameID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return p, ErrPlayerNotFound
		}
		return p, err
	}
	return p, nil
}

// beginEconomy is the common prologue of every economy mutation: game lock,
// idempotency claim, player lock.
func beginEconomy(ctx context.Context, tx pgx.Tx, t Target, action string) (Game, Player, error) {
	g, err := lockGame(ctx, tx, t.GameID)
	if err != nil {
		return g, Player{}, err
	}
	if err := claimIdempotency(ctx, tx, t, action); err != nil {
		return g, Player{}, err
	}
	p, err := lockPlayer(ctx, tx, t.GameID, t.PlayerID)
	if err != nil {
		return g, p, err
	}
	if t.UserID != "" && p.UserID != t.UserID {
		return g, p, &Error{Kind: KindPolicyViolation, Code: CodeForbidden, Message: "player belongs to another user"}
	}
	return g, p, nil
}

func claimIdempotency(ctx context.Context, tx pgx.Tx, t Target, action string) error {
	key := strings.TrimSpace(t.IdempotencyKey)
	if key == "" || t.UserID == "" {
		return nil
	}
	cmd, err := tx.Exec(ctx, `
		INSERT INTO idempotency_keys (user_id, key, action, game_id, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id, key) DO NOTHING
	`, t.UserID, key, action, t.GameID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrDuplicateIdempotency
	}
	return nil
}

// lockHolding returns the player's quantity of a resource, locking the row.
// A missing row reads as zero.
func lockHolding(ctx context.Context, tx pgx.Tx, gameID int64, playerID uuid.UUID, resourceID int64) (int64, error) {
	var qty int64
	err := tx.QueryRow(ctx, `
		SELECT quantity
		FROM `+partition.Table(gameID, partition.PlayerResourcesTable)+`
		WHERE player_id = $1 AND resource_id = $2
		FOR UPDATE
	`, playerID, resourceID).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return qty, err
}

func addHolding(ctx context.Context, tx pgx.Tx, gameID int64, playerID uuid.UUID, resourceID, quantity int64) (int64, error) {
	table := partition.Table(gameID, partition.PlayerResourcesTable)
	var qty int64
	err := tx.QueryRow(ctx, `
		INSERT INTO `+table+` AS h (player_id, resource_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (player_id, resource_id)
		DO UPDATE SET quantity = h.quantity + EXCLUDED.quantity, updated_at = now()
		RETURNING quantity
	`, playerID, resourceID, quantity).Scan(&qty)
	return qty, err
}

// subtractHolding decrements a holding only while enough remains. The row is
// kept at zero.
func subtractHolding(ctx context.Context, tx pgx.Tx, gameID int64, playerID uuid.UUID, resourceID, quantity int64) (int64, error) {
	var qty int64
	err := tx.QueryRow(ctx, `
		UPDATE `+partition.Table(gameID, partition.PlayerResourcesTable)+`
		SET quantity = quantity - $3, updated_at = now()
		WHERE player_id = $1 AND resource_id = $2 AND quantity >= $3
		RETURNING quantity
	`, playerID, resourceID, quantity).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, errConcurrentUpdate()
	}
	return qty, err
}

func errConcurrentUpdate() *Error {
	return &Error{Kind: KindConflict, Code: CodeConcurrentUpdateLost, Message: "balance changed, try again"}
}

func holdings(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, gameID int64, playerID uuid.UUID) (map[int64]int64, error) {
	rows, err := q.Query(ctx, `
		SELECT resource_id, quantity
		FROM `+partition.Table(gameID, partition.PlayerResourcesTable)+`
		WHERE player_id = $1
	`, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]int64)
	for rows.Next() {
		var id, qty int64
		if err := rows.Scan(&id, &qty); err != nil {
			return nil, err
		}
		out[id] = qty
	}
	return out, rows.Err()
}

func (s *Service) publish(ctx context.Context, t Target, action string, data map[string]any) {
	e := events.Event{
		Type:   action,
		GameID: t.GameID,
		UserID: t.UserID,
		At:     s.now().UTC(),
		Data:   data,
	}
	if t.PlayerID != uuid.Nil {
		e.PlayerID = t.PlayerID.String()
	}
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.Warn("publish economy event failed", "err", err, "type", action, "game_id", t.GameID)
	}
}
