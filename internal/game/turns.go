package game

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"syndicate/internal/partition"
)

// ReserveToActive moves turns from the player's reserve pool to the active
// pool.
func (s *Service) ReserveToActive(ctx context.Context, t Target, amount int64) (out Player, err error) {
	ctx, span := s.startSpan(ctx, "ReserveToActive", t.GameID)
	defer func() { endSpan(span, err) }()

	if amount <= 0 {
		return out, validationError(CodeInvalidAmount, "amount must be greater than zero")
	}
	err = s.inTx(ctx, t.GameID, func(tx pgx.Tx) error {
		_, p, err := beginEconomy(ctx, tx, t, "turns.activate")
		if err != nil {
			return err
		}
		if _, err := planReserveToActive(TurnPools{TurnsActive: p.TurnsActive, TurnsReserve: p.TurnsReserve}, amount); err != nil {
			return err
		}
		out, err = scanPlayer(tx.QueryRow(ctx, `
			UPDATE `+partition.Table(t.GameID, partition.PlayersTable)+`
			SET turns_reserve = turns_reserve - $2,
				turns_active = turns_active + $2,
				updated_at = now()
			WHERE id = $1 AND turns_reserve >= $2
			RETURNING `+playerColumns,
			p.ID, amount), t.GameID)
		if errors.Is(err, pgx.ErrNoRows) {
			return errConcurrentUpdate()
		}
		return err
	})
	if err != nil {
		return Player{}, err
	}
	s.publish(ctx, t, "turns.activate", map[string]any{"amount": amount})
	return out, nil
}

// AccountToReserve moves turns from the user's account balance into the
// player's reserve pool and records them in turns_transferred.
func (s *Service) AccountToReserve(ctx context.Context, t Target, amount int64) (out AccountTransferResult, err error) {
	ctx, span := s.startSpan(ctx, "AccountToReserve", t.GameID)
	defer func() { endSpan(span, err) }()

	if t.UserID == "" {
		return out, ErrUserNotFound
	}
	if amount <= 0 {
		return out, validationError(CodeInvalidAmount, "amount must be greater than zero")
	}
	err = s.inTx(ctx, t.GameID, func(tx pgx.Tx) error {
		_, p, err := beginEconomy(ctx, tx, t, "turns.reserve")
		if err != nil {
			return err
		}
		var u User
		err = tx.QueryRow(ctx, `
			SELECT id, username, turns
			FROM users
			WHERE id = $1
			FOR UPDATE
		`, t.UserID).Scan(&u.ID, &u.Username, &u.Turns)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		if err := planAccountToReserve(u.Turns, amount); err != nil {
			return err
		}

		err = tx.QueryRow(ctx, `
			UPDATE users SET turns = turns - $2
			WHERE id = $1 AND turns >= $2
			RETURNING turns
		`, u.ID, amount).Scan(&u.Turns)
		if errors.Is(err, pgx.ErrNoRows) {
			return errConcurrentUpdate()
		}
		if err != nil {
			return err
		}
		out.Player, err = scanPlayer(tx.QueryRow(ctx, `
			UPDATE `+partition.Table(t.GameID, partition.PlayersTable)+`
			SET turns_reserve = turns_reserve + $2,
				turns_transferred = turns_transferred + $2,
				updated_at = now()
			WHERE id = $1
			RETURNING `+playerColumns,
			p.ID, amount), t.GameID)
		if err != nil {
			return err
		}
		out.User = u
		return nil
	})
	if err != nil {
		return AccountTransferResult{}, err
	}
	s.publish(ctx, t, "turns.reserve", map[string]any{"amount": amount})
	return out, nil
}
