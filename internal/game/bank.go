package game

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"syndicate/internal/partition"
)

// Withdraw moves the player's whole bank balance into cash.
func (s *Service) Withdraw(ctx context.Context, t Target) (out Balances, err error) {
	ctx, span := s.startSpan(ctx, "Withdraw", t.GameID)
	defer func() { endSpan(span, err) }()

	var moved decimal.Decimal
	err = s.inTx(ctx, t.GameID, func(tx pgx.Tx) error {
		_, p, err := beginEconomy(ctx, tx, t, "bank.withdraw")
		if err != nil {
			return err
		}
		before := Balances{MoneyCash: p.MoneyCash, MoneyBank: p.MoneyBank}
		if _, err := planWithdraw(before); err != nil {
			return err
		}
		moved = before.MoneyBank
		out, err = updateBalances(ctx, tx, t, `
			money_cash = money_cash + money_bank,
			money_bank = 0
		`, `money_bank > 0`)
		return err
	})
	if err != nil {
		return Balances{}, err
	}
	s.publish(ctx, t, "bank.withdraw", map[string]any{"amount": moved.String()})
	return out, nil
}

// Deposit moves amount from cash into the bank. The bank must be empty and
// the amount may not exceed 15% of cash on hand.
func (s *Service) Deposit(ctx context.Context, t Target, amount decimal.Decimal) (out Balances, err error) {
	ctx, span := s.startSpan(ctx, "Deposit", t.GameID)
	defer func() { endSpan(span, err) }()

	if !validMoney(amount) {
		return out, validationError(CodeInvalidAmount, "deposit amount must be a positive amount in cents")
	}
	err = s.inTx(ctx, t.GameID, func(tx pgx.Tx) error {
		_, p, err := beginEconomy(ctx, tx, t, "bank.deposit")
		if err != nil {
			return err
		}
		if _, err := planDeposit(Balances{MoneyCash: p.MoneyCash, MoneyBank: p.MoneyBank}, amount); err != nil {
			return err
		}
		out, err = updateBalances(ctx, tx, t, `
			money_cash = money_cash - $2,
			money_bank = money_bank + $2
		`, `money_bank = 0 AND money_cash >= $2 AND $2 <= floor(money_cash * 0.15)`, amount)
		return err
	})
	if err != nil {
		return Balances{}, err
	}
	s.publish(ctx, t, "bank.deposit", map[string]any{"amount": amount.String()})
	return out, nil
}

// updateBalances applies set to the player row only while guard holds. $1 is
// the player id; extra args start at $2.
func updateBalances(ctx context.Context, tx pgx.Tx, t Target, set, guard string, args ...any) (Balances, error) {
	var out Balances
	err := tx.QueryRow(ctx, `
		UPDATE `+partition.Table(t.GameID, partition.PlayersTable)+`
		SET `+set+`, updated_at = now()
		WHERE id = $1 AND `+guard+`
		RETURNING money_cash, money_bank
	`, append([]any{t.PlayerID}, args...)...).Scan(&out.MoneyCash, &out.MoneyBank)
	if errors.Is(err, pgx.ErrNoRows) {
		return out, errConcurrentUpdate()
	}
	return out, err
}
