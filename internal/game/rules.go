package game

import (
	"github.com/shopspring/decimal"
)

func planWithdraw(b Balances) (Balances, error) {
	if !b.MoneyBank.IsPositive() {
		return b, shortfallError(KindInsufficientFunds, CodeNoFunds, b.MoneyBank, b.MoneyBank, "nothing in the bank to withdraw")
	}
	return Balances{
		MoneyCash: b.MoneyCash.Add(b.MoneyBank),
		MoneyBank: decimal.Zero,
	}, nil
}

// planDeposit checks a deposit against the current balances. The cap is
// recomputed from cash on hand at the time of the call.
func planDeposit(b Balances, amount decimal.Decimal) (Balances, error) {
	if !validMoney(amount) {
		return b, validationError(CodeInvalidAmount, "deposit amount must be a positive amount in cents")
	}
	if !b.MoneyBank.IsZero() {
		return b, policyError(CodeBankNotEmpty, "withdraw the %s already in the bank before depositing again", money(b.MoneyBank))
	}
	limit := DepositCap(b.MoneyCash)
	if amount.GreaterThan(limit) {
		e := shortfallError(KindPolicyViolation, CodeDepositCapExceeded, amount, limit,
			"deposit of %s exceeds the limit of %s (15%% of cash)", money(amount), money(limit))
		return b, e
	}
	if amount.GreaterThan(b.MoneyCash) {
		return b, shortfallError(KindInsufficientFunds, CodeInsufficientCash, amount, b.MoneyCash,
			"need %s, have %s", money(amount), money(b.MoneyCash))
	}
	return Balances{
		MoneyCash: b.MoneyCash.Sub(amount),
		MoneyBank: b.MoneyBank.Add(amount),
	}, nil
}

func validateQuantity(quantity int64) error {
	if quantity <= 0 {
		return validationError(CodeInvalidQuantity, "quantity must be greater than zero")
	}
	return nil
}

// planBuy returns the total cost of buying quantity units at unitPrice.
func planBuy(cash, unitPrice decimal.Decimal, quantity int64) (decimal.Decimal, error) {
	if err := validateQuantity(quantity); err != nil {
		return decimal.Zero, err
	}
	cost := unitPrice.Mul(decimal.NewFromInt(quantity))
	if cost.GreaterThan(cash) {
		return cost, shortfallError(KindInsufficientFunds, CodeInsufficientFunds, cost, cash,
			"need %s, have %s (short %s)", money(cost), money(cash), money(cost.Sub(cash)))
	}
	return cost, nil
}

// planSell returns the proceeds of selling quantity of owned units.
func planSell(unitPrice decimal.Decimal, owned, quantity int64) (decimal.Decimal, error) {
	if err := validateQuantity(quantity); err != nil {
		return decimal.Zero, err
	}
	if quantity > owned {
		return decimal.Zero, shortfallError(KindInsufficientQuantity, CodeInsufficientQuantity, count(quantity), count(owned),
			"you only have %d", owned)
	}
	return unitPrice.Mul(decimal.NewFromInt(quantity)), nil
}

func planRecruit(turnsActive, turns int64, resourceIDs []int64) error {
	if turns <= 0 {
		return validationError(CodeInvalidAmount, "turns must be greater than zero")
	}
	if len(resourceIDs) == 0 {
		return validationError(CodeInvalidResource, "choose at least one resource to recruit")
	}
	seen := make(map[int64]struct{}, len(resourceIDs))
	for _, id := range resourceIDs {
		if _, ok := seen[id]; ok {
			return validationError(CodeInvalidResource, "resource %d listed more than once", id)
		}
		seen[id] = struct{}{}
	}
	if turns > turnsActive {
		return shortfallError(KindInsufficientTurns, CodeInsufficientTurns, count(turns), count(turnsActive),
			"need %d active turns, have %d", turns, turnsActive)
	}
	return nil
}

// drawMultiplier maps r in [0, 1) onto [lo, hi].
func drawMultiplier(lo, hi decimal.Decimal, r float64) decimal.Decimal {
	if r < 0 {
		r = 0
	}
	if r > 1 {
		r = 1
	}
	return lo.Add(hi.Sub(lo).Mul(decimal.NewFromFloat(r)))
}

// recruitQuantity is ceil(turns * multiplier / n), the units gained for one
// resource when turns are split across n resources.
func recruitQuantity(turns int64, multiplier decimal.Decimal, n int) int64 {
	if n <= 0 {
		return 0
	}
	q := decimal.NewFromInt(turns).Mul(multiplier).Div(decimal.NewFromInt(int64(n))).Ceil()
	return q.IntPart()
}

// planDivest returns the total cost of releasing quantity personnel.
func planDivest(cash, unitCost decimal.Decimal, owned, quantity int64) (decimal.Decimal, error) {
	if err := validateQuantity(quantity); err != nil {
		return decimal.Zero, err
	}
	if quantity > owned {
		return decimal.Zero, shortfallError(KindInsufficientQuantity, CodeInsufficientQuantity, count(quantity), count(owned),
			"you only have %d", owned)
	}
	cost := unitCost.Mul(decimal.NewFromInt(quantity))
	if cost.GreaterThan(cash) {
		return cost, shortfallError(KindInsufficientFunds, CodeInsufficientFunds, cost, cash,
			"need %s, have %s", money(cost), money(cash))
	}
	return cost, nil
}

func planReserveToActive(p TurnPools, amount int64) (TurnPools, error) {
	if amount <= 0 {
		return p, validationError(CodeInvalidAmount, "amount must be greater than zero")
	}
	if amount > p.TurnsReserve {
		return p, shortfallError(KindInsufficientTurns, CodeInsufficientTurns, count(amount), count(p.TurnsReserve),
			"need %d reserve turns, have %d", amount, p.TurnsReserve)
	}
	return TurnPools{
		TurnsActive:  p.TurnsActive + amount,
		TurnsReserve: p.TurnsReserve - amount,
	}, nil
}

func planAccountToReserve(accountTurns, amount int64) error {
	if amount <= 0 {
		return validationError(CodeInvalidAmount, "amount must be greater than zero")
	}
	if amount > accountTurns {
		return shortfallError(KindInsufficientTurns, CodeInsufficientTurns, count(amount), count(accountTurns),
			"need %d account turns, have %d", amount, accountTurns)
	}
	return nil
}
