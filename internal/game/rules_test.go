package game

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"syndicate/internal/catalog"
)

type fixedRand struct {
	values []float64
	next   int
}

func (f *fixedRand) Float64() float64 {
	if len(f.values) == 0 {
		return 0
	}
	v := f.values[f.next%len(f.values)]
	f.next++
	return v
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func codeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func TestDepositScenario(t *testing.T) {
	b := Balances{MoneyCash: d("1000"), MoneyBank: decimal.Zero}

	b, err := planDeposit(b, d("150"))
	if err != nil {
		t.Fatalf("deposit 150: %v", err)
	}
	if !b.MoneyCash.Equal(d("850")) || !b.MoneyBank.Equal(d("150")) {
		t.Fatalf("after deposit got cash=%s bank=%s want 850/150", b.MoneyCash, b.MoneyBank)
	}

	if _, err := planDeposit(b, d("1")); !errors.Is(err, ErrPolicyViolation) {
		t.Fatalf("second deposit got %v want policy violation", err)
	}

	b, err = planWithdraw(b)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if !b.MoneyCash.Equal(d("1000")) || !b.MoneyBank.IsZero() {
		t.Fatalf("after withdraw got cash=%s bank=%s want 1000/0", b.MoneyCash, b.MoneyBank)
	}
}

func TestDepositCapBoundary(t *testing.T) {
	for cents := int64(700); cents <= 2_000_000; cents += 1237 {
		cash := decimal.New(cents, -2)
		limit := DepositCap(cash)
		if !limit.IsPositive() {
			continue
		}
		b := Balances{MoneyCash: cash, MoneyBank: decimal.Zero}

		got, err := planDeposit(b, limit)
		if err != nil {
			t.Fatalf("cash=%s deposit cap %s: %v", cash, limit, err)
		}
		if !got.MoneyCash.Add(got.MoneyBank).Equal(cash) {
			t.Fatalf("cash=%s: deposit changed total money", cash)
		}

		_, err = planDeposit(b, limit.Add(decimal.NewFromInt(1)))
		if codeOf(err) != CodeDepositCapExceeded {
			t.Fatalf("cash=%s deposit cap+1 got %v want %s", cash, err, CodeDepositCapExceeded)
		}
	}
}

func TestDepositCapMatchesFloor(t *testing.T) {
	cases := []struct {
		cash string
		want string
	}{
		{cash: "0", want: "0"},
		{cash: "6.66", want: "0"},
		{cash: "7", want: "1"},
		{cash: "1000", want: "150"},
		{cash: "1099.99", want: "164"},
	}
	for _, tc := range cases {
		if got := DepositCap(d(tc.cash)); !got.Equal(d(tc.want)) {
			t.Fatalf("DepositCap(%s) got %s want %s", tc.cash, got, tc.want)
		}
	}
}

func TestDepositRejectsWhileBankHoldsMoney(t *testing.T) {
	b := Balances{MoneyCash: d("100000"), MoneyBank: d("0.01")}
	for _, amount := range []string{"0.01", "1", "10", "15000"} {
		if _, err := planDeposit(b, d(amount)); codeOf(err) != CodeBankNotEmpty {
			t.Fatalf("deposit %s with bank set got %v want %s", amount, err, CodeBankNotEmpty)
		}
	}
}

func TestDepositRejectsInvalidAmounts(t *testing.T) {
	b := Balances{MoneyCash: d("1000")}
	for _, amount := range []string{"0", "-5", "1.001"} {
		if _, err := planDeposit(b, d(amount)); !errors.Is(err, ErrValidation) {
			t.Fatalf("deposit %s got %v want validation error", amount, err)
		}
	}
}

func TestWithdrawEmptyBank(t *testing.T) {
	_, err := planWithdraw(Balances{MoneyCash: d("5")})
	if !errors.Is(err, ErrInsufficientFunds) || codeOf(err) != CodeNoFunds {
		t.Fatalf("got %v want %s", err, CodeNoFunds)
	}
}

func TestBuySellNeverProfits(t *testing.T) {
	values := []string{"0", "1", "3.33", "40", "99.99", "100", "4200", "65000"}
	for _, v := range values {
		r := catalog.Resource{Attributes: catalog.Attributes{Value: d(v)}}
		for _, qty := range []int64{1, 2, 7, 250} {
			// Exactly enough cash for the purchase, plus a margin.
			for _, cash := range []decimal.Decimal{
				catalog.BuyPrice(r).Mul(decimal.NewFromInt(qty)),
				catalog.BuyPrice(r).Mul(decimal.NewFromInt(qty)).Add(d("1000")),
			} {
				cost, err := planBuy(cash, catalog.BuyPrice(r), qty)
				if err != nil {
					t.Fatalf("value=%s qty=%d cash=%s buy: %v", v, qty, cash, err)
				}
				proceeds, err := planSell(catalog.SellPrice(r), qty, qty)
				if err != nil {
					t.Fatalf("value=%s qty=%d sell: %v", v, qty, err)
				}
				if after := cash.Sub(cost).Add(proceeds); after.GreaterThan(cash) {
					t.Fatalf("value=%s qty=%d round trip gained money: cash %s -> %s", v, qty, cash, after)
				}
			}
		}
	}
}

func TestBuyInsufficientFunds(t *testing.T) {
	_, err := planBuy(d("100"), d("140"), 1)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("got %v want insufficient funds", err)
	}
	if !strings.Contains(err.Error(), "need $140.00, have $100.00") {
		t.Fatalf("message %q does not show the shortfall", err.Error())
	}
	var e *Error
	if !errors.As(err, &e) || e.Metadata["requested"] != "140" || e.Metadata["available"] != "100" {
		t.Fatalf("metadata got %+v", e)
	}

	if _, err := planBuy(d("140"), d("140"), 1); err != nil {
		t.Fatalf("exact cash should be enough: %v", err)
	}
	if _, err := planBuy(d("140"), d("140"), 0); !errors.Is(err, ErrValidation) {
		t.Fatalf("zero quantity got %v want validation", err)
	}
}

func TestSellMoreThanOwned(t *testing.T) {
	_, err := planSell(d("10"), 3, 4)
	if !errors.Is(err, ErrInsufficientQuantity) {
		t.Fatalf("got %v want insufficient quantity", err)
	}
	proceeds, err := planSell(d("10"), 3, 3)
	if err != nil || !proceeds.Equal(d("30")) {
		t.Fatalf("sell all got %s, %v want 30", proceeds, err)
	}
}

func TestRecruitQuantityWithinBounds(t *testing.T) {
	lo, hi := d("1"), d("3")
	draws := []float64{0, 0.25, 0.5, 0.75, 0.999999, 1}
	r := &fixedRand{values: draws}
	for range draws {
		qty := recruitQuantity(10, drawMultiplier(lo, hi, r.Float64()), 1)
		if qty < 10 || qty > 30 {
			t.Fatalf("quantity %d outside [10, 30]", qty)
		}
	}

	src := newRand()
	for i := 0; i < 1000; i++ {
		qty := recruitQuantity(10, drawMultiplier(lo, hi, src.Float64()), 1)
		if qty < 10 || qty > 30 {
			t.Fatalf("draw %d: quantity %d outside [10, 30]", i, qty)
		}
	}
}

func TestRecruitQuantitySplitsTurns(t *testing.T) {
	cases := []struct {
		turns int64
		mult  string
		n     int
		want  int64
	}{
		{turns: 10, mult: "1.5", n: 3, want: 5},
		{turns: 7, mult: "1", n: 2, want: 4},
		{turns: 10, mult: "0.05", n: 1, want: 1},
		{turns: 10, mult: "0", n: 2, want: 0},
	}
	for _, tc := range cases {
		if got := recruitQuantity(tc.turns, d(tc.mult), tc.n); got != tc.want {
			t.Fatalf("recruitQuantity(%d, %s, %d) got %d want %d", tc.turns, tc.mult, tc.n, got, tc.want)
		}
	}
}

func TestPlanRecruit(t *testing.T) {
	if err := planRecruit(10, 10, []int64{1}); err != nil {
		t.Fatalf("exact turns should be enough: %v", err)
	}
	if err := planRecruit(9, 10, []int64{1}); !errors.Is(err, ErrInsufficientTurns) {
		t.Fatalf("got %v want insufficient turns", err)
	}
	if err := planRecruit(10, 0, []int64{1}); !errors.Is(err, ErrValidation) {
		t.Fatalf("zero turns got %v want validation", err)
	}
	if err := planRecruit(10, 5, nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("no resources got %v want validation", err)
	}
	if err := planRecruit(10, 5, []int64{3, 3}); codeOf(err) != CodeInvalidResource {
		t.Fatalf("duplicate resources got %v want %s", err, CodeInvalidResource)
	}
}

func TestDivestPricing(t *testing.T) {
	r := catalog.Resource{Attributes: catalog.Attributes{Value: d("100")}}
	unit := catalog.DivestCost(r)

	cost, err := planDivest(d("200"), unit, 4, 4)
	if err != nil {
		t.Fatalf("divest: %v", err)
	}
	if !cost.Equal(d("200")) {
		t.Fatalf("cost got %s want 200", cost)
	}
	if _, err := planDivest(d("199.99"), unit, 4, 4); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("got %v want insufficient funds", err)
	}
	if _, err := planDivest(d("1000"), unit, 3, 4); !errors.Is(err, ErrInsufficientQuantity) {
		t.Fatalf("got %v want insufficient quantity", err)
	}
}

func TestTurnTransfers(t *testing.T) {
	got, err := planReserveToActive(TurnPools{TurnsActive: 5, TurnsReserve: 10}, 10)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if got.TurnsActive != 15 || got.TurnsReserve != 0 {
		t.Fatalf("got %+v want active=15 reserve=0", got)
	}
	if _, err := planReserveToActive(TurnPools{TurnsReserve: 10}, 11); !errors.Is(err, ErrInsufficientTurns) {
		t.Fatalf("got %v want insufficient turns", err)
	}
	if _, err := planReserveToActive(TurnPools{TurnsReserve: 10}, 0); !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v want validation", err)
	}
	if err := planAccountToReserve(5, 6); !errors.Is(err, ErrInsufficientTurns) {
		t.Fatalf("got %v want insufficient turns", err)
	}
	if err := planAccountToReserve(5, 5); err != nil {
		t.Fatalf("exact account turns: %v", err)
	}
}

func TestServiceUsesInjectedRand(t *testing.T) {
	s := NewService(nil, nil, nil, WithRand(&fixedRand{values: []float64{0.25, 0.75}}))
	if got := s.nextFloat(); got != 0.25 {
		t.Fatalf("got %v want 0.25", got)
	}
	if got := s.nextFloat(); got != 0.75 {
		t.Fatalf("got %v want 0.75", got)
	}
}
