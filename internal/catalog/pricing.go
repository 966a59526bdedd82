package catalog

import "github.com/shopspring/decimal"

// BuyMarkup is the fixed premium charged over a resource's value when a
// player buys it. Selling always pays the bare value, so a buy followed by a
// sell of the same quantity never gains money.
var BuyMarkup = decimal.RequireFromString("1.4")

var two = decimal.NewFromInt(2)

func SellPrice(r Resource) decimal.Decimal {
	return r.Attributes.Value
}

// BuyPrice is ceil(value * 1.4) in exact decimal arithmetic.
func BuyPrice(r Resource) decimal.Decimal {
	return SellPrice(r).Mul(BuyMarkup).Ceil()
}

func RecruitBounds(r Resource) (lo, hi decimal.Decimal) {
	return r.Attributes.RecruitMin, r.Attributes.RecruitMax
}

// DivestCost is the per-unit price of releasing personnel: floor(value / 2).
func DivestCost(r Resource) decimal.Decimal {
	return r.Attributes.Value.Div(two).Floor()
}
