package game

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	StatusActive   = "active"
	StatusClosing  = "closing"
	StatusComplete = "complete"
)

// Each mutation is retried this many times on serialization failure.
const maxTxAttempts = 8

// DepositCapRatio bounds a single deposit to a share of cash on hand.
var DepositCapRatio = decimal.RequireFromString("0.15")

var playerNameRE = regexp.MustCompile(`^[a-zA-Z0-9_ .'-]{3,32}$`)

var blockedNameFragments = []string{
	"admin",
	"moderator",
	"support",
	"nazi",
}

func validatePlayerName(name string) error {
	name = strings.TrimSpace(name)
	if !playerNameRE.MatchString(name) {
		return validationError(CodeInvalidName, "name must be 3-32 letters, digits, spaces or _.'-")
	}
	lower := strings.ToLower(name)
	for _, frag := range blockedNameFragments {
		if strings.Contains(lower, frag) {
			return validationError(CodeInvalidName, "name contains a reserved word")
		}
	}
	return nil
}

// validMoney reports whether d is a positive amount with at most cent
// precision.
func validMoney(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Truncate(2))
}

// DepositCap is floor(cash * 0.15).
func DepositCap(cash decimal.Decimal) decimal.Decimal {
	return cash.Mul(DepositCapRatio).Floor()
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
