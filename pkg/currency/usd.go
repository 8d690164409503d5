// Package currency provides helpers for working with USD amounts.
package currency

import (
	"github.com/shopspring/decimal"
)

// Decimals is the number of decimal places in a USD amount.
const Decimals = 2

// RoundUSD rounds an amount to cents using round-half-up semantics.
func RoundUSD(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(Decimals)
}

// FormatUSD renders an amount as a display string with exactly two
// decimal places (eg. "$6.00").
func FormatUSD(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(Decimals)
}

// IsPositiveUSD reports whether the amount is a valid, positive payment
// amount.
func IsPositiveUSD(amount decimal.Decimal) bool {
	return amount.IsPositive()
}
