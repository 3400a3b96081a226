package gated

import (
	constant "github.com/LerianStudio/lib-gated/gated/constants"
	"github.com/shopspring/decimal"
)

// AmountWithinBounds reports whether d has at most constant.MaxAmountDigits
// digits on each side of the decimal point. It reads only the coefficient
// and exponent, so it never expands d.
func AmountWithinBounds(d decimal.Decimal) bool {
	exp := int64(d.Exponent())
	if exp < -int64(constant.MaxAmountDigits) {
		return false
	}

	coeff := d.Coefficient()
	digits := int64(len(coeff.Abs(coeff).String())) + exp

	return digits <= int64(constant.MaxAmountDigits)
}
