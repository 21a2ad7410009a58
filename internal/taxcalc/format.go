package taxcalc

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// FormatNaira renders an amount for human-readable notes, e.g. "₦1,164,800.00".
func FormatNaira(amount decimal.Decimal) string {
	whole, kobo, _ := strings.Cut(amount.Abs().StringFixed(MoneyPlaces), ".")
	sign := ""
	if amount.Round(MoneyPlaces).IsNegative() {
		sign = "-"
	}
	return sign + "₦" + groupDigits(whole) + "." + kobo
}

// groupDigits inserts thousands separators into a string of decimal digits.
func groupDigits(digits string) string {
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return digits
	}
	return message.NewPrinter(language.English).Sprintf("%v", number.Decimal(n))
}

// FormatPercent renders a fractional rate as a percentage, e.g. 0.075 -> "7.5%".
func FormatPercent(rate decimal.Decimal) string {
	return rate.Mul(decimal.NewFromInt(100)).String() + "%"
}
