// Package money renders amounts in the product's fixed display currency.
// Storage stays currency-agnostic; only presentation goes through here.
package money

import (
	money "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is the display currency used when none is configured.
const DefaultCurrency = "USD"

// Formatter renders decimal amounts as display strings, e.g. "$1,234.50".
type Formatter struct {
	currency *money.Currency
}

// NewFormatter returns a formatter for the ISO currency code. Unknown codes
// fall back to the default currency.
func NewFormatter(code string) Formatter {
	currency := money.GetCurrency(code)
	if currency == nil {
		currency = money.GetCurrency(DefaultCurrency)
	}

	return Formatter{currency: currency}
}

// Format renders the amount in the formatter's currency.
func (f Formatter) Format(amount decimal.Decimal) string {
	minor := amount.Shift(int32(f.currency.Fraction)).Round(0).IntPart()
	return money.New(minor, f.currency.Code).Display()
}
