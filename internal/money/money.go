package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is one of the two codes the ledger understands. ARS is the
// reporting (primary) currency; USD is the secondary transactable currency.
type Currency string

const (
	ARS Currency = "ARS"
	USD Currency = "USD"
)

var ErrUnsupportedCurrency = errors.New("unsupported_currency")

// Parse normalizes a currency code.
func Parse(code string) (Currency, error) {
	switch Currency(strings.ToUpper(strings.TrimSpace(code))) {
	case ARS:
		return ARS, nil
	case USD:
		return USD, nil
	default:
		return "", ErrUnsupportedCurrency
	}
}

// Round2 rounds to two decimal places, the minor unit of both currencies.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
