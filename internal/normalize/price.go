package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

// priceCleaner drops the currency symbol, blanks and thousands separators.
var priceCleaner = strings.NewReplacer(
	"R$", "",
	" ", "",
	"\u00a0", "",
	"\t", "",
	".", "",
)

// ParsePrice converts a Brazilian currency string such as "R$ 1.234,50"
// into a decimal. It returns zero for empty or malformed input.
func ParsePrice(raw string) decimal.Decimal {
	s := priceCleaner.Replace(strings.TrimSpace(raw))
	if s == "" {
		return decimal.Zero
	}
	s = strings.Replace(s, ",", ".", 1)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
