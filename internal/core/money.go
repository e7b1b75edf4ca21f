// Package core holds the payment ledger's pure derivations.
//
// This file parses amounts typed by users and formats them the way the
// cashiers read them (Venezuelan bolivars, dot thousands, comma decimals).
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts user input to a positive decimal.
//
// Both dot (12.34) and comma (12,34) are accepted as the decimal separator.
// Signs, exponents, grouping separators and zero are rejected with
// ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("100")    -> 100
//	ParseAmount("12,5")   -> 12.5
//	ParseAmount("1.2.3")  -> ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatBs renders an amount as "Bs. 1.234,56".
func FormatBs(d decimal.Decimal) string {
	return "Bs. " + FormatNumber(d)
}

// FormatNumber renders an amount with two decimals, dot thousands and a
// decimal comma.
func FormatNumber(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}
