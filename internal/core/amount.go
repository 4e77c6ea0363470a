// Package core holds the ledger's domain types: transactions, calendar
// dates, amounts and period summaries.
//
// This file contains amount parsing. Ledger amounts are whole currency
// units held as int64; form input may still carry a fractional part,
// which is rounded half-up.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseAmount converts the textual form value to a positive whole-unit
// amount. It accepts both dot (1200.5) and comma (1200,5) decimal
// separators and rounds half-up on the first fractional digit. Signed,
// zero, and non-numeric input is rejected with ErrInvalidAmount.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// The sign is derived from the category, never typed.
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	v, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if len(fracPart) > 0 && fracPart[0] >= '5' {
		v++
	}
	if v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}
