package http

import (
	"strconv"
	"strings"
	"time"

	"kakeibo/internal/core"
)

// formatAmount renders whole currency units with thousands separators,
// e.g. 1234567 becomes "1,234,567". The sign is kept for balances.
func formatAmount(units int64) string {
	neg := units < 0
	if neg {
		units = -units
	}
	s := strconv.FormatInt(units, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// periodKey is the cache key for a month's summary.
func periodKey(year, month int) string {
	return strconv.Itoa(year) + "-" + strconv.Itoa(month)
}

// yearKey is the cache key for a year's series.
func yearKey(year int) string {
	return strconv.Itoa(year)
}

// transactionInPeriod reports whether the transaction's date parses and
// falls inside the period. Unparseable dates are shown separately.
func transactionInPeriod(tx core.Transaction, year int, month int) bool {
	d, err := core.ParseDate(tx.Date)
	if err != nil {
		return false
	}
	return d.In(year, time.Month(month))
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
