// Package aggregate derives monthly and yearly figures from the raw
// transaction list. All functions are pure over their input slice; the
// ledger store is never consulted.
package aggregate

import (
	"log/slog"
	"sort"
	"time"

	"kakeibo/internal/core"
	"kakeibo/internal/log"
)

// Engine computes period summaries. The zero value is not usable; use New.
type Engine struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Engine {
	return &Engine{logger: logger.With(log.FieldComponent, log.ComponentAggregate)}
}

// MonthlyTotals sums income, expense and balance for one month. Expense
// is reported as a positive total. Transactions whose date no longer
// parses are skipped, not counted, and logged once per call site.
func (e *Engine) MonthlyTotals(txs []core.Transaction, year int, month time.Month) core.MonthlySummary {
	s := core.MonthlySummary{Year: year, Month: month}
	for _, tx := range txs {
		d, err := core.ParseDate(tx.Date)
		if err != nil {
			e.warnBadDate(tx)
			continue
		}
		if !d.In(year, month) {
			continue
		}
		if tx.IsIncome() {
			s.Income += tx.Amount
		} else {
			s.Expense += tx.Magnitude()
		}
	}
	s.Balance = s.Income - s.Expense
	return s
}

// CategoryBreakdown totals the month's expenses by category, income
// excluded. Amounts are absolute. Categories come back in ascending
// code point order so the listing is stable across calls.
func (e *Engine) CategoryBreakdown(txs []core.Transaction, year int, month time.Month) []core.CategoryAmount {
	totals := make(map[string]int64)
	for _, tx := range txs {
		if tx.IsIncome() {
			continue
		}
		d, err := core.ParseDate(tx.Date)
		if err != nil {
			e.warnBadDate(tx)
			continue
		}
		if !d.In(year, month) {
			continue
		}
		totals[tx.Category] += tx.Magnitude()
	}
	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]core.CategoryAmount, 0, len(names))
	for _, name := range names {
		out = append(out, core.CategoryAmount{Name: name, Amount: totals[name]})
	}
	return out
}

// YearlySeries builds the twelve-month income/expense arrays for one
// year plus the year-wide category expense totals. Months without
// transactions stay zero.
func (e *Engine) YearlySeries(txs []core.Transaction, year int) core.YearlySeries {
	series := core.YearlySeries{Year: year}
	totals := make(map[string]int64)
	for _, tx := range txs {
		d, err := core.ParseDate(tx.Date)
		if err != nil {
			e.warnBadDate(tx)
			continue
		}
		if d.Year() != year {
			continue
		}
		idx := int(d.Month()) - 1
		if tx.IsIncome() {
			series.MonthlyIncome[idx] += tx.Amount
		} else {
			series.MonthlyExpense[idx] += tx.Magnitude()
			totals[tx.Category] += tx.Magnitude()
		}
	}
	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		series.CategoryTotals = append(series.CategoryTotals, core.CategoryAmount{Name: name, Amount: totals[name]})
	}
	return series
}

func (e *Engine) warnBadDate(tx core.Transaction) {
	e.logger.Warn("skipping transaction with unparseable date",
		log.FieldTransactionID, tx.ID,
		log.FieldDate, tx.Date)
}
