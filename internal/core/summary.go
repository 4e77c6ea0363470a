package core

import "time"

// CategoryAmount is an absolute expense total for one category.
type CategoryAmount struct {
	Name   string
	Amount int64
}

// MonthlySummary is the income/expense/balance roll-up for one month.
type MonthlySummary struct {
	Year    int
	Month   time.Month // 1-12
	Income  int64
	Expense int64
	Balance int64
}

// YearlySeries holds per-month totals for one year, indexed by month-1,
// plus year-wide expense totals by category.
type YearlySeries struct {
	Year           int
	MonthlyIncome  [12]int64
	MonthlyExpense [12]int64
	CategoryTotals []CategoryAmount
}
