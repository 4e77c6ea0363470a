package aggregate

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"kakeibo/internal/core"
)

func newTestEngine() *Engine {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestMonthlyTotals(t *testing.T) {
	e := newTestEngine()
	txs := []core.Transaction{
		{ID: 1, Date: "2024-03-05", Category: "Food", Amount: -1000},
		{ID: 2, Date: "2024-03-10", Category: core.CategoryIncome, Amount: 5000},
		{ID: 3, Date: "2024-04-01", Category: "Food", Amount: -700},
		{ID: 4, Date: "2023-03-15", Category: "Food", Amount: -900},
		{ID: 5, Date: "not-a-date", Category: "Food", Amount: -100},
	}

	got := e.MonthlyTotals(txs, 2024, time.March)
	if got.Income != 5000 || got.Expense != 1000 || got.Balance != 4000 {
		t.Fatalf("MonthlyTotals = %+v", got)
	}

	// Order of the input slice must not matter.
	for i, j := 0, len(txs)-1; i < j; i, j = i+1, j-1 {
		txs[i], txs[j] = txs[j], txs[i]
	}
	again := e.MonthlyTotals(txs, 2024, time.March)
	if again != got {
		t.Fatalf("order changed the result: %+v vs %+v", again, got)
	}
}

func TestMonthlyTotalsEmptyMonth(t *testing.T) {
	e := newTestEngine()
	got := e.MonthlyTotals(nil, 2024, time.June)
	if got.Income != 0 || got.Expense != 0 || got.Balance != 0 {
		t.Fatalf("empty month = %+v", got)
	}
	if got.Year != 2024 || got.Month != time.June {
		t.Fatalf("period labels = %+v", got)
	}
}

func TestMonthlyTotalsAcceptsSlashDates(t *testing.T) {
	e := newTestEngine()
	txs := []core.Transaction{
		{ID: 1, Date: "2024/3/5", Category: "Food", Amount: -250},
	}
	got := e.MonthlyTotals(txs, 2024, time.March)
	if got.Expense != 250 {
		t.Fatalf("slash-dated expense missed: %+v", got)
	}
}

func TestCategoryBreakdown(t *testing.T) {
	e := newTestEngine()
	txs := []core.Transaction{
		{ID: 1, Date: "2024-03-05", Category: "Food", Amount: -1000},
		{ID: 2, Date: "2024-03-06", Category: "Food", Amount: -500},
		{ID: 3, Date: "2024-03-07", Category: "Transport", Amount: -300},
		{ID: 4, Date: "2024-03-10", Category: core.CategoryIncome, Amount: 5000},
		{ID: 5, Date: "2024-04-01", Category: "Food", Amount: -999},
		{ID: 6, Date: "bogus", Category: "Food", Amount: -50},
	}

	got := e.CategoryBreakdown(txs, 2024, time.March)
	want := []core.CategoryAmount{
		{Name: "Food", Amount: 1500},
		{Name: "Transport", Amount: 300},
	}
	if len(got) != len(want) {
		t.Fatalf("breakdown = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("breakdown[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestCategoryBreakdownOrdering(t *testing.T) {
	e := newTestEngine()
	txs := []core.Transaction{
		{ID: 1, Date: "2024-03-01", Category: "b", Amount: -1},
		{ID: 2, Date: "2024-03-01", Category: "A", Amount: -1},
		{ID: 3, Date: "2024-03-01", Category: "a", Amount: -1},
	}
	got := e.CategoryBreakdown(txs, 2024, time.March)
	// Byte-wise ordering: uppercase sorts before lowercase.
	want := []string{"A", "a", "b"}
	for i, name := range want {
		if got[i].Name != name {
			t.Fatalf("position %d: got %q, want %q", i, got[i].Name, name)
		}
	}
}

func TestYearlySeries(t *testing.T) {
	e := newTestEngine()
	txs := []core.Transaction{
		{ID: 1, Date: "2024-01-15", Category: core.CategoryIncome, Amount: 3000},
		{ID: 2, Date: "2024-01-20", Category: "Food", Amount: -800},
		{ID: 3, Date: "2024-07-04", Category: "Transport", Amount: -120},
		{ID: 4, Date: "2024-07-05", Category: "Food", Amount: -200},
		{ID: 5, Date: "2023-07-05", Category: "Food", Amount: -999},
		{ID: 6, Date: "junk", Category: "Food", Amount: -5},
	}

	got := e.YearlySeries(txs, 2024)
	if got.MonthlyIncome[0] != 3000 || got.MonthlyExpense[0] != 800 {
		t.Fatalf("january = income %d expense %d", got.MonthlyIncome[0], got.MonthlyExpense[0])
	}
	if got.MonthlyExpense[6] != 320 {
		t.Fatalf("july expense = %d, want 320", got.MonthlyExpense[6])
	}
	for _, m := range []int{1, 2, 3, 4, 5, 7, 8, 9, 10, 11} {
		if got.MonthlyIncome[m] != 0 || got.MonthlyExpense[m] != 0 {
			t.Fatalf("month index %d should be zero", m)
		}
	}

	want := []core.CategoryAmount{
		{Name: "Food", Amount: 1000},
		{Name: "Transport", Amount: 120},
	}
	if len(got.CategoryTotals) != len(want) {
		t.Fatalf("category totals = %+v", got.CategoryTotals)
	}
	for i := range want {
		if got.CategoryTotals[i] != want[i] {
			t.Fatalf("category totals[%d] = %+v, want %+v", i, got.CategoryTotals[i], want[i])
		}
	}
}
