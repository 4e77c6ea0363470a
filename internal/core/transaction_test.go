package core

import (
	"errors"
	"testing"
)

func TestEntryValidate(t *testing.T) {
	good := Entry{Date: "2024-03-05", Category: "Food", Amount: 1000, Memo: "lunch"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	// An unparseable date is tolerated at this layer; only aggregation skips it.
	odd := Entry{Date: "not-a-date", Category: "Food", Amount: 1000}
	if err := odd.Validate(); err != nil {
		t.Fatalf("expected unparseable date to pass validation, got %v", err)
	}

	cases := []struct {
		name string
		e    Entry
		want error
	}{
		{"empty date", Entry{Category: "Food", Amount: 1}, ErrEmptyDate},
		{"blank date", Entry{Date: "  ", Category: "Food", Amount: 1}, ErrEmptyDate},
		{"empty category", Entry{Date: "2024-01-01", Amount: 1}, ErrEmptyCategory},
		{"zero amount", Entry{Date: "2024-01-01", Category: "Food"}, ErrInvalidAmount},
		{"negative amount", Entry{Date: "2024-01-01", Category: "Food", Amount: -5}, ErrInvalidAmount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.e.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestEntrySignedAmount(t *testing.T) {
	income := Entry{Date: "2024-03-05", Category: CategoryIncome, Amount: 5000}
	if got := income.SignedAmount(); got != 5000 {
		t.Fatalf("income amount = %d, want 5000", got)
	}
	expense := Entry{Date: "2024-03-05", Category: "Food", Amount: 1000}
	if got := expense.SignedAmount(); got != -1000 {
		t.Fatalf("expense amount = %d, want -1000", got)
	}
}

func TestTransactionMagnitude(t *testing.T) {
	tx := Transaction{Category: "Food", Amount: -1200}
	if tx.IsIncome() {
		t.Fatal("Food should not be income")
	}
	if got := tx.Magnitude(); got != 1200 {
		t.Fatalf("magnitude = %d, want 1200", got)
	}
	in := Transaction{Category: CategoryIncome, Amount: 800}
	if !in.IsIncome() || in.Magnitude() != 800 {
		t.Fatalf("income magnitude = %d, want 800", in.Magnitude())
	}
}
