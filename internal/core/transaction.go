package core

import (
	"errors"
	"strings"
)

// CategoryIncome is the single income category. Every other category,
// built-in or user-defined, classifies an expense.
const CategoryIncome = "Income"

// BaseCategories is the built-in category set, offered before any
// user-defined categories are unioned in.
var BaseCategories = []string{
	CategoryIncome,
	"Food",
	"Daily Goods",
	"Transport",
	"Entertainment",
	"Social",
	"Clothing/Beauty",
	"Health",
	"Education",
	"Housing",
	"Utilities",
	"Communication",
	"Insurance",
	"Tax/Social-Insurance",
	"Other-Expense",
}

var (
	ErrEmptyDate     = errors.New("empty date")
	ErrInvalidDate   = errors.New("invalid date")
	ErrEmptyCategory = errors.New("empty category")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrNotFound      = errors.New("transaction not found")
)

// Transaction is the sole persisted entity of the ledger.
//
// Amount is signed: positive if and only if Category is CategoryIncome,
// negative for every expense category. The magnitude is always the amount
// the user entered. Date is kept as the stored string; records with dates
// that no longer parse stay in the ledger and are skipped by aggregation.
type Transaction struct {
	ID       int64  `json:"id"`
	Date     string `json:"date"`
	Category string `json:"category"`
	Amount   int64  `json:"amount"`
	Memo     string `json:"memo"`
}

// IsIncome reports whether the transaction carries the income category.
func (t Transaction) IsIncome() bool {
	return t.Category == CategoryIncome
}

// Magnitude returns the unsigned amount for display and form prefill.
func (t Transaction) Magnitude() int64 {
	if t.Amount < 0 {
		return -t.Amount
	}
	return t.Amount
}

// Entry is a submitted form payload before sign assignment and id
// allocation. Amount is the positive magnitude the user typed.
type Entry struct {
	Date     string
	Category string
	Amount   int64
	Memo     string
}

// Validate enforces the add/update preconditions: non-empty date and
// category, strictly positive amount. A date that does not parse as a
// calendar date is accepted here; it is excluded from aggregation instead.
func (e Entry) Validate() error {
	if strings.TrimSpace(e.Date) == "" {
		return ErrEmptyDate
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if e.Amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// SignedAmount applies the sign convention: income stays positive, every
// expense category is negated.
func (e Entry) SignedAmount() int64 {
	if e.Category == CategoryIncome {
		return e.Amount
	}
	return -e.Amount
}
