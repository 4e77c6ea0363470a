package http

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestParsePeriodParams(t *testing.T) {
	tests := []struct {
		name      string
		values    url.Values
		wantYear  int
		wantMonth int
	}{
		{"both present", url.Values{"year": {"2025"}, "month": {"7"}}, 2025, 7},
		{"missing month", url.Values{"year": {"2025"}}, 2025, 3},
		{"missing both", url.Values{}, 2026, 3},
		{"garbage year", url.Values{"year": {"abc"}, "month": {"7"}}, 2026, 7},
		{"whitespace", url.Values{"year": {" 2024 "}, "month": {" 11 "}}, 2024, 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePeriodParams(tt.values, 2026, time.March)
			if got.Year != tt.wantYear || got.Month != tt.wantMonth {
				t.Errorf("got %d-%d, want %d-%d", got.Year, got.Month, tt.wantYear, tt.wantMonth)
			}
		})
	}
}

func TestTransactionFormValidate(t *testing.T) {
	tests := []struct {
		name    string
		form    TransactionForm
		wantErr bool
	}{
		{"valid", TransactionForm{Date: "2026-03-05", Category: "Food", Amount: "1200"}, false},
		{"valid freeform date", TransactionForm{Date: "next week", Category: "Food", Amount: "10"}, false},
		{"blank date", TransactionForm{Date: " ", Category: "Food", Amount: "10"}, true},
		{"blank category", TransactionForm{Date: "2026-01-01", Category: "", Amount: "10"}, true},
		{"zero amount", TransactionForm{Date: "2026-01-01", Category: "Food", Amount: "0"}, true},
		{"signed amount", TransactionForm{Date: "2026-01-01", Category: "Food", Amount: "-5"}, true},
		{"textual amount", TransactionForm{Date: "2026-01-01", Category: "Food", Amount: "ten"}, true},
		{"decimal amount", TransactionForm{Date: "2026-01-01", Category: "Food", Amount: "12.6"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.form.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTransactionFormToEntry(t *testing.T) {
	form := TransactionForm{Date: "2026-03-05", Category: "Food", Amount: "12.6", Memo: "lunch"}
	entry, err := form.ToEntry()
	if err != nil {
		t.Fatalf("ToEntry: %v", err)
	}
	if entry.Amount != 13 {
		t.Errorf("amount = %d, want 13 (half-up)", entry.Amount)
	}
	if entry.Memo != "lunch" {
		t.Errorf("memo = %q", entry.Memo)
	}
}

func TestRequestBodyParserJSON(t *testing.T) {
	req := httptest.NewRequest("POST", "/transactions/delete", strings.NewReader(`{"id": 1700000000123}`))
	req.Header.Set("Content-Type", "application/json")

	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !p.IsJSON() {
		t.Error("expected JSON detection")
	}
	id, err := p.GetID()
	if err != nil {
		t.Fatalf("GetID: %v", err)
	}
	if id != 1700000000123 {
		t.Errorf("id = %d", id)
	}
}

func TestRequestBodyParserForm(t *testing.T) {
	req := httptest.NewRequest("POST", "/transactions/delete", strings.NewReader("id=42&extra=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.IsJSON() {
		t.Error("form body detected as JSON")
	}
	id, err := p.GetID()
	if err != nil {
		t.Fatalf("GetID: %v", err)
	}
	if id != 42 {
		t.Errorf("id = %d, want 42", id)
	}
}

func TestRequestBodyParserBadJSON(t *testing.T) {
	req := httptest.NewRequest("POST", "/x", strings.NewReader(`{"id": `))
	p := NewRequestBodyParser(req)
	if err := p.Parse(); err == nil {
		t.Error("expected parse error for truncated JSON")
	}
}

func TestRequestBodyParserEmptyBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/x", strings.NewReader(""))
	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := p.GetID(); err == nil {
		t.Error("expected GetID error on empty body")
	}
}
