// Package http provides the HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request
// data: period extraction, the transaction entry form, and a body parser
// that accepts both JSON and form-encoded payloads from HTMX.

package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"kakeibo/internal/core"
	appvalidator "kakeibo/internal/validator"
)

// PeriodParams holds a parsed year/month pair from request parameters.
type PeriodParams struct {
	Year  int
	Month int
}

// ParsePeriodParams extracts year and month from query or form values,
// falling back to the given defaults for anything missing or malformed.
func ParsePeriodParams(values url.Values, defYear int, defMonth time.Month) PeriodParams {
	params := PeriodParams{
		Year:  defYear,
		Month: int(defMonth),
	}

	if v := strings.TrimSpace(values.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			params.Year = y
		}
	}
	if v := strings.TrimSpace(values.Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil {
			params.Month = m
		}
	}

	return params
}

// TransactionForm is the raw entry form as submitted. Amount stays a
// string until validation has passed so the parse error can be reported
// per field.
type TransactionForm struct {
	Date     string `validate:"required,notblank"`
	Category string `validate:"required,notblank"`
	Amount   string `validate:"required,amountstr"`
	Memo     string
}

// ParseTransactionForm reads the entry fields from the parsed form.
func ParseTransactionForm(form url.Values) TransactionForm {
	return TransactionForm{
		Date:     sanitizeInput(form.Get("date")),
		Category: sanitizeInput(form.Get("category")),
		Amount:   strings.TrimSpace(form.Get("amount")),
		Memo:     sanitizeInput(form.Get("memo")),
	}
}

// Validate runs the struct rules against the submitted form.
func (f TransactionForm) Validate() error {
	return appvalidator.Validate.Struct(f)
}

// ToEntry converts the validated form into a ledger entry. Validate must
// have passed first; the amount parse cannot fail after amountstr did.
func (f TransactionForm) ToEntry() (core.Entry, error) {
	amount, err := core.ParseAmount(f.Amount)
	if err != nil {
		return core.Entry{}, err
	}
	return core.Entry{
		Date:     f.Date,
		Category: f.Category,
		Amount:   amount,
		Memo:     f.Memo,
	}, nil
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	p.body, p.err = io.ReadAll(r.Body)
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if p.body[0] == '{' || p.body[0] == '[' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	// Fall back to form parsing
	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// GetID parses the "id" field as an int64.
func (p *RequestBodyParser) GetID() (int64, error) {
	return strconv.ParseInt(p.Get("id"), 10, 64)
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// RequireDeleteOrPOST is a convenience function for DELETE/POST handlers.
func RequireDeleteOrPOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodDelete, http.MethodPost)
}

// ParseFormOrFail parses the request form and returns an error response on failure.
// Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Invalid request format")
	}
	return nil
}
