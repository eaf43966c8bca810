package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"expensetracker/internal/core"
)

// maxBodyBytes bounds every request body the handlers read.
const maxBodyBytes = 64 << 10

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
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
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	}
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

	if p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts a decoded JSON value to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ExpenseFromBody reads name, amount, category and date. A missing date
// means today.
func ExpenseFromBody(p *RequestBodyParser) (core.Expense, error) {
	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return core.Expense{}, err
	}
	category, err := core.ParseCategory(p.Get("category"))
	if err != nil {
		return core.Expense{}, err
	}
	date := core.Today()
	if v := p.Get("date"); v != "" {
		if date, err = core.ParseDate(v); err != nil {
			return core.Expense{}, err
		}
	}
	e := core.Expense{
		Name:     p.Get("name"),
		Amount:   amount,
		Category: category,
		Date:     date,
	}
	return e, e.Validate()
}

// ReminderFromBody reads the email and time fields.
func ReminderFromBody(p *RequestBodyParser) core.Reminder {
	return core.Reminder{Email: p.Get("email"), Time: p.Get("time")}
}

// SelectorParam reads the category filter from the "category" or "filter"
// query parameter, falling back to the "filter" body field that HTMX forms
// include. Unknown values select everything.
func SelectorParam(r *http.Request, p *RequestBodyParser) core.Selector {
	q := r.URL.Query()
	raw := q.Get("category")
	if raw == "" {
		raw = q.Get("filter")
	}
	if raw == "" && p != nil {
		raw = p.Get("filter")
	}
	sel, err := core.ParseSelector(raw)
	if err != nil {
		return core.All
	}
	return sel
}
