package core

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// DateLayout is the calendar date format used on the wire and in forms.
const DateLayout = "2006-01-02"

const (
	Food          Category = "Food"
	Transport     Category = "Transport"
	Entertainment Category = "Entertainment"
	Shopping      Category = "Shopping"
	Bills         Category = "Bills"
	Health        Category = "Health"
	Other         Category = "Other"
)

// Categories lists every category in declaration order. Aggregations and
// reports always follow this order.
var Categories = []Category{Food, Transport, Entertainment, Shopping, Bills, Health, Other}

type (
	Category string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Expense is a single ledger record. ID is assigned by the ledger when the
	// record is created; the remaining fields are user input.
	Expense struct {
		ID       string
		Name     string
		Amount   Money
		Category Category
		Date     Date
	}

	// Key is the value identity of an expense. Two records with the same
	// key are indistinguishable without their ID.
	Key struct {
		Name     string
		Cents    int64
		Category Category
		Date     string
	}

	// Reminder is display-only state; nothing is ever sent.
	Reminder struct {
		Email string
		Time  string // HH:MM
	}
)

var (
	ErrEmptyName       = errors.New("empty name")
	ErrNameTooLong     = errors.New("name too long (max 200 characters)")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidDate     = errors.New("invalid date")
	ErrNegativeBudget  = errors.New("budget cannot be negative")
	ErrInvalidReminder = errors.New("invalid reminder")
)

// ValidationError reports user input that fails a precondition. Nothing is
// mutated or persisted when one is returned.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ParseCategory maps a category name to its Category. Matching is exact
// except for surrounding whitespace.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.TrimSpace(s))
	if !c.Valid() {
		return "", invalid("category", fmt.Errorf("%w: %q", ErrInvalidCategory, s))
	}
	return c, nil
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// Label is the human readable name shown in tables, charts and reports.
func (c Category) Label() string {
	switch c {
	case Food:
		return "Food & Dining"
	case Bills:
		return "Bills & Utilities"
	case Health:
		return "Healthcare"
	default:
		return string(c)
	}
}

// Color is the chart colour assigned to the category.
func (c Category) Color() string {
	switch c {
	case Food:
		return "#667eea"
	case Transport:
		return "#764ba2"
	case Entertainment:
		return "#f093fb"
	case Shopping:
		return "#f5576c"
	case Bills:
		return "#4facfe"
	case Health:
		return "#00f2fe"
	default:
		return "#43e97b"
	}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, invalid("date", fmt.Errorf("%w: %q", ErrInvalidDate, s))
	}
	return Date{Time: t}, nil
}

// Today returns the current calendar date in UTC.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Validate checks the user supplied fields. The ID is not inspected.
func (e Expense) Validate() error {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return invalid("name", ErrEmptyName)
	}
	if len(name) > 200 {
		return invalid("name", ErrNameTooLong)
	}
	if err := e.Amount.Validate(); err != nil {
		return invalid("amount", err)
	}
	if !e.Category.Valid() {
		return invalid("category", ErrInvalidCategory)
	}
	if err := e.Date.Validate(); err != nil {
		return invalid("date", err)
	}
	return nil
}

// Normalize trims the name. Stored records are always normalized.
func (e Expense) Normalize() Expense {
	e.Name = strings.TrimSpace(e.Name)
	return e
}

func (e Expense) Key() Key {
	return Key{
		Name:     e.Name,
		Cents:    e.Amount.Cents,
		Category: e.Category,
		Date:     e.Date.String(),
	}
}

// ValidateBudget accepts zero (unset) and any positive amount.
func ValidateBudget(m Money) error {
	if m.Cents < 0 {
		return invalid("budget", ErrNegativeBudget)
	}
	return nil
}

func (r Reminder) Validate() error {
	if _, err := mail.ParseAddress(strings.TrimSpace(r.Email)); err != nil {
		return invalid("email", fmt.Errorf("%w: email %q", ErrInvalidReminder, r.Email))
	}
	if _, err := time.Parse("15:04", strings.TrimSpace(r.Time)); err != nil {
		return invalid("time", fmt.Errorf("%w: time %q", ErrInvalidReminder, r.Time))
	}
	return nil
}
