// Package storage persists the ledger, the budget and the reminder under
// three fixed keys of a BlobStore.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

const (
	KeyExpenses = "expenses"
	KeyBudget   = "budget"
	KeyReminder = "reminder"
)

// State is everything the gateway persists.
type State struct {
	Expenses []core.Expense
	Budget   core.Money
	Reminder *core.Reminder
}

type expenseRecord struct {
	ID       string          `json:"id,omitempty"`
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	Date     string          `json:"date"`
}

type reminderRecord struct {
	Email string `json:"email"`
	Time  string `json:"time"`
}

// Gateway loads and saves tracker state. Malformed blobs are never fatal:
// each key falls back to its default and a warning is logged.
type Gateway struct {
	blobs  BlobStore
	logger *applog.Logger
}

func NewGateway(blobs BlobStore, logger *applog.Logger) *Gateway {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	return &Gateway{blobs: blobs, logger: logger.WithComponent(applog.ComponentStorage)}
}

// Load reads each key independently. Only transport errors of the blob
// store are returned.
func (g *Gateway) Load(ctx context.Context) (State, error) {
	var st State

	raw, err := g.get(ctx, KeyExpenses)
	if err != nil {
		return State{}, err
	}
	st.Expenses = g.decodeExpenses(ctx, raw)

	raw, err = g.get(ctx, KeyBudget)
	if err != nil {
		return State{}, err
	}
	st.Budget = g.decodeBudget(ctx, raw)

	raw, err = g.get(ctx, KeyReminder)
	if err != nil {
		return State{}, err
	}
	st.Reminder = g.decodeReminder(ctx, raw)

	g.logger.DebugContext(ctx, "State loaded",
		applog.FieldOperation, applog.OpLoad,
		"expenses", len(st.Expenses),
		"budget_cents", st.Budget.Cents,
		"has_reminder", st.Reminder != nil)

	return st, nil
}

func (g *Gateway) SaveExpenses(ctx context.Context, expenses []core.Expense) error {
	records := make([]expenseRecord, len(expenses))
	for i, e := range expenses {
		records[i] = expenseRecord{
			ID:       e.ID,
			Name:     e.Name,
			Amount:   e.Amount.Decimal(),
			Category: string(e.Category),
			Date:     e.Date.String(),
		}
	}
	body, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode expenses: %w", err)
	}
	return g.put(ctx, KeyExpenses, body)
}

func (g *Gateway) SaveBudget(ctx context.Context, budget core.Money) error {
	return g.put(ctx, KeyBudget, []byte(budget.String()))
}

// SaveReminder stores r, or removes the key when r is nil.
func (g *Gateway) SaveReminder(ctx context.Context, r *core.Reminder) error {
	if r == nil {
		return g.DeleteReminder(ctx)
	}
	body, err := json.Marshal(reminderRecord{Email: r.Email, Time: r.Time})
	if err != nil {
		return fmt.Errorf("encode reminder: %w", err)
	}
	return g.put(ctx, KeyReminder, body)
}

func (g *Gateway) DeleteReminder(ctx context.Context) error {
	if err := g.blobs.Delete(ctx, KeyReminder); err != nil {
		return fmt.Errorf("delete %s: %w", KeyReminder, err)
	}
	return nil
}

func (g *Gateway) get(ctx context.Context, key string) ([]byte, error) {
	raw, err := g.blobs.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return raw, nil
}

func (g *Gateway) put(ctx context.Context, key string, body []byte) error {
	if err := g.blobs.Put(ctx, key, body); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	g.logger.DebugContext(ctx, "Key written",
		applog.FieldOperation, applog.OpSave,
		"key", key,
		"bytes", len(body))
	return nil
}

func (g *Gateway) corrupt(ctx context.Context, key string, err error) {
	g.logger.WarnContext(ctx, "Ignoring malformed stored value, using default",
		"key", key,
		applog.FieldErrorType, applog.ErrorTypeCorruption,
		applog.FieldError, err)
}

func isNull(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func (g *Gateway) decodeExpenses(ctx context.Context, raw []byte) []core.Expense {
	if isNull(raw) {
		return []core.Expense{}
	}
	var records []expenseRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		g.corrupt(ctx, KeyExpenses, err)
		return []core.Expense{}
	}

	out := make([]core.Expense, 0, len(records))
	for i, r := range records {
		e, err := r.toExpense()
		if err != nil {
			g.logger.WarnContext(ctx, "Skipping invalid stored expense",
				"key", KeyExpenses,
				"index", i,
				applog.FieldError, err)
			continue
		}
		out = append(out, e)
	}
	return out
}

func (r expenseRecord) toExpense() (core.Expense, error) {
	c, err := core.ParseCategory(r.Category)
	if err != nil {
		return core.Expense{}, err
	}
	d, err := core.ParseDate(r.Date)
	if err != nil {
		return core.Expense{}, err
	}
	amount, err := core.MoneyFromDecimal(r.Amount)
	if err != nil {
		return core.Expense{}, err
	}
	e := core.Expense{
		ID:       strings.TrimSpace(r.ID),
		Name:     r.Name,
		Amount:   amount,
		Category: c,
		Date:     d,
	}.Normalize()
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func (g *Gateway) decodeBudget(ctx context.Context, raw []byte) core.Money {
	if isNull(raw) {
		return core.Money{}
	}
	d, err := decimal.NewFromString(strings.TrimSpace(string(raw)))
	if err != nil {
		g.corrupt(ctx, KeyBudget, err)
		return core.Money{}
	}
	m, err := core.MoneyFromDecimal(d)
	if err != nil {
		g.corrupt(ctx, KeyBudget, err)
		return core.Money{}
	}
	if err := core.ValidateBudget(m); err != nil {
		g.corrupt(ctx, KeyBudget, err)
		return core.Money{}
	}
	return m
}

func (g *Gateway) decodeReminder(ctx context.Context, raw []byte) *core.Reminder {
	if isNull(raw) {
		return nil
	}
	var rec reminderRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		g.corrupt(ctx, KeyReminder, err)
		return nil
	}
	r := core.Reminder{Email: rec.Email, Time: rec.Time}
	if err := r.Validate(); err != nil {
		g.corrupt(ctx, KeyReminder, err)
		return nil
	}
	return &r
}
