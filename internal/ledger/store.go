// Package ledger owns the in-memory expense ledger, the budget and the
// reminder, and writes every change through to persistent storage.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/storage"
)

// Persister is the subset of storage.Gateway the store needs.
type Persister interface {
	Load(ctx context.Context) (storage.State, error)
	SaveExpenses(ctx context.Context, expenses []core.Expense) error
	SaveBudget(ctx context.Context, budget core.Money) error
	SaveReminder(ctx context.Context, r *core.Reminder) error
	DeleteReminder(ctx context.Context) error
}

// Store is the single owner of tracker state. Every mutation is written
// through the persister before it becomes visible in memory, so a failed
// write leaves both sides unchanged.
type Store struct {
	mu       sync.RWMutex
	persist  Persister
	logger   *applog.Logger
	expenses []core.Expense
	budget   core.Money
	reminder *core.Reminder
	newID    func() string
}

// Open loads the persisted state. Records stored without an ID, or sharing
// an ID with an earlier record, are given a fresh one and the ledger is
// written back.
func Open(ctx context.Context, p Persister, logger *applog.Logger) (*Store, error) {
	if logger == nil {
		logger = applog.FromContext(ctx)
	}
	st, err := p.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	s := &Store{
		persist:  p,
		logger:   logger.WithComponent(applog.ComponentLedger),
		expenses: st.Expenses,
		budget:   st.Budget,
		reminder: st.Reminder,
		newID:    uuid.NewString,
	}
	if s.expenses == nil {
		s.expenses = []core.Expense{}
	}

	if n := s.assignMissingIDs(); n > 0 {
		if err := p.SaveExpenses(ctx, s.expenses); err != nil {
			return nil, fmt.Errorf("save assigned ids: %w", err)
		}
		s.logger.InfoContext(ctx, "Assigned ids to stored expenses",
			applog.FieldOperation, applog.OpLoad,
			applog.FieldCount, n)
	}

	s.logger.InfoContext(ctx, "Ledger opened",
		applog.FieldOperation, applog.OpLoad,
		applog.FieldCount, len(s.expenses),
		applog.FieldBudgetCents, s.budget.Cents)
	return s, nil
}

func (s *Store) assignMissingIDs() int {
	seen := make(map[string]bool, len(s.expenses))
	n := 0
	for i := range s.expenses {
		id := s.expenses[i].ID
		if id == "" || seen[id] {
			id = s.newID()
			s.expenses[i].ID = id
			n++
		}
		seen[id] = true
	}
	return n
}

// Add validates e, gives it a new ID and appends it to the ledger.
func (s *Store) Add(ctx context.Context, e core.Expense) (core.Expense, error) {
	e = e.Normalize()
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = s.newID()
	next := make([]core.Expense, len(s.expenses), len(s.expenses)+1)
	copy(next, s.expenses)
	next = append(next, e)

	if err := s.persist.SaveExpenses(ctx, next); err != nil {
		return core.Expense{}, fmt.Errorf("save expenses: %w", err)
	}
	s.expenses = next
	return e, nil
}

// Update replaces the fields of the record with the given ID, keeping its
// position and ID. An unknown ID is not an error: it reports false and
// writes nothing.
func (s *Store) Update(ctx context.Context, id string, fields core.Expense) (bool, error) {
	fields = fields.Normalize()
	if err := fields.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := core.IndexOf(s.expenses, id)
	if !ok {
		s.logger.DebugContext(ctx, "Update target not found",
			applog.FieldOperation, applog.OpUpdate,
			applog.FieldExpenseID, id)
		return false, nil
	}

	fields.ID = id
	next := make([]core.Expense, len(s.expenses))
	copy(next, s.expenses)
	next[idx] = fields

	if err := s.persist.SaveExpenses(ctx, next); err != nil {
		return false, fmt.Errorf("save expenses: %w", err)
	}
	s.expenses = next
	return true, nil
}

// Delete removes the record with the given ID. Deleting an unknown ID
// reports false and writes nothing.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := core.IndexOf(s.expenses, id)
	if !ok {
		s.logger.DebugContext(ctx, "Delete target not found",
			applog.FieldOperation, applog.OpDelete,
			applog.FieldExpenseID, id)
		return false, nil
	}

	next := make([]core.Expense, 0, len(s.expenses)-1)
	next = append(next, s.expenses[:idx]...)
	next = append(next, s.expenses[idx+1:]...)

	if err := s.persist.SaveExpenses(ctx, next); err != nil {
		return false, fmt.Errorf("save expenses: %w", err)
	}
	s.expenses = next
	return true, nil
}

// List returns a copy of the ledger in insertion order.
func (s *Store) List() []core.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Expense, len(s.expenses))
	copy(out, s.expenses)
	return out
}

// ResolveVisible returns the record a row of the filtered view refers to
// when rows are matched by value. With identical records this is the first
// of them in the ledger, whichever row was picked.
func (s *Store) ResolveVisible(sel core.Selector, row int) (core.Expense, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := core.ResolveVisible(s.expenses, sel, row)
	if !ok {
		return core.Expense{}, false
	}
	return s.expenses[idx], true
}

func (s *Store) Budget() core.Money {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.budget
}

// SetBudget replaces the budget. Zero clears it; negative amounts are
// rejected.
func (s *Store) SetBudget(ctx context.Context, amount core.Money) error {
	if err := core.ValidateBudget(amount); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist.SaveBudget(ctx, amount); err != nil {
		return fmt.Errorf("save budget: %w", err)
	}
	s.budget = amount
	return nil
}

func (s *Store) Reminder() (core.Reminder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.reminder == nil {
		return core.Reminder{}, false
	}
	return *s.reminder, true
}

func (s *Store) SetReminder(ctx context.Context, r core.Reminder) error {
	r.Email = strings.TrimSpace(r.Email)
	r.Time = strings.TrimSpace(r.Time)
	if err := r.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist.SaveReminder(ctx, &r); err != nil {
		return fmt.Errorf("save reminder: %w", err)
	}
	s.reminder = &r
	return nil
}

func (s *Store) ClearReminder(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist.DeleteReminder(ctx); err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	s.reminder = nil
	return nil
}
