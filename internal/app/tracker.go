// Package app sequences every user action: mutate the ledger, persist,
// recompute the view and present it.
package app

import (
	"context"
	"sync"

	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/ledger"
	applog "expensetracker/internal/log"
	"expensetracker/internal/render"
)

// Tracker drives the ledger store and the presenters. Mutations are
// serialized so that each presented view reflects exactly one write.
// Presenters run after mu is released, so a slow presenter never holds up
// readers.
type Tracker struct {
	mu        sync.Mutex
	store     *ledger.Store
	presenter render.Presenter
	views     cache.Cache[render.View]
	logger    *applog.Logger
	events    *applog.StructuredLogger
	seq       uint64 // guarded by mu

	presentMu sync.Mutex
	presented uint64 // guarded by presentMu
}

// New wires a tracker. A nil presenter discards views and a nil cache
// disables view caching.
func New(store *ledger.Store, presenter render.Presenter, views cache.Cache[render.View], logger *applog.Logger) *Tracker {
	if presenter == nil {
		presenter = render.Discard
	}
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	logger = logger.WithComponent(applog.ComponentTracker)
	return &Tracker{
		store:     store,
		presenter: presenter,
		views:     views,
		logger:    logger,
		events:    applog.NewStructuredLogger(logger),
	}
}

// View returns the current view for sel without presenting it. Views are
// cached and shared, so callers must treat them as read-only.
func (t *Tracker) View(sel core.Selector) render.View {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.view(sel)
}

// view must be called with t.mu held, so that a view built from old state
// is never cached after a mutation purged the cache.
func (t *Tracker) view(sel core.Selector) render.View {
	if sel == "" {
		sel = core.All
	}
	key := sel.String()
	if t.views != nil {
		if v, ok := t.views.Get(key); ok {
			return v
		}
	}

	reminder := t.reminder()
	v := render.Build(t.store.List(), t.store.Budget(), reminder, sel)
	if t.views != nil {
		t.views.Set(key, v)
	}
	return v
}

// apply runs fn under mu and builds the view for sel. When fn reports a
// change the view is presented once mu has been released.
func (t *Tracker) apply(ctx context.Context, sel core.Selector, fn func() (bool, error)) (render.View, bool, error) {
	t.mu.Lock()
	changed, err := fn()
	if err != nil {
		t.mu.Unlock()
		return render.View{}, false, err
	}
	v := t.view(sel)
	var seq uint64
	if changed {
		t.seq++
		seq = t.seq
	}
	t.mu.Unlock()

	if changed {
		t.present(ctx, v, seq)
	}
	return v, changed, nil
}

// Expenses returns the whole ledger in insertion order.
func (t *Tracker) Expenses() []core.Expense {
	return t.store.List()
}

// Filter presents and returns the view for sel.
func (t *Tracker) Filter(ctx context.Context, sel core.Selector) render.View {
	v, _, _ := t.apply(ctx, sel, func() (bool, error) {
		t.logger.DebugContext(ctx, "Filter applied",
			applog.FieldOperation, applog.OpFilter,
			applog.FieldSelector, sel.String())
		return true, nil
	})
	return v
}

// AddExpense appends e and presents the refreshed view for sel.
func (t *Tracker) AddExpense(ctx context.Context, e core.Expense, sel core.Selector) (core.Expense, render.View, error) {
	var created core.Expense
	v, _, err := t.apply(ctx, sel, func() (bool, error) {
		var err error
		created, err = t.store.Add(ctx, e)
		if err != nil {
			return false, t.failed(ctx, applog.OpCreate, err)
		}
		t.changed(ctx, applog.OpCreate, created)
		return true, nil
	})
	if err != nil {
		return core.Expense{}, render.View{}, err
	}
	return created, v, nil
}

// UpdateExpense replaces the record with the given ID. An unknown ID
// changes nothing and reports false.
func (t *Tracker) UpdateExpense(ctx context.Context, id string, fields core.Expense, sel core.Selector) (bool, render.View, error) {
	v, ok, err := t.apply(ctx, sel, func() (bool, error) {
		return t.updateLocked(ctx, id, fields)
	})
	return ok, v, err
}

func (t *Tracker) updateLocked(ctx context.Context, id string, fields core.Expense) (bool, error) {
	ok, err := t.store.Update(ctx, id, fields)
	if err != nil {
		return false, t.failed(ctx, applog.OpUpdate, err)
	}
	if !ok {
		return false, nil
	}
	fields.ID = id
	t.changed(ctx, applog.OpUpdate, fields.Normalize())
	return true, nil
}

// DeleteExpense removes the record with the given ID. An unknown ID
// changes nothing and reports false.
func (t *Tracker) DeleteExpense(ctx context.Context, id string, sel core.Selector) (bool, render.View, error) {
	v, ok, err := t.apply(ctx, sel, func() (bool, error) {
		return t.deleteLocked(ctx, id)
	})
	return ok, v, err
}

func (t *Tracker) deleteLocked(ctx context.Context, id string) (bool, error) {
	var target core.Expense
	list := t.store.List()
	if i, found := core.IndexOf(list, id); found {
		target = list[i]
	}

	ok, err := t.store.Delete(ctx, id)
	if err != nil {
		return false, t.failed(ctx, applog.OpDelete, err)
	}
	if !ok {
		return false, nil
	}
	t.changed(ctx, applog.OpDelete, target)
	return true, nil
}

// DeleteVisible deletes the record shown at row of the view for sel, matched
// by value. With identical records the first one in the ledger is removed.
func (t *Tracker) DeleteVisible(ctx context.Context, sel core.Selector, row int) (bool, render.View, error) {
	v, ok, err := t.apply(ctx, sel, func() (bool, error) {
		target, ok := t.store.ResolveVisible(sel, row)
		if !ok {
			return false, nil
		}
		return t.deleteLocked(ctx, target.ID)
	})
	return ok, v, err
}

// EditVisible replaces the record shown at row of the view for sel, matched
// by value like DeleteVisible.
func (t *Tracker) EditVisible(ctx context.Context, sel core.Selector, row int, fields core.Expense) (bool, render.View, error) {
	v, ok, err := t.apply(ctx, sel, func() (bool, error) {
		target, ok := t.store.ResolveVisible(sel, row)
		if !ok {
			return false, nil
		}
		return t.updateLocked(ctx, target.ID, fields)
	})
	return ok, v, err
}

func (t *Tracker) SetBudget(ctx context.Context, amount core.Money, sel core.Selector) (render.View, error) {
	v, _, err := t.apply(ctx, sel, func() (bool, error) {
		if err := t.store.SetBudget(ctx, amount); err != nil {
			return false, t.failed(ctx, applog.OpBudget, err)
		}
		t.logger.InfoContext(ctx, "Budget updated",
			applog.FieldOperation, applog.OpBudget,
			applog.FieldBudgetCents, amount.Cents)
		t.invalidate()
		return true, nil
	})
	return v, err
}

func (t *Tracker) SetReminder(ctx context.Context, r core.Reminder, sel core.Selector) (render.View, error) {
	v, _, err := t.apply(ctx, sel, func() (bool, error) {
		if err := t.store.SetReminder(ctx, r); err != nil {
			return false, t.failed(ctx, applog.OpReminder, err)
		}
		t.logger.InfoContext(ctx, "Reminder set", applog.FieldOperation, applog.OpReminder)
		t.invalidate()
		return true, nil
	})
	return v, err
}

func (t *Tracker) ClearReminder(ctx context.Context, sel core.Selector) (render.View, error) {
	v, _, err := t.apply(ctx, sel, func() (bool, error) {
		if err := t.store.ClearReminder(ctx); err != nil {
			return false, t.failed(ctx, applog.OpReminder, err)
		}
		t.logger.InfoContext(ctx, "Reminder cleared", applog.FieldOperation, applog.OpReminder)
		t.invalidate()
		return true, nil
	})
	return v, err
}

func (t *Tracker) reminder() *core.Reminder {
	r, ok := t.store.Reminder()
	if !ok {
		return nil
	}
	return &r
}

func (t *Tracker) invalidate() {
	if t.views != nil {
		t.views.Purge()
	}
}

func (t *Tracker) changed(ctx context.Context, op string, e core.Expense) {
	t.invalidate()
	t.events.LogExpenseChange(ctx, op, e.ID, e.Name, e.Amount.Cents, string(e.Category))
}

// failed logs infrastructure errors. Validation errors are returned to the
// caller untouched and logged at debug only.
func (t *Tracker) failed(ctx context.Context, op string, err error) error {
	if core.IsValidation(err) {
		t.logger.DebugContext(ctx, "Rejected invalid input",
			applog.FieldOperation, op,
			applog.FieldErrorType, applog.ErrorTypeValidation,
			applog.FieldError, err)
		return err
	}
	t.events.LogError(ctx, "Mutation failed", err, applog.ComponentTracker, op, nil)
	return err
}

// present hands v to the presenter. Presentations are serialized and a view
// older than one already presented is dropped, so presenters never go back
// in time. The write has already succeeded, so presenter errors are logged
// and not returned.
func (t *Tracker) present(ctx context.Context, v render.View, seq uint64) {
	t.presentMu.Lock()
	defer t.presentMu.Unlock()

	if seq <= t.presented {
		t.logger.DebugContext(ctx, "Skipping superseded view", applog.FieldOperation, applog.OpRender)
		return
	}
	t.presented = seq
	if err := t.presenter.Present(ctx, v); err != nil {
		t.events.LogError(ctx, "Presenting view failed", err, applog.ComponentRender, applog.OpRender, nil)
	}
}
