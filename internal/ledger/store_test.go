package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/storage"
	"expensetracker/internal/storage/memory"
)

func testLogger() *applog.Logger {
	return applog.New(applog.Config{Level: slog.LevelDebug, Output: &bytes.Buffer{}})
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func openStore(t *testing.T, blobs storage.BlobStore) (*Store, *storage.Gateway) {
	t.Helper()
	gw := storage.NewGateway(blobs, testLogger())
	s, err := Open(context.Background(), gw, testLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s.newID = sequentialIDs()
	return s, gw
}

func expense(name string, cents int64, c core.Category, day int) core.Expense {
	return core.Expense{Name: name, Amount: core.Money{Cents: cents}, Category: c, Date: core.NewDate(2024, 1, day)}
}

func TestAddAppendsInOrder(t *testing.T) {
	s, _ := openStore(t, memory.New())
	ctx := context.Background()

	names := []string{"Coffee", "Bus", "Cinema"}
	for i, n := range names {
		if _, err := s.Add(ctx, expense(n, int64(100*(i+1)), core.Other, 1)); err != nil {
			t.Fatalf("add %s: %v", n, err)
		}
	}

	got := s.List()
	if len(got) != len(names) {
		t.Fatalf("expected %d records, got %d", len(names), len(got))
	}
	for i, n := range names {
		if got[i].Name != n {
			t.Fatalf("position %d: expected %s, got %s", i, n, got[i].Name)
		}
		if got[i].ID == "" {
			t.Fatalf("position %d has no id", i)
		}
	}
}

func TestAddRejectsInvalidInputWithoutWriting(t *testing.T) {
	blobs := memory.New()
	s, _ := openStore(t, blobs)
	ctx := context.Background()

	tests := []struct {
		name string
		e    core.Expense
		want error
	}{
		{"blank name", expense("   ", 100, core.Food, 1), core.ErrEmptyName},
		{"zero amount", expense("Tea", 0, core.Food, 1), core.ErrInvalidAmount},
		{"negative amount", expense("Tea", -5, core.Food, 1), core.ErrInvalidAmount},
		{"unknown category", expense("Tea", 100, core.Category("Pets"), 1), core.ErrInvalidCategory},
		{"missing date", core.Expense{Name: "Tea", Amount: core.Money{Cents: 100}, Category: core.Food}, core.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Add(ctx, tt.e)
			if !errors.Is(err, tt.want) || !core.IsValidation(err) {
				t.Fatalf("expected validation error %v, got %v", tt.want, err)
			}
		})
	}

	if len(s.List()) != 0 {
		t.Fatalf("ledger changed after rejected adds")
	}
	if _, err := blobs.Get(ctx, storage.KeyExpenses); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("rejected adds must not write, got %v", err)
	}
}

func TestAddTrimsName(t *testing.T) {
	s, _ := openStore(t, memory.New())
	e, err := s.Add(context.Background(), expense("  Lunch  ", 1200, core.Food, 3))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if e.Name != "Lunch" || s.List()[0].Name != "Lunch" {
		t.Fatalf("expected trimmed name, got %q", e.Name)
	}
}

func TestUpdateKeepsPositionAndID(t *testing.T) {
	s, _ := openStore(t, memory.New())
	ctx := context.Background()

	a, _ := s.Add(ctx, expense("Coffee", 500, core.Food, 1))
	b, _ := s.Add(ctx, expense("Bus", 250, core.Transport, 2))
	c, _ := s.Add(ctx, expense("Movie", 1200, core.Entertainment, 3))

	ok, err := s.Update(ctx, b.ID, expense("Taxi", 1800, core.Transport, 2))
	if err != nil || !ok {
		t.Fatalf("update: ok=%v err=%v", ok, err)
	}

	got := s.List()
	if got[0].ID != a.ID || got[1].ID != b.ID || got[2].ID != c.ID {
		t.Fatalf("ids moved: %+v", got)
	}
	if got[1].Name != "Taxi" || got[1].Amount.Cents != 1800 {
		t.Fatalf("record not replaced: %+v", got[1])
	}
}

func TestUpdateUnknownIDIsSilent(t *testing.T) {
	s, _ := openStore(t, memory.New())
	ctx := context.Background()
	s.Add(ctx, expense("Coffee", 500, core.Food, 1))

	ok, err := s.Update(ctx, "missing", expense("Tea", 300, core.Food, 1))
	if err != nil || ok {
		t.Fatalf("expected silent no-op, got ok=%v err=%v", ok, err)
	}
	if s.List()[0].Name != "Coffee" {
		t.Fatalf("ledger changed")
	}
}

func TestUpdateRejectsInvalidFields(t *testing.T) {
	s, _ := openStore(t, memory.New())
	ctx := context.Background()
	a, _ := s.Add(ctx, expense("Coffee", 500, core.Food, 1))

	if _, err := s.Update(ctx, a.ID, expense("", 500, core.Food, 1)); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("expected empty name error, got %v", err)
	}
	if s.List()[0].Name != "Coffee" {
		t.Fatalf("ledger changed after rejected update")
	}
}

func TestDeleteRemovesExactlyOneDuplicate(t *testing.T) {
	s, _ := openStore(t, memory.New())
	ctx := context.Background()

	first, _ := s.Add(ctx, expense("Coffee", 500, core.Food, 1))
	s.Add(ctx, expense("Bus", 250, core.Transport, 1))
	second, _ := s.Add(ctx, expense("Coffee", 500, core.Food, 1))

	ok, err := s.Delete(ctx, second.ID)
	if err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}

	got := s.List()
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].ID != first.ID || got[1].Name != "Bus" {
		t.Fatalf("unexpected ledger after delete: %+v", got)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	blobs := memory.New()
	s, _ := openStore(t, blobs)
	ctx := context.Background()

	a, _ := s.Add(ctx, expense("Coffee", 500, core.Food, 1))
	if ok, err := s.Delete(ctx, a.ID); err != nil || !ok {
		t.Fatalf("first delete: ok=%v err=%v", ok, err)
	}
	before, _ := blobs.Get(ctx, storage.KeyExpenses)

	ok, err := s.Delete(ctx, a.ID)
	if err != nil || ok {
		t.Fatalf("second delete should be a no-op, got ok=%v err=%v", ok, err)
	}
	after, _ := blobs.Get(ctx, storage.KeyExpenses)
	if !bytes.Equal(before, after) {
		t.Fatalf("second delete rewrote storage")
	}
}

func TestResolveVisiblePicksFirstDuplicate(t *testing.T) {
	s, _ := openStore(t, memory.New())
	ctx := context.Background()

	first, _ := s.Add(ctx, expense("Coffee", 500, core.Food, 1))
	s.Add(ctx, expense("Bus", 250, core.Transport, 1))
	s.Add(ctx, expense("Coffee", 500, core.Food, 1))

	// Row 1 of the Food view is the second Coffee, yet it resolves to the first.
	got, ok := s.ResolveVisible(core.SelectorFor(core.Food), 1)
	if !ok || got.ID != first.ID {
		t.Fatalf("expected first coffee %s, got %+v ok=%v", first.ID, got, ok)
	}
	if _, ok := s.ResolveVisible(core.All, 3); ok {
		t.Fatalf("out of range row resolved")
	}
}

func TestCoffeeBusScenario(t *testing.T) {
	s, _ := openStore(t, memory.New())
	ctx := context.Background()

	if err := s.SetBudget(ctx, core.Money{Cents: 1000}); err != nil {
		t.Fatalf("budget: %v", err)
	}
	s.Add(ctx, expense("Coffee", 500, core.Food, 1))
	s.Add(ctx, expense("Bus", 250, core.Transport, 1))

	all := s.List()
	if total := core.TotalOf(all); total.Cents != 750 {
		t.Fatalf("expected total 7.50, got %s", total)
	}
	st := core.BudgetStatusOf(core.TotalOf(all), s.Budget())
	if st.Level != core.StatusNormal || st.Remaining.Cents != 250 || !st.UsedPercent.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("unexpected status %+v", st)
	}

	food := core.FilterByCategory(all, core.SelectorFor(core.Food))
	if len(food) != 1 || food[0].Name != "Coffee" {
		t.Fatalf("unexpected food view %+v", food)
	}
}

func TestStateSurvivesReopen(t *testing.T) {
	blobs := memory.New()
	s, _ := openStore(t, blobs)
	ctx := context.Background()

	a, _ := s.Add(ctx, expense("Coffee", 500, core.Food, 1))
	s.Add(ctx, expense("Bus", 250, core.Transport, 2))
	s.SetBudget(ctx, core.Money{Cents: 200000})
	s.SetReminder(ctx, core.Reminder{Email: " me@example.com ", Time: "21:30"})

	reopened, _ := openStore(t, blobs)
	got := reopened.List()
	if len(got) != 2 || got[0].ID != a.ID || got[0].Key() != a.Key() {
		t.Fatalf("ledger not restored: %+v", got)
	}
	if reopened.Budget().Cents != 200000 {
		t.Fatalf("budget not restored: %s", reopened.Budget())
	}
	r, ok := reopened.Reminder()
	if !ok || r.Email != "me@example.com" || r.Time != "21:30" {
		t.Fatalf("reminder not restored: %+v ok=%v", r, ok)
	}

	if err := reopened.ClearReminder(ctx); err != nil {
		t.Fatalf("clear reminder: %v", err)
	}
	again, _ := openStore(t, blobs)
	if _, ok := again.Reminder(); ok {
		t.Fatalf("reminder still present after clear")
	}
}

func TestOpenAssignsMissingAndDuplicateIDs(t *testing.T) {
	ctx := context.Background()
	blobs := memory.New()
	_ = blobs.Put(ctx, storage.KeyExpenses, []byte(`[
		{"name":"Coffee","amount":"5","category":"Food","date":"2024-01-01"},
		{"id":"x","name":"Bus","amount":"2.50","category":"Transport","date":"2024-01-02"},
		{"id":"x","name":"Taxi","amount":"9","category":"Transport","date":"2024-01-03"}
	]`))

	s, _ := openStore(t, blobs)
	got := s.List()
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	seen := map[string]bool{}
	for _, e := range got {
		if e.ID == "" || seen[e.ID] {
			t.Fatalf("id %q missing or repeated", e.ID)
		}
		seen[e.ID] = true
	}
	if got[1].ID != "x" {
		t.Fatalf("existing unique id was replaced: %q", got[1].ID)
	}

	// Assigned ids are written back, so a second open sees the same ones.
	again, _ := openStore(t, blobs)
	for i, e := range again.List() {
		if e.ID != got[i].ID {
			t.Fatalf("id of record %d not persisted", i)
		}
	}
}

func TestSetBudgetValidation(t *testing.T) {
	s, _ := openStore(t, memory.New())
	ctx := context.Background()

	if err := s.SetBudget(ctx, core.Money{Cents: -1}); !errors.Is(err, core.ErrNegativeBudget) {
		t.Fatalf("expected negative budget error, got %v", err)
	}
	if err := s.SetBudget(ctx, core.Money{}); err != nil {
		t.Fatalf("zero budget should clear, got %v", err)
	}
}

func TestSetReminderValidation(t *testing.T) {
	s, _ := openStore(t, memory.New())
	err := s.SetReminder(context.Background(), core.Reminder{Email: "nope", Time: "20:00"})
	if !errors.Is(err, core.ErrInvalidReminder) {
		t.Fatalf("expected invalid reminder, got %v", err)
	}
	if _, ok := s.Reminder(); ok {
		t.Fatalf("invalid reminder stored")
	}
}

type flakyPersister struct {
	*storage.Gateway
	fail error
}

func (f *flakyPersister) SaveExpenses(ctx context.Context, e []core.Expense) error {
	if f.fail != nil {
		return f.fail
	}
	return f.Gateway.SaveExpenses(ctx, e)
}

func (f *flakyPersister) SaveBudget(ctx context.Context, b core.Money) error {
	if f.fail != nil {
		return f.fail
	}
	return f.Gateway.SaveBudget(ctx, b)
}

func TestFailedWriteLeavesMemoryUnchanged(t *testing.T) {
	ctx := context.Background()
	p := &flakyPersister{Gateway: storage.NewGateway(memory.New(), testLogger())}
	s, err := Open(ctx, p, testLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	a, err := s.Add(ctx, expense("Coffee", 500, core.Food, 1))
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	p.fail = errors.New("disk full")

	if _, err := s.Add(ctx, expense("Bus", 250, core.Transport, 1)); !errors.Is(err, p.fail) {
		t.Fatalf("expected write error, got %v", err)
	}
	if _, err := s.Update(ctx, a.ID, expense("Tea", 300, core.Food, 1)); !errors.Is(err, p.fail) {
		t.Fatalf("expected write error, got %v", err)
	}
	if _, err := s.Delete(ctx, a.ID); !errors.Is(err, p.fail) {
		t.Fatalf("expected write error, got %v", err)
	}
	if err := s.SetBudget(ctx, core.Money{Cents: 100}); !errors.Is(err, p.fail) {
		t.Fatalf("expected write error, got %v", err)
	}

	got := s.List()
	if len(got) != 1 || got[0].Name != "Coffee" {
		t.Fatalf("memory diverged from storage: %+v", got)
	}
	if !s.Budget().IsZero() {
		t.Fatalf("budget changed after failed write")
	}
}
