package core

import "testing"

func sampleLedger() []Expense {
	return []Expense{
		{ID: "1", Name: "Coffee", Amount: Money{Cents: 500}, Category: Food, Date: NewDate(2024, 1, 1)},
		{ID: "2", Name: "Bus", Amount: Money{Cents: 250}, Category: Transport, Date: NewDate(2024, 1, 2)},
		{ID: "3", Name: "Lunch", Amount: Money{Cents: 1200}, Category: Food, Date: NewDate(2024, 1, 2)},
		{ID: "4", Name: "Coffee", Amount: Money{Cents: 500}, Category: Food, Date: NewDate(2024, 1, 1)},
	}
}

func TestParseSelector(t *testing.T) {
	for _, in := range []string{"", " ", "All"} {
		sel, err := ParseSelector(in)
		if err != nil || !sel.IsAll() {
			t.Fatalf("%q: expected All, got %q err=%v", in, sel, err)
		}
	}
	sel, err := ParseSelector("Transport")
	if err != nil || sel != SelectorFor(Transport) {
		t.Fatalf("expected Transport selector, got %q err=%v", sel, err)
	}
	if _, err := ParseSelector("Travel"); err == nil {
		t.Fatalf("expected error for unknown category")
	}
}

func TestFilterByCategory(t *testing.T) {
	ledger := sampleLedger()

	all := FilterByCategory(ledger, All)
	if len(all) != len(ledger) {
		t.Fatalf("All should return every record")
	}

	food := FilterByCategory(ledger, SelectorFor(Food))
	if len(food) != 3 || food[0].ID != "1" || food[1].ID != "3" || food[2].ID != "4" {
		t.Fatalf("unexpected food records: %+v", food)
	}

	if got := FilterByCategory(ledger, SelectorFor(Health)); len(got) != 0 {
		t.Fatalf("expected no health records, got %d", len(got))
	}
}

func TestResolveVisibleFollowsFilter(t *testing.T) {
	ledger := sampleLedger()
	// Row 0 of the Transport view is ledger position 1.
	pos, ok := ResolveVisible(ledger, SelectorFor(Transport), 0)
	if !ok || pos != 1 {
		t.Fatalf("expected position 1, got %d ok=%v", pos, ok)
	}
	// Row 1 of the Food view is Lunch at ledger position 2.
	pos, ok = ResolveVisible(ledger, SelectorFor(Food), 1)
	if !ok || pos != 2 {
		t.Fatalf("expected position 2, got %d ok=%v", pos, ok)
	}
}

func TestResolveVisibleDuplicateResolvesToFirst(t *testing.T) {
	ledger := sampleLedger()
	// The second Coffee is shown at Food row 2, but value resolution lands
	// on the first identical record.
	pos, ok := ResolveVisible(ledger, SelectorFor(Food), 2)
	if !ok || pos != 0 {
		t.Fatalf("expected first duplicate at 0, got %d ok=%v", pos, ok)
	}
	// The displayed record itself still carries its own ID.
	e, ok := VisibleAt(ledger, SelectorFor(Food), 2)
	if !ok || e.ID != "4" {
		t.Fatalf("expected record 4, got %+v", e)
	}
}

func TestResolveVisibleOutOfRange(t *testing.T) {
	ledger := sampleLedger()
	for _, idx := range []int{-1, 4, 100} {
		if _, ok := ResolveVisible(ledger, All, idx); ok {
			t.Fatalf("index %d should not resolve", idx)
		}
	}
	if _, ok := ResolveVisible(ledger, SelectorFor(Health), 0); ok {
		t.Fatalf("empty view should not resolve")
	}
}

func TestIndexOf(t *testing.T) {
	ledger := sampleLedger()
	if pos, ok := IndexOf(ledger, "3"); !ok || pos != 2 {
		t.Fatalf("expected 2, got %d ok=%v", pos, ok)
	}
	if _, ok := IndexOf(ledger, "missing"); ok {
		t.Fatalf("missing id should not resolve")
	}
	if _, ok := IndexOf(ledger, ""); ok {
		t.Fatalf("empty id should not resolve")
	}
}
