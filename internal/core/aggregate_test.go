package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func exp(name string, cents int64, c Category, d Date) Expense {
	return Expense{Name: name, Amount: Money{Cents: cents}, Category: c, Date: d}
}

func TestTotalOf(t *testing.T) {
	if got := TotalOf(nil); !got.IsZero() {
		t.Fatalf("expected zero total for empty input, got %s", got)
	}
	records := []Expense{
		exp("a", 500, Food, NewDate(2024, 1, 1)),
		exp("b", 250, Transport, NewDate(2024, 1, 2)),
		exp("c", 1, Other, NewDate(2024, 1, 3)),
	}
	if got := TotalOf(records); got.Cents != 751 {
		t.Fatalf("expected 751, got %d", got.Cents)
	}
}

func TestByCategoryOrderAndZeros(t *testing.T) {
	got := ByCategory([]Expense{exp("a", 100, Health, NewDate(2024, 1, 1))})
	if len(got) != len(Categories) {
		t.Fatalf("expected %d entries, got %d", len(Categories), len(got))
	}
	for i, ca := range got {
		if ca.Category != Categories[i] {
			t.Fatalf("entry %d: expected %s, got %s", i, Categories[i], ca.Category)
		}
		want := int64(0)
		if ca.Category == Health {
			want = 100
		}
		if ca.Amount.Cents != want {
			t.Fatalf("%s: expected %d, got %d", ca.Category, want, ca.Amount.Cents)
		}
	}
}

func TestTotalReconcilesWithCategories(t *testing.T) {
	sets := [][]Expense{
		nil,
		{exp("a", 1, Food, NewDate(2024, 1, 1))},
		{
			exp("a", 999, Food, NewDate(2024, 1, 1)),
			exp("b", 1, Food, NewDate(2024, 1, 1)),
			exp("c", 12345, Bills, NewDate(2024, 2, 1)),
			exp("d", 42, Entertainment, NewDate(2024, 3, 1)),
			exp("e", 7, Shopping, NewDate(2024, 3, 1)),
			exp("f", 3, Other, NewDate(2024, 3, 1)),
		},
	}
	for i, records := range sets {
		var sum Money
		for _, ca := range ByCategory(records) {
			sum = sum.Add(ca.Amount)
		}
		if sum != TotalOf(records) {
			t.Fatalf("set %d: categories sum to %s, total is %s", i, sum, TotalOf(records))
		}
	}
}

func money(units int64) Money {
	return Money{Cents: units * 100}
}

func TestBudgetStatusOf(t *testing.T) {
	tests := []struct {
		name        string
		total       Money
		budget      Money
		level       StatusLevel
		usedPercent int64
		remaining   Money
		overage     Money
	}{
		{"unset with spending", money(150), money(0), StatusUnset, 0, Money{}, Money{}},
		{"unset without spending", money(0), money(0), StatusUnset, 0, Money{}, Money{}},
		{"over budget", money(150), money(100), StatusOverBudget, 100, money(-50), money(50)},
		{"warning", money(85), money(100), StatusWarning, 85, money(15), Money{}},
		{"warning at threshold", money(80), money(100), StatusWarning, 80, money(20), Money{}},
		{"exactly at budget", money(100), money(100), StatusWarning, 100, money(0), Money{}},
		{"normal", money(50), money(100), StatusNormal, 50, money(50), Money{}},
		{"nothing spent", money(0), money(100), StatusNormal, 0, money(100), Money{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := BudgetStatusOf(tt.total, tt.budget)
			if st.Level != tt.level {
				t.Fatalf("level = %s, want %s", st.Level, tt.level)
			}
			if !st.UsedPercent.Equal(decimal.NewFromInt(tt.usedPercent)) {
				t.Fatalf("usedPercent = %s, want %d", st.UsedPercent, tt.usedPercent)
			}
			if st.Remaining != tt.remaining {
				t.Fatalf("remaining = %s, want %s", st.Remaining, tt.remaining)
			}
			if st.Overage != tt.overage {
				t.Fatalf("overage = %s, want %s", st.Overage, tt.overage)
			}
		})
	}
}

func TestBudgetStatusFractionalPercent(t *testing.T) {
	st := BudgetStatusOf(Money{Cents: 7999}, money(100))
	if st.Level != StatusNormal {
		t.Fatalf("79.99%% should be normal, got %s", st.Level)
	}
	if !st.UsedPercent.Equal(decimal.RequireFromString("79.99")) {
		t.Fatalf("usedPercent = %s", st.UsedPercent)
	}
}
