package core

import "github.com/shopspring/decimal"

// TotalOf sums the amounts of records. It is zero for an empty slice.
func TotalOf(records []Expense) Money {
	var total Money
	for _, e := range records {
		total = total.Add(e.Amount)
	}
	return total
}

// ByCategory returns one entry per category, in declaration order, including
// categories with a zero total.
func ByCategory(records []Expense) []CategoryAmount {
	sums := make(map[Category]Money, len(Categories))
	for _, e := range records {
		sums[e.Category] = sums[e.Category].Add(e.Amount)
	}
	out := make([]CategoryAmount, len(Categories))
	for i, c := range Categories {
		out[i] = CategoryAmount{Category: c, Amount: sums[c]}
	}
	return out
}

// BudgetStatusOf classifies total against budget. A zero budget is unset
// regardless of the total.
func BudgetStatusOf(total, budget Money) BudgetStatus {
	st := BudgetStatus{
		Level:       StatusUnset,
		Total:       total,
		Budget:      budget,
		UsedPercent: decimal.Zero,
	}
	if budget.Cents <= 0 {
		return st
	}

	used := total.Decimal().Div(budget.Decimal()).Mul(hundred)
	st.UsedPercent = decimal.Min(used, hundred)
	st.Remaining = budget.Sub(total)

	switch {
	case total.Cents > budget.Cents:
		st.Level = StatusOverBudget
		st.Overage = st.Remaining.Abs()
	case st.UsedPercent.GreaterThanOrEqual(WarningPercent):
		st.Level = StatusWarning
	default:
		st.Level = StatusNormal
	}
	return st
}
