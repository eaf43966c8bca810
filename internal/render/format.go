package render

import (
	"fmt"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

// DefaultSymbol is the currency symbol used when none is configured.
const DefaultSymbol = "₹"

// Formatter renders money and budget status as display text.
type Formatter struct {
	Symbol string
}

func NewFormatter(symbol string) Formatter {
	if symbol == "" {
		symbol = DefaultSymbol
	}
	return Formatter{Symbol: symbol}
}

// Money formats m with the currency symbol, e.g. "₹7.50".
func (f Formatter) Money(m core.Money) string {
	if m.Cents < 0 {
		return "-" + f.Symbol + m.Abs().String()
	}
	return f.Symbol + m.String()
}

// StatusLine describes the remaining budget or the overage. It is empty
// when no budget is set.
func (f Formatter) StatusLine(st core.BudgetStatus) string {
	switch st.Level {
	case core.StatusUnset:
		return ""
	case core.StatusOverBudget:
		return "Over budget by " + f.Money(st.Overage)
	default:
		left := decimal.NewFromInt(100).Sub(st.UsedPercent).Round(0)
		return fmt.Sprintf("%s remaining (%s%% left)", f.Money(st.Remaining), left.String())
	}
}

// ProgressLine is the caption of the budget progress bar.
func (f Formatter) ProgressLine(st core.BudgetStatus) string {
	if st.Level == core.StatusUnset {
		return "No budget set"
	}
	return fmt.Sprintf("%s%% used", st.UsedPercent.Round(0).String())
}

// ProgressWidth is the bar fill as a CSS percentage.
func ProgressWidth(st core.BudgetStatus) string {
	if st.Level == core.StatusUnset {
		return "0%"
	}
	return st.UsedPercent.StringFixed(2) + "%"
}

// ReminderLine describes a configured reminder. Nothing is ever sent.
func ReminderLine(r *core.Reminder) string {
	if r == nil {
		return "No reminder set"
	}
	return fmt.Sprintf("Reminder set for %s at %s", r.Email, r.Time)
}
