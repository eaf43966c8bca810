// Package render computes the derived view of the ledger and hands it to
// presenters.
package render

import (
	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

// View is everything a presenter needs to redraw the tracker.
type View struct {
	Selector core.Selector
	// Expenses are the rows visible under Selector, in ledger order.
	Expenses     []core.Expense
	VisibleTotal core.Money
	Chart        []ChartSlice
	Status       core.BudgetStatus
	Report       Report
	Reminder     *core.Reminder
}

// ChartSlice is one non-empty category of the spending chart.
type ChartSlice struct {
	Category core.Category
	Label    string
	Color    string
	Amount   core.Money
	Share    decimal.Decimal // percent of the total, one decimal
}

// Report is the printable breakdown of all spending.
type Report struct {
	Total core.Money
	Lines []ReportLine
}

type ReportLine struct {
	Category core.Category
	Label    string
	Amount   core.Money
}

// Build derives a View. The chart, the budget status and the report always
// cover the whole ledger; only the row list follows sel.
func Build(ledger []core.Expense, budget core.Money, reminder *core.Reminder, sel core.Selector) View {
	if sel == "" {
		sel = core.All
	}
	visible := core.FilterByCategory(ledger, sel)
	rows := make([]core.Expense, len(visible))
	copy(rows, visible)

	total := core.TotalOf(ledger)
	byCat := core.ByCategory(ledger)

	v := View{
		Selector:     sel,
		Expenses:     rows,
		VisibleTotal: core.TotalOf(visible),
		Chart:        chart(byCat, total),
		Status:       core.BudgetStatusOf(total, budget),
		Report:       report(byCat, total),
	}
	if reminder != nil {
		r := *reminder
		v.Reminder = &r
	}
	return v
}

func chart(byCat []core.CategoryAmount, total core.Money) []ChartSlice {
	out := []ChartSlice{}
	if total.Cents <= 0 {
		return out
	}
	for _, ca := range byCat {
		if ca.Amount.IsZero() {
			continue
		}
		share := decimal.NewFromInt(ca.Amount.Cents).
			Div(decimal.NewFromInt(total.Cents)).
			Mul(decimal.NewFromInt(100)).
			Round(1)
		out = append(out, ChartSlice{
			Category: ca.Category,
			Label:    ca.Category.Label(),
			Color:    ca.Category.Color(),
			Amount:   ca.Amount,
			Share:    share,
		})
	}
	return out
}

func report(byCat []core.CategoryAmount, total core.Money) Report {
	r := Report{Total: total, Lines: []ReportLine{}}
	for _, ca := range byCat {
		if ca.Amount.IsZero() {
			continue
		}
		r.Lines = append(r.Lines, ReportLine{
			Category: ca.Category,
			Label:    ca.Category.Label(),
			Amount:   ca.Amount,
		})
	}
	return r
}
