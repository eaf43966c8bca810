package render

import (
	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

// Document is the JSON form of a View, served by the API and published as
// event payload. Amounts are decimal strings in currency units.
type Document struct {
	Selector     string          `json:"selector"`
	Expenses     []ExpenseDoc    `json:"expenses"`
	VisibleTotal decimal.Decimal `json:"visible_total"`
	Chart        []ChartDoc      `json:"chart"`
	Budget       BudgetDoc       `json:"budget"`
	Report       ReportDoc       `json:"report"`
	Reminder     *ReminderDoc    `json:"reminder,omitempty"`
}

type ExpenseDoc struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	Date     string          `json:"date"`
}

type ChartDoc struct {
	Category string          `json:"category"`
	Label    string          `json:"label"`
	Color    string          `json:"color"`
	Amount   decimal.Decimal `json:"amount"`
	Share    decimal.Decimal `json:"share"`
}

type BudgetDoc struct {
	Status      string          `json:"status"`
	Budget      decimal.Decimal `json:"budget"`
	Total       decimal.Decimal `json:"total"`
	Remaining   decimal.Decimal `json:"remaining"`
	UsedPercent decimal.Decimal `json:"used_percent"`
	StatusLine  string          `json:"status_line"`
	Progress    string          `json:"progress"`
}

type ReportDoc struct {
	Total decimal.Decimal `json:"total"`
	Lines []ChartDoc      `json:"lines"`
}

type ReminderDoc struct {
	Email string `json:"email"`
	Time  string `json:"time"`
}

// NewDocument converts v, using f for the human readable budget lines.
func NewDocument(v View, f Formatter) Document {
	d := Document{
		Selector:     v.Selector.String(),
		Expenses:     make([]ExpenseDoc, len(v.Expenses)),
		VisibleTotal: v.VisibleTotal.Decimal(),
		Chart:        make([]ChartDoc, len(v.Chart)),
		Budget: BudgetDoc{
			Status:      v.Status.Level.String(),
			Budget:      v.Status.Budget.Decimal(),
			Total:       v.Status.Total.Decimal(),
			Remaining:   v.Status.Remaining.Decimal(),
			UsedPercent: v.Status.UsedPercent.Round(2),
			StatusLine:  f.StatusLine(v.Status),
			Progress:    f.ProgressLine(v.Status),
		},
		Report: ReportDoc{
			Total: v.Report.Total.Decimal(),
			Lines: make([]ChartDoc, len(v.Report.Lines)),
		},
	}
	for i, e := range v.Expenses {
		d.Expenses[i] = expenseDoc(e)
	}
	for i, c := range v.Chart {
		d.Chart[i] = ChartDoc{
			Category: string(c.Category),
			Label:    c.Label,
			Color:    c.Color,
			Amount:   c.Amount.Decimal(),
			Share:    c.Share,
		}
	}
	for i, l := range v.Report.Lines {
		d.Report.Lines[i] = ChartDoc{
			Category: string(l.Category),
			Label:    l.Label,
			Color:    l.Category.Color(),
			Amount:   l.Amount.Decimal(),
		}
	}
	if v.Reminder != nil {
		d.Reminder = &ReminderDoc{Email: v.Reminder.Email, Time: v.Reminder.Time}
	}
	return d
}

func expenseDoc(e core.Expense) ExpenseDoc {
	return ExpenseDoc{
		ID:       e.ID,
		Name:     e.Name,
		Amount:   e.Amount.Decimal(),
		Category: string(e.Category),
		Date:     e.Date.String(),
	}
}
