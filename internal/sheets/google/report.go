package google

import (
	"expensetracker/internal/core"
	"expensetracker/internal/render"
)

// ReportRows lays the report out as three columns: label, amount and share
// of the total. Amounts are plain decimals so that the sheet treats them as
// numbers.
func ReportRows(v render.View, f render.Formatter) [][]any {
	rows := [][]any{{"Category", "Amount", "Share %"}}

	shares := make(map[core.Category]string, len(v.Chart))
	for _, c := range v.Chart {
		shares[c.Category] = c.Share.StringFixed(1)
	}
	for _, l := range v.Report.Lines {
		rows = append(rows, []any{l.Label, l.Amount.String(), shares[l.Category]})
	}
	rows = append(rows, []any{"Total", v.Report.Total.String(), ""})

	if v.Status.Level == core.StatusUnset {
		rows = append(rows, []any{"Budget", "", f.ProgressLine(v.Status)})
		return rows
	}
	rows = append(rows,
		[]any{"Budget", v.Status.Budget.String(), f.ProgressLine(v.Status)},
		[]any{"Remaining", v.Status.Remaining.String(), f.StatusLine(v.Status)},
	)
	return rows
}
