package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"expensetracker/internal/core"
)

// Presenter redraws whatever it owns from a freshly computed view.
type Presenter interface {
	Present(ctx context.Context, v View) error
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(ctx context.Context, v View) error

func (f PresenterFunc) Present(ctx context.Context, v View) error {
	return f(ctx, v)
}

// Multi fans a view out to every presenter. All presenters run; their
// errors are joined.
type Multi []Presenter

func (m Multi) Present(ctx context.Context, v View) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Present(ctx, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard ignores every view.
var Discard Presenter = PresenterFunc(func(context.Context, View) error { return nil })

// TextPresenter writes the printable report to W.
type TextPresenter struct {
	W      io.Writer
	Format Formatter
}

func NewTextPresenter(w io.Writer, symbol string) *TextPresenter {
	return &TextPresenter{W: w, Format: NewFormatter(symbol)}
}

func (p *TextPresenter) Present(_ context.Context, v View) error {
	return WriteReport(p.W, p.Format, v)
}

// WriteReport prints the category breakdown, the total and the budget lines.
func WriteReport(w io.Writer, f Formatter, v View) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Expense Report")
	if len(v.Report.Lines) == 0 {
		fmt.Fprintln(tw, "No expenses recorded")
	}
	for _, l := range v.Report.Lines {
		fmt.Fprintf(tw, "%s\t%s\n", l.Label, f.Money(l.Amount))
	}
	fmt.Fprintf(tw, "Total\t%s\n", f.Money(v.Report.Total))
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if v.Status.Level == core.StatusUnset {
		_, err := fmt.Fprintln(w, f.ProgressLine(v.Status))
		return err
	}
	_, err := fmt.Fprintf(w, "Budget %s: %s. %s\n",
		f.Money(v.Status.Budget), f.ProgressLine(v.Status), f.StatusLine(v.Status))
	return err
}

// WriteTable prints the visible rows numbered from 1, followed by their total.
func WriteTable(w io.Writer, f Formatter, v View) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "#\tDATE\tNAME\tCATEGORY\tAMOUNT\n")
	for i, e := range v.Expenses {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, e.Date, e.Name, e.Category.Label(), f.Money(e.Amount))
	}
	fmt.Fprintf(tw, "\t\t\tTotal (%s)\t%s\n", v.Selector, f.Money(v.VisibleTotal))
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	return nil
}
