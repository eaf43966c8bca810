package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"expensetracker/internal/app"
	"expensetracker/internal/core"
	"expensetracker/internal/render"
)

// ErrUsage marks a malformed command line.
var ErrUsage = errors.New("usage")

// Commands runs expensectl subcommands against a tracker and prints their
// result to Out.
type Commands struct {
	Tracker *app.Tracker
	Format  render.Formatter
	Out     io.Writer
}

// PrintUsage lists the subcommands.
func PrintUsage(w io.Writer) {
	fmt.Fprintln(w, "Expense Tracker CLI")
	fmt.Fprintln(w, "\nUsage:")
	fmt.Fprintln(w, "  expensectl <command> [options]")
	fmt.Fprintln(w, "\nCommands:")
	fmt.Fprintln(w, "  add       Record an expense")
	fmt.Fprintln(w, "  list      List expenses, optionally for one category")
	fmt.Fprintln(w, "  edit      Replace the expense at a row of the list")
	fmt.Fprintln(w, "  delete    Delete the expense at a row of the list")
	fmt.Fprintln(w, "  budget    Set the budget (0 clears it)")
	fmt.Fprintln(w, "  reminder  Set or clear the daily reminder")
	fmt.Fprintln(w, "  report    Print the expense report")
	fmt.Fprintln(w, "  help      Show this help message")
	fmt.Fprintln(w, "\nRun 'expensectl <command> -h' for more information on a command.")
}

// Run dispatches args[0]. Usage problems wrap ErrUsage; rejected input is a
// core validation error.
func (c *Commands) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", ErrUsage)
	}
	switch args[0] {
	case "add":
		return c.add(ctx, args[1:])
	case "list":
		return c.list(ctx, args[1:])
	case "edit":
		return c.edit(ctx, args[1:])
	case "delete":
		return c.remove(ctx, args[1:])
	case "budget":
		return c.budget(ctx, args[1:])
	case "reminder":
		return c.reminder(ctx, args[1:])
	case "report":
		return render.WriteReport(c.Out, c.Format, c.Tracker.View(core.All))
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUsage, fs.Name(), err)
	}
	return nil
}

type expenseFlags struct {
	name, amount, category, date *string
}

func bindExpenseFlags(fs *flag.FlagSet, categoryFlag string) expenseFlags {
	return expenseFlags{
		name:     fs.String("name", "", "expense name"),
		amount:   fs.String("amount", "", "amount, e.g. 12.50"),
		category: fs.String(categoryFlag, "", "category: "+categoryNames()),
		date:     fs.String("date", "", "date as YYYY-MM-DD"),
	}
}

// expense builds a record from the flags, taking unset ones from base.
func (f expenseFlags) expense(base core.Expense) (core.Expense, error) {
	e := base
	if *f.name != "" {
		e.Name = *f.name
	}
	if *f.amount != "" {
		m, err := core.ParseAmount(*f.amount)
		if err != nil {
			return core.Expense{}, err
		}
		e.Amount = m
	}
	if *f.category != "" {
		cat, err := core.ParseCategory(*f.category)
		if err != nil {
			return core.Expense{}, err
		}
		e.Category = cat
	}
	if *f.date != "" {
		d, err := core.ParseDate(*f.date)
		if err != nil {
			return core.Expense{}, err
		}
		e.Date = d
	}
	return e, e.Validate()
}

func categoryNames() string {
	names := make([]string, len(core.Categories))
	for i, c := range core.Categories {
		names[i] = c.String()
	}
	return strings.Join(names, ", ")
}

func selectorFlag(fs *flag.FlagSet) *string {
	return fs.String("category", "", "only rows of this category")
}

func (c *Commands) add(ctx context.Context, args []string) error {
	fs := newFlagSet("add")
	f := bindExpenseFlags(fs, "category")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	e, err := f.expense(core.Expense{Date: core.Today()})
	if err != nil {
		return err
	}
	added, v, err := c.Tracker.AddExpense(ctx, e, core.All)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "Added %s (%s, %s)\n", added.Name, c.Format.Money(added.Amount), added.Category.Label())
	return c.status(v)
}

func (c *Commands) list(ctx context.Context, args []string) error {
	fs := newFlagSet("list")
	category := selectorFlag(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	sel, err := core.ParseSelector(*category)
	if err != nil {
		return err
	}
	return render.WriteTable(c.Out, c.Format, c.Tracker.Filter(ctx, sel))
}

func (c *Commands) edit(ctx context.Context, args []string) error {
	fs := newFlagSet("edit")
	row := fs.Int("row", 0, "1-based row of the list to edit")
	filter := fs.String("filter", "", "category the row numbers refer to")
	f := bindExpenseFlags(fs, "category")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	sel, err := core.ParseSelector(*filter)
	if err != nil {
		return err
	}
	current, err := c.rowAt(sel, *row)
	if err != nil {
		return err
	}
	fields, err := f.expense(current)
	if err != nil {
		return err
	}
	ok, v, err := c.Tracker.EditVisible(ctx, sel, *row-1, fields)
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintf(c.Out, "Updated row %d: %s (%s)\n", *row, fields.Name, c.Format.Money(fields.Amount))
	}
	return render.WriteTable(c.Out, c.Format, v)
}

func (c *Commands) remove(ctx context.Context, args []string) error {
	fs := newFlagSet("delete")
	row := fs.Int("row", 0, "1-based row of the list to delete")
	category := selectorFlag(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	sel, err := core.ParseSelector(*category)
	if err != nil {
		return err
	}
	if _, err := c.rowAt(sel, *row); err != nil {
		return err
	}
	ok, v, err := c.Tracker.DeleteVisible(ctx, sel, *row-1)
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintf(c.Out, "Deleted row %d\n", *row)
	}
	return render.WriteTable(c.Out, c.Format, v)
}

// rowAt returns the record listed at 1-based row under sel.
func (c *Commands) rowAt(sel core.Selector, row int) (core.Expense, error) {
	rows := c.Tracker.View(sel).Expenses
	if row < 1 || row > len(rows) {
		return core.Expense{}, fmt.Errorf("%w: row %d out of range (1-%d)", ErrUsage, row, len(rows))
	}
	return rows[row-1], nil
}

func (c *Commands) budget(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: budget takes one amount", ErrUsage)
	}
	amount, err := core.ParseBudget(args[0])
	if err != nil {
		return err
	}
	v, err := c.Tracker.SetBudget(ctx, amount, core.All)
	if err != nil {
		return err
	}
	return c.status(v)
}

func (c *Commands) reminder(ctx context.Context, args []string) error {
	fs := newFlagSet("reminder")
	email := fs.String("email", "", "address to remind")
	at := fs.String("time", "", "time of day as HH:MM")
	unset := fs.Bool("clear", false, "remove the reminder")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var (
		v   render.View
		err error
	)
	if *unset {
		v, err = c.Tracker.ClearReminder(ctx, core.All)
	} else {
		v, err = c.Tracker.SetReminder(ctx, core.Reminder{Email: *email, Time: *at}, core.All)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.Out, render.ReminderLine(v.Reminder))
	return err
}

func (c *Commands) status(v render.View) error {
	line := c.Format.ProgressLine(v.Status)
	if s := c.Format.StatusLine(v.Status); s != "" {
		line += ". " + s
	}
	_, err := fmt.Fprintf(c.Out, "Total %s. %s\n", c.Format.Money(v.Report.Total), line)
	return err
}
