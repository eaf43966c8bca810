package http

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/render"
)

var templateFuncs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

type categoryOption struct {
	Value    string
	Label    string
	Selected bool
}

type rowData struct {
	ID       string
	Name     string
	Amount   string
	Value    string
	Category string
	Label    string
	Color    string
	Date     string
}

type sliceData struct {
	Label  string
	Color  string
	Amount string
	Share  string
}

type summaryData struct {
	Level     string
	Budget    string
	HasBudget bool
	Status    string
	Progress  string
	Width     string
	Chart     []sliceData
	Report    []sliceData
	Total     string
	Reminder  string
	HasRem    bool
}

// pageData is what the templates render. It is derived from a render.View
// with every amount already formatted.
type pageData struct {
	Selector     string
	Categories   []categoryOption
	Filters      []categoryOption
	Rows         []rowData
	EditID       string
	VisibleTotal string
	Today        string
	Summary      summaryData
}

func (s *Server) pageData(v render.View) pageData {
	d := pageData{
		Selector:     v.Selector.String(),
		VisibleTotal: s.format.Money(v.VisibleTotal),
		Today:        core.Today().String(),
		Summary:      s.summaryData(v),
	}
	d.Filters = append(d.Filters, categoryOption{Value: string(core.All), Label: "All categories", Selected: v.Selector.IsAll()})
	for _, c := range core.Categories {
		d.Categories = append(d.Categories, categoryOption{Value: c.String(), Label: c.Label()})
		d.Filters = append(d.Filters, categoryOption{Value: c.String(), Label: c.Label(), Selected: v.Selector == core.SelectorFor(c)})
	}
	for _, e := range v.Expenses {
		d.Rows = append(d.Rows, rowData{
			ID:       e.ID,
			Name:     e.Name,
			Amount:   s.format.Money(e.Amount),
			Value:    e.Amount.String(),
			Category: e.Category.String(),
			Label:    e.Category.Label(),
			Color:    e.Category.Color(),
			Date:     e.Date.String(),
		})
	}
	return d
}

func (s *Server) summaryData(v render.View) summaryData {
	sd := summaryData{
		Level:     v.Status.Level.String(),
		HasBudget: v.Status.Level != core.StatusUnset,
		Budget:    s.format.Money(v.Status.Budget),
		Status:    s.format.StatusLine(v.Status),
		Progress:  s.format.ProgressLine(v.Status),
		Width:     render.ProgressWidth(v.Status),
		Total:     s.format.Money(v.Report.Total),
		Reminder:  render.ReminderLine(v.Reminder),
		HasRem:    v.Reminder != nil,
	}
	for _, c := range v.Chart {
		sd.Chart = append(sd.Chart, sliceData{
			Label:  c.Label,
			Color:  c.Color,
			Amount: s.format.Money(c.Amount),
			Share:  c.Share.StringFixed(1),
		})
	}
	for _, l := range v.Report.Lines {
		sd.Report = append(sd.Report, sliceData{
			Label:  l.Label,
			Amount: s.format.Money(l.Amount),
		})
	}
	return sd
}

// renderTemplate executes name into a buffer first so that a failing
// template never leaves a half written response.
func (s *Server) renderTemplate(w http.ResponseWriter, r *http.Request, name string, data any, resp *HTMXResponseBuilder) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded",
			applog.FieldPath, r.URL.Path,
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err,
			"template", name)
		InternalServerError("Could not render the page").Write(w)
		return
	}
	if resp == nil {
		resp = NewHTMXResponse()
	}
	resp.Header("Content-Type", "text/html; charset=utf-8").
		Body(buf.Bytes()).
		Write(w)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	v := s.tracker.View(SelectorParam(r, nil))
	s.renderTemplate(w, r, "index.html", s.pageData(v), nil)
}

func (s *Server) handleExpensesPartial(w http.ResponseWriter, r *http.Request) {
	v := s.tracker.Filter(r.Context(), SelectorParam(r, nil))
	s.renderTemplate(w, r, "expenses.html", s.pageData(v), nil)
}

// handleEditRow renders the table with one row turned into an inline edit
// form. An ID that is not visible under the filter renders the plain table.
func (s *Server) handleEditRow(w http.ResponseWriter, r *http.Request) {
	v := s.tracker.View(SelectorParam(r, nil))
	d := s.pageData(v)
	id := r.PathValue("id")
	if _, ok := core.IndexOf(v.Expenses, id); ok {
		d.EditID = id
	}
	s.renderTemplate(w, r, "expenses.html", d, nil)
}

func (s *Server) handleSummaryPartial(w http.ResponseWriter, r *http.Request) {
	v := s.tracker.View(core.All)
	s.renderTemplate(w, r, "summary.html", s.pageData(v), nil)
}

func (s *Server) handleViewJSON(w http.ResponseWriter, r *http.Request) {
	v := s.tracker.View(SelectorParam(r, nil))
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(render.NewDocument(v, s.format)); err != nil {
		s.logger.ErrorContext(r.Context(), "Encode view failed", applog.FieldError, err)
	}
}

// handleReport serves the printable report as plain text.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	v := s.tracker.View(core.All)
	var buf bytes.Buffer
	if err := render.WriteReport(&buf, s.format, v); err != nil {
		s.logger.ErrorContext(r.Context(), "Render report failed", applog.FieldError, err)
		http.Error(w, "could not render report", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="expense-report.txt"`)
	_, _ = w.Write(buf.Bytes())
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports whether templates are loaded and the ledger is reachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.tracker == nil {
		checks["ledger"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["ledger"] = map[string]any{
			"status":   "ok",
			"expenses": len(s.tracker.Expenses()),
		}
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.activeClients(),
		"status":         "ok",
	}
	checks["security"] = s.security.snapshot(s.proxies)

	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Malformed request body").Write(w)
		return
	}
	sel := SelectorParam(r, p)

	e, err := ExpenseFromBody(p)
	if err != nil {
		s.handleError(w, r, applog.OpCreate, err)
		return
	}
	added, v, err := s.tracker.AddExpense(r.Context(), e, sel)
	if err != nil {
		s.handleError(w, r, applog.OpCreate, err)
		return
	}

	resp := NewHTMXResponse().
		TriggerLedgerChanged(v.Selector.String()).
		TriggerFormReset().
		TriggerSuccessNotification("Added " + added.Name)
	if p.IsJSON() {
		s.writeJSON(w, r, resp.Status(http.StatusCreated), v)
		return
	}
	s.renderTemplate(w, r, "expenses.html", s.pageData(v), resp)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Malformed request body").Write(w)
		return
	}
	sel := SelectorParam(r, p)

	fields, err := ExpenseFromBody(p)
	if err != nil {
		s.handleError(w, r, applog.OpUpdate, err)
		return
	}
	updated, v, err := s.tracker.UpdateExpense(r.Context(), r.PathValue("id"), fields, sel)
	if err != nil {
		s.handleError(w, r, applog.OpUpdate, err)
		return
	}

	resp := NewHTMXResponse()
	if updated {
		resp.TriggerLedgerChanged(v.Selector.String()).
			TriggerSuccessNotification("Updated " + fields.Name)
	}
	if p.IsJSON() {
		s.writeJSON(w, r, resp, v)
		return
	}
	s.renderTemplate(w, r, "expenses.html", s.pageData(v), resp)
}

// handleDeleteExpense removes one record by ID. An unknown ID leaves the
// ledger untouched and still answers with the current table.
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	sel := SelectorParam(r, nil)
	deleted, v, err := s.tracker.DeleteExpense(r.Context(), r.PathValue("id"), sel)
	if err != nil {
		s.handleError(w, r, applog.OpDelete, err)
		return
	}

	resp := NewHTMXResponse()
	if deleted {
		resp.TriggerLedgerChanged(v.Selector.String())
	}
	s.renderTemplate(w, r, "expenses.html", s.pageData(v), resp)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Malformed request body").Write(w)
		return
	}
	amount, err := core.ParseBudget(p.Get("budget"))
	if err != nil {
		s.handleError(w, r, applog.OpBudget, err)
		return
	}
	v, err := s.tracker.SetBudget(r.Context(), amount, core.All)
	if err != nil {
		s.handleError(w, r, applog.OpBudget, err)
		return
	}

	resp := NewHTMXResponse().
		TriggerBudgetChanged().
		TriggerSuccessNotification("Budget saved")
	s.renderTemplate(w, r, "summary.html", s.pageData(v), resp)
}

func (s *Server) handleSetReminder(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Malformed request body").Write(w)
		return
	}
	v, err := s.tracker.SetReminder(r.Context(), ReminderFromBody(p), core.All)
	if err != nil {
		s.handleError(w, r, applog.OpReminder, err)
		return
	}

	resp := NewHTMXResponse().
		TriggerReminderChanged().
		TriggerSuccessNotification(render.ReminderLine(v.Reminder))
	s.renderTemplate(w, r, "summary.html", s.pageData(v), resp)
}

func (s *Server) handleClearReminder(w http.ResponseWriter, r *http.Request) {
	v, err := s.tracker.ClearReminder(r.Context(), core.All)
	if err != nil {
		s.handleError(w, r, applog.OpReminder, err)
		return
	}
	s.renderTemplate(w, r, "summary.html", s.pageData(v), NewHTMXResponse().TriggerReminderChanged())
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, resp *HTMXResponseBuilder, v render.View) {
	body, err := json.Marshal(render.NewDocument(v, s.format))
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Encode view failed", applog.FieldError, err)
		InternalServerError("Could not encode the view").Write(w)
		return
	}
	resp.Header("Content-Type", "application/json").Body(body).Write(w)
}
