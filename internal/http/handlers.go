package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"kakeibo/internal/core"
	applog "kakeibo/internal/log"
	"kakeibo/internal/services"
)

// View models for the templates. Amounts are preformatted strings so the
// templates never do arithmetic.
type (
	categoryRow struct {
		Name   string
		Amount string
	}

	summaryView struct {
		Year      int
		Month     int
		MonthName string
		Income    string
		Expense   string
		Balance   string
		Breakdown []categoryRow
	}

	transactionRow struct {
		ID       int64
		Date     string
		Category string
		Amount   string
		Memo     string
		Income   bool
		Editing  bool
	}

	tableView struct {
		Year    int
		Month   int
		Rows    []transactionRow
		Undated []transactionRow
	}

	formView struct {
		ID       int64
		Date     string
		Category string
		Amount   string
		Memo     string
		Editing  bool
	}

	pageData struct {
		Year       int
		Month      int
		MonthName  string
		Categories []string
		Theme      string
		Form       formView
	}

	seriesCategory struct {
		Name   string `json:"name"`
		Amount int64  `json:"amount"`
	}

	seriesView struct {
		Year       int              `json:"year"`
		Income     [12]int64        `json:"income"`
		Expense    [12]int64        `json:"expense"`
		Balance    [12]int64        `json:"balance"`
		Categories []seriesCategory `json:"categories"`
	}
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	year, month := s.dispatcher.Period()
	data := pageData{
		Year:       year,
		Month:      int(month),
		MonthName:  month.String(),
		Categories: s.svc.Store().Categories(),
		Theme:      s.svc.Store().Theme(),
		Form:       s.currentForm(),
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// currentForm returns the entry form state: prefilled from the edited
// transaction while an edit session is active, blank and dated today
// otherwise.
func (s *Server) currentForm() formView {
	if id, editing := s.dispatcher.Session().Editing(); editing {
		if tx, err := s.svc.Store().FindByID(id); err == nil {
			return formView{
				ID:       tx.ID,
				Date:     tx.Date,
				Category: tx.Category,
				Amount:   strconv.FormatInt(tx.Magnitude(), 10),
				Memo:     tx.Memo,
				Editing:  true,
			}
		}
	}
	return formView{Date: core.NewDate(time.Now().Year(), time.Now().Month(), time.Now().Day()).String()}
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	form := ParseTransactionForm(r.Form)
	if err := form.Validate(); err != nil {
		UnprocessableEntityError("Invalid entry: check date, category and amount").
			TriggerErrorNotification("Invalid entry").
			Write(w)
		return
	}

	entry, err := form.ToEntry()
	if err != nil {
		UnprocessableEntityError("Invalid amount").Write(w)
		return
	}

	// An edit can move the transaction to another month; resolve the
	// stored date first so that month's cache is dropped too.
	editingID, wasEditing := s.dispatcher.Session().Editing()
	prevDate := ""
	if wasEditing {
		if prev, ferr := s.svc.Store().FindByID(editingID); ferr == nil {
			prevDate = prev.Date
		}
	}

	tx, err := s.dispatcher.Submit(r.Context(), services.SubmitEntry{Entry: entry})
	if err != nil {
		s.writeSubmitError(r, w, err)
		return
	}

	s.invalidatePeriod(tx.Date)
	if prevDate != "" && prevDate != tx.Date {
		s.invalidatePeriod(prevDate)
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Transaction saved",
		applog.NewFields().
			WithComponent(applog.ComponentHTTP).
			WithTransaction(tx.ID, tx.Date, tx.Category, tx.Amount).
			ToSlice()...)

	msg := "Transaction added"
	if wasEditing {
		msg = "Transaction updated"
	}

	year, month := s.dispatcher.Period()
	NewHTMXResponse().
		TriggerLedgerChanged(year, int(month)).
		TriggerFormReset().
		TriggerSuccessNotification(msg).
		Write(w)
}

func (s *Server) writeSubmitError(r *http.Request, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		// The edited transaction vanished underneath the session.
		s.dispatcher.Cancel(r.Context(), services.CancelEdit{})
		NotFoundError("Transaction no longer exists").Write(w)
	case errors.Is(err, core.ErrEmptyDate),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrInvalidAmount):
		UnprocessableEntityError(err.Error()).Write(w)
	default:
		slog.ErrorContext(r.Context(), "Failed to save transaction", "error", err)
		InternalServerError("Error saving transaction").Write(w)
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	id, err := parser.GetID()
	if err != nil {
		BadRequestError("Missing or invalid transaction id").Write(w)
		return
	}

	// Resolve the date before the delete so the right month's cache is
	// dropped. A missing id is a no-op, matching the ledger.
	date := ""
	if tx, ferr := s.svc.Store().FindByID(id); ferr == nil {
		date = tx.Date
	}

	if err := s.dispatcher.Delete(r.Context(), services.DeleteTransaction{ID: id}); err != nil {
		slog.ErrorContext(r.Context(), "Failed to delete transaction", "error", err, "transaction_id", id)
		InternalServerError("Error deleting transaction").Write(w)
		return
	}

	if date != "" {
		s.invalidatePeriod(date)
	}

	year, month := s.dispatcher.Period()
	NewHTMXResponse().
		TriggerLedgerChanged(year, int(month)).
		TriggerSuccessNotification("Transaction deleted").
		Write(w)
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	id, err := parser.GetID()
	if err != nil {
		BadRequestError("Missing or invalid transaction id").Write(w)
		return
	}

	fill, err := s.dispatcher.Edit(r.Context(), services.StartEdit{ID: id})
	if err != nil {
		NotFoundError("Transaction not found").Write(w)
		return
	}

	s.renderForm(w, r, formView{
		ID:       fill.ID,
		Date:     fill.Date,
		Category: fill.Category,
		Amount:   strconv.FormatInt(fill.Amount, 10),
		Memo:     fill.Memo,
		Editing:  true,
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	s.dispatcher.Cancel(r.Context(), services.CancelEdit{})
	s.renderForm(w, r, s.currentForm())
}

// renderForm writes the entry form partial and a ledger:changed trigger
// so the table re-renders its edit highlight.
func (s *Server) renderForm(w http.ResponseWriter, r *http.Request, form formView) {
	year, month := s.dispatcher.Period()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	triggers, err := json.Marshal(map[string]interface{}{
		"ledger:changed": map[string]int{"year": year, "month": int(month)},
	})
	if err == nil {
		w.Header().Set("HX-Trigger", string(triggers))
	}
	if err := s.templates.ExecuteTemplate(w, "entry_form.html", form); err != nil {
		slog.ErrorContext(r.Context(), "Form template execution failed", "error", err, "template", "entry_form.html")
	}
}

func (s *Server) handleSelectPeriod(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	year, month := s.dispatcher.Period()
	params := ParsePeriodParams(r.Form, year, month)

	if err := s.dispatcher.Select(r.Context(), services.SelectPeriod{
		Year:  params.Year,
		Month: time.Month(params.Month),
	}); err != nil {
		UnprocessableEntityError("Invalid period").Write(w)
		return
	}

	NewHTMXResponse().
		TriggerPeriodChanged(params.Year, params.Month).
		TriggerLedgerChanged(params.Year, params.Month).
		Write(w)
}

func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	selYear, selMonth := s.dispatcher.Period()
	params := ParsePeriodParams(r.URL.Query(), selYear, selMonth)

	key := periodKey(params.Year, params.Month)
	view, ok := s.summaryCache.Get(key)
	if !ok {
		view = s.buildSummary(params.Year, params.Month)
		s.summaryCache.Set(key, view)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "month_summary.html", view); err != nil {
		slog.ErrorContext(r.Context(), "Summary template execution failed", "error", err, "template", "month_summary.html")
	}
}

func (s *Server) buildSummary(year, month int) summaryView {
	txs := s.svc.Store().Transactions()
	totals := s.engine.MonthlyTotals(txs, year, time.Month(month))
	breakdown := s.engine.CategoryBreakdown(txs, year, time.Month(month))

	rows := make([]categoryRow, 0, len(breakdown))
	for _, c := range breakdown {
		rows = append(rows, categoryRow{Name: c.Name, Amount: formatAmount(c.Amount)})
	}

	return summaryView{
		Year:      year,
		Month:     month,
		MonthName: time.Month(month).String(),
		Income:    formatAmount(totals.Income),
		Expense:   formatAmount(totals.Expense),
		Balance:   formatAmount(totals.Balance),
		Breakdown: rows,
	}
}

func (s *Server) handleTransactionTable(w http.ResponseWriter, r *http.Request) {
	selYear, selMonth := s.dispatcher.Period()
	params := ParsePeriodParams(r.URL.Query(), selYear, selMonth)

	editingID, editing := s.dispatcher.Session().Editing()

	view := tableView{Year: params.Year, Month: params.Month}
	for _, tx := range s.svc.Store().SortedByDateDesc() {
		row := transactionRow{
			ID:       tx.ID,
			Date:     tx.Date,
			Category: tx.Category,
			Amount:   formatAmount(tx.Magnitude()),
			Memo:     tx.Memo,
			Income:   tx.IsIncome(),
			Editing:  editing && tx.ID == editingID,
		}
		if transactionInPeriod(tx, params.Year, params.Month) {
			view.Rows = append(view.Rows, row)
			continue
		}
		// Records whose stored date no longer parses are listed under
		// every period so they stay visible and fixable.
		if _, err := core.ParseDate(tx.Date); err != nil {
			view.Undated = append(view.Undated, row)
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "transaction_table.html", view); err != nil {
		slog.ErrorContext(r.Context(), "Table template execution failed", "error", err, "template", "transaction_table.html")
	}
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	name := sanitizeInput(r.Form.Get("name"))
	if err := s.svc.AddCustomCategory(r.Context(), name); err != nil {
		UnprocessableEntityError("Category name cannot be empty").Write(w)
		return
	}

	NewHTMXResponse().
		TriggerCategoriesChanged().
		TriggerSuccessNotification("Category added").
		Write(w)
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	theme := sanitizeInput(r.Form.Get("theme"))
	if err := s.svc.SetTheme(r.Context(), theme); err != nil {
		slog.ErrorContext(r.Context(), "Failed to persist theme", "error", err, "theme", theme)
		InternalServerError("Error saving theme").Write(w)
		return
	}

	NewHTMXResponse().TriggerThemeChanged(theme).Write(w)
}

func (s *Server) handleYearlySeries(w http.ResponseWriter, r *http.Request) {
	selYear, _ := s.dispatcher.Period()
	params := ParsePeriodParams(r.URL.Query(), selYear, time.January)

	key := yearKey(params.Year)
	view, ok := s.seriesCache.Get(key)
	if !ok {
		series := s.engine.YearlySeries(s.svc.Store().Transactions(), params.Year)
		view = seriesView{
			Year:    params.Year,
			Income:  series.MonthlyIncome,
			Expense: series.MonthlyExpense,
		}
		for i := 0; i < 12; i++ {
			view.Balance[i] = series.MonthlyIncome[i] - series.MonthlyExpense[i]
		}
		view.Categories = make([]seriesCategory, 0, len(series.CategoryTotals))
		for _, c := range series.CategoryTotals {
			view.Categories = append(view.Categories, seriesCategory{Name: c.Name, Amount: c.Amount})
		}
		s.seriesCache.Set(key, view)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(view); err != nil {
		slog.ErrorContext(r.Context(), "Yearly series encoding failed", "error", err)
	}
}

// handleSnapshotExport serves the full ledger snapshot as a download,
// the same document the cloud backup uploads.
func (s *Server) handleSnapshotExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.svc.ExportSnapshot()
	if err != nil {
		slog.ErrorContext(r.Context(), "Snapshot export failed", "error", err)
		http.Error(w, "snapshot export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="kakeibo-snapshot.json"`)
	_, _ = w.Write(data)
}
