package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"bizledger/internal/core"
	"bizledger/internal/render"
)

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := s.svc.Ledger.ListInvoices(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if invoices == nil {
		invoices = []core.InvoiceRecord{}
	}
	writeJSON(w, http.StatusOK, invoices)
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := s.svc.Ledger.GetInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var rec core.InvoiceRecord
	if err := decodeJSON(r, &rec); err != nil {
		writeServiceError(w, r, err)
		return
	}
	created, err := s.svc.Ledger.CreateInvoice(r.Context(), rec)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		TriggerLedgerChanged(core.KindInvoice, created.ID).
		Data(created).
		Write(w)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.svc.Ledger.ListExpenses(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if expenses == nil {
		expenses = []core.ExpenseRecord{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

// handleCreateExpense accepts a JSON record from API clients or the
// dashboard form, which htmx posts form-encoded.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeServiceError(w, r, err)
		return
	}

	var rec core.ExpenseRecord
	if p.IsJSON() {
		if err := p.Decode(&rec); err != nil {
			writeServiceError(w, r, err)
			return
		}
	} else {
		rec = core.ExpenseRecord{
			Date:          p.Get("date"),
			Amount:        core.RawAmount(p.Get("amount")),
			Category:      p.Get("category"),
			Vendor:        p.Get("vendor"),
			PaymentMethod: p.Get("payment_method"),
			Description:   p.Get("description"),
		}
	}

	created, err := s.svc.Ledger.CreateExpense(r.Context(), rec)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if isHTMX(r) {
		FragmentResponse(http.StatusOK, "success", "Expense recorded: "+created.Category+" "+string(created.Amount)).
			TriggerLedgerChanged(core.KindExpense, created.ID).
			TriggerFormReset().
			Write(w)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		TriggerLedgerChanged(core.KindExpense, created.ID).
		Data(created).
		Write(w)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.svc.Ledger.ListTemplates(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if templates == nil {
		templates = []render.Template{}
	}
	writeJSON(w, http.StatusOK, templates)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := s.svc.Ledger.GetTemplate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

// SavedTemplate is the response to a template upload.
type SavedTemplate struct {
	Template render.Template               `json:"template"`
	Warnings []core.ConfigValidationWarning `json:"warnings"`
}

// handleSaveTemplate stores a template given in the loose JSON form: unknown
// keys are ignored and both camelCase and snake_case section keys work.
func (s *Server) handleSaveTemplate(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !p.IsJSON() {
		writeError(w, http.StatusBadRequest, "expected a JSON template")
		return
	}
	tpl, err := render.DecodeTemplate(p.GetRaw())
	if err != nil {
		writeServiceError(w, r, badRequest("%v", err))
		return
	}

	saved, warnings, err := s.svc.Ledger.SaveTemplate(r.Context(), tpl)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if warnings == nil {
		warnings = []core.ConfigValidationWarning{}
	}
	NewResponse().
		Status(http.StatusCreated).
		Warnings(warnings).
		Data(SavedTemplate{Template: saved, Warnings: warnings}).
		Write(w)
}
