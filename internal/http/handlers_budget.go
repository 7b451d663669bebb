package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"cashledger/internal/core"
)

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request, _ core.Session) {
	kind, err := core.ParseKind(r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	cats, err := s.svc.Taxonomy.List(r.Context(), kind)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"type": kind, "categories": cats})
}

type summaryResponse struct {
	core.MonthOverview
	Balance core.Money `json:"balance"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, sess core.Session) {
	month, err := parseMonth(r, s.currentMonth())
	if err != nil {
		writeError(w, r, err)
		return
	}
	overview, err := s.svc.Query.CategorySummary(r.Context(), sess, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{MonthOverview: overview, Balance: overview.Balance()})
}

type budgetResponse struct {
	core.BudgetStatus
	Remaining core.Money `json:"remaining"`
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request, sess core.Session) {
	month, err := parseMonth(r, s.currentMonth())
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.writeBudget(w, r, sess, month)
}

type budgetRequest struct {
	// Ceiling is a decimal number or string; zero clears the budget.
	Ceiling json.RawMessage `json:"ceiling"`
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request, sess core.Session) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ceiling, err := core.ParseMoney(strings.Trim(string(req.Ceiling), `"`))
	if err != nil {
		verr := &core.ValidationError{}
		verr.Add("budget", core.ErrInvalidAmount)
		writeError(w, r, verr)
		return
	}
	if err := s.svc.Ledger.SetBudget(r.Context(), sess, ceiling); err != nil {
		writeError(w, r, err)
		return
	}
	s.writeBudget(w, r, sess, s.currentMonth())
}

func (s *Server) writeBudget(w http.ResponseWriter, r *http.Request, sess core.Session, month core.Month) {
	status, err := s.svc.Budget.Evaluate(r.Context(), sess, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budgetResponse{BudgetStatus: status, Remaining: status.Remaining()})
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request, sess core.Session) {
	report, err := s.svc.Auditor.Check(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"consistent": report.Consistent(),
		"report":     report,
	})
}
