package http

import (
	"net/http"

	"cashledger/internal/core"
	applog "cashledger/internal/log"
)

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, sess core.Session) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := req.toTransaction()
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.svc.Ledger.Create(r.Context(), sess, tx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.logTransaction(r, applog.OpCreate, sess, created)
	w.Header().Set("Location", "/api/transactions/"+created.ID)
	writeJSON(w, http.StatusCreated, toResponse(created))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, sess core.Session) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.svc.Query.Query(sess, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := []transactionResponse{}
	for tx, err := range view.All(r.Context()) {
		if err != nil {
			writeError(w, r, err)
			return
		}
		out = append(out, toResponse(tx))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request, sess core.Session) {
	tx, err := s.svc.Ledger.Get(r.Context(), sess, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(tx))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request, sess core.Session) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id := r.PathValue("id")
	if req.ID != "" && req.ID != id {
		writeError(w, r, errBadRequest)
		return
	}
	tx, err := req.toTransaction()
	if err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.svc.Ledger.Update(r.Context(), sess, id, tx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.logTransaction(r, applog.OpUpdate, sess, updated)
	writeJSON(w, http.StatusOK, toResponse(updated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, sess core.Session) {
	removed, err := s.svc.Ledger.Delete(r.Context(), sess, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.logTransaction(r, applog.OpDelete, sess, removed)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) logTransaction(r *http.Request, op string, sess core.Session, tx core.Transaction) {
	applog.NewStructuredLogger(applog.FromContext(r.Context())).LogTransaction(r.Context(), op,
		sess.UserID, tx.ID, tx.Kind.String(), tx.Category, tx.Date.MonthKey().String(), tx.Amount.Cents)
}
