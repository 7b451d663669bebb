package http

import (
	"net/http"

	"cashledger/internal/core"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type accountResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := s.svc.Accounts.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	acc, err := s.svc.Accounts.Account(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, accountResponse{Name: acc.Name, Email: acc.Email})
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request, sess core.Session) {
	acc, err := s.svc.Accounts.Account(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accountResponse{Name: acc.Name, Email: acc.Email})
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request, sess core.Session) {
	var req passwordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Accounts.UpdatePassword(r.Context(), sess, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	s.forgetCredentials(sess.UserID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetData(w http.ResponseWriter, r *http.Request, sess core.Session) {
	if err := s.svc.Accounts.ResetData(r.Context(), sess); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request, sess core.Session) {
	if err := s.svc.Accounts.DeleteAccount(r.Context(), sess); err != nil {
		writeError(w, r, err)
		return
	}
	s.forgetCredentials(sess.UserID)
	w.WriteHeader(http.StatusNoContent)
}
