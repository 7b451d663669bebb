package http

import (
	"net/http"
	"path/filepath"

	"cashledger/internal/core"
	applog "cashledger/internal/log"
)

type restoreRequest struct {
	// File names one of the account's backups; empty picks the newest.
	File string `json:"file"`
}

func (s *Server) handleListBackups(w http.ResponseWriter, r *http.Request, sess core.Session) {
	names, err := s.svc.Backups.List(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"files": names})
}

func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request, sess core.Session) {
	path, err := s.svc.Backups.Backup(r.Context(), sess)
	if err != nil {
		logBackupFailure(r, applog.OpBackup, sess, err)
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"file": filepath.Base(path)})
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request, sess core.Session) {
	var req restoreRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	path, err := s.svc.Backups.Restore(r.Context(), sess, req.File)
	if err != nil {
		logBackupFailure(r, applog.OpRestore, sess, err)
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"file": filepath.Base(path)})
}

func (s *Server) handleReminder(w http.ResponseWriter, r *http.Request, sess core.Session) {
	sent, err := s.svc.Reminder.Remind(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"sent": sent})
}

func logBackupFailure(r *http.Request, op string, sess core.Session, err error) {
	applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(r.Context(),
		"Backup operation failed", err, applog.ComponentBackup, op, applog.NewFields().WithUser(sess.UserID))
}
