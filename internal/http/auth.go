package http

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"cashledger/internal/core"
	applog "cashledger/internal/log"
)

type sessionKey struct{}

// sessionHandler is a handler that runs with a resolved session.
type sessionHandler func(w http.ResponseWriter, r *http.Request, sess core.Session)

// authed resolves HTTP Basic credentials to a session before calling next.
func (s *Server) authed(next sessionHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.authenticate(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		logger := applog.FromContext(r.Context()).With(applog.FieldUserID, sess.UserID)
		ctx := context.WithValue(applog.WithContext(r.Context(), logger), sessionKey{}, sess)
		next(w, r.WithContext(ctx), sess)
	})
}

// SessionFrom returns the session resolved for the request, if any.
func SessionFrom(ctx context.Context) (core.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(core.Session)
	return sess, ok
}

func (s *Server) authenticate(r *http.Request) (core.Session, error) {
	email, password, ok := r.BasicAuth()
	if !ok || strings.TrimSpace(email) == "" {
		return core.Session{}, core.ErrNoSession
	}
	email = strings.ToLower(strings.TrimSpace(email))

	key := credentialKey(email, password)
	if s.auth != nil {
		if userID, hit := s.auth.Get(key); hit {
			return core.Session{UserID: userID}, nil
		}
	}
	sess, err := s.svc.Accounts.Login(r.Context(), email, password)
	if err != nil {
		return core.Session{}, err
	}
	if s.auth != nil {
		s.auth.Set(key, sess.UserID)
	}
	return sess, nil
}

// forgetCredentials drops every cached credential of the account.
func (s *Server) forgetCredentials(userID string) {
	if s.auth != nil {
		s.auth.DeletePrefix(userID + "|")
	}
}

func credentialKey(email, password string) string {
	sum := sha256.Sum256([]byte(email + "\x00" + password))
	return email + "|" + hex.EncodeToString(sum[:])
}
