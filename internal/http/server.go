// Package http exposes the ledger as a JSON API. Every /api route except
// account registration is authenticated with HTTP Basic credentials that
// resolve to a core.Session.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"cashledger/internal/cache"
	"cashledger/internal/core"
	"cashledger/internal/ledger"
	applog "cashledger/internal/log"
	"cashledger/internal/middleware/ratelimit"
	"cashledger/internal/middleware/security"
	"cashledger/internal/middleware/trace"
	"cashledger/internal/services"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// Services are the collaborators the handlers call.
type Services struct {
	Ledger    *services.LedgerService
	Query     *services.QueryEngine
	Budget    *services.BudgetEvaluator
	Accounts  *services.AccountService
	Backups   *services.BackupService
	Reminder  *services.Reminder
	Auditor   *services.Auditor
	Taxonomy  ledger.TaxonomyReader
	Readiness func(ctx context.Context) error
}

// AuthCache remembers resolved credentials so bcrypt runs once per TTL.
type AuthCache interface {
	cache.Cache[string]
	DeletePrefix(prefix string) int
}

// Options tune the server's middleware.
type Options struct {
	Logger    *applog.Logger
	RateLimit int
	AuthCache AuthCache
}

type Server struct {
	http.Server
	svc       Services
	auth      AuthCache
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	tracer    *trace.Middleware
	now       func() time.Time
	closeOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc Services, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	detector := security.NewDetector()
	s := &Server{
		svc:      svc,
		auth:     opts.AuthCache,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimit}),
		detector: detector,
		tracer:   trace.NewMiddleware(detector.ExtractClientIP),
		now:      time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/accounts", s.handleRegister)
	mux.Handle("GET /api/account", s.authed(s.handleAccount))
	mux.Handle("PUT /api/account/password", s.authed(s.handleUpdatePassword))
	mux.Handle("DELETE /api/account", s.authed(s.handleDeleteAccount))
	mux.Handle("POST /api/account/reset", s.authed(s.handleResetData))

	mux.Handle("GET /api/categories", s.authed(s.handleCategories))

	mux.Handle("POST /api/transactions", s.authed(s.handleCreateTransaction))
	mux.Handle("GET /api/transactions", s.authed(s.handleListTransactions))
	mux.Handle("GET /api/transactions/{id}", s.authed(s.handleGetTransaction))
	mux.Handle("PUT /api/transactions/{id}", s.authed(s.handleUpdateTransaction))
	mux.Handle("DELETE /api/transactions/{id}", s.authed(s.handleDeleteTransaction))

	mux.Handle("GET /api/summary", s.authed(s.handleSummary))
	mux.Handle("GET /api/budget", s.authed(s.handleGetBudget))
	mux.Handle("PUT /api/budget", s.authed(s.handleSetBudget))
	mux.Handle("GET /api/audit", s.authed(s.handleAudit))

	mux.Handle("GET /api/backups", s.authed(s.handleListBackups))
	mux.Handle("POST /api/backup", s.authed(s.handleBackup))
	mux.Handle("POST /api/restore", s.authed(s.handleRestore))
	mux.Handle("POST /api/reminders/daily", s.authed(s.handleReminder))

	var h http.Handler = mux
	h = s.limiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
	})(h)
	h = detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)
	h = applog.Middleware(logger.WithComponent(applog.ComponentHTTP))(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.svc.Readiness != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.svc.Readiness(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "not ready"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// currentMonth is the month of the server clock.
func (s *Server) currentMonth() core.Month {
	return core.MonthOf(s.now())
}
