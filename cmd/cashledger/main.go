package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"cashledger/internal/app"
	"cashledger/internal/cli"
	apphttp "cashledger/internal/http"
	applog "cashledger/internal/log"
)

const (
	shutdownTimeout = 30 * time.Second
	cleanupInterval = 5 * time.Minute
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg)

	ctx, cancel := cli.SignalContext(logger.Slog())
	defer cancel()

	res := cli.OpenStore(ctx, logger.WithComponent(applog.ComponentBackend).Slog(), cfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Failed to close ledger store", "error", err)
		}
	}()

	a := app.New(ctx, cfg, logger, res.Store)
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("Failed to release resources", "error", err)
		}
	}()
	a.Caches.StartCleanup(ctx, cleanupInterval)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Services{
		Ledger:    a.Ledger,
		Query:     a.Query,
		Budget:    a.Evaluator,
		Accounts:  a.Accounts,
		Backups:   a.Backups,
		Reminder:  a.Reminder,
		Auditor:   a.Auditor,
		Taxonomy:  a.Taxonomy,
		Readiness: a.Ready,
	}, apphttp.Options{
		Logger:    logger,
		RateLimit: cfg.RateLimit,
		AuthCache: a.AuthCache,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting cashledger server", "port", cfg.Port, "backend", cfg.DataBackend, "amqp", cfg.AMQPEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		cancel()
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
