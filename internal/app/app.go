// Package app assembles the ledger services from configuration. The server
// and the admin tool share it so both see the same store and notifiers.
package app

import (
	"context"
	"errors"
	"time"

	"cashledger/internal/amqp"
	"cashledger/internal/cache"
	"cashledger/internal/config"
	"cashledger/internal/core"
	"cashledger/internal/ledger"
	applog "cashledger/internal/log"
	"cashledger/internal/notify"
	"cashledger/internal/services"
	"cashledger/internal/taxonomy"
)

// authCacheTTL bounds how long a password stays valid after it changed on
// another instance.
const authCacheTTL = 5 * time.Minute

// App holds the wired services and the resources they own.
type App struct {
	Config    *config.Config
	Store     ledger.Store
	Notifier  notify.Notifier
	Levels    *cache.LRUCache[core.BudgetLevel]
	AuthCache *cache.LRUCache[string]
	Caches    *cache.Manager

	Evaluator *services.BudgetEvaluator
	Monitor   *services.BudgetMonitor
	Ledger    *services.LedgerService
	Query     *services.QueryEngine
	Accounts  *services.AccountService
	Backups   *services.BackupService
	Reminder  *services.Reminder
	Auditor   *services.Auditor
	Taxonomy  *taxonomy.Store

	closers []func() error
}

// New wires every service around store. AMQP is optional: when the broker
// is unreachable notifications only go to the log.
func New(ctx context.Context, cfg *config.Config, logger *applog.Logger, store ledger.Store) *App {
	a := &App{Config: cfg, Store: store}

	notifiers := notify.Multi{notify.NewLogNotifier(logger.WithComponent(applog.ComponentNotifier).Slog())}
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.WithComponent(applog.ComponentAMQP).Warn("Failed to initialize AMQP client, continuing with log notifications", "error", err)
		} else {
			logger.WithComponent(applog.ComponentAMQP).Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
			notifiers = append(notifiers, amqp.NewNotifier(client))
			a.closers = append(a.closers, client.Close)
		}
	}
	a.Notifier = notifiers

	a.Levels = cache.NewLRUCache[core.BudgetLevel](cfg.BudgetStateSize, cfg.BudgetStateTTL)
	a.AuthCache = cache.NewLRUCache[string](1000, authCacheTTL)
	a.Caches = cache.NewManager()
	a.Caches.Register(a.Levels)
	a.Caches.Register(a.AuthCache)

	a.Evaluator = services.NewBudgetEvaluator(a.Store)
	a.Monitor = services.NewBudgetMonitor(a.Evaluator, a.Notifier, a.Levels)
	a.Ledger = services.NewLedgerService(a.Store, a.Monitor)
	a.Query = services.NewQueryEngine(a.Store)
	a.Accounts = services.NewAccountService(a.Store, a.Monitor, cfg.BcryptCost)
	a.Backups = services.NewBackupService(a.Store, a.Notifier, a.Monitor, cfg.BackupDir)
	a.Reminder = services.NewReminder(a.Store, a.Notifier)
	a.Auditor = services.NewAuditor(a.Store)
	a.Taxonomy = taxonomy.NewFromFiles(cfg.DataDir)
	return a
}

// Ready checks that the store answers.
func (a *App) Ready(ctx context.Context) error {
	if p, ok := a.Store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return ctx.Err()
}

// Close stops cache cleanup and closes the AMQP connection. The store is
// owned by the caller.
func (a *App) Close() error {
	a.Caches.Stop()
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
