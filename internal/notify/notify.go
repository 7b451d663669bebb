// Package notify defines the notification collaborator the ledger reports
// budget crossings, reminders and backup outcomes to.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"cashledger/internal/core"
)

// Notifier delivers user-facing notifications. Delivery mechanism and
// scheduling belong to the implementation.
type Notifier interface {
	NotifyBudgetWarning(ctx context.Context, userID string, percentage int, spent, ceiling core.Money) error
	NotifyBudgetExceeded(ctx context.Context, userID string, spent, ceiling core.Money) error
	NotifyDailyReminder(ctx context.Context, userID string) error
	NotifyBackupResult(ctx context.Context, userID string, success bool) error
}

// LogNotifier writes every notification to the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyBudgetWarning(ctx context.Context, userID string, percentage int, spent, ceiling core.Money) error {
	n.logger.WarnContext(ctx, "Budget warning",
		"user_id", userID,
		"percentage", percentage,
		"spent", spent.String(),
		"ceiling", ceiling.String())
	return nil
}

func (n *LogNotifier) NotifyBudgetExceeded(ctx context.Context, userID string, spent, ceiling core.Money) error {
	n.logger.WarnContext(ctx, "Budget exceeded",
		"user_id", userID,
		"spent", spent.String(),
		"ceiling", ceiling.String(),
		"over_by", spent.Sub(ceiling).String())
	return nil
}

func (n *LogNotifier) NotifyDailyReminder(ctx context.Context, userID string) error {
	n.logger.InfoContext(ctx, "Daily reminder: don't forget to log today's transactions", "user_id", userID)
	return nil
}

func (n *LogNotifier) NotifyBackupResult(ctx context.Context, userID string, success bool) error {
	if success {
		n.logger.InfoContext(ctx, "Backup completed", "user_id", userID)
	} else {
		n.logger.ErrorContext(ctx, "Backup failed", "user_id", userID)
	}
	return nil
}

// Multi fans a notification out to several notifiers. Every notifier is
// called; the errors are joined.
type Multi []Notifier

func (m Multi) NotifyBudgetWarning(ctx context.Context, userID string, percentage int, spent, ceiling core.Money) error {
	return m.each(func(n Notifier) error { return n.NotifyBudgetWarning(ctx, userID, percentage, spent, ceiling) })
}

func (m Multi) NotifyBudgetExceeded(ctx context.Context, userID string, spent, ceiling core.Money) error {
	return m.each(func(n Notifier) error { return n.NotifyBudgetExceeded(ctx, userID, spent, ceiling) })
}

func (m Multi) NotifyDailyReminder(ctx context.Context, userID string) error {
	return m.each(func(n Notifier) error { return n.NotifyDailyReminder(ctx, userID) })
}

func (m Multi) NotifyBackupResult(ctx context.Context, userID string, success bool) error {
	return m.each(func(n Notifier) error { return n.NotifyBackupResult(ctx, userID, success) })
}

func (m Multi) each(fn func(Notifier) error) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := fn(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Event is one recorded notification, used by Recorder.
type Event struct {
	Kind       string
	UserID     string
	Percentage int
	Spent      core.Money
	Ceiling    core.Money
	Success    bool
}

// Event kinds.
const (
	KindBudgetWarning  = "budget_warning"
	KindBudgetExceeded = "budget_exceeded"
	KindDailyReminder  = "daily_reminder"
	KindBackupResult   = "backup_result"
)
