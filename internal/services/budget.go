package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"cashledger/internal/cache"
	"cashledger/internal/core"
	applog "cashledger/internal/log"
	"cashledger/internal/notify"
)

// BudgetSource is what the evaluator reads: the month's persisted aggregate
// and the configured ceiling.
type BudgetSource interface {
	MonthlyAggregate(ctx context.Context, userID string, month core.Month) (core.MonthlyAggregate, error)
	GetBudget(ctx context.Context, userID string) (core.BudgetConfig, error)
}

// BudgetEvaluator computes budget status. It has no side effects.
type BudgetEvaluator struct {
	source BudgetSource
}

func NewBudgetEvaluator(source BudgetSource) *BudgetEvaluator {
	return &BudgetEvaluator{source: source}
}

// Evaluate reports the month's expense total against the ceiling.
func (e *BudgetEvaluator) Evaluate(ctx context.Context, sess core.Session, month core.Month) (core.BudgetStatus, error) {
	if err := sess.Validate(); err != nil {
		return core.BudgetStatus{}, err
	}
	agg, err := e.source.MonthlyAggregate(ctx, sess.UserID, month)
	if err != nil {
		return core.BudgetStatus{}, fmt.Errorf("read monthly aggregate: %w", err)
	}
	cfg, err := e.source.GetBudget(ctx, sess.UserID)
	if err != nil {
		return core.BudgetStatus{}, fmt.Errorf("read budget: %w", err)
	}
	return core.EvaluateBudget(month, agg.Expense, cfg), nil
}

// LevelCache remembers the last budget level seen per account month.
type LevelCache interface {
	cache.Cache[core.BudgetLevel]
	DeletePrefix(prefix string) int
}

// BudgetMonitor turns budget evaluations into notifications. It notifies
// once per upward crossing of the warning or exceeded threshold; falling back
// below a threshold re-arms it without a notification.
type BudgetMonitor struct {
	evaluator *BudgetEvaluator
	notifier  notify.Notifier
	levels    LevelCache
	mu        sync.Mutex
}

func NewBudgetMonitor(evaluator *BudgetEvaluator, notifier notify.Notifier, levels LevelCache) *BudgetMonitor {
	return &BudgetMonitor{evaluator: evaluator, notifier: notifier, levels: levels}
}

func levelKey(userID string, month core.Month) string {
	return userID + "|" + month.String()
}

// Observe evaluates the month and notifies on a threshold crossing.
func (m *BudgetMonitor) Observe(ctx context.Context, sess core.Session, month core.Month) (core.BudgetStatus, error) {
	status, err := m.evaluator.Evaluate(ctx, sess, month)
	if err != nil {
		return core.BudgetStatus{}, err
	}

	key := levelKey(sess.UserID, month)
	m.mu.Lock()
	prev, _ := m.levels.Get(key)
	cur := status.Level()
	m.levels.Set(key, cur)
	m.mu.Unlock()

	if !core.Escalated(prev, cur) {
		return status, nil
	}

	slog.InfoContext(ctx, "Budget threshold crossed",
		applog.FieldComponent, applog.ComponentBudget,
		"user_id", sess.UserID,
		"month", month.String(),
		"from", prev.String(),
		"to", cur.String(),
		"percentage", status.Percentage)

	if m.notifier == nil {
		return status, nil
	}
	if cur == core.LevelExceeded {
		err = m.notifier.NotifyBudgetExceeded(ctx, sess.UserID, status.Spent, status.Ceiling)
	} else {
		err = m.notifier.NotifyBudgetWarning(ctx, sess.UserID, status.Percentage, status.Spent, status.Ceiling)
	}
	if err != nil {
		slog.ErrorContext(ctx, "Budget notification failed",
			applog.FieldComponent, applog.ComponentBudget,
			"user_id", sess.UserID,
			"month", month.String(),
			"error", err)
	}
	return status, nil
}

// Forget drops the remembered levels of an account.
func (m *BudgetMonitor) Forget(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels.DeletePrefix(userID + "|")
}
