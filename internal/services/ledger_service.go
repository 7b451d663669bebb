package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"cashledger/internal/core"
	"cashledger/internal/ledger"
)

// LedgerService is the only writer of transactions and their aggregates.
// Each mutation runs as one atomic unit on the store; the budget monitor is
// consulted after the unit commits.
type LedgerService struct {
	store   ledger.Store
	monitor *BudgetMonitor
	newID   func() (string, error)
	now     func() time.Time
}

func NewLedgerService(store ledger.Store, monitor *BudgetMonitor) *LedgerService {
	return &LedgerService{
		store:   store,
		monitor: monitor,
		newID:   newTransactionID,
		now:     time.Now,
	}
}

func newTransactionID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate transaction id: %w", err)
	}
	return id.String(), nil
}

// Create stores a new transaction and adds its amount to the monthly and
// category cells of its kind. An empty ID is generated.
func (s *LedgerService) Create(ctx context.Context, sess core.Session, tx core.Transaction) (core.Transaction, error) {
	if err := sess.Validate(); err != nil {
		return core.Transaction{}, err
	}
	tx = tx.Normalized()
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if tx.ID == "" {
		id, err := s.newID()
		if err != nil {
			return core.Transaction{}, err
		}
		tx.ID = id
	}

	err := s.store.Atomically(ctx, func(u ledger.Unit) error {
		_, err := u.GetTransaction(ctx, sess.UserID, tx.ID)
		switch {
		case err == nil, errors.Is(err, core.ErrMalformedRecord):
			return fmt.Errorf("%w: %s", core.ErrDuplicateID, tx.ID)
		case !errors.Is(err, core.ErrNotFound):
			return fmt.Errorf("check transaction %s: %w", tx.ID, err)
		}
		if err := applyContribution(ctx, u, sess.UserID, tx, 1); err != nil {
			return err
		}
		return u.PutTransaction(ctx, sess.UserID, tx)
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction created",
		"user_id", sess.UserID,
		"transaction_id", tx.ID,
		"type", tx.Kind,
		"amount", tx.Amount.String(),
		"category", tx.Category,
		"month", tx.Date.MonthKey().String())

	s.observe(ctx, sess, tx.Date.MonthKey())
	return tx, nil
}

// Update replaces the transaction stored under id. The old contribution is
// subtracted from its cells before the new one is added, so a move between
// months, categories or kinds and an in-place edit go through the same path.
func (s *LedgerService) Update(ctx context.Context, sess core.Session, id string, next core.Transaction) (core.Transaction, error) {
	if err := sess.Validate(); err != nil {
		return core.Transaction{}, err
	}
	next = next.Normalized()
	next.ID = id
	if err := next.Validate(); err != nil {
		return core.Transaction{}, err
	}

	var old core.Transaction
	err := s.store.Atomically(ctx, func(u ledger.Unit) error {
		var err error
		old, err = u.GetTransaction(ctx, sess.UserID, id)
		if err != nil {
			return err
		}
		if err := applyContribution(ctx, u, sess.UserID, old, -1); err != nil {
			return err
		}
		if err := applyContribution(ctx, u, sess.UserID, next, 1); err != nil {
			return err
		}
		return u.PutTransaction(ctx, sess.UserID, next)
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction updated",
		"user_id", sess.UserID,
		"transaction_id", id,
		"old_amount", old.Amount.String(),
		"new_amount", next.Amount.String(),
		"old_month", old.Date.MonthKey().String(),
		"new_month", next.Date.MonthKey().String())

	s.observe(ctx, sess, old.Date.MonthKey())
	if nm := next.Date.MonthKey(); nm != old.Date.MonthKey() {
		s.observe(ctx, sess, nm)
	}
	return next, nil
}

// Delete removes the transaction and subtracts its contribution. It returns
// the removed record.
func (s *LedgerService) Delete(ctx context.Context, sess core.Session, id string) (core.Transaction, error) {
	if err := sess.Validate(); err != nil {
		return core.Transaction{}, err
	}

	var removed core.Transaction
	err := s.store.Atomically(ctx, func(u ledger.Unit) error {
		old, err := u.GetTransaction(ctx, sess.UserID, id)
		if err != nil {
			return err
		}
		if err := applyContribution(ctx, u, sess.UserID, old, -1); err != nil {
			return err
		}
		removed, err = u.DeleteTransaction(ctx, sess.UserID, id)
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction deleted",
		"user_id", sess.UserID,
		"transaction_id", id,
		"amount", removed.Amount.String(),
		"month", removed.Date.MonthKey().String())

	s.observe(ctx, sess, removed.Date.MonthKey())
	return removed, nil
}

// Get returns one transaction of the session's account.
func (s *LedgerService) Get(ctx context.Context, sess core.Session, id string) (core.Transaction, error) {
	if err := sess.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return s.store.GetTransaction(ctx, sess.UserID, id)
}

// SetBudget configures the monthly ceiling. Zero clears the budget in effect:
// the evaluator reports it as no budget set.
func (s *LedgerService) SetBudget(ctx context.Context, sess core.Session, ceiling core.Money) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	if ceiling.Cents < 0 {
		verr := &core.ValidationError{}
		verr.Add("budget", core.ErrInvalidAmount)
		return verr
	}
	if err := s.store.SetBudget(ctx, sess.UserID, ceiling); err != nil {
		return fmt.Errorf("set budget: %w", err)
	}
	slog.InfoContext(ctx, "Budget updated", "user_id", sess.UserID, "ceiling", ceiling.String())

	s.observe(ctx, sess, core.MonthOf(s.now()))
	return nil
}

func (s *LedgerService) observe(ctx context.Context, sess core.Session, month core.Month) {
	if s.monitor == nil {
		return
	}
	if _, err := s.monitor.Observe(ctx, sess, month); err != nil {
		slog.ErrorContext(ctx, "Budget evaluation failed",
			"user_id", sess.UserID,
			"month", month.String(),
			"error", err)
	}
}

// applyContribution adds sign*amount to the monthly and category cells the
// transaction belongs to.
func applyContribution(ctx context.Context, u ledger.AggregateStore, userID string, tx core.Transaction, sign int64) error {
	delta := core.Money{Cents: sign * tx.Amount.Cents}
	if err := u.AddToMonth(ctx, userID, tx.Date.MonthKey(), tx.Kind, delta); err != nil {
		return fmt.Errorf("update monthly aggregate: %w", err)
	}
	if err := u.AddToCategory(ctx, userID, tx.Category, tx.Kind, delta); err != nil {
		return fmt.Errorf("update category aggregate: %w", err)
	}
	return nil
}
