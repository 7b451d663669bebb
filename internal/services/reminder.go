package services

import (
	"context"
	"fmt"
	"time"

	"cashledger/internal/core"
	"cashledger/internal/ledger"
	"cashledger/internal/notify"
)

// Reminder sends the daily "log your transactions" reminder. When to send
// it is up to the caller.
type Reminder struct {
	reader   ledger.TransactionStore
	notifier notify.Notifier
	now      func() time.Time
}

func NewReminder(reader ledger.TransactionStore, notifier notify.Notifier) *Reminder {
	return &Reminder{reader: reader, notifier: notifier, now: time.Now}
}

// Remind notifies the account unless it already logged a transaction dated
// today. It reports whether a reminder was sent.
func (r *Reminder) Remind(ctx context.Context, sess core.Session) (bool, error) {
	if err := sess.Validate(); err != nil {
		return false, err
	}
	txs, err := r.reader.ListTransactions(ctx, sess.UserID)
	if err != nil {
		return false, fmt.Errorf("list transactions: %w", err)
	}
	today := core.DateOf(r.now())
	for _, tx := range txs {
		if tx.Date.Equal(today.Time) {
			return false, nil
		}
	}
	if r.notifier == nil {
		return false, nil
	}
	if err := r.notifier.NotifyDailyReminder(ctx, sess.UserID); err != nil {
		return false, fmt.Errorf("send reminder: %w", err)
	}
	return true, nil
}
