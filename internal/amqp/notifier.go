package amqp

import (
	"context"
	"fmt"

	"cashledger/internal/core"
	"cashledger/internal/notify"
)

// Publisher is the publishing half of Client.
type Publisher interface {
	PublishNotification(ctx context.Context, msg *NotificationMessage) error
}

// Notifier implements notify.Notifier by queueing messages for the
// delivery worker.
type Notifier struct {
	pub Publisher
}

var _ notify.Notifier = (*Notifier)(nil)

func NewNotifier(pub Publisher) *Notifier {
	return &Notifier{pub: pub}
}

func (n *Notifier) NotifyBudgetWarning(ctx context.Context, userID string, percentage int, spent, ceiling core.Money) error {
	msg := NewNotificationMessage(TypeBudgetWarning, userID)
	msg.Percentage = percentage
	msg.Spent, msg.Ceiling = spent.String(), ceiling.String()
	return n.pub.PublishNotification(ctx, msg)
}

func (n *Notifier) NotifyBudgetExceeded(ctx context.Context, userID string, spent, ceiling core.Money) error {
	msg := NewNotificationMessage(TypeBudgetExceeded, userID)
	msg.Spent, msg.Ceiling = spent.String(), ceiling.String()
	return n.pub.PublishNotification(ctx, msg)
}

func (n *Notifier) NotifyDailyReminder(ctx context.Context, userID string) error {
	return n.pub.PublishNotification(ctx, NewNotificationMessage(TypeDailyReminder, userID))
}

func (n *Notifier) NotifyBackupResult(ctx context.Context, userID string, success bool) error {
	msg := NewNotificationMessage(TypeBackupResult, userID)
	msg.Success = success
	return n.pub.PublishNotification(ctx, msg)
}

// Deliver replays a queued message on a local notifier.
func Deliver(ctx context.Context, n notify.Notifier, msg *NotificationMessage) error {
	switch msg.Type {
	case TypeBudgetWarning, TypeBudgetExceeded:
		spent, ceiling, err := msg.Amounts()
		if err != nil {
			return fmt.Errorf("decode %s: %w", msg.Type, err)
		}
		if msg.Type == TypeBudgetWarning {
			return n.NotifyBudgetWarning(ctx, msg.UserID, msg.Percentage, spent, ceiling)
		}
		return n.NotifyBudgetExceeded(ctx, msg.UserID, spent, ceiling)
	case TypeDailyReminder:
		return n.NotifyDailyReminder(ctx, msg.UserID)
	case TypeBackupResult:
		return n.NotifyBackupResult(ctx, msg.UserID, msg.Success)
	default:
		return fmt.Errorf("unknown notification type %q", msg.Type)
	}
}
