package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"cashledger/internal/core"
)

// Notification types carried on the queue.
const (
	TypeBudgetWarning  = "budget_warning"
	TypeBudgetExceeded = "budget_exceeded"
	TypeDailyReminder  = "daily_reminder"
	TypeBackupResult   = "backup_result"
)

// NotificationMessage is one notification handed to the delivery worker.
// Amounts travel as decimal strings.
type NotificationMessage struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	Percentage int       `json:"percentage,omitempty"`
	Spent      string    `json:"spent,omitempty"`
	Ceiling    string    `json:"ceiling,omitempty"`
	Success    bool      `json:"success,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewNotificationMessage creates a message of the given type stamped now.
func NewNotificationMessage(typ, userID string) *NotificationMessage {
	return &NotificationMessage{
		Type:      typ,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *NotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// NotificationMessageFromJSON parses and validates a message.
func NotificationMessageFromJSON(data []byte) (*NotificationMessage, error) {
	var msg NotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" {
		return nil, fmt.Errorf("notification without user_id")
	}
	switch msg.Type {
	case TypeBudgetWarning, TypeBudgetExceeded, TypeDailyReminder, TypeBackupResult:
	default:
		return nil, fmt.Errorf("unknown notification type %q", msg.Type)
	}
	return &msg, nil
}

// Amounts returns the spent and ceiling amounts of a budget message.
func (m *NotificationMessage) Amounts() (spent, ceiling core.Money, err error) {
	if spent, err = core.ParseMoney(m.Spent); err != nil {
		return core.Money{}, core.Money{}, fmt.Errorf("spent: %w", err)
	}
	if ceiling, err = core.ParseMoney(m.Ceiling); err != nil {
		return core.Money{}, core.Money{}, fmt.Errorf("ceiling: %w", err)
	}
	return spent, ceiling, nil
}
