package notify

import (
	"context"
	"sync"

	"cashledger/internal/core"
)

// Recorder keeps every notification in memory. Useful in tests and as a
// stand-in when no delivery channel is configured.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) add(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of what was recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *Recorder) NotifyBudgetWarning(_ context.Context, userID string, percentage int, spent, ceiling core.Money) error {
	return r.add(Event{Kind: KindBudgetWarning, UserID: userID, Percentage: percentage, Spent: spent, Ceiling: ceiling})
}

func (r *Recorder) NotifyBudgetExceeded(_ context.Context, userID string, spent, ceiling core.Money) error {
	return r.add(Event{Kind: KindBudgetExceeded, UserID: userID, Spent: spent, Ceiling: ceiling})
}

func (r *Recorder) NotifyDailyReminder(_ context.Context, userID string) error {
	return r.add(Event{Kind: KindDailyReminder, UserID: userID})
}

func (r *Recorder) NotifyBackupResult(_ context.Context, userID string, success bool) error {
	return r.add(Event{Kind: KindBackupResult, UserID: userID, Success: success})
}
