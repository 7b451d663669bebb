package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"cashledger/internal/core"
)

type failing struct{ Recorder }

func (f *failing) NotifyDailyReminder(context.Context, string) error {
	return errors.New("channel down")
}

func TestMultiCallsEveryNotifier(t *testing.T) {
	first := &failing{}
	second := &Recorder{}
	m := Multi{first, nil, second}

	err := m.NotifyDailyReminder(context.Background(), "ada@example.com")
	if err == nil || !strings.Contains(err.Error(), "channel down") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if got := second.Events(); len(got) != 1 || got[0].Kind != KindDailyReminder {
		t.Fatalf("second notifier not called: %+v", got)
	}

	if err := m.NotifyBudgetWarning(context.Background(), "ada@example.com", 80, core.Money{Cents: 800}, core.Money{Cents: 1000}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := first.Events(); len(got) != 1 || got[0].Percentage != 80 {
		t.Fatalf("first notifier not called: %+v", got)
	}
}

func TestLogNotifierWritesStructuredRecords(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))
	ctx := context.Background()

	_ = n.NotifyBudgetExceeded(ctx, "ada@example.com", core.Money{Cents: 120000}, core.Money{Cents: 100000})
	_ = n.NotifyBackupResult(ctx, "ada@example.com", false)

	out := buf.String()
	for _, want := range []string{"Budget exceeded", "over_by=200.00", "Backup failed", "user_id=ada@example.com"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output missing %q:\n%s", want, out)
		}
	}
}
