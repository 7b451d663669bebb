package memory

import (
	"context"
	"errors"
	"testing"

	"cashledger/internal/core"
	"cashledger/internal/ledger"
	"cashledger/internal/ledger/ledgertest"
)

func TestStoreContract(t *testing.T) {
	ledgertest.Run(t, func(t *testing.T) ledger.Store { return New() })
}

func TestAtomicallyHonoursCancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := s.Atomically(ctx, func(ledger.Unit) error {
		called = true
		return nil
	})
	if err == nil || called {
		t.Fatalf("expected cancelled unit to be skipped, err=%v called=%v", err, called)
	}
}

func TestUnitWritesStayPrivateUntilCommit(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.Atomically(ctx, func(u ledger.Unit) error {
		if err := u.SetBudget(ctx, "u", core.Money{Cents: 10}); err != nil {
			t.Fatalf("set budget: %v", err)
		}
		if s.st.users["u"] != nil && s.st.users["u"].budget != nil {
			t.Fatalf("live state changed before commit")
		}
		return nil
	})
	cfg, _ := s.GetBudget(ctx, "u")
	if !cfg.Set || cfg.Ceiling.Cents != 10 {
		t.Fatalf("unexpected budget after commit: %+v", cfg)
	}
}

func TestUnitCopiesOnlyTouchedUsers(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.SetBudget(ctx, "a", core.Money{Cents: 10}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetBudget(ctx, "b", core.Money{Cents: 20}); err != nil {
		t.Fatal(err)
	}
	before := s.st.users["b"]

	err := s.Atomically(ctx, func(u ledger.Unit) error {
		return u.SetBudget(ctx, "a", core.Money{Cents: 11})
	})
	if err != nil {
		t.Fatal(err)
	}
	if s.st.users["b"] != before {
		t.Fatalf("untouched user was copied")
	}
	cfg, _ := s.GetBudget(ctx, "a")
	if cfg.Ceiling.Cents != 11 {
		t.Fatalf("budget = %d, want 11", cfg.Ceiling.Cents)
	}
}

func TestFailedUnitLeavesUsersAndAccounts(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.CreateAccount(ctx, core.Account{Name: "Ada", Email: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetBudget(ctx, "a", core.Money{Cents: 10}); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := s.Atomically(ctx, func(u ledger.Unit) error {
		if err := u.ClearUser(ctx, "a"); err != nil {
			return err
		}
		if err := u.DeleteAccount(ctx, "a"); err != nil {
			return err
		}
		if _, err := u.GetAccount(ctx, "a"); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("unit should see its own delete, got %v", err)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if _, err := s.GetAccount(ctx, "a"); err != nil {
		t.Fatalf("account lost after rollback: %v", err)
	}
	cfg, _ := s.GetBudget(ctx, "a")
	if !cfg.Set || cfg.Ceiling.Cents != 10 {
		t.Fatalf("budget lost after rollback: %+v", cfg)
	}
}

func TestClearedUserIsDroppedOnCommit(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.SetBudget(ctx, "a", core.Money{Cents: 10}); err != nil {
		t.Fatal(err)
	}
	err := s.Atomically(ctx, func(u ledger.Unit) error { return u.ClearUser(ctx, "a") })
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.st.users["a"]; ok {
		t.Fatalf("cleared user still held in memory")
	}
}
