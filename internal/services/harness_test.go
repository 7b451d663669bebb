package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cashledger/internal/cache"
	"cashledger/internal/core"
	"cashledger/internal/ledger"
	"cashledger/internal/ledger/memory"
	"cashledger/internal/notify"
	"cashledger/internal/storage"
)

var (
	ada   = core.Session{UserID: "ada@example.com"}
	march = core.Month{Year: 2024, Month: time.March}
	april = core.Month{Year: 2024, Month: time.April}
)

type harness struct {
	store   ledger.Store
	ledger  *LedgerService
	monitor *BudgetMonitor
	query   *QueryEngine
	audit   *Auditor
	events  *notify.Recorder
}

func newHarness(t *testing.T, store ledger.Store) *harness {
	t.Helper()
	events := &notify.Recorder{}
	monitor := NewBudgetMonitor(NewBudgetEvaluator(store), events, cache.NewLRUCache[core.BudgetLevel](100, time.Hour))
	svc := NewLedgerService(store, monitor)
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) }
	return &harness{
		store:   store,
		ledger:  svc,
		monitor: monitor,
		query:   NewQueryEngine(store),
		audit:   NewAuditor(store),
		events:  events,
	}
}

func newMemoryHarness(t *testing.T) *harness {
	return newHarness(t, memory.New())
}

func newSQLiteStore(t *testing.T) ledger.Store {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(context.Background(), filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

// backends returns a constructor per store implementation.
func backends() map[string]func(t *testing.T) ledger.Store {
	return map[string]func(t *testing.T) ledger.Store{
		"memory": func(*testing.T) ledger.Store { return memory.New() },
		"sqlite": newSQLiteStore,
	}
}

func txn(id string, cents int64, kind core.Kind, category string, date core.Date) core.Transaction {
	return core.Transaction{
		ID:          id,
		Amount:      core.Money{Cents: cents},
		Description: "entry " + id,
		Kind:        kind,
		Category:    category,
		Date:        date,
	}
}

// requireConsistent recomputes every aggregate from the stored records and
// compares it with the persisted cells.
func requireConsistent(t *testing.T, store ledger.Store, userID string) {
	t.Helper()
	ctx := context.Background()
	txs, err := store.ListTransactions(ctx, userID)
	require.NoError(t, err)
	want := core.Recompute(txs)

	months, err := store.ListMonthlyAggregates(ctx, userID)
	require.NoError(t, err)
	got := map[core.Month]core.MonthlyAggregate{}
	for _, m := range months {
		got[m.Month] = m
	}
	for month, exp := range want.Monthly {
		require.Equal(t, exp.Income.Cents, got[month].Income.Cents, "income %s", month)
		require.Equal(t, exp.Expense.Cents, got[month].Expense.Cents, "expense %s", month)
	}
	for month, g := range got {
		require.Equal(t, want.Monthly[month].Income.Cents, g.Income.Cents, "income %s", month)
		require.Equal(t, want.Monthly[month].Expense.Cents, g.Expense.Cents, "expense %s", month)
	}

	cats, err := store.ListCategoryAggregates(ctx, userID)
	require.NoError(t, err)
	gotCats := map[core.CategoryKey]core.Money{}
	for _, c := range cats {
		gotCats[core.CategoryKey{Category: c.Category, Kind: c.Kind}] = c.Total
	}
	for key, exp := range want.Category {
		require.Equal(t, exp.Cents, gotCats[key].Cents, "category %v", key)
	}
	for key, g := range gotCats {
		require.Equal(t, want.Category[key].Cents, g.Cents, "category %v", key)
	}
}

// cells returns every aggregate cell keyed by a printable name.
func cells(t *testing.T, store ledger.Store, userID string) map[string]int64 {
	t.Helper()
	ctx := context.Background()
	out := map[string]int64{}
	months, err := store.ListMonthlyAggregates(ctx, userID)
	require.NoError(t, err)
	for _, m := range months {
		out[m.Month.String()+"_income"] = m.Income.Cents
		out[m.Month.String()+"_expense"] = m.Expense.Cents
	}
	cats, err := store.ListCategoryAggregates(ctx, userID)
	require.NoError(t, err)
	for _, c := range cats {
		out[c.Category+"_"+string(c.Kind)] = c.Total.Cents
	}
	return out
}

// nonZero drops zero cells so stores that keep emptied cells compare equal to
// stores that never had them.
func nonZero(m map[string]int64) map[string]int64 {
	out := map[string]int64{}
	for k, v := range m {
		if v != 0 {
			out[k] = v
		}
	}
	return out
}
