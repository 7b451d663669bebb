package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashledger/internal/core"
)

func ids(txs []core.Transaction) []string {
	out := make([]string, len(txs))
	for i, tx := range txs {
		out[i] = tx.ID
	}
	return out
}

func seedQueryData(t *testing.T, h *harness) {
	t.Helper()
	ctx := context.Background()
	for _, tx := range []core.Transaction{
		txn("m1", 10000, core.Expense, "Food", core.NewDate(2024, 3, 1)),
		txn("m2", 5000, core.Income, "Salary", core.NewDate(2024, 3, 2)),
		txn("m3", 2500, core.Expense, "Rent", core.NewDate(2024, 3, 2)),
		txn("m0", 700, core.Expense, "Food", core.NewDate(2024, 3, 2)),
		txn("f1", 4000, core.Expense, "Food", core.NewDate(2024, 2, 28)),
		txn("a1", 1500, core.Income, "Salary", core.NewDate(2024, 4, 1)),
	} {
		_, err := h.ledger.Create(ctx, ada, tx)
		require.NoError(t, err)
	}
}

func TestQueryByMonthNewestFirst(t *testing.T) {
	h := newMemoryHarness(t)
	seedQueryData(t, h)
	ctx := context.Background()

	month, err := core.ParseMonth("2024-03")
	require.NoError(t, err)
	view, err := h.query.Query(ada, Filter{Month: &month})
	require.NoError(t, err)
	txs, err := view.Collect(ctx)
	require.NoError(t, err)
	// Same-day entries keep creation order by ID.
	assert.Equal(t, []string{"m0", "m2", "m3", "m1"}, ids(txs))
}

func TestQueryFilters(t *testing.T) {
	h := newMemoryHarness(t)
	seedQueryData(t, h)
	ctx := context.Background()
	income := core.Income
	food := "Food"
	feb := core.Month{Year: 2024, Month: 2}

	cases := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", Filter{}, []string{"a1", "m0", "m2", "m3", "m1", "f1"}},
		{"income", Filter{Kind: &income}, []string{"a1", "m2"}},
		{"category", Filter{Category: &food}, []string{"m0", "m1", "f1"}},
		{"category and month", Filter{Category: &food, Month: &feb}, []string{"f1"}},
		{"recent", Filter{Limit: 2}, []string{"a1", "m0"}},
		{"no match", Filter{Kind: &income, Month: &feb}, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			view, err := h.query.Query(ada, tc.filter)
			require.NoError(t, err)
			txs, err := view.Collect(ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ids(txs))
		})
	}
}

func TestQueryRejectsBadInput(t *testing.T) {
	h := newMemoryHarness(t)
	bad := core.Kind("loan")
	_, err := h.query.Query(ada, Filter{Kind: &bad})
	require.ErrorIs(t, err, core.ErrInvalidKind)
	_, err = h.query.Query(core.Session{}, Filter{})
	require.ErrorIs(t, err, core.ErrNoSession)
}

func TestViewIsRestartable(t *testing.T) {
	h := newMemoryHarness(t)
	ctx := context.Background()
	view, err := h.query.Query(ada, Filter{})
	require.NoError(t, err)

	txs, err := view.Collect(ctx)
	require.NoError(t, err)
	assert.Empty(t, txs)

	seedQueryData(t, h)
	before := cells(t, h.store, ada.UserID)
	var seen []string
	for tx, err := range view.All(ctx) {
		require.NoError(t, err)
		seen = append(seen, tx.ID)
		if len(seen) == 3 {
			break
		}
	}
	assert.Equal(t, []string{"a1", "m0", "m2"}, seen)

	txs, err = view.Collect(ctx)
	require.NoError(t, err)
	assert.Len(t, txs, 6)

	// Reading never touches the aggregates.
	assert.Equal(t, before, cells(t, h.store, ada.UserID))
	requireConsistent(t, h.store, ada.UserID)
}

func TestQuerySkipsMalformedRecords(t *testing.T) {
	h := newMemoryHarness(t)
	seedQueryData(t, h)
	ctx := context.Background()
	require.NoError(t, h.store.PutRawRecord(ctx, ada.UserID, "broken", `{"amount":12}`))

	view, err := h.query.Query(ada, Filter{})
	require.NoError(t, err)
	txs, err := view.Collect(ctx)
	require.NoError(t, err)
	assert.Len(t, txs, 6)

	report, err := h.audit.Check(ctx, ada)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.True(t, report.Consistent())
}

func TestCategorySummary(t *testing.T) {
	h := newMemoryHarness(t)
	seedQueryData(t, h)
	ctx := context.Background()

	overview, err := h.query.CategorySummary(ctx, ada, march)
	require.NoError(t, err)
	assert.Equal(t, march, overview.Month)
	assert.Equal(t, int64(13200), overview.Expense.Cents)
	assert.Equal(t, int64(5000), overview.Income.Cents)
	assert.Equal(t, int64(-8200), overview.Balance().Cents)
	assert.Equal(t, []core.CategoryAmount{
		{Name: "Food", Amount: core.Money{Cents: 10700}},
		{Name: "Rent", Amount: core.Money{Cents: 2500}},
	}, overview.ExpenseByCategory)
	assert.Equal(t, []core.CategoryAmount{
		{Name: "Salary", Amount: core.Money{Cents: 5000}},
	}, overview.IncomeByCategory)

	empty, err := h.query.CategorySummary(ctx, ada, core.Month{Year: 2023, Month: 1})
	require.NoError(t, err)
	assert.Empty(t, empty.ExpenseByCategory)
	assert.True(t, empty.Expense.IsZero())
}
