package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashledger/internal/core"
)

func TestAuditReportsMismatchedAndMissingCells(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, newStore(t))
			ctx := context.Background()

			_, err := h.ledger.Create(ctx, ada, txn("a", 1000, core.Expense, "Food", core.NewDate(2024, 3, 1)))
			require.NoError(t, err)
			_, err = h.ledger.Create(ctx, ada, txn("b", 500, core.Income, "Salary", core.NewDate(2024, 4, 1)))
			require.NoError(t, err)

			report, err := h.audit.Check(ctx, ada)
			require.NoError(t, err)
			assert.True(t, report.Consistent())

			require.NoError(t, h.store.SetCategoryCell(ctx, ada.UserID, "Food", core.Expense, core.Money{Cents: 900}))
			require.NoError(t, h.store.PutRawRecord(ctx, ada.UserID, "c",
				`{"amount":3.00,"description":"rent","type":"expense","category":"Rent","date":"2024-03-02"}`))

			report, err = h.audit.Check(ctx, ada)
			require.NoError(t, err)
			assert.False(t, report.Consistent())
			assert.Empty(t, report.Negative)
			require.Len(t, report.Mismatches, 3)

			// Monthly cells sort before category ones.
			monthly := report.Mismatches[0]
			assert.Equal(t, CellMonthly, monthly.Cell)
			assert.Equal(t, march, monthly.Month)
			assert.Equal(t, core.Expense, monthly.Kind)
			assert.Equal(t, int64(1000), monthly.Stored.Cents)
			assert.Equal(t, int64(1300), monthly.Expected.Cents)

			food := report.Mismatches[1]
			assert.Equal(t, CellCategory, food.Cell)
			assert.Equal(t, "Food", food.Category)
			assert.Equal(t, int64(900), food.Stored.Cents)
			assert.Equal(t, int64(1000), food.Expected.Cents)

			rent := report.Mismatches[2]
			assert.Equal(t, "Rent", rent.Category)
			assert.Zero(t, rent.Stored.Cents)
			assert.Equal(t, int64(300), rent.Expected.Cents)
		})
	}
}

func TestAuditCountsUndecodableRecords(t *testing.T) {
	h := newMemoryHarness(t)
	ctx := context.Background()
	require.NoError(t, h.store.PutRawRecord(ctx, ada.UserID, "junk", "not json"))

	report, err := h.audit.Check(ctx, ada)
	require.NoError(t, err)
	assert.True(t, report.Consistent())
	assert.Equal(t, 1, report.Skipped)
}

func TestAuditRequiresSession(t *testing.T) {
	h := newMemoryHarness(t)
	_, err := h.audit.Check(context.Background(), core.Session{})
	assert.ErrorIs(t, err, core.ErrNoSession)
}

func TestDiscrepancyJSONOmitsMonthForCategoryCells(t *testing.T) {
	category, err := json.Marshal(Discrepancy{Cell: CellCategory, Category: "Food", Kind: core.Expense})
	require.NoError(t, err)
	assert.NotContains(t, string(category), `"month"`)

	monthly, err := json.Marshal(Discrepancy{Cell: CellMonthly, Month: march, Kind: core.Expense})
	require.NoError(t, err)
	assert.Contains(t, string(monthly), `"month":"2024-03"`)
}
