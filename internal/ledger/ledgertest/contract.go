// Package ledgertest holds the behaviour every ledger.Store must share.
package ledgertest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashledger/internal/core"
	"cashledger/internal/ledger"
)

const user = "ada@example.com"

var errBoom = errors.New("boom")

func sample(id string, cents int64, kind core.Kind, category string, date core.Date) core.Transaction {
	return core.Transaction{
		ID:          id,
		Amount:      core.Money{Cents: cents},
		Description: "sample " + id,
		Kind:        kind,
		Category:    category,
		Date:        date,
	}
}

// Run exercises a fresh store produced by newStore.
func Run(t *testing.T, newStore func(t *testing.T) ledger.Store) {
	t.Run("transactions", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		tx := sample("a", 10050, core.Expense, "Food", core.NewDate(2024, 3, 1))

		_, err := s.GetTransaction(ctx, user, "a")
		require.ErrorIs(t, err, core.ErrNotFound)

		require.NoError(t, s.PutTransaction(ctx, user, tx))
		got, err := s.GetTransaction(ctx, user, "a")
		require.NoError(t, err)
		assert.Equal(t, tx, got)

		tx.Amount = core.Money{Cents: 99}
		require.NoError(t, s.PutTransaction(ctx, user, tx))
		got, err = s.GetTransaction(ctx, user, "a")
		require.NoError(t, err)
		assert.Equal(t, int64(99), got.Amount.Cents)

		_, err = s.GetTransaction(ctx, "someone@else", "a")
		require.ErrorIs(t, err, core.ErrNotFound, "records are scoped per user")

		removed, err := s.DeleteTransaction(ctx, user, "a")
		require.NoError(t, err)
		assert.Equal(t, tx, removed)
		_, err = s.DeleteTransaction(ctx, user, "a")
		require.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("malformed records are skipped", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.PutTransaction(ctx, user, sample("good", 100, core.Income, "Salary", core.NewDate(2024, 1, 5))))
		require.NoError(t, s.PutRawRecord(ctx, user, "bad", `{"amount":"x"}`))

		txs, err := s.ListTransactions(ctx, user)
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, "good", txs[0].ID)

		_, err = s.GetTransaction(ctx, user, "bad")
		require.ErrorIs(t, err, core.ErrMalformedRecord)

		raw, err := s.RawRecords(ctx, user)
		require.NoError(t, err)
		assert.Len(t, raw, 2)
		assert.Equal(t, `{"amount":"x"}`, raw["bad"])
	})

	t.Run("aggregate cells", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		march := core.Month{Year: 2024, Month: 3}

		agg, err := s.MonthlyAggregate(ctx, user, march)
		require.NoError(t, err)
		assert.Equal(t, core.MonthlyAggregate{Month: march}, agg)

		require.NoError(t, s.AddToMonth(ctx, user, march, core.Expense, core.Money{Cents: 500}))
		require.NoError(t, s.AddToMonth(ctx, user, march, core.Income, core.Money{Cents: 300}))
		require.NoError(t, s.AddToMonth(ctx, user, march, core.Expense, core.Money{Cents: -800}))
		agg, err = s.MonthlyAggregate(ctx, user, march)
		require.NoError(t, err)
		assert.Equal(t, int64(-300), agg.Expense.Cents, "cells are not clamped")
		assert.Equal(t, int64(300), agg.Income.Cents)

		require.NoError(t, s.AddToCategory(ctx, user, "Food", core.Expense, core.Money{Cents: 250}))
		require.NoError(t, s.AddToCategory(ctx, user, "Food", core.Income, core.Money{Cents: 10}))
		require.NoError(t, s.SetCategoryCell(ctx, user, "Rent", core.Expense, core.Money{Cents: 1000}))
		cats, err := s.ListCategoryAggregates(ctx, user)
		require.NoError(t, err)
		assert.ElementsMatch(t, []core.CategoryAggregate{
			{Category: "Food", Kind: core.Expense, Total: core.Money{Cents: 250}},
			{Category: "Food", Kind: core.Income, Total: core.Money{Cents: 10}},
			{Category: "Rent", Kind: core.Expense, Total: core.Money{Cents: 1000}},
		}, cats)

		april := core.Month{Year: 2024, Month: 4}
		require.NoError(t, s.SetMonthCell(ctx, user, april, core.Income, core.Money{Cents: 4200}))
		months, err := s.ListMonthlyAggregates(ctx, user)
		require.NoError(t, err)
		assert.ElementsMatch(t, []core.MonthlyAggregate{
			{Month: march, Income: core.Money{Cents: 300}, Expense: core.Money{Cents: -300}},
			{Month: april, Income: core.Money{Cents: 4200}},
		}, months)
	})

	t.Run("budget", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		cfg, err := s.GetBudget(ctx, user)
		require.NoError(t, err)
		assert.False(t, cfg.Set)

		require.NoError(t, s.SetBudget(ctx, user, core.Money{Cents: 100000}))
		cfg, err = s.GetBudget(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, core.BudgetConfig{Ceiling: core.Money{Cents: 100000}, Set: true}, cfg)
	})

	t.Run("accounts", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		acc := core.Account{Name: "Ada", Email: user, PasswordHash: "h1"}
		require.NoError(t, s.CreateAccount(ctx, acc))
		require.ErrorIs(t, s.CreateAccount(ctx, acc), core.ErrAccountExists)

		acc.PasswordHash = "h2"
		require.NoError(t, s.UpdateAccount(ctx, acc))
		got, err := s.GetAccount(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, "h2", got.PasswordHash)

		require.NoError(t, s.DeleteAccount(ctx, user))
		_, err = s.GetAccount(ctx, user)
		require.ErrorIs(t, err, core.ErrNotFound)
		require.ErrorIs(t, s.UpdateAccount(ctx, acc), core.ErrNotFound)
	})

	t.Run("clear user", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.PutTransaction(ctx, user, sample("a", 100, core.Expense, "Food", core.NewDate(2024, 3, 1))))
		require.NoError(t, s.PutTransaction(ctx, "other@example.com", sample("b", 100, core.Expense, "Food", core.NewDate(2024, 3, 1))))
		require.NoError(t, s.AddToMonth(ctx, user, core.Month{Year: 2024, Month: 3}, core.Expense, core.Money{Cents: 100}))
		require.NoError(t, s.AddToCategory(ctx, user, "Food", core.Expense, core.Money{Cents: 100}))
		require.NoError(t, s.SetBudget(ctx, user, core.Money{Cents: 500}))

		require.NoError(t, s.ClearUser(ctx, user))

		txs, err := s.ListTransactions(ctx, user)
		require.NoError(t, err)
		assert.Empty(t, txs)
		months, err := s.ListMonthlyAggregates(ctx, user)
		require.NoError(t, err)
		assert.Empty(t, months)
		cats, err := s.ListCategoryAggregates(ctx, user)
		require.NoError(t, err)
		assert.Empty(t, cats)
		cfg, err := s.GetBudget(ctx, user)
		require.NoError(t, err)
		assert.False(t, cfg.Set)

		others, err := s.ListTransactions(ctx, "other@example.com")
		require.NoError(t, err)
		assert.Len(t, others, 1)
	})

	t.Run("atomic unit commits", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		march := core.Month{Year: 2024, Month: 3}
		err := s.Atomically(ctx, func(u ledger.Unit) error {
			if err := u.PutTransaction(ctx, user, sample("a", 100, core.Expense, "Food", core.NewDate(2024, 3, 1))); err != nil {
				return err
			}
			return u.AddToMonth(ctx, user, march, core.Expense, core.Money{Cents: 100})
		})
		require.NoError(t, err)
		agg, err := s.MonthlyAggregate(ctx, user, march)
		require.NoError(t, err)
		assert.Equal(t, int64(100), agg.Expense.Cents)
		_, err = s.GetTransaction(ctx, user, "a")
		require.NoError(t, err)
	})

	t.Run("atomic unit rolls back", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		march := core.Month{Year: 2024, Month: 3}
		require.NoError(t, s.AddToMonth(ctx, user, march, core.Expense, core.Money{Cents: 100}))

		err := s.Atomically(ctx, func(u ledger.Unit) error {
			if err := u.PutTransaction(ctx, user, sample("a", 100, core.Expense, "Food", core.NewDate(2024, 3, 1))); err != nil {
				return err
			}
			if err := u.AddToMonth(ctx, user, march, core.Expense, core.Money{Cents: 100}); err != nil {
				return err
			}
			if err := u.SetBudget(ctx, user, core.Money{Cents: 1}); err != nil {
				return err
			}
			return errBoom
		})
		require.ErrorIs(t, err, errBoom)

		agg, err := s.MonthlyAggregate(ctx, user, march)
		require.NoError(t, err)
		assert.Equal(t, int64(100), agg.Expense.Cents)
		_, err = s.GetTransaction(ctx, user, "a")
		require.ErrorIs(t, err, core.ErrNotFound)
		cfg, err := s.GetBudget(ctx, user)
		require.NoError(t, err)
		assert.False(t, cfg.Set)
	})
}
