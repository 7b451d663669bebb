// Package ledger declares the persistence ports of the ledger: transaction
// records, aggregate cells, budget configuration and accounts.
package ledger

import (
	"context"

	"cashledger/internal/core"
)

// Ports for storage adapters. Every method is scoped by the account email
// (userID) of the caller.
type (
	TransactionStore interface {
		// PutTransaction inserts or replaces the record stored under tx.ID.
		PutTransaction(ctx context.Context, userID string, tx core.Transaction) error
		// GetTransaction returns core.ErrNotFound on miss and a wrapped
		// core.ErrMalformedRecord when the stored record cannot be decoded.
		GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
		// DeleteTransaction removes the record and returns what was removed.
		DeleteTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
		// ListTransactions returns every decodable record, unordered.
		// Malformed records are skipped and logged.
		ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	}

	// RawRecordStore exposes records exactly as persisted, for backups.
	RawRecordStore interface {
		RawRecords(ctx context.Context, userID string) (map[string]string, error)
		PutRawRecord(ctx context.Context, userID, id, raw string) error
	}

	AggregateStore interface {
		// AddToMonth applies a signed delta to one monthly cell. Cells are
		// never clamped.
		AddToMonth(ctx context.Context, userID string, month core.Month, kind core.Kind, delta core.Money) error
		// AddToCategory applies a signed delta to one category cell.
		AddToCategory(ctx context.Context, userID, category string, kind core.Kind, delta core.Money) error
		// MonthlyAggregate returns a zero aggregate for months never written.
		MonthlyAggregate(ctx context.Context, userID string, month core.Month) (core.MonthlyAggregate, error)
		ListMonthlyAggregates(ctx context.Context, userID string) ([]core.MonthlyAggregate, error)
		ListCategoryAggregates(ctx context.Context, userID string) ([]core.CategoryAggregate, error)
		SetMonthCell(ctx context.Context, userID string, month core.Month, kind core.Kind, value core.Money) error
		SetCategoryCell(ctx context.Context, userID, category string, kind core.Kind, value core.Money) error
	}

	BudgetStore interface {
		GetBudget(ctx context.Context, userID string) (core.BudgetConfig, error)
		SetBudget(ctx context.Context, userID string, ceiling core.Money) error
	}

	AccountStore interface {
		GetAccount(ctx context.Context, email string) (core.Account, error)
		// CreateAccount returns core.ErrAccountExists when the email is taken.
		CreateAccount(ctx context.Context, acc core.Account) error
		UpdateAccount(ctx context.Context, acc core.Account) error
		DeleteAccount(ctx context.Context, email string) error
	}

	// Unit is the view of the store handed to an atomic unit of work.
	Unit interface {
		TransactionStore
		RawRecordStore
		AggregateStore
		BudgetStore
		AccountStore
		// ClearUser drops transactions, aggregates and budget of the user.
		ClearUser(ctx context.Context, userID string) error
	}

	// Store is a Unit whose single calls each commit on their own, plus
	// Atomically for multi-step mutations. fn must only use the Unit it is
	// given; the writes it made are discarded when it returns an error.
	Store interface {
		Unit
		Atomically(ctx context.Context, fn func(Unit) error) error
		Close() error
	}

	// TaxonomyReader lists suggested categories for a kind.
	TaxonomyReader interface {
		List(ctx context.Context, kind core.Kind) ([]string, error)
	}
)
