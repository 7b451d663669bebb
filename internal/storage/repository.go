package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cashledger/internal/core"
	"cashledger/internal/ledger"
	applog "cashledger/internal/log"

	_ "modernc.org/sqlite"
)

// queryer is the subset of *sql.DB and *sql.Tx the repository needs.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteRepository is the SQLite-backed ledger store.
type SQLiteRepository struct {
	db *sql.DB
	queries
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(ctx context.Context, dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(ctx, dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serialises units of work.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteRepository{db: db, queries: queries{q: db}}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Atomically runs fn inside one SQL transaction.
func (r *SQLiteRepository) Atomically(ctx context.Context, fn func(ledger.Unit) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&queries{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", applog.FieldComponent, applog.ComponentStorage, "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// queries implements ledger.Unit over either the database or a transaction.
type queries struct {
	q queryer
}

func (s *queries) PutTransaction(ctx context.Context, userID string, tx core.Transaction) error {
	raw, err := core.EncodeRecord(tx)
	if err != nil {
		return fmt.Errorf("encode transaction %s: %w", tx.ID, err)
	}
	return s.PutRawRecord(ctx, userID, tx.ID, string(raw))
}

func (s *queries) PutRawRecord(ctx context.Context, userID, id, raw string) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO transactions (user_id, id, record) VALUES (?, ?, ?)
		ON CONFLICT (user_id, id) DO UPDATE SET record = excluded.record, updated_at = CURRENT_TIMESTAMP`,
		userID, id, raw)
	if err != nil {
		return fmt.Errorf("put transaction %s: %w", id, err)
	}
	return nil
}

func (s *queries) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	var raw string
	err := s.q.QueryRowContext(ctx,
		`SELECT record FROM transactions WHERE user_id = ? AND id = ?`, userID, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return core.DecodeRecord(id, []byte(raw))
}

func (s *queries) DeleteTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	tx, err := s.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if _, err := s.q.ExecContext(ctx,
		`DELETE FROM transactions WHERE user_id = ? AND id = ?`, userID, id); err != nil {
		return core.Transaction{}, fmt.Errorf("delete transaction %s: %w", id, err)
	}
	return tx, nil
}

func (s *queries) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	raw, err := s.RawRecords(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]core.Transaction, 0, len(raw))
	for id, rec := range raw {
		tx, err := core.DecodeRecord(id, []byte(rec))
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed transaction record",
				applog.FieldComponent, applog.ComponentStorage,
				"user_id", userID,
				"transaction_id", id,
				"error", err)
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (s *queries) RawRecords(ctx context.Context, userID string) (map[string]string, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, record FROM transactions WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var id, rec string
		if err := rows.Scan(&id, &rec); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out[id] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (s *queries) AddToMonth(ctx context.Context, userID string, month core.Month, kind core.Kind, delta core.Money) error {
	if err := kind.Validate(); err != nil {
		return err
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO monthly_aggregates (user_id, month, kind, total_cents) VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, month, kind) DO UPDATE SET total_cents = total_cents + excluded.total_cents`,
		userID, month.String(), string(kind), delta.Cents)
	if err != nil {
		return fmt.Errorf("add to month %s %s: %w", month, kind, err)
	}
	return nil
}

func (s *queries) SetMonthCell(ctx context.Context, userID string, month core.Month, kind core.Kind, value core.Money) error {
	if err := kind.Validate(); err != nil {
		return err
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO monthly_aggregates (user_id, month, kind, total_cents) VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, month, kind) DO UPDATE SET total_cents = excluded.total_cents`,
		userID, month.String(), string(kind), value.Cents)
	if err != nil {
		return fmt.Errorf("set month %s %s: %w", month, kind, err)
	}
	return nil
}

func (s *queries) AddToCategory(ctx context.Context, userID, category string, kind core.Kind, delta core.Money) error {
	if err := kind.Validate(); err != nil {
		return err
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO category_aggregates (user_id, category, kind, total_cents) VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, category, kind) DO UPDATE SET total_cents = total_cents + excluded.total_cents`,
		userID, category, string(kind), delta.Cents)
	if err != nil {
		return fmt.Errorf("add to category %s %s: %w", category, kind, err)
	}
	return nil
}

func (s *queries) SetCategoryCell(ctx context.Context, userID, category string, kind core.Kind, value core.Money) error {
	if err := kind.Validate(); err != nil {
		return err
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO category_aggregates (user_id, category, kind, total_cents) VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, category, kind) DO UPDATE SET total_cents = excluded.total_cents`,
		userID, category, string(kind), value.Cents)
	if err != nil {
		return fmt.Errorf("set category %s %s: %w", category, kind, err)
	}
	return nil
}

func (s *queries) MonthlyAggregate(ctx context.Context, userID string, month core.Month) (core.MonthlyAggregate, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT month, kind, total_cents FROM monthly_aggregates WHERE user_id = ? AND month = ?`,
		userID, month.String())
	if err != nil {
		return core.MonthlyAggregate{}, fmt.Errorf("get month %s: %w", month, err)
	}
	aggs, err := scanMonthly(rows)
	if err != nil {
		return core.MonthlyAggregate{}, err
	}
	if len(aggs) == 0 {
		return core.MonthlyAggregate{Month: month}, nil
	}
	return aggs[0], nil
}

func (s *queries) ListMonthlyAggregates(ctx context.Context, userID string) ([]core.MonthlyAggregate, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT month, kind, total_cents FROM monthly_aggregates WHERE user_id = ? ORDER BY month`, userID)
	if err != nil {
		return nil, fmt.Errorf("list monthly aggregates: %w", err)
	}
	return scanMonthly(rows)
}

// scanMonthly folds (month, kind, cents) rows into one aggregate per month,
// preserving the row order of months.
func scanMonthly(rows *sql.Rows) ([]core.MonthlyAggregate, error) {
	defer rows.Close()
	var out []core.MonthlyAggregate
	index := map[core.Month]int{}
	for rows.Next() {
		var monthKey, kind string
		var cents int64
		if err := rows.Scan(&monthKey, &kind, &cents); err != nil {
			return nil, fmt.Errorf("scan monthly aggregate: %w", err)
		}
		month, err := core.ParseMonth(monthKey)
		if err != nil {
			return nil, fmt.Errorf("scan monthly aggregate: %w", err)
		}
		i, ok := index[month]
		if !ok {
			i = len(out)
			index[month] = i
			out = append(out, core.MonthlyAggregate{Month: month})
		}
		out[i].Add(core.Kind(kind), core.Money{Cents: cents})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate monthly aggregates: %w", err)
	}
	return out, nil
}

func (s *queries) ListCategoryAggregates(ctx context.Context, userID string) ([]core.CategoryAggregate, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT category, kind, total_cents FROM category_aggregates WHERE user_id = ? ORDER BY category, kind`, userID)
	if err != nil {
		return nil, fmt.Errorf("list category aggregates: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryAggregate
	for rows.Next() {
		var agg core.CategoryAggregate
		var kind string
		if err := rows.Scan(&agg.Category, &kind, &agg.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan category aggregate: %w", err)
		}
		agg.Kind = core.Kind(kind)
		out = append(out, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category aggregates: %w", err)
	}
	return out, nil
}

func (s *queries) GetBudget(ctx context.Context, userID string) (core.BudgetConfig, error) {
	var cents int64
	err := s.q.QueryRowContext(ctx,
		`SELECT ceiling_cents FROM budgets WHERE user_id = ?`, userID).Scan(&cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BudgetConfig{}, nil
	}
	if err != nil {
		return core.BudgetConfig{}, fmt.Errorf("get budget: %w", err)
	}
	return core.BudgetConfig{Ceiling: core.Money{Cents: cents}, Set: true}, nil
}

func (s *queries) SetBudget(ctx context.Context, userID string, ceiling core.Money) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO budgets (user_id, ceiling_cents) VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET ceiling_cents = excluded.ceiling_cents`,
		userID, ceiling.Cents)
	if err != nil {
		return fmt.Errorf("set budget: %w", err)
	}
	return nil
}

func (s *queries) GetAccount(ctx context.Context, email string) (core.Account, error) {
	var acc core.Account
	err := s.q.QueryRowContext(ctx,
		`SELECT email, name, password_hash FROM accounts WHERE email = ?`, email).
		Scan(&acc.Email, &acc.Name, &acc.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return acc, nil
}

func (s *queries) CreateAccount(ctx context.Context, acc core.Account) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO accounts (email, name, password_hash) VALUES (?, ?, ?)`,
		acc.Email, acc.Name, acc.PasswordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return core.ErrAccountExists
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *queries) UpdateAccount(ctx context.Context, acc core.Account) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE accounts SET name = ?, password_hash = ? WHERE email = ?`,
		acc.Name, acc.PasswordHash, acc.Email)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return requireAffected(res)
}

func (s *queries) DeleteAccount(ctx context.Context, email string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM accounts WHERE email = ?`, email)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return requireAffected(res)
}

func (s *queries) ClearUser(ctx context.Context, userID string) error {
	for _, table := range []string{"transactions", "monthly_aggregates", "category_aggregates", "budgets"} {
		if _, err := s.q.ExecContext(ctx, "DELETE FROM "+table+" WHERE user_id = ?", userID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}
