// Package memory is an in-process ledger store. Atomic units copy the users
// they touch and publish those copies only on success.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"cashledger/internal/core"
	"cashledger/internal/ledger"
)

type userData struct {
	records  map[string]string
	monthly  map[core.Month]core.MonthlyAggregate
	category map[core.CategoryKey]core.Money
	budget   *core.Money
}

func newUserData() *userData {
	return &userData{
		records:  map[string]string{},
		monthly:  map[core.Month]core.MonthlyAggregate{},
		category: map[core.CategoryKey]core.Money{},
	}
}

func (u *userData) clone() *userData {
	c := newUserData()
	for k, v := range u.records {
		c.records[k] = v
	}
	for k, v := range u.monthly {
		c.monthly[k] = v
	}
	for k, v := range u.category {
		c.category[k] = v
	}
	if u.budget != nil {
		b := *u.budget
		c.budget = &b
	}
	return c
}

func (u *userData) empty() bool {
	return len(u.records) == 0 && len(u.monthly) == 0 && len(u.category) == 0 && u.budget == nil
}

type state struct {
	users    map[string]*userData
	accounts map[string]core.Account
}

func newState() *state {
	return &state{users: map[string]*userData{}, accounts: map[string]core.Account{}}
}

// Store keeps every account's ledger in memory.
type Store struct {
	mu sync.Mutex
	st *state
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: newState()}
}

// Atomically runs fn against private copies of the users and accounts it
// touches and publishes them when fn succeeds. Units are serialised.
func (s *Store) Atomically(ctx context.Context, fn func(ledger.Unit) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	u := &unit{st: s.st, staged: map[string]*userData{}}
	if err := fn(u); err != nil {
		return err
	}
	u.commit()
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) do(fn func(u *unit) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&unit{st: s.st})
}

func (s *Store) PutTransaction(ctx context.Context, userID string, tx core.Transaction) error {
	return s.do(func(u *unit) error { return u.PutTransaction(ctx, userID, tx) })
}

func (s *Store) GetTransaction(ctx context.Context, userID, id string) (tx core.Transaction, err error) {
	err = s.do(func(u *unit) error {
		tx, err = u.GetTransaction(ctx, userID, id)
		return err
	})
	return tx, err
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) (tx core.Transaction, err error) {
	err = s.do(func(u *unit) error {
		tx, err = u.DeleteTransaction(ctx, userID, id)
		return err
	})
	return tx, err
}

func (s *Store) ListTransactions(ctx context.Context, userID string) (txs []core.Transaction, err error) {
	err = s.do(func(u *unit) error {
		txs, err = u.ListTransactions(ctx, userID)
		return err
	})
	return txs, err
}

func (s *Store) RawRecords(ctx context.Context, userID string) (out map[string]string, err error) {
	err = s.do(func(u *unit) error {
		out, err = u.RawRecords(ctx, userID)
		return err
	})
	return out, err
}

func (s *Store) PutRawRecord(ctx context.Context, userID, id, raw string) error {
	return s.do(func(u *unit) error { return u.PutRawRecord(ctx, userID, id, raw) })
}

func (s *Store) AddToMonth(ctx context.Context, userID string, month core.Month, kind core.Kind, delta core.Money) error {
	return s.do(func(u *unit) error { return u.AddToMonth(ctx, userID, month, kind, delta) })
}

func (s *Store) AddToCategory(ctx context.Context, userID, category string, kind core.Kind, delta core.Money) error {
	return s.do(func(u *unit) error { return u.AddToCategory(ctx, userID, category, kind, delta) })
}

func (s *Store) SetMonthCell(ctx context.Context, userID string, month core.Month, kind core.Kind, value core.Money) error {
	return s.do(func(u *unit) error { return u.SetMonthCell(ctx, userID, month, kind, value) })
}

func (s *Store) SetCategoryCell(ctx context.Context, userID, category string, kind core.Kind, value core.Money) error {
	return s.do(func(u *unit) error { return u.SetCategoryCell(ctx, userID, category, kind, value) })
}

func (s *Store) MonthlyAggregate(ctx context.Context, userID string, month core.Month) (agg core.MonthlyAggregate, err error) {
	err = s.do(func(u *unit) error {
		agg, err = u.MonthlyAggregate(ctx, userID, month)
		return err
	})
	return agg, err
}

func (s *Store) ListMonthlyAggregates(ctx context.Context, userID string) (out []core.MonthlyAggregate, err error) {
	err = s.do(func(u *unit) error {
		out, err = u.ListMonthlyAggregates(ctx, userID)
		return err
	})
	return out, err
}

func (s *Store) ListCategoryAggregates(ctx context.Context, userID string) (out []core.CategoryAggregate, err error) {
	err = s.do(func(u *unit) error {
		out, err = u.ListCategoryAggregates(ctx, userID)
		return err
	})
	return out, err
}

func (s *Store) GetBudget(ctx context.Context, userID string) (cfg core.BudgetConfig, err error) {
	err = s.do(func(u *unit) error {
		cfg, err = u.GetBudget(ctx, userID)
		return err
	})
	return cfg, err
}

func (s *Store) SetBudget(ctx context.Context, userID string, ceiling core.Money) error {
	return s.do(func(u *unit) error { return u.SetBudget(ctx, userID, ceiling) })
}

func (s *Store) GetAccount(ctx context.Context, email string) (acc core.Account, err error) {
	err = s.do(func(u *unit) error {
		acc, err = u.GetAccount(ctx, email)
		return err
	})
	return acc, err
}

func (s *Store) CreateAccount(ctx context.Context, acc core.Account) error {
	return s.do(func(u *unit) error { return u.CreateAccount(ctx, acc) })
}

func (s *Store) UpdateAccount(ctx context.Context, acc core.Account) error {
	return s.do(func(u *unit) error { return u.UpdateAccount(ctx, acc) })
}

func (s *Store) DeleteAccount(ctx context.Context, email string) error {
	return s.do(func(u *unit) error { return u.DeleteAccount(ctx, email) })
}

func (s *Store) ClearUser(ctx context.Context, userID string) error {
	return s.do(func(u *unit) error { return u.ClearUser(ctx, userID) })
}

// unit operates on a state without locking; the caller holds the lock.
// With staged set, writes go to copies that commit publishes.
type unit struct {
	st       *state
	staged   map[string]*userData
	accounts map[string]core.Account
}

func (u *unit) user(userID string) *userData {
	if u.staged != nil {
		if d, ok := u.staged[userID]; ok {
			return d
		}
		d := newUserData()
		if live, ok := u.st.users[userID]; ok {
			d = live.clone()
		}
		u.staged[userID] = d
		return d
	}
	d, ok := u.st.users[userID]
	if !ok {
		d = newUserData()
		u.st.users[userID] = d
	}
	return d
}

// accountsForRead returns the staged accounts when the unit wrote any.
func (u *unit) accountsForRead() map[string]core.Account {
	if u.accounts != nil {
		return u.accounts
	}
	return u.st.accounts
}

func (u *unit) accountsForWrite() map[string]core.Account {
	if u.staged == nil {
		return u.st.accounts
	}
	if u.accounts == nil {
		u.accounts = make(map[string]core.Account, len(u.st.accounts)+1)
		for k, v := range u.st.accounts {
			u.accounts[k] = v
		}
	}
	return u.accounts
}

// commit publishes the staged copies. Users left without data are dropped.
func (u *unit) commit() {
	for id, d := range u.staged {
		if d.empty() {
			delete(u.st.users, id)
			continue
		}
		u.st.users[id] = d
	}
	if u.accounts != nil {
		u.st.accounts = u.accounts
	}
}

func (u *unit) PutTransaction(_ context.Context, userID string, tx core.Transaction) error {
	raw, err := core.EncodeRecord(tx)
	if err != nil {
		return fmt.Errorf("encode transaction %s: %w", tx.ID, err)
	}
	u.user(userID).records[tx.ID] = string(raw)
	return nil
}

func (u *unit) GetTransaction(_ context.Context, userID, id string) (core.Transaction, error) {
	raw, ok := u.user(userID).records[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	return core.DecodeRecord(id, []byte(raw))
}

func (u *unit) DeleteTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	tx, err := u.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	delete(u.user(userID).records, id)
	return tx, nil
}

func (u *unit) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	d := u.user(userID)
	out := make([]core.Transaction, 0, len(d.records))
	for id, raw := range d.records {
		tx, err := core.DecodeRecord(id, []byte(raw))
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed transaction record",
				"user_id", userID,
				"transaction_id", id,
				"error", err)
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (u *unit) RawRecords(_ context.Context, userID string) (map[string]string, error) {
	d := u.user(userID)
	out := make(map[string]string, len(d.records))
	for k, v := range d.records {
		out[k] = v
	}
	return out, nil
}

func (u *unit) PutRawRecord(_ context.Context, userID, id, raw string) error {
	u.user(userID).records[id] = raw
	return nil
}

func (u *unit) AddToMonth(_ context.Context, userID string, month core.Month, kind core.Kind, delta core.Money) error {
	if err := kind.Validate(); err != nil {
		return err
	}
	d := u.user(userID)
	agg := d.monthly[month]
	agg.Month = month
	agg.Add(kind, delta)
	d.monthly[month] = agg
	return nil
}

func (u *unit) AddToCategory(_ context.Context, userID, category string, kind core.Kind, delta core.Money) error {
	if err := kind.Validate(); err != nil {
		return err
	}
	d := u.user(userID)
	key := core.CategoryKey{Category: category, Kind: kind}
	d.category[key] = d.category[key].Add(delta)
	return nil
}

func (u *unit) SetMonthCell(_ context.Context, userID string, month core.Month, kind core.Kind, value core.Money) error {
	if err := kind.Validate(); err != nil {
		return err
	}
	d := u.user(userID)
	agg := d.monthly[month]
	agg.Month = month
	agg.Add(kind, value.Sub(agg.Total(kind)))
	d.monthly[month] = agg
	return nil
}

func (u *unit) SetCategoryCell(_ context.Context, userID, category string, kind core.Kind, value core.Money) error {
	if err := kind.Validate(); err != nil {
		return err
	}
	u.user(userID).category[core.CategoryKey{Category: category, Kind: kind}] = value
	return nil
}

func (u *unit) MonthlyAggregate(_ context.Context, userID string, month core.Month) (core.MonthlyAggregate, error) {
	agg, ok := u.user(userID).monthly[month]
	if !ok {
		return core.MonthlyAggregate{Month: month}, nil
	}
	return agg, nil
}

func (u *unit) ListMonthlyAggregates(_ context.Context, userID string) ([]core.MonthlyAggregate, error) {
	d := u.user(userID)
	out := make([]core.MonthlyAggregate, 0, len(d.monthly))
	for _, agg := range d.monthly {
		out = append(out, agg)
	}
	return out, nil
}

func (u *unit) ListCategoryAggregates(_ context.Context, userID string) ([]core.CategoryAggregate, error) {
	d := u.user(userID)
	out := make([]core.CategoryAggregate, 0, len(d.category))
	for key, total := range d.category {
		out = append(out, core.CategoryAggregate{Category: key.Category, Kind: key.Kind, Total: total})
	}
	return out, nil
}

func (u *unit) GetBudget(_ context.Context, userID string) (core.BudgetConfig, error) {
	d := u.user(userID)
	if d.budget == nil {
		return core.BudgetConfig{}, nil
	}
	return core.BudgetConfig{Ceiling: *d.budget, Set: true}, nil
}

func (u *unit) SetBudget(_ context.Context, userID string, ceiling core.Money) error {
	u.user(userID).budget = &ceiling
	return nil
}

func (u *unit) GetAccount(_ context.Context, email string) (core.Account, error) {
	acc, ok := u.accountsForRead()[email]
	if !ok {
		return core.Account{}, core.ErrNotFound
	}
	return acc, nil
}

func (u *unit) CreateAccount(_ context.Context, acc core.Account) error {
	if _, ok := u.accountsForRead()[acc.Email]; ok {
		return core.ErrAccountExists
	}
	u.accountsForWrite()[acc.Email] = acc
	return nil
}

func (u *unit) UpdateAccount(_ context.Context, acc core.Account) error {
	if _, ok := u.accountsForRead()[acc.Email]; !ok {
		return core.ErrNotFound
	}
	u.accountsForWrite()[acc.Email] = acc
	return nil
}

func (u *unit) DeleteAccount(_ context.Context, email string) error {
	if _, ok := u.accountsForRead()[email]; !ok {
		return core.ErrNotFound
	}
	delete(u.accountsForWrite(), email)
	return nil
}

func (u *unit) ClearUser(_ context.Context, userID string) error {
	if u.staged != nil {
		u.staged[userID] = newUserData()
		return nil
	}
	delete(u.st.users, userID)
	return nil
}
