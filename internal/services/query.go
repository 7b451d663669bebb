package services

import (
	"context"
	"fmt"
	"iter"
	"sort"

	"cashledger/internal/core"
	"cashledger/internal/ledger"
)

// LedgerReader is the read side the query engine needs.
type LedgerReader interface {
	ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	MonthlyAggregate(ctx context.Context, userID string, month core.Month) (core.MonthlyAggregate, error)
}

var _ LedgerReader = (ledger.Store)(nil)

// Filter narrows a query. Nil fields match everything; Limit <= 0 means
// no limit.
type Filter struct {
	Kind     *core.Kind
	Month    *core.Month
	Category *string
	Limit    int
}

func (f Filter) match(tx core.Transaction) bool {
	if f.Kind != nil && tx.Kind != *f.Kind {
		return false
	}
	if f.Month != nil && !f.Month.Contains(tx.Date) {
		return false
	}
	if f.Category != nil && tx.Category != *f.Category {
		return false
	}
	return true
}

// QueryEngine answers read queries over the ledger. It never writes.
type QueryEngine struct {
	reader LedgerReader
}

func NewQueryEngine(reader LedgerReader) *QueryEngine {
	return &QueryEngine{reader: reader}
}

// Query returns a view of the session's transactions matching f, ordered by
// date descending then ID ascending.
func (q *QueryEngine) Query(sess core.Session, f Filter) (*View, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	if f.Kind != nil {
		if err := f.Kind.Validate(); err != nil {
			return nil, err
		}
	}
	return &View{reader: q.reader, userID: sess.UserID, filter: f}, nil
}

// View is a lazy query result. Every Collect or All re-reads the store, so
// a view can be consumed any number of times.
type View struct {
	reader LedgerReader
	userID string
	filter Filter
}

// Collect materialises the view.
func (v *View) Collect(ctx context.Context) ([]core.Transaction, error) {
	txs, err := v.reader.ListTransactions(ctx, v.userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := txs[:0]
	for _, tx := range txs {
		if v.filter.match(tx) {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	if v.filter.Limit > 0 && len(out) > v.filter.Limit {
		out = out[:v.filter.Limit]
	}
	return out, nil
}

// All yields the view's transactions in order. A read failure is yielded
// once as the error of a zero transaction.
func (v *View) All(ctx context.Context) iter.Seq2[core.Transaction, error] {
	return func(yield func(core.Transaction, error) bool) {
		txs, err := v.Collect(ctx)
		if err != nil {
			yield(core.Transaction{}, err)
			return
		}
		for _, tx := range txs {
			if !yield(tx, nil) {
				return
			}
		}
	}
}

// CategorySummary groups a month's transactions by category for each kind,
// largest first, alongside the month's persisted totals.
func (q *QueryEngine) CategorySummary(ctx context.Context, sess core.Session, month core.Month) (core.MonthOverview, error) {
	view, err := q.Query(sess, Filter{Month: &month})
	if err != nil {
		return core.MonthOverview{}, err
	}
	txs, err := view.Collect(ctx)
	if err != nil {
		return core.MonthOverview{}, err
	}
	agg, err := q.reader.MonthlyAggregate(ctx, sess.UserID, month)
	if err != nil {
		return core.MonthOverview{}, fmt.Errorf("read monthly aggregate: %w", err)
	}

	sums := map[core.Kind]map[string]core.Money{core.Income: {}, core.Expense: {}}
	for _, tx := range txs {
		sums[tx.Kind][tx.Category] = sums[tx.Kind][tx.Category].Add(tx.Amount)
	}

	overview := core.MonthOverview{
		Month:             month,
		Income:            agg.Income,
		Expense:           agg.Expense,
		IncomeByCategory:  toCategoryAmounts(sums[core.Income]),
		ExpenseByCategory: toCategoryAmounts(sums[core.Expense]),
	}
	return overview, nil
}

func toCategoryAmounts(m map[string]core.Money) []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0, len(m))
	for name, amount := range m {
		out = append(out, core.CategoryAmount{Name: name, Amount: amount})
	}
	core.SortCategoryAmounts(out)
	return out
}
