package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"cashledger/internal/core"
	"cashledger/internal/ledger"
)

// Cell kinds reported by the auditor.
const (
	CellMonthly  = "monthly"
	CellCategory = "category"
)

// Discrepancy is one aggregate cell whose stored value differs from the sum
// over the live records, or which is negative.
type Discrepancy struct {
	Cell     string     `json:"cell"`
	Month    core.Month `json:"month,omitzero"`
	Category string     `json:"category,omitempty"`
	Kind     core.Kind  `json:"type"`
	Stored   core.Money `json:"stored"`
	Expected core.Money `json:"expected"`
}

// AuditReport summarises a consistency check of one account.
type AuditReport struct {
	Mismatches []Discrepancy `json:"mismatches"`
	Negative   []Discrepancy `json:"negative"`
	// Skipped counts stored records that could not be decoded.
	Skipped int `json:"skipped_records"`
}

// Consistent reports whether every cell matched.
func (r AuditReport) Consistent() bool {
	return len(r.Mismatches) == 0 && len(r.Negative) == 0
}

// Auditor detects desync between aggregates and records. It reports only;
// nothing is repaired.
type Auditor struct {
	store ledger.Store
}

func NewAuditor(store ledger.Store) *Auditor {
	return &Auditor{store: store}
}

// Check compares every persisted cell with a recomputation from the
// account's records, read from one consistent snapshot.
func (a *Auditor) Check(ctx context.Context, sess core.Session) (AuditReport, error) {
	if err := sess.Validate(); err != nil {
		return AuditReport{}, err
	}

	var (
		txs      []core.Transaction
		raw      map[string]string
		monthly  []core.MonthlyAggregate
		category []core.CategoryAggregate
	)
	err := a.store.Atomically(ctx, func(u ledger.Unit) error {
		var err error
		if txs, err = u.ListTransactions(ctx, sess.UserID); err != nil {
			return err
		}
		if raw, err = u.RawRecords(ctx, sess.UserID); err != nil {
			return err
		}
		if monthly, err = u.ListMonthlyAggregates(ctx, sess.UserID); err != nil {
			return err
		}
		category, err = u.ListCategoryAggregates(ctx, sess.UserID)
		return err
	})
	if err != nil {
		return AuditReport{}, fmt.Errorf("read ledger snapshot: %w", err)
	}

	want := core.Recompute(txs)
	report := AuditReport{Skipped: len(raw) - len(txs)}

	seenMonths := map[core.Month]bool{}
	for _, agg := range monthly {
		seenMonths[agg.Month] = true
		exp := want.Monthly[agg.Month]
		for _, kind := range []core.Kind{core.Income, core.Expense} {
			report.add(Discrepancy{Cell: CellMonthly, Month: agg.Month, Kind: kind, Stored: agg.Total(kind), Expected: exp.Total(kind)})
		}
	}
	for month, exp := range want.Monthly {
		if seenMonths[month] {
			continue
		}
		for _, kind := range []core.Kind{core.Income, core.Expense} {
			report.add(Discrepancy{Cell: CellMonthly, Month: month, Kind: kind, Expected: exp.Total(kind)})
		}
	}

	seenCats := map[core.CategoryKey]bool{}
	for _, agg := range category {
		key := core.CategoryKey{Category: agg.Category, Kind: agg.Kind}
		seenCats[key] = true
		report.add(Discrepancy{Cell: CellCategory, Category: agg.Category, Kind: agg.Kind, Stored: agg.Total, Expected: want.Category[key]})
	}
	for key, total := range want.Category {
		if seenCats[key] {
			continue
		}
		report.add(Discrepancy{Cell: CellCategory, Category: key.Category, Kind: key.Kind, Expected: total})
	}

	report.sort()
	if !report.Consistent() || report.Skipped > 0 {
		slog.WarnContext(ctx, "Ledger desync detected",
			"user_id", sess.UserID,
			"mismatches", len(report.Mismatches),
			"negative", len(report.Negative),
			"skipped_records", report.Skipped)
	}
	return report, nil
}

func (r *AuditReport) add(d Discrepancy) {
	if d.Stored != d.Expected {
		r.Mismatches = append(r.Mismatches, d)
	}
	if d.Stored.Cents < 0 {
		r.Negative = append(r.Negative, d)
	}
}

func (r *AuditReport) sort() {
	less := func(ds []Discrepancy) func(i, j int) bool {
		return func(i, j int) bool {
			a, b := ds[i], ds[j]
			if a.Cell != b.Cell {
				return a.Cell > b.Cell
			}
			if a.Month != b.Month {
				return a.Month.String() < b.Month.String()
			}
			if a.Category != b.Category {
				return a.Category < b.Category
			}
			return a.Kind < b.Kind
		}
	}
	sort.Slice(r.Mismatches, less(r.Mismatches))
	sort.Slice(r.Negative, less(r.Negative))
}
