package core

import "sort"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

// MonthlyAggregate is the persisted income/expense total of one month.
type MonthlyAggregate struct {
	Month   Month `json:"month"`
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
}

// Add applies a signed delta to the cell of the given kind.
func (a *MonthlyAggregate) Add(kind Kind, delta Money) {
	switch kind {
	case Income:
		a.Income = a.Income.Add(delta)
	case Expense:
		a.Expense = a.Expense.Add(delta)
	}
}

// Total returns the cell of the given kind.
func (a MonthlyAggregate) Total(kind Kind) Money {
	if kind == Income {
		return a.Income
	}
	return a.Expense
}

// CategoryAggregate is the persisted all-time total of one category and kind.
type CategoryAggregate struct {
	Category string `json:"category"`
	Kind     Kind   `json:"type"`
	Total    Money  `json:"total"`
}

// CategoryKey identifies a category bucket.
type CategoryKey struct {
	Category string
	Kind     Kind
}

// MonthOverview is a compact summary for a specific month: persisted totals
// plus the per-category breakdown of that month's transactions.
type MonthOverview struct {
	Month             Month            `json:"month"`
	Income            Money            `json:"income"`
	Expense           Money            `json:"expense"`
	IncomeByCategory  []CategoryAmount `json:"income_by_category"`
	ExpenseByCategory []CategoryAmount `json:"expense_by_category"`
}

// Balance is income minus expense.
func (o MonthOverview) Balance() Money {
	return o.Income.Sub(o.Expense)
}

// SortCategoryAmounts orders by amount descending, then by name.
func SortCategoryAmounts(items []CategoryAmount) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Amount.Cents != items[j].Amount.Cents {
			return items[i].Amount.Cents > items[j].Amount.Cents
		}
		return items[i].Name < items[j].Name
	})
}

// Totals holds aggregates recomputed from a set of transactions.
type Totals struct {
	Monthly  map[Month]MonthlyAggregate
	Category map[CategoryKey]Money
}

// Recompute derives every aggregate cell from the given transactions. It is
// the reference the persisted aggregates must always equal.
func Recompute(txs []Transaction) Totals {
	out := Totals{
		Monthly:  make(map[Month]MonthlyAggregate),
		Category: make(map[CategoryKey]Money),
	}
	for _, tx := range txs {
		month := tx.Date.MonthKey()
		agg := out.Monthly[month]
		agg.Month = month
		agg.Add(tx.Kind, tx.Amount)
		out.Monthly[month] = agg

		key := CategoryKey{Category: tx.Category, Kind: tx.Kind}
		out.Category[key] = out.Category[key].Add(tx.Amount)
	}
	return out
}
