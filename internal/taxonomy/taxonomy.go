// Package taxonomy provides the suggested income and expense categories
// offered when entering a transaction. Any non-empty category is accepted by
// the ledger; these are suggestions only.
package taxonomy

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cashledger/internal/core"
	"cashledger/internal/ledger"
)

var (
	defaultIncome  = []string{"Salary", "Bonus", "Investment", "Other"}
	defaultExpense = []string{"Food", "Transport", "Shopping", "Bills", "Entertainment", "Other"}
)

type Store struct {
	mu      sync.RWMutex
	income  []string
	expense []string
}

var _ ledger.TaxonomyReader = (*Store)(nil)

func New(income, expense []string) *Store {
	return &Store{income: dedupe(income), expense: dedupe(expense)}
}

// NewFromFiles reads seed_income_categories.txt and
// seed_expense_categories.txt from base, one category per line. Blank lines
// and # comments are ignored; a missing or empty file falls back to the
// built-in list.
func NewFromFiles(base string) *Store {
	income := readLines(filepath.Join(base, "seed_income_categories.txt"))
	expense := readLines(filepath.Join(base, "seed_expense_categories.txt"))
	if len(income) == 0 {
		income = defaultIncome
	}
	if len(expense) == 0 {
		expense = defaultExpense
	}
	return New(income, expense)
}

// List returns the categories suggested for kind.
func (s *Store) List(_ context.Context, kind core.Kind) ([]string, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if kind == core.Income {
		return append([]string(nil), s.income...), nil
	}
	return append([]string(nil), s.expense...), nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe drops blanks and repeats, keeping first-seen order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
