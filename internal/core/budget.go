package core

import "github.com/shopspring/decimal"

// Budget thresholds in percent of the monthly ceiling.
const (
	WarningPercent  = 75
	ExceededPercent = 100
)

// BudgetLevel classifies a budget status for transition detection.
type BudgetLevel int

const (
	LevelNoBudget BudgetLevel = iota
	LevelUnder
	LevelWarning
	LevelExceeded
)

func (l BudgetLevel) String() string {
	switch l {
	case LevelUnder:
		return "under"
	case LevelWarning:
		return "warning"
	case LevelExceeded:
		return "exceeded"
	default:
		return "no_budget"
	}
}

// BudgetConfig is the monthly ceiling of an account. Set is false until the
// user configures one.
type BudgetConfig struct {
	Ceiling Money
	Set     bool
}

// BudgetStatus is the evaluated state of a month against the ceiling.
type BudgetStatus struct {
	Month           Month `json:"month"`
	Spent           Money `json:"spent"`
	Ceiling         Money `json:"ceiling"`
	Percentage      int   `json:"percentage"`
	NoBudget        bool  `json:"no_budget"`
	CrossedWarning  bool  `json:"crossed_warning"`
	CrossedExceeded bool  `json:"crossed_exceeded"`
}

// Remaining is the ceiling minus what was spent; negative once exceeded.
func (s BudgetStatus) Remaining() Money {
	return s.Ceiling.Sub(s.Spent)
}

func (s BudgetStatus) Level() BudgetLevel {
	switch {
	case s.NoBudget:
		return LevelNoBudget
	case s.CrossedExceeded:
		return LevelExceeded
	case s.CrossedWarning:
		return LevelWarning
	default:
		return LevelUnder
	}
}

// EvaluateBudget computes the status of a month's expense total against the
// configured ceiling. A missing or zero ceiling reports NoBudget rather than
// a percentage.
func EvaluateBudget(month Month, spent Money, cfg BudgetConfig) BudgetStatus {
	status := BudgetStatus{Month: month, Spent: spent, Ceiling: cfg.Ceiling}
	if !cfg.Set || cfg.Ceiling.Cents <= 0 {
		status.NoBudget = true
		return status
	}
	// Rounded once, half away from zero, from the exact quotient.
	pct := decimal.NewFromInt(spent.Cents).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(cfg.Ceiling.Cents), 0)
	status.Percentage = int(pct.IntPart())
	status.CrossedWarning = status.Percentage >= WarningPercent
	status.CrossedExceeded = status.Percentage >= ExceededPercent
	return status
}

// Escalated reports whether moving from prev to cur crossed a threshold
// upwards, i.e. whether a notification is due.
func Escalated(prev, cur BudgetLevel) bool {
	return cur >= LevelWarning && cur > prev
}
