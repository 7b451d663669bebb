package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

// DateLayout is the calendar date layout used in records and requests.
const DateLayout = "2006-01-02"

const maxDescriptionLen = 200

type (
	Kind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Transaction struct {
		ID          string
		Amount      Money
		Description string
		Kind        Kind
		Category    string
		Date        Date
	}

	Account struct {
		Name         string
		Email        string
		PasswordHash string
	}

	// Session carries the resolved account every core operation is scoped to.
	Session struct {
		UserID string
	}
)

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateID        = errors.New("duplicate transaction id")
	ErrMalformedRecord    = errors.New("malformed record")
	ErrInvalidDay         = errors.New("invalid day")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidKind        = errors.New("invalid transaction type")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrEmptyCategory      = errors.New("empty category")
	ErrNoSession          = errors.New("no session")
	ErrAccountExists      = errors.New("account already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// FieldError ties a validation failure to the input field that caused it.
type FieldError struct {
	Field string
	Err   error
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e FieldError) Unwrap() error { return e.Err }

// ValidationError collects every invalid field of a rejected input.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Error()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() []error {
	errs := make([]error, len(e.Fields))
	for i, f := range e.Fields {
		errs[i] = f
	}
	return errs
}

// Add records a field failure.
func (e *ValidationError) Add(field string, err error) {
	e.Fields = append(e.Fields, FieldError{Field: field, Err: err})
}

// Err returns nil when no field failed.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// ParseKind accepts "income" or "expense" in any case.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case Income:
		return Income, nil
	case Expense:
		return Expense, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

func (k Kind) Validate() error {
	if k != Income && k != Expense {
		return ErrInvalidKind
	}
	return nil
}

func (k Kind) String() string { return string(k) }

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a yyyy-MM-dd calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// DateOf truncates a timestamp to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// MonthKey returns the month bucket the date falls into.
func (d Date) MonthKey() Month {
	return Month{Year: d.Year(), Month: d.Time.Month()}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (s Session) Validate() error {
	if strings.TrimSpace(s.UserID) == "" {
		return ErrNoSession
	}
	return nil
}

// Validate reports every invalid field of the transaction. The ID is not
// checked: it is assigned by the ledger when empty.
func (t Transaction) Validate() error {
	verr := &ValidationError{}
	if err := t.Amount.Validate(); err != nil {
		verr.Add("amount", err)
	}
	desc := strings.TrimSpace(t.Description)
	if desc == "" {
		verr.Add("description", ErrEmptyDescription)
	} else if utf8.RuneCountInString(t.Description) > maxDescriptionLen {
		verr.Add("description", ErrDescriptionTooLong)
	}
	if err := t.Kind.Validate(); err != nil {
		verr.Add("type", err)
	}
	if strings.TrimSpace(t.Category) == "" {
		verr.Add("category", ErrEmptyCategory)
	}
	if err := t.Date.Validate(); err != nil {
		verr.Add("date", err)
	}
	return verr.Err()
}

// Normalized trims free-text fields.
func (t Transaction) Normalized() Transaction {
	t.Description = strings.TrimSpace(t.Description)
	t.Category = strings.TrimSpace(t.Category)
	return t
}
