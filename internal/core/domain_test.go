package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDateAndMonthKey(t *testing.T) {
	d, err := ParseDate("2024-03-01")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := d.MonthKey().String(); got != "2024-03" {
		t.Fatalf("month key = %q", got)
	}
	if d.String() != "2024-03-01" {
		t.Fatalf("string = %q", d.String())
	}
	if _, err := ParseDate("01/03/2024"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2024-12")
	if err != nil || m.Year != 2024 || m.Month != time.December {
		t.Fatalf("unexpected month %+v err=%v", m, err)
	}
	if !m.Contains(NewDate(2024, 12, 31)) || m.Contains(NewDate(2025, 12, 1)) {
		t.Fatalf("Contains mismatch")
	}
	for _, bad := range []string{"", "2024-13", "2024/01", "24-01"} {
		if _, err := ParseMonth(bad); !errors.Is(err, ErrInvalidMonth) {
			t.Fatalf("%q expected ErrInvalidMonth, got %v", bad, err)
		}
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"income": Income, "Expense": Expense, " EXPENSE ": Expense} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Fatalf("%q -> %q, %v", in, got, err)
		}
	}
	if _, err := ParseKind("transfer"); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Amount:      Money{Cents: 100},
		Description: "ok",
		Kind:        Expense,
		Category:    "Food",
		Date:        NewDate(2025, 1, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	accented := good
	accented.Description = strings.Repeat("è", maxDescriptionLen)
	if err := accented.Validate(); err != nil {
		t.Fatalf("expected %d accented characters to fit, got %v", maxDescriptionLen, err)
	}

	bads := []struct {
		tx    Transaction
		field string
		err   error
	}{
		{Transaction{Amount: Money{}, Description: "a", Kind: Expense, Category: "c", Date: NewDate(2025, 1, 1)}, "amount", ErrInvalidAmount},
		{Transaction{Amount: Money{Cents: 1}, Description: " ", Kind: Expense, Category: "c", Date: NewDate(2025, 1, 1)}, "description", ErrEmptyDescription},
		{Transaction{Amount: Money{Cents: 1}, Description: strings.Repeat("x", 201), Kind: Expense, Category: "c", Date: NewDate(2025, 1, 1)}, "description", ErrDescriptionTooLong},
		{Transaction{Amount: Money{Cents: 1}, Description: strings.Repeat("è", 201), Kind: Expense, Category: "c", Date: NewDate(2025, 1, 1)}, "description", ErrDescriptionTooLong},
		{Transaction{Amount: Money{Cents: 1}, Description: "a", Kind: "gift", Category: "c", Date: NewDate(2025, 1, 1)}, "type", ErrInvalidKind},
		{Transaction{Amount: Money{Cents: 1}, Description: "a", Kind: Income, Category: "", Date: NewDate(2025, 1, 1)}, "category", ErrEmptyCategory},
		{Transaction{Amount: Money{Cents: 1}, Description: "a", Kind: Income, Category: "c"}, "date", ErrInvalidDate},
	}
	for i, tc := range bads {
		err := tc.tx.Validate()
		if err == nil {
			t.Fatalf("case %d expected error", i)
		}
		if !errors.Is(err, tc.err) {
			t.Fatalf("case %d expected %v, got %v", i, tc.err, err)
		}
		var verr *ValidationError
		if !errors.As(err, &verr) || len(verr.Fields) != 1 || verr.Fields[0].Field != tc.field {
			t.Fatalf("case %d expected single field error on %q, got %v", i, tc.field, err)
		}
	}
}

func TestTransactionValidateReportsEveryField(t *testing.T) {
	err := Transaction{}.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Fields) != 5 {
		t.Fatalf("expected 5 field errors, got %d: %v", len(verr.Fields), err)
	}
}
