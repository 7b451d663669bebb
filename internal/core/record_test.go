package core

import (
	"errors"
	"testing"
)

func TestRecordRoundTrip(t *testing.T) {
	tx := Transaction{
		ID:          "tx-1",
		Amount:      Money{Cents: 10050},
		Description: "Groceries",
		Kind:        Expense,
		Category:    "Food",
		Date:        NewDate(2024, 3, 1),
	}
	raw, err := EncodeRecord(tx)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `{"amount":100.50,"description":"Groceries","type":"expense","category":"Food","date":"2024-03-01"}`
	if string(raw) != want {
		t.Fatalf("encoded %s, want %s", raw, want)
	}
	got, err := DecodeRecord("tx-1", raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != tx {
		t.Fatalf("decoded %+v, want %+v", got, tx)
	}
}

func TestDecodeRecordAcceptsLegacyFloats(t *testing.T) {
	got, err := DecodeRecord("transaction_1", []byte(`{"amount":12.3,"description":"x","type":"Income","category":"Salary","date":"2024-01-31"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Amount.Cents != 1230 || got.Kind != Income {
		t.Fatalf("unexpected %+v", got)
	}
}

func TestDecodeRecordMalformed(t *testing.T) {
	bads := []string{
		`not json`,
		`{"amount":"abc","description":"x","type":"expense","category":"c","date":"2024-01-01"}`,
		`{"amount":1,"description":"x","type":"loan","category":"c","date":"2024-01-01"}`,
		`{"amount":1,"description":"x","type":"expense","category":"c","date":"yesterday"}`,
		`{"amount":-1,"description":"x","type":"expense","category":"c","date":"2024-01-01"}`,
		`{"amount":1,"description":"x","type":"expense","category":"","date":"2024-01-01"}`,
	}
	for _, raw := range bads {
		if _, err := DecodeRecord("bad", []byte(raw)); !errors.Is(err, ErrMalformedRecord) {
			t.Fatalf("%s: expected ErrMalformedRecord, got %v", raw, err)
		}
	}
}

func TestRecompute(t *testing.T) {
	txs := []Transaction{
		{ID: "a", Amount: Money{Cents: 10000}, Kind: Expense, Category: "Food", Date: NewDate(2024, 3, 1)},
		{ID: "b", Amount: Money{Cents: 5000}, Kind: Income, Category: "Salary", Date: NewDate(2024, 3, 2)},
		{ID: "c", Amount: Money{Cents: 2500}, Kind: Expense, Category: "Food", Date: NewDate(2024, 4, 1)},
	}
	totals := Recompute(txs)
	march := totals.Monthly[Month{Year: 2024, Month: 3}]
	if march.Expense.Cents != 10000 || march.Income.Cents != 5000 {
		t.Fatalf("unexpected march %+v", march)
	}
	if got := totals.Category[CategoryKey{Category: "Food", Kind: Expense}]; got.Cents != 12500 {
		t.Fatalf("food expense = %d", got.Cents)
	}
	if _, ok := totals.Category[CategoryKey{Category: "Food", Kind: Income}]; ok {
		t.Fatalf("unexpected food income bucket")
	}
}
