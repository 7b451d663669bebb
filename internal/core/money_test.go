package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"12.344", 1234, true},
		{" 2.50 ", 250, true},
		{"0.1", 10, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"1e3", 0, false},
		{"0", 0, false},
		{"0.004", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"99999999999999999999", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyStringAndJSON(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{1230, "12.30"},
		{-250, "-2.50"},
	}
	for _, tc := range cases {
		m := Money{Cents: tc.cents}
		if got := m.String(); got != tc.want {
			t.Fatalf("String(%d) = %q, want %q", tc.cents, got, tc.want)
		}
		b, err := json.Marshal(m)
		if err != nil || string(b) != tc.want {
			t.Fatalf("Marshal(%d) = %s (err=%v), want %s", tc.cents, b, err, tc.want)
		}
	}
}

func TestMoneyUnmarshalJSON(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{`12.5`, 1250, true},
		{`"12.50"`, 1250, true},
		{`"7,25"`, 725, true},
		{`-3.1`, -310, true},
		{`0.1`, 10, true},
		{`null`, 0, false},
		{`"x"`, 0, false},
	}
	for _, tc := range cases {
		var m Money
		err := json.Unmarshal([]byte(tc.in), &m)
		if tc.ok && (err != nil || m.Cents != tc.want) {
			t.Fatalf("%s expected %d, got %d (err=%v)", tc.in, tc.want, m.Cents, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s expected error", tc.in)
		}
	}
}

// Repeatedly adding a tenth must not drift the way a float accumulator does.
func TestMoneyAccumulationDoesNotDrift(t *testing.T) {
	tenth, err := ParseAmount("0.1")
	if err != nil {
		t.Fatal(err)
	}
	var sum Money
	for i := 0; i < 1000; i++ {
		sum = sum.Add(tenth)
	}
	if sum.Cents != 10000 {
		t.Fatalf("expected 10000 cents, got %d", sum.Cents)
	}
	for i := 0; i < 1000; i++ {
		sum = sum.Sub(tenth)
	}
	if !sum.IsZero() {
		t.Fatalf("expected zero after subtracting, got %d", sum.Cents)
	}
}

func TestParseMoneySigned(t *testing.T) {
	cases := map[string]int64{
		"1000.00": 100000,
		"-12.5":   -1250,
		"0":       0,
		" 3,07 ":  307,
	}
	for in, want := range cases {
		got, err := ParseMoney(in)
		if err != nil || got.Cents != want {
			t.Fatalf("ParseMoney(%q) = %v, %v; want %d", in, got, err, want)
		}
	}
	for _, bad := range []string{"", "abc", "1e3"} {
		if _, err := ParseMoney(bad); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("ParseMoney(%q) expected ErrInvalidAmount, got %v", bad, err)
		}
	}
}
