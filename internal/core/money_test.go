package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMoneyFromDecimal(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"50", 5000},
		{"12.34", 1234},
		{"12.345", 1235},
		{"12.344", 1234},
		{"-50", -5000},
		{"0", 0},
	}
	for _, tc := range cases {
		m, err := MoneyFromDecimal(decimal.RequireFromString(tc.in))
		if err != nil {
			t.Fatalf("MoneyFromDecimal(%s) error: %v", tc.in, err)
		}
		if m.Cents != tc.want {
			t.Fatalf("MoneyFromDecimal(%s) = %d, want %d", tc.in, m.Cents, tc.want)
		}
	}

	for _, in := range []string{"1e16", "100000000000000001", "1e30000000", "1e-30000000", "-1e-21"} {
		if _, err := MoneyFromDecimal(decimal.RequireFromString(in)); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("MoneyFromDecimal(%s) error = %v, want ErrInvalidAmount", in, err)
		}
	}
}

func TestMoneyFromDecimalExponentEdges(t *testing.T) {
	// A long float tail is still a valid amount.
	m, err := MoneyFromDecimal(decimal.RequireFromString("33.333333333333336"))
	if err != nil || m.Cents != 3333 {
		t.Fatalf("got %d, %v; want 3333", m.Cents, err)
	}
	m, err = MoneyFromDecimal(decimal.RequireFromString("1e15"))
	if err != nil || m.Cents != MaxCents {
		t.Fatalf("got %d, %v; want MaxCents", m.Cents, err)
	}
}

func TestAddChecked(t *testing.T) {
	cases := []struct {
		name    string
		a, b    int64
		want    int64
		wantErr bool
	}{
		{"plain", 100, -250, -150, false},
		{"up to ceiling", MaxCents - 1, 1, MaxCents, false},
		{"past ceiling", MaxCents, 1, 0, true},
		{"past floor", -MaxCents, -1, 0, true},
		{"operand out of range", 9_000_000_000_000_000_000, 1, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Money{Cents: tc.a}.AddChecked(Money{Cents: tc.b})
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("expected ErrInvalidAmount, got %v", err)
				}
				return
			}
			if err != nil || got.Cents != tc.want {
				t.Fatalf("got %d, %v; want %d", got.Cents, err, tc.want)
			}
		})
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		5000:  "50",
		1250:  "12.50",
		-5000: "-50",
		0:     "0",
		7:     "0.07",
	}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Fatalf("Money{%d}.String() = %q, want %q", cents, got, want)
		}
	}
}
