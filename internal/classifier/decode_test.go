package classifier

import (
	"errors"
	"testing"

	"ledgerbot/internal/core"
)

func TestDecodeIntent(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		kind     core.IntentKind
		amount   *int64
		wallet   core.Wallet
		category string
		bank     *int64
		cash     *int64
	}{
		{
			name:     "expense full",
			raw:      `{"intent":"expense","amount":50,"wallet":"cash","category":"food"}`,
			kind:     core.IntentExpense,
			amount:   cents(5000),
			wallet:   core.WalletCash,
			category: "food",
		},
		{
			name:   "expense string amount and upper wallet",
			raw:    `{"intent":"expense","amount":"12.345","wallet":"BANK"}`,
			kind:   core.IntentExpense,
			amount: cents(1235),
			wallet: core.WalletBank,
		},
		{
			name:   "expense negative amount passes to resolver",
			raw:    `{"intent":"expense","amount":-5}`,
			kind:   core.IntentExpense,
			amount: cents(-500),
		},
		{
			name:     "expense without amount",
			raw:      `{"intent":"expense","category":"food"}`,
			kind:     core.IntentExpense,
			category: "food",
		},
		{
			name:   "income keeps foreign wallet",
			raw:    `{"intent":"income","amount":100,"wallet":"Cash"}`,
			kind:   core.IntentIncome,
			amount: cents(10000),
			wallet: core.WalletCash,
		},
		{
			name:   "income wallet unset",
			raw:    `{"intent":"income","amount":200}`,
			kind:   core.IntentIncome,
			amount: cents(20000),
		},
		{
			name: "set balance bank only",
			raw:  `{"intent":"set_balance","bank":1000}`,
			kind: core.IntentSetBalance,
			bank: cents(100000),
		},
		{
			name: "set balance both",
			raw:  `{"intent":"set_balance","bank":0,"cash":20.5}`,
			kind: core.IntentSetBalance,
			bank: cents(0),
			cash: cents(2050),
		},
		{name: "show", raw: `{"intent":"show_balance"}`, kind: core.IntentShowBalance},
		{name: "reset", raw: `{"intent":"reset_balance"}`, kind: core.IntentResetBalance},
		{name: "unknown label", raw: `{"intent":"greeting"}`, kind: core.IntentUnrecognized},
		{name: "missing label", raw: `{"amount":5}`, kind: core.IntentUnrecognized},
		{
			name:   "fenced reply",
			raw:    "```json\n{\"intent\":\"income\",\"amount\":1}\n```",
			kind:   core.IntentIncome,
			amount: cents(100),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeIntent(tt.raw)
			if err != nil {
				t.Fatalf("DecodeIntent: %v", err)
			}
			if got.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", got.Kind, tt.kind)
			}
			checkMoney(t, "amount", got.Amount, tt.amount)
			checkMoney(t, "bank", got.Bank, tt.bank)
			checkMoney(t, "cash", got.Cash, tt.cash)
			if got.Wallet != tt.wallet {
				t.Errorf("wallet = %q, want %q", got.Wallet, tt.wallet)
			}
			if got.Category != tt.category {
				t.Errorf("category = %q, want %q", got.Category, tt.category)
			}
		})
	}
}

func TestDecodeIntentFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"prose", "I could not parse that"},
		{"broken json", `{"intent":"expense",`},
		{"non numeric amount", `{"intent":"expense","amount":"fifty"}`},
		{"boolean amount", `{"intent":"income","amount":true}`},
		{"unknown expense wallet", `{"intent":"expense","amount":5,"wallet":"crypto"}`},
		{"non numeric bank", `{"intent":"set_balance","bank":"lots"}`},
		{"absurd amount", `{"intent":"expense","amount":1e30}`},
		{"huge exponent", `{"intent":"expense","amount":1e30000000}`},
		{"tiny exponent", `{"intent":"expense","amount":1e-30000000}`},
		{"tiny exponent balance", `{"intent":"set_balance","cash":-1e-30000000}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeIntent(tt.raw)
			if !errors.Is(err, ErrClassification) {
				t.Fatalf("expected ErrClassification, got %v", err)
			}
		})
	}
}

func cents(c int64) *int64 { return &c }

func checkMoney(t *testing.T, field string, got *core.Money, want *int64) {
	t.Helper()
	switch {
	case got == nil && want == nil:
	case got == nil || want == nil:
		t.Errorf("%s = %v, want %v", field, got, want)
	case got.Cents != *want:
		t.Errorf("%s = %d cents, want %d", field, got.Cents, *want)
	}
}
