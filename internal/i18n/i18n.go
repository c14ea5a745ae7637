// Package i18n holds the reply texts. Each locale is one YAML table; the
// embedded en and hi tables can be replaced by a file at startup.
package i18n

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

const DefaultLocale = "en"

//go:embed locales/*.yaml
var localesFS embed.FS

type Texts struct {
	Welcome               string            `yaml:"welcome"`
	HelpButton            string            `yaml:"help_button"`
	Help                  string            `yaml:"help"`
	Balance               string            `yaml:"balance"`
	ExpenseRecorded       string            `yaml:"expense_recorded"`
	IncomeAdded           string            `yaml:"income_added"`
	BalanceUpdated        string            `yaml:"balance_updated"`
	LedgerReset           string            `yaml:"ledger_reset"`
	InvalidAmount         string            `yaml:"invalid_amount"`
	IncomeWalletViolation string            `yaml:"income_wallet_violation"`
	AmountMissing         string            `yaml:"amount_missing"`
	Clarification         string            `yaml:"clarification"`
	GenericError          string            `yaml:"generic_error"`
	RateLimited           string            `yaml:"rate_limited"`
	StatsUsage            string            `yaml:"stats_usage"`
	StatsTitle            string            `yaml:"stats_title"`
	StatsAllTime          string            `yaml:"stats_all_time"`
	StatsRange            string            `yaml:"stats_range"`
	StatsTotal            string            `yaml:"stats_total"`
	StatsByCategory       string            `yaml:"stats_by_category"`
	StatsByWallet         string            `yaml:"stats_by_wallet"`
	StatsRecent           string            `yaml:"stats_recent"`
	StatsEmpty            string            `yaml:"stats_empty"`
	StatsTruncated        string            `yaml:"stats_truncated"`
	WalletBank            string            `yaml:"wallet_bank"`
	WalletCash            string            `yaml:"wallet_cash"`
	Commands              map[string]string `yaml:"commands"`
}

// Load returns the embedded table for locale.
func Load(locale string) (*Texts, error) {
	if locale == "" {
		locale = DefaultLocale
	}
	b, err := localesFS.ReadFile("locales/" + locale + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown locale %q (available: %s)", locale, strings.Join(Locales(), ", "))
	}
	return parse(b)
}

// LoadFile reads a table from disk.
func LoadFile(path string) (*Texts, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read locale file: %w", err)
	}
	return parse(b)
}

// Locales lists the embedded locales.
func Locales() []string {
	entries, _ := localesFS.ReadDir("locales")
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	return out
}

func parse(b []byte) (*Texts, error) {
	var t Texts
	if err := yaml.UnmarshalStrict(b, &t); err != nil {
		return nil, fmt.Errorf("parse locale: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Texts) validate() error {
	required := map[string]string{
		"welcome":                 t.Welcome,
		"help":                    t.Help,
		"balance":                 t.Balance,
		"balance_updated":         t.BalanceUpdated,
		"ledger_reset":            t.LedgerReset,
		"invalid_amount":          t.InvalidAmount,
		"income_wallet_violation": t.IncomeWalletViolation,
		"amount_missing":          t.AmountMissing,
		"clarification":           t.Clarification,
		"generic_error":           t.GenericError,
		"rate_limited":            t.RateLimited,
		"stats_usage":             t.StatsUsage,
	}
	var missing []string
	for k, v := range required {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return errors.New("locale is missing: " + strings.Join(missing, ", "))
	}
	return nil
}

// Format replaces {name} placeholders with the given pairs.
func Format(tmpl string, pairs ...string) string {
	if len(pairs) == 0 {
		return tmpl
	}
	args := make([]string, 0, len(pairs))
	for i := 0; i+1 < len(pairs); i += 2 {
		args = append(args, "{"+pairs[i]+"}", pairs[i+1])
	}
	return strings.NewReplacer(args...).Replace(tmpl)
}

// WalletName returns the localized label for a wallet id.
func (t *Texts) WalletName(w string) string {
	switch w {
	case "bank":
		if t.WalletBank != "" {
			return t.WalletBank
		}
	case "cash":
		if t.WalletCash != "" {
			return t.WalletCash
		}
	}
	return w
}
