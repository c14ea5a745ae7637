package classifier

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"ledgerbot/internal/core"
)

type wireIntent struct {
	Intent   string           `json:"intent"`
	Amount   *decimal.Decimal `json:"amount"`
	Wallet   *string          `json:"wallet"`
	Category *string          `json:"category"`
	Bank     *decimal.Decimal `json:"bank"`
	Cash     *decimal.Decimal `json:"cash"`
}

// DecodeIntent validates a model reply against the intent shapes.
//
// The reply may carry text around the object; everything from the first
// '{' to the last '}' is decoded. Malformed JSON, non-numeric amounts and an
// unknown expense wallet are classification failures. A missing or unknown
// intent label decodes to IntentUnrecognized. Sign checks are left to the
// resolver so a negative amount surfaces as a corrective reply.
func DecodeIntent(raw string) (core.Intent, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end < start {
		return core.Intent{}, failf("no JSON object in reply")
	}

	var w wireIntent
	if err := json.Unmarshal([]byte(raw[start:end+1]), &w); err != nil {
		return core.Intent{}, wrap(err, "decode reply")
	}

	intent := core.Intent{Kind: core.ParseIntentKind(strings.ToLower(strings.TrimSpace(w.Intent)))}

	var err error
	switch intent.Kind {
	case core.IntentExpense:
		if intent.Amount, err = money(w.Amount); err != nil {
			return core.Intent{}, err
		}
		if w.Wallet != nil && strings.TrimSpace(*w.Wallet) != "" {
			wallet, ok := core.ParseWallet(*w.Wallet)
			if !ok {
				return core.Intent{}, failf("unknown expense wallet %q", *w.Wallet)
			}
			intent.Wallet = wallet
		}
		if w.Category != nil {
			intent.Category = *w.Category
		}
	case core.IntentIncome:
		if intent.Amount, err = money(w.Amount); err != nil {
			return core.Intent{}, err
		}
		// Any named wallet is kept verbatim so the resolver can refuse
		// non-bank income.
		if w.Wallet != nil {
			intent.Wallet = core.Wallet(strings.ToLower(strings.TrimSpace(*w.Wallet)))
		}
	case core.IntentSetBalance:
		if intent.Bank, err = money(w.Bank); err != nil {
			return core.Intent{}, err
		}
		if intent.Cash, err = money(w.Cash); err != nil {
			return core.Intent{}, err
		}
	}
	return intent, nil
}

func money(d *decimal.Decimal) (*core.Money, error) {
	if d == nil {
		return nil, nil
	}
	m, err := core.MoneyFromDecimal(*d)
	if err != nil {
		// d may carry an enormous exponent; keep it out of the message.
		return nil, wrap(err, "amount out of range")
	}
	return &m, nil
}
