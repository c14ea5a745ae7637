package bot

import (
	"strconv"
	"strings"
	"time"

	"ledgerbot/internal/core"
	"ledgerbot/internal/i18n"
	"ledgerbot/internal/services"
)

const dayLayout = "2006-01-02"

// formatDay renders one end of a stats range; an open end shows as "…".
func formatDay(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "…"
	}
	return t.In(loc).Format(dayLayout)
}

func (h *Handler) renderBalance(b core.Balance) string {
	return i18n.Format(h.texts.Balance, "bank", b.Bank.String(), "cash", b.Cash.String())
}

func (h *Handler) renderResult(res services.Result) string {
	t := h.texts
	switch res.Outcome {
	case services.OutcomeExpenseRecorded:
		head := i18n.Format(t.ExpenseRecorded,
			"amount", res.Amount.String(),
			"wallet", escapeMD(t.WalletName(res.Expense.Wallet.String())),
			"category", escapeMD(res.Expense.Category))
		return head + "\n\n" + h.renderBalance(res.Balance)
	case services.OutcomeIncomeAdded:
		return i18n.Format(t.IncomeAdded, "amount", res.Amount.String()) + "\n\n" + h.renderBalance(res.Balance)
	case services.OutcomeBalanceSet:
		return t.BalanceUpdated + "\n\n" + h.renderBalance(res.Balance)
	case services.OutcomeBalanceShown:
		return h.renderBalance(res.Balance)
	case services.OutcomeLedgerReset:
		return t.LedgerReset
	}

	switch res.Rejection {
	case services.RejectInvalidAmount:
		return t.InvalidAmount
	case services.RejectIncomeWallet:
		return t.IncomeWalletViolation
	case services.RejectAmountMissing:
		return t.AmountMissing
	default:
		return t.Clarification
	}
}

func (h *Handler) renderStats(r services.StatsReport) string {
	t := h.texts
	loc := h.stats.Location()

	var b strings.Builder
	b.WriteString(t.StatsTitle)
	b.WriteString("\n")
	if r.Range.Bounded() {
		b.WriteString(i18n.Format(t.StatsRange,
			"from", formatDay(r.Range.From, loc),
			"to", formatDay(r.Range.To, loc)))
	} else {
		b.WriteString(t.StatsAllTime)
	}
	b.WriteString("\n\n")
	b.WriteString(i18n.Format(t.StatsTotal, "total", r.Total.String()))
	b.WriteString("\n\n")

	if len(r.ByCategory) > 0 {
		b.WriteString(t.StatsByCategory)
		b.WriteString("\n")
		for _, c := range r.ByCategory {
			b.WriteString("• " + escapeMD(c.Name) + ": ₹" + c.Amount.String() + "\n")
		}
		b.WriteString("\n")
	}

	if len(r.ByWallet) > 0 && t.StatsByWallet != "" {
		b.WriteString(t.StatsByWallet)
		b.WriteString("\n")
		for _, w := range r.ByWallet {
			b.WriteString("• " + escapeMD(t.WalletName(w.Wallet.String())) + ": ₹" + w.Amount.String() + "\n")
		}
		b.WriteString("\n")
	}

	if r.Empty() {
		b.WriteString(t.StatsEmpty)
		return b.String()
	}

	b.WriteString(t.StatsRecent)
	b.WriteString("\n")
	for i, e := range r.Recent {
		b.WriteString(strconv.Itoa(i+1) + ". ₹" + e.Amount.String() +
			" | " + escapeMD(e.Category) +
			" | " + escapeMD(t.WalletName(e.Wallet.String())) + "\n")
	}
	if r.Truncated {
		b.WriteString("\n")
		b.WriteString(i18n.Format(t.StatsTruncated, "count", strconv.Itoa(len(r.Recent))))
	}
	return strings.TrimRight(b.String(), "\n")
}

// escapeMD escapes the characters legacy Markdown treats as markup.
func escapeMD(s string) string {
	return mdEscaper.Replace(s)
}

var mdEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"`", "\\`",
	"[", "\\[",
)
