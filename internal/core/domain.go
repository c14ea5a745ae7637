package core

import (
	"errors"
	"strings"
	"time"
)

const (
	WalletBank Wallet = "bank"
	WalletCash Wallet = "cash"

	// DefaultCategory is used when an expense carries no category.
	DefaultCategory = "general"
	// DefaultExpenseWallet is debited when an expense names no wallet.
	DefaultExpenseWallet = WalletCash
)

type (
	Wallet string

	Money struct {
		Cents int64
	}

	// Balance is the per-user two-wallet record. Amounts are signed.
	Balance struct {
		UserID string
		Bank   Money
		Cash   Money
	}

	// BalanceUpdate overwrites only the fields that are non-nil.
	BalanceUpdate struct {
		Bank *Money
		Cash *Money
	}

	Expense struct {
		ID         int64
		UserID     string
		Amount     Money
		Wallet     Wallet
		Category   string
		RawMessage string
		CreatedAt  time.Time
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidWallet = errors.New("invalid wallet")
	ErrEmptyUserID   = errors.New("empty user id")
	ErrEmptyUpdate   = errors.New("balance update has no fields")
)

// ParseWallet normalizes s and reports whether it names a known wallet.
func ParseWallet(s string) (Wallet, bool) {
	w := Wallet(strings.ToLower(strings.TrimSpace(s)))
	return w, w.Valid()
}

func (w Wallet) Valid() bool {
	return w == WalletBank || w == WalletCash
}

func (w Wallet) String() string {
	return string(w)
}

func (m Money) Validate() error {
	if m.Cents <= 0 || m.Cents > MaxCents {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Neg() Money {
	return Money{Cents: -m.Cents}
}

// Of returns the amount held in wallet w.
func (b Balance) Of(w Wallet) Money {
	if w == WalletBank {
		return b.Bank
	}
	return b.Cash
}

// Apply returns b with the non-nil fields of u overwritten.
func (b Balance) Apply(u BalanceUpdate) Balance {
	if u.Bank != nil {
		b.Bank = *u.Bank
	}
	if u.Cash != nil {
		b.Cash = *u.Cash
	}
	return b
}

func (u BalanceUpdate) Empty() bool {
	return u.Bank == nil && u.Cash == nil
}

// Validate rejects empty updates and values outside Money.InRange.
func (u BalanceUpdate) Validate() error {
	if u.Empty() {
		return ErrEmptyUpdate
	}
	for _, m := range []*Money{u.Bank, u.Cash} {
		if m != nil && !m.InRange() {
			return ErrInvalidAmount
		}
	}
	return nil
}

// NormalizeCategory trims, lower-cases and collapses inner whitespace.
// An empty category becomes DefaultCategory.
func NormalizeCategory(s string) string {
	s = strings.Join(strings.Fields(strings.ToLower(s)), " ")
	if s == "" {
		return DefaultCategory
	}
	return s
}

// NewExpense builds an expense with defaults applied and CreatedAt truncated
// to the millisecond, the resolution every store persists.
func NewExpense(userID string, amount Money, wallet Wallet, category, raw string, at time.Time) Expense {
	if wallet == "" {
		wallet = DefaultExpenseWallet
	}
	return Expense{
		UserID:     userID,
		Amount:     amount,
		Wallet:     wallet,
		Category:   NormalizeCategory(category),
		RawMessage: raw,
		CreatedAt:  at.Truncate(time.Millisecond),
	}
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return ErrEmptyUserID
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if !e.Wallet.Valid() {
		return ErrInvalidWallet
	}
	return nil
}
