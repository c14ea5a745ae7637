// Package ledger declares the store ports the resolver and the stats
// aggregator depend on. Every operation is atomic for one user.
package ledger

import (
	"context"
	"errors"

	"ledgerbot/internal/core"
)

// ErrNotFound is returned by GetBalance when EnsureBalance was never called
// for the user.
var ErrNotFound = errors.New("balance not found")

// MaxRecentExpenses caps the recent list in stats reports.
const MaxRecentExpenses = 25

type (
	BalanceStore interface {
		// EnsureBalance creates a zero balance if none exists and returns the
		// current record. It never duplicates a balance.
		EnsureBalance(ctx context.Context, userID string) (core.Balance, error)
		GetBalance(ctx context.Context, userID string) (core.Balance, error)
		// AdjustBalance adds delta to one wallet and returns the updated record.
		AdjustBalance(ctx context.Context, userID string, wallet core.Wallet, delta core.Money) (core.Balance, error)
		// SetBalance overwrites only the fields present in u.
		SetBalance(ctx context.Context, userID string, u core.BalanceUpdate) (core.Balance, error)
		ResetBalance(ctx context.Context, userID string) (core.Balance, error)
	}

	ExpenseStore interface {
		RecordExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		ClearExpenses(ctx context.Context, userID string) (int64, error)
		// QueryExpenses returns expenses in r, newest first. A limit <= 0
		// means no limit.
		QueryExpenses(ctx context.Context, userID string, r core.DateRange, limit int) ([]core.Expense, error)
		AggregateTotal(ctx context.Context, userID string, r core.DateRange) (core.Money, error)
		// AggregateByCategory is ordered by amount descending, then name.
		AggregateByCategory(ctx context.Context, userID string, r core.DateRange) ([]core.CategoryAmount, error)
		AggregateByWallet(ctx context.Context, userID string, r core.DateRange) ([]core.WalletAmount, error)
	}

	// Transactor groups writes that must succeed or fail together.
	Transactor interface {
		// ApplyExpense records e and debits its wallet in one step.
		ApplyExpense(ctx context.Context, e core.Expense) (core.Expense, core.Balance, error)
		// ResetLedger zeroes the balance and deletes every expense of the user.
		ResetLedger(ctx context.Context, userID string) (core.Balance, error)
	}

	Store interface {
		BalanceStore
		ExpenseStore
		Transactor
		Close() error
	}
)
