package sheets

import (
	"context"
	"time"

	"ledgerbot/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerWriter mirrors the expense log into an append-only sheet.
	LedgerWriter interface {
		AppendExpense(ctx context.Context, e core.Expense) (rowRef string, err error)
		// AppendReset records that the user's ledger was cleared; earlier
		// rows are kept.
		AppendReset(ctx context.Context, userID string, at time.Time) (rowRef string, err error)
	}
)
