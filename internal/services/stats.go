package services

import (
	"context"
	"fmt"
	"time"

	"ledgerbot/internal/core"
	"ledgerbot/internal/ledger"
)

// StatsReport summarizes a user's expenses over a range.
type StatsReport struct {
	Range      core.DateRange
	Total      core.Money
	ByCategory []core.CategoryAmount
	ByWallet   []core.WalletAmount
	// Recent is newest first and holds at most ledger.MaxRecentExpenses.
	Recent []core.Expense
	// Truncated is set when Recent hit the cap.
	Truncated bool
}

// Empty reports whether no expenses fell in the range.
func (r StatsReport) Empty() bool {
	return len(r.Recent) == 0
}

type StatsAggregator struct {
	store ledger.ExpenseStore
	loc   *time.Location
}

// NewStatsAggregator reads dates in loc; nil means UTC.
func NewStatsAggregator(store ledger.ExpenseStore, loc *time.Location) *StatsAggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &StatsAggregator{store: store, loc: loc}
}

// ComputeStats parses an optional "from YYYY-MM-DD to YYYY-MM-DD" out of
// text and aggregates the user's expenses in that range. A malformed range
// returns core.ErrInvalidDateRange.
func (s *StatsAggregator) ComputeStats(ctx context.Context, userID, text string) (StatsReport, error) {
	r, err := core.ParseDateRange(text, s.loc)
	if err != nil {
		return StatsReport{}, err
	}
	return s.Compute(ctx, userID, r)
}

// Compute aggregates over an already parsed range.
func (s *StatsAggregator) Compute(ctx context.Context, userID string, r core.DateRange) (StatsReport, error) {
	report := StatsReport{Range: r}

	var err error
	if report.Total, err = s.store.AggregateTotal(ctx, userID, r); err != nil {
		return StatsReport{}, fmt.Errorf("stats total: %w", err)
	}
	if report.ByCategory, err = s.store.AggregateByCategory(ctx, userID, r); err != nil {
		return StatsReport{}, fmt.Errorf("stats by category: %w", err)
	}
	if report.ByWallet, err = s.store.AggregateByWallet(ctx, userID, r); err != nil {
		return StatsReport{}, fmt.Errorf("stats by wallet: %w", err)
	}
	if report.Recent, err = s.store.QueryExpenses(ctx, userID, r, ledger.MaxRecentExpenses); err != nil {
		return StatsReport{}, fmt.Errorf("stats recent: %w", err)
	}
	report.Truncated = len(report.Recent) == ledger.MaxRecentExpenses
	return report, nil
}

// Location is the timezone dates are read in.
func (s *StatsAggregator) Location() *time.Location {
	return s.loc
}
