// Package ledgertest holds the behaviour every ledger.Store must share.
// Backends call Run from their own tests.
package ledgertest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ledgerbot/internal/core"
	"ledgerbot/internal/ledger"
)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) ledger.Store

var base = time.Date(2025, 6, 10, 9, 30, 0, 0, time.UTC)

func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s ledger.Store)
	}{
		{"EnsureBalanceIsIdempotent", testEnsureBalance},
		{"GetBalanceMissing", testGetBalanceMissing},
		{"AdjustBalance", testAdjustBalance},
		{"SetBalancePartial", testSetBalancePartial},
		{"ResetBalance", testResetBalance},
		{"RecordAndQuery", testRecordAndQuery},
		{"RangeIsInclusive", testRangeInclusive},
		{"Aggregates", testAggregates},
		{"ApplyExpense", testApplyExpense},
		{"ResetLedger", testResetLedger},
		{"UsersAreIsolated", testIsolation},
		{"ConcurrentAdjust", testConcurrentAdjust},
		{"RejectsInvalidExpense", testInvalidExpense},
		{"BalanceStaysInRange", testBalanceBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { s.Close() })
			tt.fn(t, s)
		})
	}
}

func cents(c int64) core.Money { return core.Money{Cents: c} }

func mustEnsure(t *testing.T, s ledger.Store, userID string) {
	t.Helper()
	if _, err := s.EnsureBalance(context.Background(), userID); err != nil {
		t.Fatalf("EnsureBalance: %v", err)
	}
}

func mustRecord(t *testing.T, s ledger.Store, userID string, amount int64, w core.Wallet, cat string, at time.Time) core.Expense {
	t.Helper()
	e, err := s.RecordExpense(context.Background(), core.NewExpense(userID, cents(amount), w, cat, "raw", at))
	if err != nil {
		t.Fatalf("RecordExpense: %v", err)
	}
	return e
}

func expectBalance(t *testing.T, b core.Balance, bank, cash int64) {
	t.Helper()
	if b.Bank.Cents != bank || b.Cash.Cents != cash {
		t.Fatalf("balance = {bank:%d cash:%d}, want {bank:%d cash:%d}", b.Bank.Cents, b.Cash.Cents, bank, cash)
	}
}

func testEnsureBalance(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	b, err := s.EnsureBalance(ctx, "u1")
	if err != nil {
		t.Fatalf("EnsureBalance: %v", err)
	}
	expectBalance(t, b, 0, 0)
	if b.UserID != "u1" {
		t.Fatalf("user id = %q", b.UserID)
	}

	if _, err := s.AdjustBalance(ctx, "u1", core.WalletBank, cents(500)); err != nil {
		t.Fatalf("AdjustBalance: %v", err)
	}
	b, err = s.EnsureBalance(ctx, "u1")
	if err != nil {
		t.Fatalf("EnsureBalance again: %v", err)
	}
	expectBalance(t, b, 500, 0)
}

func testGetBalanceMissing(t *testing.T, s ledger.Store) {
	_, err := s.GetBalance(context.Background(), "nobody")
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testAdjustBalance(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	mustEnsure(t, s, "u1")

	b, err := s.AdjustBalance(ctx, "u1", core.WalletCash, cents(-5000))
	if err != nil {
		t.Fatalf("AdjustBalance: %v", err)
	}
	expectBalance(t, b, 0, -5000)

	b, err = s.AdjustBalance(ctx, "u1", core.WalletBank, cents(20000))
	if err != nil {
		t.Fatalf("AdjustBalance: %v", err)
	}
	expectBalance(t, b, 20000, -5000)

	if _, err := s.AdjustBalance(ctx, "u1", core.Wallet("gold"), cents(1)); !errors.Is(err, core.ErrInvalidWallet) {
		t.Fatalf("expected ErrInvalidWallet, got %v", err)
	}
}

func testSetBalancePartial(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	mustEnsure(t, s, "u1")
	if _, err := s.AdjustBalance(ctx, "u1", core.WalletCash, cents(-5000)); err != nil {
		t.Fatal(err)
	}

	bank := cents(100000)
	b, err := s.SetBalance(ctx, "u1", core.BalanceUpdate{Bank: &bank})
	if err != nil {
		t.Fatalf("SetBalance: %v", err)
	}
	expectBalance(t, b, 100000, -5000)

	cash := cents(0)
	b, err = s.SetBalance(ctx, "u1", core.BalanceUpdate{Cash: &cash})
	if err != nil {
		t.Fatalf("SetBalance: %v", err)
	}
	expectBalance(t, b, 100000, 0)

	if _, err := s.SetBalance(ctx, "u1", core.BalanceUpdate{}); !errors.Is(err, core.ErrEmptyUpdate) {
		t.Fatalf("expected ErrEmptyUpdate, got %v", err)
	}
}

func testResetBalance(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	mustEnsure(t, s, "u1")
	s.AdjustBalance(ctx, "u1", core.WalletBank, cents(123))
	mustRecord(t, s, "u1", 100, core.WalletCash, "food", base)

	b, err := s.ResetBalance(ctx, "u1")
	if err != nil {
		t.Fatalf("ResetBalance: %v", err)
	}
	expectBalance(t, b, 0, 0)

	got, err := s.GetBalance(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	expectBalance(t, got, 0, 0)

	// ResetBalance leaves the log alone.
	list, _ := s.QueryExpenses(ctx, "u1", core.DateRange{}, 0)
	if len(list) != 1 {
		t.Fatalf("expenses = %d, want 1", len(list))
	}
}

func testRecordAndQuery(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	mustEnsure(t, s, "u1")
	for i := 0; i < 30; i++ {
		mustRecord(t, s, "u1", int64(100+i), core.WalletCash, "food", base.Add(time.Duration(i)*time.Minute))
	}

	list, err := s.QueryExpenses(ctx, "u1", core.DateRange{}, ledger.MaxRecentExpenses)
	if err != nil {
		t.Fatalf("QueryExpenses: %v", err)
	}
	if len(list) != ledger.MaxRecentExpenses {
		t.Fatalf("len = %d, want %d", len(list), ledger.MaxRecentExpenses)
	}
	if list[0].Amount.Cents != 129 || list[24].Amount.Cents != 105 {
		t.Fatalf("not newest first: first=%d last=%d", list[0].Amount.Cents, list[24].Amount.Cents)
	}
	e := list[0]
	if e.ID == 0 || e.UserID != "u1" || e.Wallet != core.WalletCash || e.Category != "food" || e.RawMessage != "raw" {
		t.Fatalf("unexpected expense %+v", e)
	}
	if !e.CreatedAt.Equal(base.Add(29 * time.Minute)) {
		t.Fatalf("created at = %v", e.CreatedAt)
	}

	all, _ := s.QueryExpenses(ctx, "u1", core.DateRange{}, 0)
	if len(all) != 30 {
		t.Fatalf("unlimited len = %d", len(all))
	}
}

func testRangeInclusive(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	mustEnsure(t, s, "u1")

	r, err := core.ParseDateRange("from 2025-06-01 to 2025-06-10", time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	mustRecord(t, s, "u1", 100, core.WalletCash, "a", *r.From)
	mustRecord(t, s, "u1", 200, core.WalletCash, "b", *r.To)
	mustRecord(t, s, "u1", 400, core.WalletCash, "c", r.To.Add(time.Millisecond))
	mustRecord(t, s, "u1", 800, core.WalletCash, "d", r.From.Add(-time.Millisecond))

	total, err := s.AggregateTotal(ctx, "u1", r)
	if err != nil {
		t.Fatalf("AggregateTotal: %v", err)
	}
	if total.Cents != 300 {
		t.Fatalf("total = %d, want 300", total.Cents)
	}
	list, _ := s.QueryExpenses(ctx, "u1", r, 0)
	if len(list) != 2 {
		t.Fatalf("query len = %d, want 2", len(list))
	}
}

func testAggregates(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	mustEnsure(t, s, "u1")
	mustRecord(t, s, "u1", 5000, core.WalletCash, "food", base)
	mustRecord(t, s, "u1", 2500, core.WalletBank, "travel", base.Add(time.Hour))
	mustRecord(t, s, "u1", 2500, core.WalletBank, "bills", base.Add(2*time.Hour))
	mustRecord(t, s, "u1", 1000, core.WalletCash, "food", base.Add(3*time.Hour))

	total, err := s.AggregateTotal(ctx, "u1", core.DateRange{})
	if err != nil || total.Cents != 11000 {
		t.Fatalf("total = %d, %v", total.Cents, err)
	}

	cats, err := s.AggregateByCategory(ctx, "u1", core.DateRange{})
	if err != nil {
		t.Fatalf("AggregateByCategory: %v", err)
	}
	want := []core.CategoryAmount{
		{Name: "food", Amount: cents(6000)},
		{Name: "bills", Amount: cents(2500)},
		{Name: "travel", Amount: cents(2500)},
	}
	if len(cats) != len(want) {
		t.Fatalf("categories = %+v", cats)
	}
	for i := range want {
		if cats[i] != want[i] {
			t.Fatalf("categories[%d] = %+v, want %+v", i, cats[i], want[i])
		}
	}

	wallets, err := s.AggregateByWallet(ctx, "u1", core.DateRange{})
	if err != nil {
		t.Fatalf("AggregateByWallet: %v", err)
	}
	if len(wallets) != 2 ||
		wallets[0] != (core.WalletAmount{Wallet: core.WalletBank, Amount: cents(5000)}) ||
		wallets[1] != (core.WalletAmount{Wallet: core.WalletCash, Amount: cents(6000)}) {
		t.Fatalf("wallets = %+v", wallets)
	}

	empty, err := s.AggregateTotal(ctx, "other", core.DateRange{})
	if err != nil || empty.Cents != 0 {
		t.Fatalf("empty total = %d, %v", empty.Cents, err)
	}
}

func testApplyExpense(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	mustEnsure(t, s, "u1")

	e := core.NewExpense("u1", cents(5000), core.WalletCash, "Food", "spent 50 on food", base)
	saved, b, err := s.ApplyExpense(ctx, e)
	if err != nil {
		t.Fatalf("ApplyExpense: %v", err)
	}
	expectBalance(t, b, 0, -5000)
	if saved.ID == 0 || saved.Category != "food" || saved.Amount.Cents != 5000 {
		t.Fatalf("saved = %+v", saved)
	}

	list, _ := s.QueryExpenses(ctx, "u1", core.DateRange{}, 0)
	if len(list) != 1 || list[0].ID != saved.ID {
		t.Fatalf("expenses = %+v", list)
	}
}

func testResetLedger(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	mustEnsure(t, s, "u1")
	mustEnsure(t, s, "u2")
	s.ApplyExpense(ctx, core.NewExpense("u1", cents(100), core.WalletBank, "", "", base))
	s.ApplyExpense(ctx, core.NewExpense("u2", cents(100), core.WalletBank, "", "", base))

	b, err := s.ResetLedger(ctx, "u1")
	if err != nil {
		t.Fatalf("ResetLedger: %v", err)
	}
	expectBalance(t, b, 0, 0)

	total, _ := s.AggregateTotal(ctx, "u1", core.DateRange{})
	if total.Cents != 0 {
		t.Fatalf("total after reset = %d", total.Cents)
	}
	other, _ := s.AggregateTotal(ctx, "u2", core.DateRange{})
	if other.Cents != 100 {
		t.Fatalf("other user's expenses touched: %d", other.Cents)
	}
	if n, err := s.ClearExpenses(ctx, "u2"); err != nil || n != 1 {
		t.Fatalf("ClearExpenses = %d, %v", n, err)
	}
}

func testIsolation(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	mustEnsure(t, s, "a")
	mustEnsure(t, s, "b")
	s.AdjustBalance(ctx, "a", core.WalletBank, cents(10))

	b, err := s.GetBalance(ctx, "b")
	if err != nil {
		t.Fatal(err)
	}
	expectBalance(t, b, 0, 0)
}

func testConcurrentAdjust(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	mustEnsure(t, s, "u1")

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.ApplyExpense(ctx, core.NewExpense("u1", cents(100), core.WalletCash, "", "", base))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("ApplyExpense: %v", err)
		}
	}

	b, _ := s.GetBalance(ctx, "u1")
	expectBalance(t, b, 0, -100*workers)
	total, _ := s.AggregateTotal(ctx, "u1", core.DateRange{})
	if total.Cents != 100*workers {
		t.Fatalf("total = %d", total.Cents)
	}
}

func testInvalidExpense(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	mustEnsure(t, s, "u1")

	bad := []core.Expense{
		core.NewExpense("u1", cents(0), core.WalletCash, "", "", base),
		core.NewExpense("u1", cents(-1), core.WalletCash, "", "", base),
		core.NewExpense("u1", cents(1), core.Wallet("gold"), "", "", base),
	}
	for _, e := range bad {
		if _, _, err := s.ApplyExpense(ctx, e); err == nil {
			t.Fatalf("ApplyExpense accepted %+v", e)
		}
	}
	b, _ := s.GetBalance(ctx, "u1")
	expectBalance(t, b, 0, 0)
}

func testBalanceBounds(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	near := cents(core.MaxCents - 10)
	if _, err := s.SetBalance(ctx, "u1", core.BalanceUpdate{Bank: &near}); err != nil {
		t.Fatalf("SetBalance: %v", err)
	}

	if _, err := s.AdjustBalance(ctx, "u1", core.WalletBank, cents(11)); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount past the ceiling, got %v", err)
	}
	if _, err := s.AdjustBalance(ctx, "u1", core.WalletBank, cents(9_000_000_000_000_000_000)); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for oversized delta, got %v", err)
	}
	b, err := s.GetBalance(ctx, "u1")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	expectBalance(t, b, core.MaxCents-10, 0)

	b, err = s.AdjustBalance(ctx, "u1", core.WalletBank, cents(10))
	if err != nil {
		t.Fatalf("AdjustBalance to the ceiling: %v", err)
	}
	expectBalance(t, b, core.MaxCents, 0)

	floor := cents(-core.MaxCents)
	if _, err := s.SetBalance(ctx, "u1", core.BalanceUpdate{Cash: &floor}); err != nil {
		t.Fatalf("SetBalance: %v", err)
	}
	e := core.NewExpense("u1", cents(1), core.WalletCash, "food", "spent 0.01", time.Now())
	if _, _, err := s.ApplyExpense(ctx, e); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount below the floor, got %v", err)
	}
	got, err := s.QueryExpenses(ctx, "u1", core.DateRange{}, 0)
	if err != nil {
		t.Fatalf("QueryExpenses: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("rejected expense was recorded: %+v", got)
	}

	beyond := cents(core.MaxCents + 1)
	if _, err := s.SetBalance(ctx, "u1", core.BalanceUpdate{Bank: &beyond}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount from SetBalance, got %v", err)
	}
}
