// Package memory is a process-local ledger store. One mutex serializes all
// writes, which makes every operation atomic.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ledgerbot/internal/core"
	"ledgerbot/internal/ledger"
)

type Store struct {
	mu       sync.RWMutex
	balances map[string]core.Balance
	expenses map[string][]core.Expense
	nextID   int64
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		balances: make(map[string]core.Balance),
		expenses: make(map[string][]core.Expense),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) EnsureBalance(_ context.Context, userID string) (core.Balance, error) {
	if userID == "" {
		return core.Balance{}, core.ErrEmptyUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensure(userID), nil
}

func (s *Store) ensure(userID string) core.Balance {
	b, ok := s.balances[userID]
	if !ok {
		b = core.Balance{UserID: userID}
		s.balances[userID] = b
	}
	return b
}

func (s *Store) GetBalance(_ context.Context, userID string) (core.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.balances[userID]
	if !ok {
		return core.Balance{}, fmt.Errorf("user %s: %w", userID, ledger.ErrNotFound)
	}
	return b, nil
}

func (s *Store) AdjustBalance(_ context.Context, userID string, wallet core.Wallet, delta core.Money) (core.Balance, error) {
	if !wallet.Valid() {
		return core.Balance{}, core.ErrInvalidWallet
	}
	if userID == "" {
		return core.Balance{}, core.ErrEmptyUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adjust(userID, wallet, delta)
}

// adjust leaves the balance untouched when the result would leave
// [-core.MaxCents, core.MaxCents].
func (s *Store) adjust(userID string, wallet core.Wallet, delta core.Money) (core.Balance, error) {
	b := s.ensure(userID)
	next, err := b.Of(wallet).AddChecked(delta)
	if err != nil {
		return core.Balance{}, err
	}
	if wallet == core.WalletBank {
		b.Bank = next
	} else {
		b.Cash = next
	}
	s.balances[userID] = b
	return b, nil
}

func (s *Store) SetBalance(_ context.Context, userID string, u core.BalanceUpdate) (core.Balance, error) {
	if err := u.Validate(); err != nil {
		return core.Balance{}, err
	}
	if userID == "" {
		return core.Balance{}, core.ErrEmptyUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.ensure(userID).Apply(u)
	s.balances[userID] = b
	return b, nil
}

func (s *Store) ResetBalance(_ context.Context, userID string) (core.Balance, error) {
	if userID == "" {
		return core.Balance{}, core.ErrEmptyUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b := core.Balance{UserID: userID}
	s.balances[userID] = b
	return b, nil
}

func (s *Store) RecordExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record(e), nil
}

func (s *Store) record(e core.Expense) core.Expense {
	s.nextID++
	e.ID = s.nextID
	s.expenses[e.UserID] = append(s.expenses[e.UserID], e)
	return e
}

func (s *Store) ClearExpenses(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.expenses[userID]))
	delete(s.expenses, userID)
	return n, nil
}

func (s *Store) ApplyExpense(_ context.Context, e core.Expense) (core.Expense, core.Balance, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, core.Balance{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.adjust(e.UserID, e.Wallet, e.Amount.Neg())
	if err != nil {
		return core.Expense{}, core.Balance{}, err
	}
	return s.record(e), b, nil
}

func (s *Store) ResetLedger(_ context.Context, userID string) (core.Balance, error) {
	if userID == "" {
		return core.Balance{}, core.ErrEmptyUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b := core.Balance{UserID: userID}
	s.balances[userID] = b
	delete(s.expenses, userID)
	return b, nil
}

// inRange returns a copy of the user's expenses in r, newest first.
func (s *Store) inRange(userID string, r core.DateRange) []core.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Expense
	for _, e := range s.expenses[userID] {
		if r.Contains(e.CreatedAt) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Store) QueryExpenses(_ context.Context, userID string, r core.DateRange, limit int) ([]core.Expense, error) {
	out := s.inRange(userID, r)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) AggregateTotal(_ context.Context, userID string, r core.DateRange) (core.Money, error) {
	var total core.Money
	for _, e := range s.inRange(userID, r) {
		total = total.Add(e.Amount)
	}
	return total, nil
}

func (s *Store) AggregateByCategory(_ context.Context, userID string, r core.DateRange) ([]core.CategoryAmount, error) {
	sums := make(map[string]core.Money)
	for _, e := range s.inRange(userID, r) {
		sums[e.Category] = sums[e.Category].Add(e.Amount)
	}
	out := make([]core.CategoryAmount, 0, len(sums))
	for name, amount := range sums {
		out = append(out, core.CategoryAmount{Name: name, Amount: amount})
	}
	core.SortCategoryAmounts(out)
	return out, nil
}

func (s *Store) AggregateByWallet(_ context.Context, userID string, r core.DateRange) ([]core.WalletAmount, error) {
	sums := make(map[core.Wallet]core.Money)
	for _, e := range s.inRange(userID, r) {
		sums[e.Wallet] = sums[e.Wallet].Add(e.Amount)
	}
	out := make([]core.WalletAmount, 0, len(sums))
	for w, amount := range sums {
		out = append(out, core.WalletAmount{Wallet: w, Amount: amount})
	}
	core.SortWalletAmounts(out)
	return out, nil
}
