// Package memory is an in-process LedgerWriter used by tests and by the
// worker when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ledgerbot/internal/core"
	ports "ledgerbot/internal/sheets"
)

// Row is one mirrored line.
type Row struct {
	Kind    string
	UserID  string
	Expense core.Expense
	At      time.Time
}

type Store struct {
	mu   sync.Mutex
	rows []Row
}

var _ ports.LedgerWriter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// AppendExpense stores the expense and returns a synthetic row reference.
func (s *Store) AppendExpense(_ context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	return s.add(Row{Kind: "expense", UserID: e.UserID, Expense: e, At: e.CreatedAt}), nil
}

func (s *Store) AppendReset(_ context.Context, userID string, at time.Time) (string, error) {
	if userID == "" {
		return "", core.ErrEmptyUserID
	}
	return s.add(Row{Kind: "reset", UserID: userID, At: at}), nil
}

func (s *Store) add(r Row) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, r)
	return fmt.Sprintf("mem:%d", len(s.rows))
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Row(nil), s.rows...)
}
