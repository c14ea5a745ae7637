package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ledgerbot/internal/core"
)

// EventType names a ledger mutation.
type EventType string

const (
	EventExpenseRecorded EventType = "expense_recorded"
	EventIncomeAdded     EventType = "income_added"
	EventBalanceSet      EventType = "balance_set"
	EventLedgerReset     EventType = "ledger_reset"
)

// LedgerEvent describes one applied mutation together with the balance it
// produced. Consumers use ID to drop redeliveries.
type LedgerEvent struct {
	ID          uuid.UUID `json:"id"`
	Type        EventType `json:"type"`
	UserID      string    `json:"user_id"`
	ExpenseID   int64     `json:"expense_id,omitempty"`
	AmountCents int64     `json:"amount_cents,omitempty"`
	Wallet      string    `json:"wallet,omitempty"`
	Category    string    `json:"category,omitempty"`
	RawMessage  string    `json:"raw_message,omitempty"`
	BankCents   int64     `json:"bank_cents"`
	CashCents   int64     `json:"cash_cents"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func newEvent(t EventType, b core.Balance, at time.Time) *LedgerEvent {
	return &LedgerEvent{
		ID:         uuid.New(),
		Type:       t,
		UserID:     b.UserID,
		BankCents:  b.Bank.Cents,
		CashCents:  b.Cash.Cents,
		OccurredAt: at.UTC(),
	}
}

// NewExpenseRecorded builds the event for an applied expense.
func NewExpenseRecorded(e core.Expense, b core.Balance) *LedgerEvent {
	ev := newEvent(EventExpenseRecorded, b, e.CreatedAt)
	ev.UserID = e.UserID
	ev.ExpenseID = e.ID
	ev.AmountCents = e.Amount.Cents
	ev.Wallet = e.Wallet.String()
	ev.Category = e.Category
	ev.RawMessage = e.RawMessage
	return ev
}

func NewIncomeAdded(amount core.Money, b core.Balance, at time.Time) *LedgerEvent {
	ev := newEvent(EventIncomeAdded, b, at)
	ev.AmountCents = amount.Cents
	ev.Wallet = core.WalletBank.String()
	return ev
}

func NewBalanceSet(b core.Balance, at time.Time) *LedgerEvent {
	return newEvent(EventBalanceSet, b, at)
}

func NewLedgerReset(b core.Balance, at time.Time) *LedgerEvent {
	return newEvent(EventLedgerReset, b, at)
}

// Expense rebuilds the expense carried by an expense_recorded event.
func (m *LedgerEvent) Expense() (core.Expense, error) {
	if m.Type != EventExpenseRecorded {
		return core.Expense{}, fmt.Errorf("event %s carries no expense", m.Type)
	}
	return core.Expense{
		ID:         m.ExpenseID,
		UserID:     m.UserID,
		Amount:     core.Money{Cents: m.AmountCents},
		Wallet:     core.Wallet(m.Wallet),
		Category:   m.Category,
		RawMessage: m.RawMessage,
		CreatedAt:  m.OccurredAt,
	}, nil
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes and sanity-checks an event body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == uuid.Nil {
		return nil, fmt.Errorf("ledger event without id")
	}
	if msg.UserID == "" {
		return nil, fmt.Errorf("ledger event %s without user id", msg.ID)
	}
	return &msg, nil
}
