package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledgerbot/internal/amqp"
	"ledgerbot/internal/core"
	"ledgerbot/internal/sheets/memory"
)

type flakyWriter struct {
	*memory.Store
	failures int
}

func (f *flakyWriter) AppendExpense(ctx context.Context, e core.Expense) (string, error) {
	if f.failures > 0 {
		f.failures--
		return "", errors.New("quota exceeded")
	}
	return f.Store.AppendExpense(ctx, e)
}

func expenseEvent() *amqp.LedgerEvent {
	e := core.NewExpense("42", core.Money{Cents: 5000}, core.WalletCash, "food", "spent 50", time.Date(2025, 5, 5, 8, 0, 0, 0, time.UTC))
	e.ID = 3
	return amqp.NewExpenseRecorded(e, core.Balance{UserID: "42", Cash: core.Money{Cents: -5000}})
}

func TestHandleLedgerEvent(t *testing.T) {
	store := memory.New()
	w := NewSyncWorker(store, nil)
	ctx := context.Background()
	at := time.Date(2025, 5, 6, 0, 0, 0, 0, time.UTC)
	b := core.Balance{UserID: "42"}

	events := []*amqp.LedgerEvent{
		expenseEvent(),
		amqp.NewIncomeAdded(core.Money{Cents: 100}, b, at),
		amqp.NewBalanceSet(b, at),
		amqp.NewLedgerReset(b, at),
	}
	for _, ev := range events {
		if err := w.HandleLedgerEvent(ctx, ev); err != nil {
			t.Fatalf("HandleLedgerEvent(%s): %v", ev.Type, err)
		}
	}

	rows := store.Rows()
	if len(rows) != 2 {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0].Kind != "expense" || rows[0].Expense.ID != 3 || rows[0].Expense.Amount.Cents != 5000 {
		t.Fatalf("expense row = %+v", rows[0])
	}
	if rows[1].Kind != "reset" || rows[1].UserID != "42" || !rows[1].At.Equal(at) {
		t.Fatalf("reset row = %+v", rows[1])
	}
}

func TestHandleLedgerEventRedelivery(t *testing.T) {
	store := memory.New()
	w := NewSyncWorker(store, nil)
	ev := expenseEvent()

	for i := 0; i < 3; i++ {
		if err := w.HandleLedgerEvent(context.Background(), ev); err != nil {
			t.Fatal(err)
		}
	}
	if n := len(store.Rows()); n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}
}

func TestHandleLedgerEventRetriesAfterFailure(t *testing.T) {
	writer := &flakyWriter{Store: memory.New(), failures: 1}
	w := NewSyncWorker(writer, nil)
	ev := expenseEvent()

	if err := w.HandleLedgerEvent(context.Background(), ev); err == nil {
		t.Fatal("expected first attempt to fail")
	}
	if err := w.HandleLedgerEvent(context.Background(), ev); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if n := len(writer.Rows()); n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}
}
