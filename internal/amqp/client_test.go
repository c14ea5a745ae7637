package amqp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"ledgerbot/internal/core"
	"ledgerbot/internal/log"
)

type fakeDelivery struct {
	acked    bool
	nacked   bool
	requeued bool
}

func (d *fakeDelivery) Ack(bool) error {
	d.acked = true
	return nil
}

func (d *fakeDelivery) Nack(_, requeue bool) error {
	d.nacked = true
	d.requeued = requeue
	return nil
}

func TestNewExpenseRecorded(t *testing.T) {
	at := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	e := core.NewExpense("42", core.Money{Cents: 5000}, core.WalletCash, "food", "spent 50 on food", at)
	e.ID = 7
	b := core.Balance{UserID: "42", Cash: core.Money{Cents: -5000}}

	ev := NewExpenseRecorded(e, b)
	if ev.ID == uuid.Nil {
		t.Fatal("event id should be set")
	}
	if ev.Type != EventExpenseRecorded || ev.UserID != "42" || ev.ExpenseID != 7 {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.AmountCents != 5000 || ev.Wallet != "cash" || ev.CashCents != -5000 {
		t.Fatalf("unexpected money fields %+v", ev)
	}

	back, err := ev.Expense()
	if err != nil {
		t.Fatalf("Expense: %v", err)
	}
	if back.ID != 7 || back.Amount.Cents != 5000 || back.Category != "food" || !back.CreatedAt.Equal(at) {
		t.Fatalf("round trip lost fields: %+v", back)
	}

	if _, err := NewLedgerReset(b, at).Expense(); err == nil {
		t.Fatal("reset event should carry no expense")
	}
}

func TestLedgerEventFromJSON(t *testing.T) {
	b := core.Balance{UserID: "1", Bank: core.Money{Cents: 20000}}
	ev := NewIncomeAdded(core.Money{Cents: 20000}, b, time.Now())
	body, err := ev.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	got, err := LedgerEventFromJSON(body)
	if err != nil {
		t.Fatalf("LedgerEventFromJSON: %v", err)
	}
	if got.ID != ev.ID || got.Type != EventIncomeAdded || got.BankCents != 20000 || got.Wallet != "bank" {
		t.Fatalf("unexpected event %+v", got)
	}

	bad := []string{
		`not json`,
		`{"type":"ledger_reset","user_id":"1"}`,
		`{"id":"` + uuid.NewString() + `","type":"ledger_reset"}`,
	}
	for _, body := range bad {
		if _, err := LedgerEventFromJSON([]byte(body)); err == nil {
			t.Errorf("expected error for %s", body)
		}
	}
}

func TestHandleDelivery(t *testing.T) {
	ctx := context.Background()
	logger := log.Discard()
	valid, _ := NewBalanceSet(core.Balance{UserID: "1"}, time.Now()).ToJSON()

	t.Run("success acks", func(t *testing.T) {
		d := &fakeDelivery{}
		var seen *LedgerEvent
		HandleDelivery(ctx, logger, d, valid, func(_ context.Context, ev *LedgerEvent) error {
			seen = ev
			return nil
		})
		if !d.acked || d.nacked || seen == nil || seen.Type != EventBalanceSet {
			t.Fatalf("delivery = %+v, seen = %+v", d, seen)
		}
	})

	t.Run("handler error requeues", func(t *testing.T) {
		d := &fakeDelivery{}
		HandleDelivery(ctx, logger, d, valid, func(context.Context, *LedgerEvent) error {
			return errors.New("sheet unavailable")
		})
		if d.acked || !d.nacked || !d.requeued {
			t.Fatalf("delivery = %+v", d)
		}
	})

	t.Run("malformed body is dropped", func(t *testing.T) {
		d := &fakeDelivery{}
		called := false
		HandleDelivery(ctx, logger, d, []byte(`{`), func(context.Context, *LedgerEvent) error {
			called = true
			return nil
		})
		if called || !d.nacked || d.requeued {
			t.Fatalf("delivery = %+v, called = %v", d, called)
		}
	})
}
