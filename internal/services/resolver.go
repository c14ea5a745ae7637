package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledgerbot/internal/amqp"
	"ledgerbot/internal/core"
	"ledgerbot/internal/ledger"
	"ledgerbot/internal/log"
)

// Outcome says what a resolved intent did.
type Outcome string

const (
	OutcomeExpenseRecorded Outcome = "expense_recorded"
	OutcomeIncomeAdded     Outcome = "income_added"
	OutcomeBalanceSet      Outcome = "balance_set"
	OutcomeBalanceShown    Outcome = "balance_shown"
	OutcomeLedgerReset     Outcome = "ledger_reset"
	OutcomeRejected        Outcome = "rejected"
)

// Rejection is the user-facing reason an intent was not applied.
type Rejection string

const (
	RejectInvalidAmount Rejection = "invalid_amount"
	RejectIncomeWallet  Rejection = "income_wallet_violation"
	RejectAmountMissing Rejection = "amount_missing"
	RejectClarification Rejection = "clarification"
)

// Result is what the transport renders. Balance is the record after the
// mutation; it is zero for rejections.
type Result struct {
	Outcome   Outcome
	Rejection Rejection
	Balance   core.Balance
	Expense   *core.Expense
	Amount    core.Money
}

func rejected(r Rejection) Result {
	return Result{Outcome: OutcomeRejected, Rejection: r}
}

// EventPublisher receives an event after each successful mutation.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// Resolver applies classified intents to the ledger.
type Resolver struct {
	store     ledger.Store
	publisher EventPublisher
	logger    *log.StructuredLogger
	now       func() time.Time
}

type ResolverOption func(*Resolver)

// WithPublisher enables ledger events. A nil publisher disables them.
func WithPublisher(p EventPublisher) ResolverOption {
	return func(r *Resolver) { r.publisher = p }
}

func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) { r.now = now }
}

func WithLogger(l *log.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = log.NewStructuredLogger(l.WithComponent(log.ComponentResolver))
		}
	}
}

func NewResolver(store ledger.Store, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:  store,
		logger: log.NewStructuredLogger(log.Discard()),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve applies intent for userID. Rejections come back as a Result with
// OutcomeRejected and a nil error; only store failures return an error.
func (r *Resolver) Resolve(ctx context.Context, userID string, intent core.Intent, raw string) (Result, error) {
	start := r.now()
	res, err := r.resolve(ctx, userID, intent, raw)
	if err != nil {
		return Result{}, err
	}

	if res.Outcome == OutcomeRejected {
		r.logger.LogRejection(ctx, userID, intent.Kind.String(), string(res.Rejection))
		return res, nil
	}

	var amount *int64
	if intent.Amount != nil {
		amount = &intent.Amount.Cents
	}
	fields := log.NewFields().
		WithIntent(intent.Kind.String(), intent.Wallet.String(), amount, intent.Category).
		WithBalance(res.Balance.Bank.Cents, res.Balance.Cash.Cents)
	r.logger.LogIntentResolved(ctx, userID, fields, string(res.Outcome), r.now().Sub(start).Milliseconds())
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, userID string, intent core.Intent, raw string) (Result, error) {
	switch intent.Kind {
	case core.IntentExpense:
		return r.expense(ctx, userID, intent, raw)
	case core.IntentIncome:
		return r.income(ctx, userID, intent)
	case core.IntentSetBalance:
		return r.setBalance(ctx, userID, intent)
	case core.IntentShowBalance:
		b, err := r.ShowBalance(ctx, userID)
		if err != nil {
			return Result{}, err
		}
		return Result{Outcome: OutcomeBalanceShown, Balance: b}, nil
	case core.IntentResetBalance:
		return r.Reset(ctx, userID)
	default:
		return rejected(RejectClarification), nil
	}
}

func (r *Resolver) expense(ctx context.Context, userID string, intent core.Intent, raw string) (Result, error) {
	if intent.Amount == nil || intent.Amount.Validate() != nil {
		return rejected(RejectInvalidAmount), nil
	}
	e := core.NewExpense(userID, *intent.Amount, intent.Wallet, intent.Category, raw, r.now())
	saved, b, err := r.store.ApplyExpense(ctx, e)
	if errors.Is(err, core.ErrInvalidAmount) {
		// The wallet would leave the representable range.
		return rejected(RejectInvalidAmount), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("apply expense: %w", err)
	}
	r.publish(ctx, amqp.NewExpenseRecorded(saved, b))
	return Result{Outcome: OutcomeExpenseRecorded, Balance: b, Expense: &saved, Amount: saved.Amount}, nil
}

func (r *Resolver) income(ctx context.Context, userID string, intent core.Intent) (Result, error) {
	// The wallet rule wins over the amount rule.
	if intent.Wallet != "" && intent.Wallet != core.WalletBank {
		return rejected(RejectIncomeWallet), nil
	}
	if intent.Amount == nil || intent.Amount.Validate() != nil {
		return rejected(RejectInvalidAmount), nil
	}
	b, err := r.store.AdjustBalance(ctx, userID, core.WalletBank, *intent.Amount)
	if errors.Is(err, core.ErrInvalidAmount) {
		return rejected(RejectInvalidAmount), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("add income: %w", err)
	}
	r.publish(ctx, amqp.NewIncomeAdded(*intent.Amount, b, r.now()))
	return Result{Outcome: OutcomeIncomeAdded, Balance: b, Amount: *intent.Amount}, nil
}

func (r *Resolver) setBalance(ctx context.Context, userID string, intent core.Intent) (Result, error) {
	u := core.BalanceUpdate{Bank: intent.Bank, Cash: intent.Cash}
	if u.Empty() {
		return rejected(RejectAmountMissing), nil
	}
	b, err := r.store.SetBalance(ctx, userID, u)
	if errors.Is(err, core.ErrInvalidAmount) {
		return rejected(RejectInvalidAmount), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("set balance: %w", err)
	}
	r.publish(ctx, amqp.NewBalanceSet(b, r.now()))
	return Result{Outcome: OutcomeBalanceSet, Balance: b}, nil
}

// ShowBalance returns the current balance, creating it when missing.
func (r *Resolver) ShowBalance(ctx context.Context, userID string) (core.Balance, error) {
	b, err := r.store.GetBalance(ctx, userID)
	if errors.Is(err, ledger.ErrNotFound) {
		b, err = r.store.EnsureBalance(ctx, userID)
	}
	if err != nil {
		return core.Balance{}, fmt.Errorf("get balance: %w", err)
	}
	return b, nil
}

// Reset zeroes both wallets and clears the expense log in one step.
func (r *Resolver) Reset(ctx context.Context, userID string) (Result, error) {
	b, err := r.store.ResetLedger(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("reset ledger: %w", err)
	}
	r.publish(ctx, amqp.NewLedgerReset(b, r.now()))
	return Result{Outcome: OutcomeLedgerReset, Balance: b}, nil
}

func (r *Resolver) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.PublishLedgerEvent(ctx, ev); err != nil {
		r.logger.LogError(ctx, "Failed to publish ledger event", err, log.ComponentAMQP, log.OpPublish,
			log.NewFields().WithErrorType(log.ErrorTypeNetwork))
	}
}
