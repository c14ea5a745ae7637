// Package postgres is the shared-database ledger store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ledgerbot/internal/core"
	"ledgerbot/internal/ledger"
)

type Store struct {
	pool *pgxpool.Pool
}

var _ ledger.Store = (*Store)(nil)

// Open migrates the schema and connects a pool.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if err := RunMigrations(dsn); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

const (
	ensureSQL     = `INSERT INTO balances (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`
	selectBalance = `SELECT user_id, bank, cash FROM balances WHERE user_id = $1`
	adjustBankSQL = `UPDATE balances SET bank = bank + $1, updated_at = now() WHERE user_id = $2 AND abs(bank + $1) <= $3 RETURNING user_id, bank, cash`
	adjustCashSQL = `UPDATE balances SET cash = cash + $1, updated_at = now() WHERE user_id = $2 AND abs(cash + $1) <= $3 RETURNING user_id, bank, cash`
	setSQL        = `UPDATE balances SET bank = COALESCE($1::bigint, bank), cash = COALESCE($2::bigint, cash), updated_at = now() WHERE user_id = $3 RETURNING user_id, bank, cash`
	resetSQL      = `UPDATE balances SET bank = 0, cash = 0, updated_at = now() WHERE user_id = $1 RETURNING user_id, bank, cash`
	insertExpense = `INSERT INTO expenses (user_id, amount_cents, wallet, category, raw_message, created_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	clearSQL      = `DELETE FROM expenses WHERE user_id = $1`
)

func scanBalance(row pgx.Row) (core.Balance, error) {
	var b core.Balance
	if err := row.Scan(&b.UserID, &b.Bank.Cents, &b.Cash.Cents); err != nil {
		return core.Balance{}, err
	}
	return b, nil
}

func (s *Store) EnsureBalance(ctx context.Context, userID string) (core.Balance, error) {
	if userID == "" {
		return core.Balance{}, core.ErrEmptyUserID
	}
	if _, err := s.pool.Exec(ctx, ensureSQL, userID); err != nil {
		return core.Balance{}, fmt.Errorf("ensure balance: %w", err)
	}
	b, err := scanBalance(s.pool.QueryRow(ctx, selectBalance, userID))
	if err != nil {
		return core.Balance{}, fmt.Errorf("read balance: %w", err)
	}
	return b, nil
}

func (s *Store) GetBalance(ctx context.Context, userID string) (core.Balance, error) {
	b, err := scanBalance(s.pool.QueryRow(ctx, selectBalance, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Balance{}, fmt.Errorf("user %s: %w", userID, ledger.ErrNotFound)
	}
	if err != nil {
		return core.Balance{}, fmt.Errorf("read balance: %w", err)
	}
	return b, nil
}

func adjust(ctx context.Context, tx pgx.Tx, userID string, wallet core.Wallet, delta core.Money) (core.Balance, error) {
	if !delta.InRange() {
		return core.Balance{}, core.ErrInvalidAmount
	}
	query := adjustCashSQL
	if wallet == core.WalletBank {
		query = adjustBankSQL
	}
	if _, err := tx.Exec(ctx, ensureSQL, userID); err != nil {
		return core.Balance{}, fmt.Errorf("ensure balance: %w", err)
	}
	b, err := scanBalance(tx.QueryRow(ctx, query, delta.Cents, userID, core.MaxCents))
	if errors.Is(err, pgx.ErrNoRows) {
		// The row exists, so the bound check filtered it out.
		return core.Balance{}, core.ErrInvalidAmount
	}
	if err != nil {
		return core.Balance{}, fmt.Errorf("adjust %s: %w", wallet, err)
	}
	return b, nil
}

func (s *Store) AdjustBalance(ctx context.Context, userID string, wallet core.Wallet, delta core.Money) (core.Balance, error) {
	if !wallet.Valid() {
		return core.Balance{}, core.ErrInvalidWallet
	}
	if userID == "" {
		return core.Balance{}, core.ErrEmptyUserID
	}
	var b core.Balance
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		b, err = adjust(ctx, tx, userID, wallet, delta)
		return err
	})
	return b, err
}

func centsArg(m *core.Money) *int64 {
	if m == nil {
		return nil
	}
	c := m.Cents
	return &c
}

func (s *Store) SetBalance(ctx context.Context, userID string, u core.BalanceUpdate) (core.Balance, error) {
	if err := u.Validate(); err != nil {
		return core.Balance{}, err
	}
	if userID == "" {
		return core.Balance{}, core.ErrEmptyUserID
	}
	var b core.Balance
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, ensureSQL, userID); err != nil {
			return fmt.Errorf("ensure balance: %w", err)
		}
		var err error
		b, err = scanBalance(tx.QueryRow(ctx, setSQL, centsArg(u.Bank), centsArg(u.Cash), userID))
		if err != nil {
			return fmt.Errorf("set balance: %w", err)
		}
		return nil
	})
	return b, err
}

func reset(ctx context.Context, tx pgx.Tx, userID string) (core.Balance, error) {
	if _, err := tx.Exec(ctx, ensureSQL, userID); err != nil {
		return core.Balance{}, fmt.Errorf("ensure balance: %w", err)
	}
	b, err := scanBalance(tx.QueryRow(ctx, resetSQL, userID))
	if err != nil {
		return core.Balance{}, fmt.Errorf("reset balance: %w", err)
	}
	return b, nil
}

func (s *Store) ResetBalance(ctx context.Context, userID string) (core.Balance, error) {
	if userID == "" {
		return core.Balance{}, core.ErrEmptyUserID
	}
	var b core.Balance
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		b, err = reset(ctx, tx, userID)
		return err
	})
	return b, err
}

func (s *Store) RecordExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	err := s.pool.QueryRow(ctx, insertExpense,
		e.UserID, e.Amount.Cents, string(e.Wallet), e.Category, e.RawMessage, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	return e, nil
}

func (s *Store) ClearExpenses(ctx context.Context, userID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, clearSQL, userID)
	if err != nil {
		return 0, fmt.Errorf("clear expenses: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) ApplyExpense(ctx context.Context, e core.Expense) (core.Expense, core.Balance, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, core.Balance{}, err
	}
	var b core.Balance
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, insertExpense,
			e.UserID, e.Amount.Cents, string(e.Wallet), e.Category, e.RawMessage, e.CreatedAt,
		).Scan(&e.ID)
		if err != nil {
			return fmt.Errorf("insert expense: %w", err)
		}
		b, err = adjust(ctx, tx, e.UserID, e.Wallet, e.Amount.Neg())
		return err
	})
	if err != nil {
		return core.Expense{}, core.Balance{}, err
	}
	return e, b, nil
}

func (s *Store) ResetLedger(ctx context.Context, userID string) (core.Balance, error) {
	if userID == "" {
		return core.Balance{}, core.ErrEmptyUserID
	}
	var b core.Balance
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		if b, err = reset(ctx, tx, userID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, clearSQL, userID); err != nil {
			return fmt.Errorf("clear expenses: %w", err)
		}
		return nil
	})
	return b, err
}

func rangeFilter(userID string, r core.DateRange) (string, []any) {
	var sb strings.Builder
	sb.WriteString("WHERE user_id = $1")
	args := []any{userID}
	if r.From != nil {
		args = append(args, *r.From)
		sb.WriteString(" AND created_at >= $" + strconv.Itoa(len(args)))
	}
	if r.To != nil {
		args = append(args, *r.To)
		sb.WriteString(" AND created_at <= $" + strconv.Itoa(len(args)))
	}
	return sb.String(), args
}

func (s *Store) QueryExpenses(ctx context.Context, userID string, r core.DateRange, limit int) ([]core.Expense, error) {
	where, args := rangeFilter(userID, r)
	query := "SELECT id, user_id, amount_cents, wallet, category, raw_message, created_at FROM expenses " +
		where + " ORDER BY created_at DESC, id DESC"
	if limit > 0 {
		args = append(args, limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e      core.Expense
			wallet string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount.Cents, &wallet, &e.Category, &e.RawMessage, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Wallet = core.Wallet(wallet)
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) AggregateTotal(ctx context.Context, userID string, r core.DateRange) (core.Money, error) {
	where, args := rangeFilter(userID, r)
	var total int64
	if err := s.pool.QueryRow(ctx, "SELECT COALESCE(SUM(amount_cents), 0)::bigint FROM expenses "+where, args...).Scan(&total); err != nil {
		return core.Money{}, fmt.Errorf("sum expenses: %w", err)
	}
	return core.Money{Cents: total}, nil
}

func (s *Store) AggregateByCategory(ctx context.Context, userID string, r core.DateRange) ([]core.CategoryAmount, error) {
	where, args := rangeFilter(userID, r)
	rows, err := s.pool.Query(ctx,
		"SELECT category, SUM(amount_cents)::bigint AS total FROM expenses "+where+" GROUP BY category ORDER BY total DESC, category ASC",
		args...)
	if err != nil {
		return nil, fmt.Errorf("sum by category: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryAmount
	for rows.Next() {
		var c core.CategoryAmount
		if err := rows.Scan(&c.Name, &c.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan category sum: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) AggregateByWallet(ctx context.Context, userID string, r core.DateRange) ([]core.WalletAmount, error) {
	where, args := rangeFilter(userID, r)
	rows, err := s.pool.Query(ctx,
		"SELECT wallet, SUM(amount_cents)::bigint FROM expenses "+where+" GROUP BY wallet ORDER BY wallet",
		args...)
	if err != nil {
		return nil, fmt.Errorf("sum by wallet: %w", err)
	}
	defer rows.Close()

	var out []core.WalletAmount
	for rows.Next() {
		var (
			w      string
			amount int64
		)
		if err := rows.Scan(&w, &amount); err != nil {
			return nil, fmt.Errorf("scan wallet sum: %w", err)
		}
		out = append(out, core.WalletAmount{Wallet: core.Wallet(w), Amount: core.Money{Cents: amount}})
	}
	return out, rows.Err()
}
