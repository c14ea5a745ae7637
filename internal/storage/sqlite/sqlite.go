// Package sqlite is the file-backed ledger store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ledgerbot/internal/core"
	"ledgerbot/internal/ledger"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

var _ ledger.Store = (*Store)(nil)

// Open creates the database file if needed, runs migrations and returns a
// ready store. Writes go through a single connection; SQLite allows one
// writer at a time anyway and this keeps transactions from hitting
// SQLITE_BUSY.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	if err := RunMigrations(dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const (
	ensureSQL     = `INSERT INTO balances (user_id) VALUES (?) ON CONFLICT(user_id) DO NOTHING`
	selectBalance = `SELECT user_id, bank, cash FROM balances WHERE user_id = ?`
	adjustBankSQL = `UPDATE balances SET bank = bank + ?1, updated_at = ?2 WHERE user_id = ?3 AND abs(bank + ?1) <= ?4 RETURNING user_id, bank, cash`
	adjustCashSQL = `UPDATE balances SET cash = cash + ?1, updated_at = ?2 WHERE user_id = ?3 AND abs(cash + ?1) <= ?4 RETURNING user_id, bank, cash`
	setSQL        = `UPDATE balances SET bank = COALESCE(?, bank), cash = COALESCE(?, cash), updated_at = ? WHERE user_id = ? RETURNING user_id, bank, cash`
	resetSQL      = `UPDATE balances SET bank = 0, cash = 0, updated_at = ? WHERE user_id = ? RETURNING user_id, bank, cash`
	insertExpense = `INSERT INTO expenses (user_id, amount_cents, wallet, category, raw_message, created_at) VALUES (?, ?, ?, ?, ?, ?) RETURNING id`
	clearSQL      = `DELETE FROM expenses WHERE user_id = ?`
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func scanBalance(row *sql.Row) (core.Balance, error) {
	var b core.Balance
	if err := row.Scan(&b.UserID, &b.Bank.Cents, &b.Cash.Cents); err != nil {
		return core.Balance{}, err
	}
	return b, nil
}

func nowMillis() int64 { return time.Now().UnixMilli() }

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) EnsureBalance(ctx context.Context, userID string) (core.Balance, error) {
	if userID == "" {
		return core.Balance{}, core.ErrEmptyUserID
	}
	var b core.Balance
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, ensureSQL, userID); err != nil {
			return fmt.Errorf("ensure balance: %w", err)
		}
		var err error
		b, err = scanBalance(tx.QueryRowContext(ctx, selectBalance, userID))
		if err != nil {
			return fmt.Errorf("read balance: %w", err)
		}
		return nil
	})
	return b, err
}

func (s *Store) GetBalance(ctx context.Context, userID string) (core.Balance, error) {
	b, err := scanBalance(s.db.QueryRowContext(ctx, selectBalance, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Balance{}, fmt.Errorf("user %s: %w", userID, ledger.ErrNotFound)
	}
	if err != nil {
		return core.Balance{}, fmt.Errorf("read balance: %w", err)
	}
	return b, nil
}

func adjust(ctx context.Context, q execer, userID string, wallet core.Wallet, delta core.Money) (core.Balance, error) {
	if !delta.InRange() {
		return core.Balance{}, core.ErrInvalidAmount
	}
	query := adjustCashSQL
	if wallet == core.WalletBank {
		query = adjustBankSQL
	}
	if _, err := q.ExecContext(ctx, ensureSQL, userID); err != nil {
		return core.Balance{}, fmt.Errorf("ensure balance: %w", err)
	}
	b, err := scanBalance(q.QueryRowContext(ctx, query, delta.Cents, nowMillis(), userID, core.MaxCents))
	if errors.Is(err, sql.ErrNoRows) {
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
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		b, err = adjust(ctx, tx, userID, wallet, delta)
		return err
	})
	return b, err
}

func nullCents(m *core.Money) sql.NullInt64 {
	if m == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: m.Cents, Valid: true}
}

func (s *Store) SetBalance(ctx context.Context, userID string, u core.BalanceUpdate) (core.Balance, error) {
	if err := u.Validate(); err != nil {
		return core.Balance{}, err
	}
	if userID == "" {
		return core.Balance{}, core.ErrEmptyUserID
	}
	var b core.Balance
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, ensureSQL, userID); err != nil {
			return fmt.Errorf("ensure balance: %w", err)
		}
		var err error
		b, err = scanBalance(tx.QueryRowContext(ctx, setSQL, nullCents(u.Bank), nullCents(u.Cash), nowMillis(), userID))
		if err != nil {
			return fmt.Errorf("set balance: %w", err)
		}
		return nil
	})
	return b, err
}

func reset(ctx context.Context, q execer, userID string) (core.Balance, error) {
	if _, err := q.ExecContext(ctx, ensureSQL, userID); err != nil {
		return core.Balance{}, fmt.Errorf("ensure balance: %w", err)
	}
	b, err := scanBalance(q.QueryRowContext(ctx, resetSQL, nowMillis(), userID))
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
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		b, err = reset(ctx, tx, userID)
		return err
	})
	return b, err
}

func record(ctx context.Context, q execer, e core.Expense) (core.Expense, error) {
	err := q.QueryRowContext(ctx, insertExpense,
		e.UserID, e.Amount.Cents, string(e.Wallet), e.Category, e.RawMessage, e.CreatedAt.UnixMilli(),
	).Scan(&e.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	return e, nil
}

func (s *Store) RecordExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	return record(ctx, s.db, e)
}

func (s *Store) ClearExpenses(ctx context.Context, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, clearSQL, userID)
	if err != nil {
		return 0, fmt.Errorf("clear expenses: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) ApplyExpense(ctx context.Context, e core.Expense) (core.Expense, core.Balance, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, core.Balance{}, err
	}
	var (
		saved core.Expense
		b     core.Balance
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if saved, err = record(ctx, tx, e); err != nil {
			return err
		}
		b, err = adjust(ctx, tx, e.UserID, e.Wallet, e.Amount.Neg())
		return err
	})
	if err != nil {
		return core.Expense{}, core.Balance{}, err
	}
	return saved, b, nil
}

func (s *Store) ResetLedger(ctx context.Context, userID string) (core.Balance, error) {
	if userID == "" {
		return core.Balance{}, core.ErrEmptyUserID
	}
	var b core.Balance
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if b, err = reset(ctx, tx, userID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, clearSQL, userID); err != nil {
			return fmt.Errorf("clear expenses: %w", err)
		}
		return nil
	})
	return b, err
}

// rangeFilter renders the WHERE clause shared by queries and aggregates.
func rangeFilter(userID string, r core.DateRange) (string, []any) {
	var sb strings.Builder
	sb.WriteString("WHERE user_id = ?")
	args := []any{userID}
	if r.From != nil {
		sb.WriteString(" AND created_at >= ?")
		args = append(args, r.From.UnixMilli())
	}
	if r.To != nil {
		sb.WriteString(" AND created_at <= ?")
		args = append(args, r.To.UnixMilli())
	}
	return sb.String(), args
}

func (s *Store) QueryExpenses(ctx context.Context, userID string, r core.DateRange, limit int) ([]core.Expense, error) {
	where, args := rangeFilter(userID, r)
	query := "SELECT id, user_id, amount_cents, wallet, category, raw_message, created_at FROM expenses " +
		where + " ORDER BY created_at DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e         core.Expense
			wallet    string
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount.Cents, &wallet, &e.Category, &e.RawMessage, &createdAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Wallet = core.Wallet(wallet)
		e.CreatedAt = time.UnixMilli(createdAt).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) AggregateTotal(ctx context.Context, userID string, r core.DateRange) (core.Money, error) {
	where, args := rangeFilter(userID, r)
	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(amount_cents), 0) FROM expenses "+where, args...).Scan(&total); err != nil {
		return core.Money{}, fmt.Errorf("sum expenses: %w", err)
	}
	return core.Money{Cents: total}, nil
}

func (s *Store) AggregateByCategory(ctx context.Context, userID string, r core.DateRange) ([]core.CategoryAmount, error) {
	where, args := rangeFilter(userID, r)
	rows, err := s.db.QueryContext(ctx,
		"SELECT category, SUM(amount_cents) AS total FROM expenses "+where+" GROUP BY category ORDER BY total DESC, category ASC",
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
	rows, err := s.db.QueryContext(ctx,
		"SELECT wallet, SUM(amount_cents) FROM expenses "+where+" GROUP BY wallet ORDER BY wallet",
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
