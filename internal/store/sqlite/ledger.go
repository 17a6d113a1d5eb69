package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dvloznov/finance-insights/internal/domain"
)

// UpsertAccounts inserts or replaces accounts.
func (s *Store) UpsertAccounts(ctx context.Context, accounts []domain.Account) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		return upsertAccounts(ctx, tx, accounts)
	})
}

func upsertAccounts(ctx context.Context, tx *sql.Tx, accounts []domain.Account) error {
	now := formatTime(time.Now())
	for _, a := range accounts {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO accounts(id, name, account_type, balance, credit_limit, currency, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		 name=excluded.name,
		 account_type=excluded.account_type,
		 balance=excluded.balance,
		 credit_limit=excluded.credit_limit,
		 currency=excluded.currency,
		 updated_at=excluded.updated_at;
		`, a.ID, a.Name, string(a.Type), a.Balance.String(), a.CreditLimit.String(), a.Currency, now)
		if err != nil {
			return fmt.Errorf("upsertAccounts: account %s: %w", a.ID, err)
		}
	}
	return nil
}

// ListAccounts returns every account ordered by id.
func (s *Store) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, account_type, balance, credit_limit, currency FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Account
	for rows.Next() {
		var a domain.Account
		var accountType string
		if err := rows.Scan(&a.ID, &a.Name, &accountType, &a.Balance, &a.CreditLimit, &a.Currency); err != nil {
			return nil, fmt.Errorf("ListAccounts: scan: %w", err)
		}
		a.Type = domain.AccountType(accountType)
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpsertBudgets inserts or replaces budgets.
func (s *Store) UpsertBudgets(ctx context.Context, budgets []domain.Budget) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		return upsertBudgets(ctx, tx, budgets)
	})
}

func upsertBudgets(ctx context.Context, tx *sql.Tx, budgets []domain.Budget) error {
	for _, b := range budgets {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO budgets(id, name, category_id, limit_amount, period_start, period_end, rollover, rollover_cap, previous_spent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		 name=excluded.name,
		 category_id=excluded.category_id,
		 limit_amount=excluded.limit_amount,
		 period_start=excluded.period_start,
		 period_end=excluded.period_end,
		 rollover=excluded.rollover,
		 rollover_cap=excluded.rollover_cap,
		 previous_spent=excluded.previous_spent;
		`, b.ID, b.Name, b.CategoryID, b.Limit.String(), formatTime(b.PeriodStart), formatTime(b.PeriodEnd),
			b.Rollover, b.RolloverCap.String(), b.PreviousSpent.String())
		if err != nil {
			return fmt.Errorf("upsertBudgets: budget %s: %w", b.ID, err)
		}
	}
	return nil
}

// ListBudgets returns budgets whose period contains asOf.
func (s *Store) ListBudgets(ctx context.Context, asOf time.Time) ([]domain.Budget, error) {
	at := formatTime(asOf)
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, name, category_id, limit_amount, period_start, period_end, rollover, rollover_cap, previous_spent
	FROM budgets
	WHERE period_start <= ? AND period_end > ?
	ORDER BY id`, at, at)
	if err != nil {
		return nil, fmt.Errorf("ListBudgets: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Budget
	for rows.Next() {
		var b domain.Budget
		var start, end string
		if err := rows.Scan(&b.ID, &b.Name, &b.CategoryID, &b.Limit, &start, &end, &b.Rollover, &b.RolloverCap, &b.PreviousSpent); err != nil {
			return nil, fmt.Errorf("ListBudgets: scan: %w", err)
		}
		if b.PeriodStart, err = parseTime(start); err != nil {
			return nil, fmt.Errorf("ListBudgets: period_start: %w", err)
		}
		if b.PeriodEnd, err = parseTime(end); err != nil {
			return nil, fmt.Errorf("ListBudgets: period_end: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpsertTransactions inserts or replaces transactions.
func (s *Store) UpsertTransactions(ctx context.Context, txns []domain.Transaction) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		return upsertTransactions(ctx, tx, txns)
	})
}

func upsertTransactions(ctx context.Context, tx *sql.Tx, txns []domain.Transaction) error {
	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO transactions(id, booked_at, title, notes, amount, currency, category_id, category_name, account_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
	 booked_at=excluded.booked_at,
	 title=excluded.title,
	 notes=excluded.notes,
	 amount=excluded.amount,
	 currency=excluded.currency,
	 category_id=excluded.category_id,
	 category_name=excluded.category_name,
	 account_id=excluded.account_id;
	`)
	if err != nil {
		return fmt.Errorf("upsertTransactions: prepare: %w", err)
	}
	defer stmt.Close()

	for _, t := range txns {
		if _, err := stmt.ExecContext(ctx, t.ID, formatTime(t.Date), t.Title, t.Notes, t.Amount.String(),
			t.Currency, t.CategoryID, t.CategoryName, t.AccountID); err != nil {
			return fmt.Errorf("upsertTransactions: transaction %s: %w", t.ID, err)
		}
	}
	return nil
}

// ListTransactions returns transactions with start <= date < end, oldest first.
func (s *Store) ListTransactions(ctx context.Context, start, end time.Time) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, booked_at, title, notes, amount, currency, category_id, category_name, account_id
	FROM transactions
	WHERE booked_at >= ? AND booked_at < ?
	ORDER BY booked_at, id`, formatTime(start), formatTime(end))
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		var booked string
		if err := rows.Scan(&t.ID, &booked, &t.Title, &t.Notes, &t.Amount, &t.Currency, &t.CategoryID, &t.CategoryName, &t.AccountID); err != nil {
			return nil, fmt.Errorf("ListTransactions: scan: %w", err)
		}
		if t.Date, err = parseTime(booked); err != nil {
			return nil, fmt.Errorf("ListTransactions: booked_at: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
