package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

type LedgerEntry struct {
	ID        string
	Identity  string
	Type      string
	Amount    int64
	RefType   string
	RefID     string
	CreatedAt time.Time
}

type PendingPayout struct {
	ID        string
	Payee     string
	Amount    int64
	RefType   string
	RefID     string
	CreatedAt time.Time
}

func (s *Store) EnsureAccount(ctx context.Context, identity string, initial int64) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO accounts (identity, balance_cr) VALUES ($1,$2)
		ON CONFLICT (identity) DO NOTHING
	`, identity, initial)
	return err
}

func (s *Store) GetAccountBalance(ctx context.Context, identity string) (int64, error) {
	var bal int64
	err := s.Pool.QueryRow(ctx, `SELECT balance_cr FROM accounts WHERE identity = $1`, identity).Scan(&bal)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return bal, err
}

func (s *Store) recordLedgerEntry(ctx context.Context, tx pgx.Tx, identity, entryType string, amount int64, refType, refID string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO ledger_entries (id, identity, type, amount_cr, ref_type, ref_id)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, NewID(), identity, entryType, amount, refType, refID)
	return err
}

// Debit charges an account inside a single transaction. The balance row is
// locked FOR UPDATE so concurrent confirmations cannot double-spend.
func (s *Store) Debit(ctx context.Context, identity string, amount int64, entryType, refType, refID string) (int64, error) {
	if amount < 0 {
		return 0, errors.New("amount must be positive")
	}
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var bal int64
	err = tx.QueryRow(ctx, `SELECT balance_cr FROM accounts WHERE identity = $1 FOR UPDATE`, identity).Scan(&bal)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	if bal < amount {
		return 0, ErrInsufficientFunds
	}
	newBal := bal - amount
	if _, err := tx.Exec(ctx, `UPDATE accounts SET balance_cr = $1, updated_at = now() WHERE identity = $2`, newBal, identity); err != nil {
		return 0, err
	}
	if err := s.recordLedgerEntry(ctx, tx, identity, entryType, -amount, refType, refID); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return newBal, nil
}

func (s *Store) Credit(ctx context.Context, identity string, amount int64, entryType, refType, refID string) (int64, error) {
	if amount < 0 {
		return 0, errors.New("amount must be positive")
	}
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var bal int64
	err = tx.QueryRow(ctx, `SELECT balance_cr FROM accounts WHERE identity = $1 FOR UPDATE`, identity).Scan(&bal)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	newBal := bal + amount
	if _, err := tx.Exec(ctx, `UPDATE accounts SET balance_cr = $1, updated_at = now() WHERE identity = $2`, newBal, identity); err != nil {
		return 0, err
	}
	if err := s.recordLedgerEntry(ctx, tx, identity, entryType, amount, refType, refID); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return newBal, nil
}

func (s *Store) ListLedgerEntries(ctx context.Context, identity string, limit int) ([]LedgerEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, identity, type, amount_cr, ref_type, ref_id, created_at
		FROM ledger_entries
		WHERE $1 = '' OR identity = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, identity, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LedgerEntry{}
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.Identity, &e.Type, &e.Amount, &e.RefType, &e.RefID, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) InsertPendingPayout(ctx context.Context, payee string, amount int64, refType, refID string) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO pending_payouts (id, payee, amount_cr, ref_type, ref_id)
		VALUES ($1,$2,$3,$4,$5)
	`, NewID(), payee, amount, refType, refID)
	return err
}

func (s *Store) ListUnsettledPayouts(ctx context.Context, payee string) ([]PendingPayout, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, payee, amount_cr, ref_type, ref_id, created_at
		FROM pending_payouts
		WHERE payee = $1 AND settled_at IS NULL
		ORDER BY created_at
	`, payee)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []PendingPayout{}
	for rows.Next() {
		var p PendingPayout
		if err := rows.Scan(&p.ID, &p.Payee, &p.Amount, &p.RefType, &p.RefID, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) MarkPayoutSettled(ctx context.Context, payoutID string) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE pending_payouts SET settled_at = now() WHERE id = $1 AND settled_at IS NULL
	`, payoutID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
