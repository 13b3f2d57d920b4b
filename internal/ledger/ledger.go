// Package ledger is the payment provider for lease charges and owner
// proceeds. All movements go through the accounts table so every charge and
// payout leaves a ledger entry.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"claimlease/internal/leasing"
	"claimlease/internal/store"
)

type Ledger struct {
	Store    *store.Store
	Currency string
}

func New(s *store.Store, currency string) *Ledger {
	return &Ledger{Store: s, Currency: currency}
}

// FormatAmount renders an amount for user-facing messages.
func (l *Ledger) FormatAmount(amount int64) string {
	return fmt.Sprintf("%d %s", amount, l.Currency)
}

func (l *Ledger) Balance(ctx context.Context, identity string) (int64, error) {
	bal, err := l.Store.GetAccountBalance(ctx, identity)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	return bal, err
}

func (l *Ledger) HasFunds(ctx context.Context, identity string, amount int64) (bool, error) {
	bal, err := l.Balance(ctx, identity)
	if err != nil {
		return false, err
	}
	return bal >= amount, nil
}

// Withdraw charges identity. Insufficient balance or a missing account maps
// to leasing.ErrPaymentFailed so callers can abort without state changes.
func (l *Ledger) Withdraw(ctx context.Context, identity string, amount int64, entryType, refType, refID string) error {
	_, err := l.Store.Debit(ctx, identity, amount, entryType, refType, refID)
	if errors.Is(err, store.ErrInsufficientFunds) || errors.Is(err, store.ErrNotFound) {
		return leasing.ErrPaymentFailed
	}
	return err
}

func (l *Ledger) Deposit(ctx context.Context, identity string, amount int64, entryType, refType, refID string) error {
	if err := l.Store.EnsureAccount(ctx, identity, 0); err != nil {
		return err
	}
	_, err := l.Store.Credit(ctx, identity, amount, entryType, refType, refID)
	return err
}

// QueuePayout records proceeds for a payee who cannot receive them right now.
// The payout settles on the payee's next presence event.
func (l *Ledger) QueuePayout(ctx context.Context, payee string, amount int64, refType, refID string) error {
	return l.Store.InsertPendingPayout(ctx, payee, amount, refType, refID)
}

// SettlePayouts deposits all unsettled payouts for payee and returns the
// total settled amount.
func (l *Ledger) SettlePayouts(ctx context.Context, payee string) (int64, error) {
	payouts, err := l.Store.ListUnsettledPayouts(ctx, payee)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, p := range payouts {
		if err := l.Deposit(ctx, payee, p.Amount, "payout_settled", p.RefType, p.RefID); err != nil {
			return total, err
		}
		if err := l.Store.MarkPayoutSettled(ctx, p.ID); err != nil {
			return total, err
		}
		total += p.Amount
		log.Info().
			Str("payee", payee).
			Int64("amount", p.Amount).
			Str("ref_id", p.RefID).
			Msg("pending payout settled")
	}
	return total, nil
}
