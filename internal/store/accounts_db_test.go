package store

import (
	"errors"
	"testing"
)

func TestDebitCreditAndLedger(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	if err := st.EnsureAccount(ctx, "renter-a", 500); err != nil {
		t.Fatalf("ensure account: %v", err)
	}
	if err := st.EnsureAccount(ctx, "renter-a", 9999); err != nil {
		t.Fatalf("ensure existing account: %v", err)
	}
	bal, err := st.GetAccountBalance(ctx, "renter-a")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if bal != 500 {
		t.Fatalf("ensure must not reset balance, got %d", bal)
	}

	newBal, err := st.Debit(ctx, "renter-a", 150, "rent_charge", "claim", "claim-1")
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if newBal != 350 {
		t.Fatalf("expected 350, got %d", newBal)
	}

	if _, err := st.Debit(ctx, "renter-a", 1000, "rent_charge", "claim", "claim-1"); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	bal, _ = st.GetAccountBalance(ctx, "renter-a")
	if bal != 350 {
		t.Fatalf("failed debit must not change balance, got %d", bal)
	}

	if _, err := st.Credit(ctx, "renter-a", 50, "payout", "claim", "claim-1"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	bal, _ = st.GetAccountBalance(ctx, "renter-a")
	if bal != 400 {
		t.Fatalf("expected 400, got %d", bal)
	}

	entries, err := st.ListLedgerEntries(ctx, "renter-a", 10)
	if err != nil {
		t.Fatalf("list ledger: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(entries))
	}

	if _, err := st.Debit(ctx, "ghost", 1, "rent_charge", "", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing account, got %v", err)
	}
}

func TestPendingPayouts(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	if err := st.InsertPendingPayout(ctx, "owner-a", 150, "claim", "claim-1"); err != nil {
		t.Fatalf("insert payout: %v", err)
	}
	if err := st.InsertPendingPayout(ctx, "owner-a", 75, "claim", "claim-2"); err != nil {
		t.Fatalf("insert payout: %v", err)
	}
	if err := st.InsertPendingPayout(ctx, "owner-b", 10, "claim", "claim-3"); err != nil {
		t.Fatalf("insert payout: %v", err)
	}

	payouts, err := st.ListUnsettledPayouts(ctx, "owner-a")
	if err != nil {
		t.Fatalf("list payouts: %v", err)
	}
	if len(payouts) != 2 {
		t.Fatalf("expected 2 payouts, got %d", len(payouts))
	}

	if err := st.MarkPayoutSettled(ctx, payouts[0].ID); err != nil {
		t.Fatalf("settle payout: %v", err)
	}
	if err := st.MarkPayoutSettled(ctx, payouts[0].ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("settling twice must fail, got %v", err)
	}

	payouts, _ = st.ListUnsettledPayouts(ctx, "owner-a")
	if len(payouts) != 1 {
		t.Fatalf("expected 1 unsettled payout, got %d", len(payouts))
	}
}
