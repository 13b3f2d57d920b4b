package store

import (
	"errors"
	"testing"
	"time"

	"claimlease/internal/leasing"
)

func TestLeaseRoundTrip(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	start := time.Now().UTC().Truncate(time.Millisecond)
	rec := leasing.LeaseRecord{
		ClaimID:        "claim-1",
		Holder:         "renter-a",
		LeaseStart:     start,
		LeaseExpiry:    start.Add(72 * time.Hour),
		FiredReminders: map[string]bool{"pct25": true, "abs_24h": true},
	}
	if err := st.UpsertLease(ctx, rec); err != nil {
		t.Fatalf("upsert lease: %v", err)
	}

	rec.LeaseExpiry = start.Add(96 * time.Hour)
	rec.PendingExpiryNotice = true
	if err := st.UpsertLease(ctx, rec); err != nil {
		t.Fatalf("upsert lease again: %v", err)
	}

	got, err := st.ListLeases(ctx)
	if err != nil {
		t.Fatalf("list leases: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 lease, got %d", len(got))
	}
	l := got[0]
	if l.Holder != "renter-a" || !l.LeaseExpiry.Equal(rec.LeaseExpiry) {
		t.Fatalf("unexpected lease %+v", l)
	}
	if !l.PendingExpiryNotice {
		t.Fatalf("pending expiry notice not persisted")
	}
	if !l.FiredReminders["pct25"] || !l.FiredReminders["abs_24h"] {
		t.Fatalf("fired reminders not persisted: %v", l.FiredReminders)
	}

	if err := st.DeleteLease(ctx, "claim-1"); err != nil {
		t.Fatalf("delete lease: %v", err)
	}
	got, err = st.ListLeases(ctx)
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no leases, got %d", len(got))
	}
}

func TestEvictionNoticeRoundTrip(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	now := time.Now().UTC().Truncate(time.Millisecond)
	n := leasing.EvictionNotice{
		ClaimID:     "claim-2",
		Owner:       "owner-a",
		Renter:      "renter-b",
		InitiatedAt: now,
		EffectiveAt: now.Add(14 * 24 * time.Hour),
	}
	if err := st.UpsertEviction(ctx, n); err != nil {
		t.Fatalf("upsert eviction: %v", err)
	}
	got, err := st.ListEvictions(ctx)
	if err != nil {
		t.Fatalf("list evictions: %v", err)
	}
	if len(got) != 1 || got[0].Renter != "renter-b" || !got[0].EffectiveAt.Equal(n.EffectiveAt) {
		t.Fatalf("unexpected notices %+v", got)
	}
	if err := st.DeleteEviction(ctx, "claim-2"); err != nil {
		t.Fatalf("delete eviction: %v", err)
	}
}

func TestClaimsAndGrants(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	c := leasing.Claim{
		ID:         "claim-3",
		Owner:      "owner-a",
		RentPrice:  150,
		RentPeriod: 24 * time.Hour,
		RentMaxCap: 7 * 24 * time.Hour,
		SalePrice:  9000,
	}
	if err := st.UpsertClaim(ctx, c); err != nil {
		t.Fatalf("upsert claim: %v", err)
	}
	got, err := st.GetClaim(ctx, "claim-3")
	if err != nil {
		t.Fatalf("get claim: %v", err)
	}
	if got.RentPeriod != 24*time.Hour || got.RentMaxCap != 7*24*time.Hour {
		t.Fatalf("durations not preserved: %+v", got)
	}

	if _, err := st.GetClaim(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := st.AddClaimGrant(ctx, "claim-3", "renter-b"); err != nil {
		t.Fatalf("add grant: %v", err)
	}
	if err := st.AddClaimGrant(ctx, "claim-3", "renter-b"); err != nil {
		t.Fatalf("add grant twice: %v", err)
	}
	grants, err := st.ListClaimGrants(ctx, "claim-3")
	if err != nil {
		t.Fatalf("list grants: %v", err)
	}
	if len(grants) != 1 || grants[0] != "renter-b" {
		t.Fatalf("unexpected grants %v", grants)
	}

	if err := st.UpdateClaimOwner(ctx, "claim-3", "owner-z"); err != nil {
		t.Fatalf("update owner: %v", err)
	}
	got, _ = st.GetClaim(ctx, "claim-3")
	if got.Owner != "owner-z" {
		t.Fatalf("owner not updated: %+v", got)
	}
	if err := st.UpdateClaimOwner(ctx, "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := st.RemoveClaimGrants(ctx, "claim-3"); err != nil {
		t.Fatalf("remove grants: %v", err)
	}
	grants, _ = st.ListClaimGrants(ctx, "claim-3")
	if len(grants) != 0 {
		t.Fatalf("grants not cleared: %v", grants)
	}
}
