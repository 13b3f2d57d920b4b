package leasing

import (
	"context"
	"testing"
	"time"
)

const noticePeriod = 14 * 24 * time.Hour

func setupEvictions(t *testing.T) (*Book, *Evictions) {
	t.Helper()
	ms := newMemStore()
	b := NewBook(ms)
	b.SetClock(fixedClock(epoch))
	e := NewEvictions(ms, b, noticePeriod)
	e.SetClock(fixedClock(epoch))
	if _, err := b.Set(context.Background(), "42", "renter", epoch.Add(30*24*time.Hour)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	return b, e
}

func TestInitiateRequiresOwner(t *testing.T) {
	_, e := setupEvictions(t)
	if _, err := e.Initiate(context.Background(), "42", "owner", "mallory"); err != ErrForbidden {
		t.Fatalf("Initiate by non-owner = %v, want ErrForbidden", err)
	}
}

func TestInitiateRequiresActiveLease(t *testing.T) {
	ms := newMemStore()
	b := NewBook(ms)
	e := NewEvictions(ms, b, noticePeriod)
	if _, err := e.Initiate(context.Background(), "99", "owner", "owner"); err != ErrNotFound {
		t.Fatalf("Initiate without lease = %v, want ErrNotFound", err)
	}
}

func TestInitiateOnLapsedLeaseRejected(t *testing.T) {
	b, e := setupEvictions(t)
	// One hour past expiry: the record still exists but the lease is over.
	later := epoch.Add(30*24*time.Hour + time.Hour)
	b.SetClock(fixedClock(later))
	e.SetClock(fixedClock(later))
	if _, err := e.Initiate(context.Background(), "42", "owner", "owner"); err != ErrNotFound {
		t.Fatalf("Initiate on lapsed lease = %v, want ErrNotFound", err)
	}
	rec, ok := b.Get("42")
	if !ok || rec.UnderEviction {
		t.Fatalf("lapsed lease must stay unflagged, rec=%+v ok=%v", rec, ok)
	}
}

func TestInitiateRollsBackNoticeWhenFlaggingFails(t *testing.T) {
	ms := newMemStore()
	b := NewBook(ms)
	b.SetClock(fixedClock(epoch))
	e := NewEvictions(ms, b, noticePeriod)
	e.SetClock(fixedClock(epoch))
	if _, err := b.Set(context.Background(), "42", "renter", epoch.Add(30*24*time.Hour)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	ms.failNext = context.DeadlineExceeded
	if _, err := e.Initiate(context.Background(), "42", "owner", "owner"); err == nil {
		t.Fatal("Initiate with failing lease write must error")
	}
	if _, ok := e.Get("42"); ok {
		t.Fatal("failed Initiate must not leave a notice on file")
	}
	rec, _ := b.Get("42")
	if rec.UnderEviction {
		t.Fatal("failed Initiate must not leave the lease flagged")
	}

	// Retry starts clean.
	n, err := e.Initiate(context.Background(), "42", "owner", "owner")
	if err != nil {
		t.Fatalf("retry Initiate: %v", err)
	}
	if n.Renter != "renter" {
		t.Fatalf("Renter = %q, want renter", n.Renter)
	}
	rec, _ = b.Get("42")
	if !rec.UnderEviction {
		t.Fatal("retry must flag the lease under eviction")
	}
}

func TestInitiateSetsUnderEvictionAndTimes(t *testing.T) {
	b, e := setupEvictions(t)
	n, err := e.Initiate(context.Background(), "42", "owner", "owner")
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if n.Renter != "renter" {
		t.Fatalf("Renter = %q, want renter", n.Renter)
	}
	if !n.EffectiveAt.Equal(epoch.Add(noticePeriod)) {
		t.Fatalf("EffectiveAt = %v, want %v", n.EffectiveAt, epoch.Add(noticePeriod))
	}
	rec, _ := b.Get("42")
	if !rec.UnderEviction {
		t.Fatal("lease must be marked under eviction")
	}
}

func TestInitiateTwiceConflicts(t *testing.T) {
	_, e := setupEvictions(t)
	if _, err := e.Initiate(context.Background(), "42", "owner", "owner"); err != nil {
		t.Fatalf("first Initiate: %v", err)
	}
	if _, err := e.Initiate(context.Background(), "42", "owner", "owner"); err != ErrConflict {
		t.Fatalf("second Initiate = %v, want ErrConflict", err)
	}
}

func TestEffectivenessIsTimeBased(t *testing.T) {
	_, e := setupEvictions(t)
	n, err := e.Initiate(context.Background(), "42", "owner", "owner")
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if n.Effective(epoch.Add(noticePeriod - time.Second)) {
		t.Fatal("notice effective one second early")
	}
	if !n.Effective(epoch.Add(noticePeriod)) {
		t.Fatal("notice not effective at the boundary")
	}
	if got := n.Remaining(epoch.Add(noticePeriod / 2)); got != noticePeriod/2 {
		t.Fatalf("Remaining = %v, want %v", got, noticePeriod/2)
	}
	if got := n.Remaining(epoch.Add(noticePeriod + time.Hour)); got != 0 {
		t.Fatalf("Remaining past effectiveness = %v, want 0", got)
	}
}

func TestCancelClearsUnderEviction(t *testing.T) {
	b, e := setupEvictions(t)
	if _, err := e.Initiate(context.Background(), "42", "owner", "owner"); err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if err := e.Cancel(context.Background(), "42", "mallory"); err != ErrForbidden {
		t.Fatalf("Cancel by non-owner = %v, want ErrForbidden", err)
	}
	if err := e.Cancel(context.Background(), "42", "owner"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, ok := e.Get("42"); ok {
		t.Fatal("notice must be removed on cancel")
	}
	rec, _ := b.Get("42")
	if rec.UnderEviction {
		t.Fatal("under-eviction flag must clear on cancel")
	}
}

func TestTerminateBeforeEffectiveConflicts(t *testing.T) {
	b, e := setupEvictions(t)
	if _, err := e.Initiate(context.Background(), "42", "owner", "owner"); err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	e.SetClock(fixedClock(epoch.Add(noticePeriod - time.Minute)))
	if _, err := e.Terminate(context.Background(), "42", "owner", false); err != ErrConflict {
		t.Fatalf("early Terminate = %v, want ErrConflict", err)
	}
	if _, ok := b.Get("42"); !ok {
		t.Fatal("lease must survive a rejected termination")
	}
}

func TestTerminateAfterEffectiveRemovesLease(t *testing.T) {
	b, e := setupEvictions(t)
	if _, err := e.Initiate(context.Background(), "42", "owner", "owner"); err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	e.SetClock(fixedClock(epoch.Add(noticePeriod)))
	holder, err := e.Terminate(context.Background(), "42", "owner", false)
	if err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if holder != "renter" {
		t.Fatalf("displaced holder = %q, want renter", holder)
	}
	if _, ok := b.Get("42"); ok {
		t.Fatal("lease record must be removed")
	}
	if _, ok := e.Get("42"); ok {
		t.Fatal("notice must be removed")
	}
}

func TestAdminTerminateBypassesNotice(t *testing.T) {
	b, e := setupEvictions(t)
	// No notice on file at all.
	holder, err := e.Terminate(context.Background(), "42", "admin", true)
	if err != nil {
		t.Fatalf("admin Terminate: %v", err)
	}
	if holder != "renter" {
		t.Fatalf("displaced holder = %q, want renter", holder)
	}
	if _, ok := b.Get("42"); ok {
		t.Fatal("lease record must be removed by admin override")
	}
}

func TestEvictionsLoadRestoresNotices(t *testing.T) {
	ms := newMemStore()
	b := NewBook(ms)
	b.SetClock(fixedClock(epoch))
	e := NewEvictions(ms, b, noticePeriod)
	e.SetClock(fixedClock(epoch))
	if _, err := b.Set(context.Background(), "42", "renter", epoch.Add(30*24*time.Hour)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := e.Initiate(context.Background(), "42", "owner", "owner"); err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	fresh := NewEvictions(ms, b, noticePeriod)
	if err := fresh.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	n, ok := fresh.Get("42")
	if !ok {
		t.Fatal("notice missing after Load")
	}
	if !n.EffectiveAt.Equal(epoch.Add(noticePeriod)) {
		t.Fatalf("EffectiveAt = %v, want %v", n.EffectiveAt, epoch.Add(noticePeriod))
	}
}
