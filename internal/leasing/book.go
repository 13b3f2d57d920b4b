package leasing

import (
	"context"
	"sync"
	"time"
)

// LeaseStore is the durable backing for the lease book.
type LeaseStore interface {
	UpsertLease(ctx context.Context, rec LeaseRecord) error
	DeleteLease(ctx context.Context, claimID string) error
	ListLeases(ctx context.Context) ([]LeaseRecord, error)
}

// Book is the in-memory lease map, write-through to a LeaseStore. The store
// is the source of truth across restarts; the book serves concurrent reads
// from the reminder scheduler while request handlers mutate single records.
// The mutex is held for one record's read-modify-write and the matching store
// write, never across payment or display calls.
type Book struct {
	mu     sync.Mutex
	store  LeaseStore
	leases map[string]*LeaseRecord
	now    func() time.Time
}

func NewBook(store LeaseStore) *Book {
	return &Book{
		store:  store,
		leases: map[string]*LeaseRecord{},
		now:    time.Now,
	}
}

// Load replaces the in-memory state with the store's records.
func (b *Book) Load(ctx context.Context) error {
	recs, err := b.store.ListLeases(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.leases = make(map[string]*LeaseRecord, len(recs))
	for _, rec := range recs {
		cp := rec.clone()
		b.leases[rec.ClaimID] = &cp
	}
	return nil
}

func (b *Book) Get(claimID string) (LeaseRecord, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.leases[claimID]
	if !ok {
		return LeaseRecord{}, false
	}
	return rec.clone(), true
}

// Set creates or overwrites the lease for a claim, starting a fresh lease
// instance (leaseStart = now, fired reminders cleared).
func (b *Book) Set(ctx context.Context, claimID, holder string, expiry time.Time) (LeaseRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	rec := &LeaseRecord{
		ClaimID:        claimID,
		Holder:         holder,
		LeaseStart:     now,
		LeaseExpiry:    expiry,
		FiredReminders: map[string]bool{},
	}
	if err := b.store.UpsertLease(ctx, rec.clone()); err != nil {
		return LeaseRecord{}, err
	}
	b.leases[claimID] = rec
	return rec.clone(), nil
}

// Extend adds lease time for a claim, creating the record when absent.
// The new expiry is min(base+add, now+cap) where base is the latest of the
// stored expiry, any externally observed expiry (a display surface may show
// a later value after partial synchronization; the book must never silently
// regress it), and now. A lapsed lease renewed here becomes a new lease
// instance: leaseStart resets and fired reminders clear. A lapsed record no
// longer binds the claim to its last holder; a different holder renewing it
// takes the claim over as a fresh instance.
func (b *Book) Extend(ctx context.Context, claimID, holder string, observed time.Time, add, cap time.Duration) (LeaseRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()

	rec, ok := b.leases[claimID]
	if !ok {
		rec = &LeaseRecord{
			ClaimID:        claimID,
			Holder:         holder,
			LeaseStart:     now,
			FiredReminders: map[string]bool{},
		}
	} else if rec.UnderEviction {
		return LeaseRecord{}, ErrConflict
	} else if rec.Holder != holder {
		if rec.Active(now) {
			return LeaseRecord{}, ErrConflict
		}
		rec.Holder = holder
	}

	base := rec.LeaseExpiry
	if observed.After(base) {
		base = observed
	}
	if now.After(base) {
		base = now
	}
	newExpiry := base.Add(add)
	if ceiling := now.Add(cap); newExpiry.After(ceiling) {
		newExpiry = ceiling
	}

	if ok && !rec.Active(now) {
		rec.LeaseStart = now
		rec.FiredReminders = map[string]bool{}
		rec.PendingExpiryNotice = false
	}
	rec.LeaseExpiry = newExpiry

	if err := b.store.UpsertLease(ctx, rec.clone()); err != nil {
		return LeaseRecord{}, err
	}
	b.leases[claimID] = rec
	return rec.clone(), nil
}

func (b *Book) Clear(ctx context.Context, claimID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.leases[claimID]; !ok {
		return ErrNotFound
	}
	if err := b.store.DeleteLease(ctx, claimID); err != nil {
		return err
	}
	delete(b.leases, claimID)
	return nil
}

// MarkFired records a delivered reminder for the current lease instance.
func (b *Book) MarkFired(ctx context.Context, claimID, reminderID string) error {
	return b.mutate(ctx, claimID, func(rec *LeaseRecord) {
		rec.FiredReminders[reminderID] = true
	})
}

func (b *Book) SetPendingExpiryNotice(ctx context.Context, claimID string, pending bool) error {
	return b.mutate(ctx, claimID, func(rec *LeaseRecord) {
		rec.PendingExpiryNotice = pending
	})
}

func (b *Book) SetUnderEviction(ctx context.Context, claimID string, under bool) error {
	return b.mutate(ctx, claimID, func(rec *LeaseRecord) {
		rec.UnderEviction = under
	})
}

func (b *Book) mutate(ctx context.Context, claimID string, fn func(*LeaseRecord)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.leases[claimID]
	if !ok {
		return ErrNotFound
	}
	fn(rec)
	return b.store.UpsertLease(ctx, rec.clone())
}

// Snapshot returns copies of all lease records for a scheduler pass.
func (b *Book) Snapshot() []LeaseRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]LeaseRecord, 0, len(b.leases))
	for _, rec := range b.leases {
		out = append(out, rec.clone())
	}
	return out
}

// HeldBy returns copies of the leases a holder currently has.
func (b *Book) HeldBy(holder string) []LeaseRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []LeaseRecord{}
	for _, rec := range b.leases {
		if rec.Holder == holder {
			out = append(out, rec.clone())
		}
	}
	return out
}

// SetClock overrides the book's time source. Test use only.
func (b *Book) SetClock(now func() time.Time) { b.now = now }
