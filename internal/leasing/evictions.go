package leasing

import (
	"context"
	"sync"
	"time"
)

// EvictionStore is the durable backing for eviction notices.
type EvictionStore interface {
	UpsertEviction(ctx context.Context, n EvictionNotice) error
	DeleteEviction(ctx context.Context, claimID string) error
	ListEvictions(ctx context.Context) ([]EvictionNotice, error)
}

// Evictions tracks at most one eviction notice per claim. A notice moves
// through NONE -> NOTICE_PENDING -> EFFECTIVE; effectiveness is a pure time
// predicate, never stored. Initiating a notice marks the lease record
// under-eviction, which blocks renewal regardless of notice timing.
type Evictions struct {
	mu           sync.Mutex
	store        EvictionStore
	notices      map[string]*EvictionNotice
	book         *Book
	noticePeriod time.Duration
	now          func() time.Time
}

func NewEvictions(store EvictionStore, book *Book, noticePeriod time.Duration) *Evictions {
	return &Evictions{
		store:        store,
		notices:      map[string]*EvictionNotice{},
		book:         book,
		noticePeriod: noticePeriod,
		now:          time.Now,
	}
}

func (e *Evictions) Load(ctx context.Context) error {
	notices, err := e.store.ListEvictions(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notices = make(map[string]*EvictionNotice, len(notices))
	for _, n := range notices {
		cp := n
		e.notices[n.ClaimID] = &cp
	}
	return nil
}

func (e *Evictions) Get(claimID string) (EvictionNotice, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, ok := e.notices[claimID]
	if !ok {
		return EvictionNotice{}, false
	}
	return *n, true
}

// Initiate starts the notice period for a leased claim. The caller must be
// the claim owner, the claim must have an active lease, and no notice may
// already exist. A lapsed lease needs no notice; it can be renewed over or
// cleared directly.
func (e *Evictions) Initiate(ctx context.Context, claimID, owner, caller string) (EvictionNotice, error) {
	if caller != owner {
		return EvictionNotice{}, ErrForbidden
	}
	lease, ok := e.book.Get(claimID)
	if !ok || !lease.Active(e.now()) {
		return EvictionNotice{}, ErrNotFound
	}

	e.mu.Lock()
	if _, exists := e.notices[claimID]; exists {
		e.mu.Unlock()
		return EvictionNotice{}, ErrConflict
	}
	now := e.now()
	n := &EvictionNotice{
		ClaimID:     claimID,
		Owner:       owner,
		Renter:      lease.Holder,
		InitiatedAt: now,
		EffectiveAt: now.Add(e.noticePeriod),
	}
	if err := e.store.UpsertEviction(ctx, *n); err != nil {
		e.mu.Unlock()
		return EvictionNotice{}, err
	}
	e.notices[claimID] = n
	e.mu.Unlock()

	// The notice and the under-eviction flag must land together; back the
	// notice out if flagging the lease fails so a retry starts clean.
	if err := e.book.SetUnderEviction(ctx, claimID, true); err != nil {
		e.mu.Lock()
		_ = e.store.DeleteEviction(ctx, claimID)
		delete(e.notices, claimID)
		e.mu.Unlock()
		return EvictionNotice{}, err
	}
	return *n, nil
}

// Cancel withdraws a notice and unblocks renewal. Owner only.
func (e *Evictions) Cancel(ctx context.Context, claimID, caller string) error {
	e.mu.Lock()
	n, ok := e.notices[claimID]
	if !ok {
		e.mu.Unlock()
		return ErrNotFound
	}
	if caller != n.Owner {
		e.mu.Unlock()
		return ErrForbidden
	}
	if err := e.store.DeleteEviction(ctx, claimID); err != nil {
		e.mu.Unlock()
		return err
	}
	delete(e.notices, claimID)
	e.mu.Unlock()

	if err := e.book.SetUnderEviction(ctx, claimID, false); err != nil && err != ErrNotFound {
		return err
	}
	return nil
}

// Terminate ends the lease once the notice is effective, removing both the
// lease record and the notice and reporting the displaced holder. A non-admin
// call before effectiveness fails with ErrConflict; asAdmin is a privileged
// override that terminates regardless of notice state, with or without a
// notice on file.
func (e *Evictions) Terminate(ctx context.Context, claimID, caller string, asAdmin bool) (holder string, err error) {
	e.mu.Lock()
	n, ok := e.notices[claimID]
	if !asAdmin {
		if !ok {
			e.mu.Unlock()
			return "", ErrNotFound
		}
		if caller != n.Owner {
			e.mu.Unlock()
			return "", ErrForbidden
		}
		if !n.Effective(e.now()) {
			e.mu.Unlock()
			return "", ErrConflict
		}
	}
	if ok {
		if err := e.store.DeleteEviction(ctx, claimID); err != nil {
			e.mu.Unlock()
			return "", err
		}
		delete(e.notices, claimID)
	}
	e.mu.Unlock()

	lease, found := e.book.Get(claimID)
	if !found {
		if asAdmin {
			return "", ErrNotFound
		}
		return "", nil
	}
	if err := e.book.Clear(ctx, claimID); err != nil {
		return "", err
	}
	return lease.Holder, nil
}

// Discard removes any notice for a claim without touching the lease record.
// Used when a sale or owner reclaim ends the lease through another path.
func (e *Evictions) Discard(ctx context.Context, claimID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.notices[claimID]; !ok {
		return nil
	}
	if err := e.store.DeleteEviction(ctx, claimID); err != nil {
		return err
	}
	delete(e.notices, claimID)
	return nil
}

// SetClock overrides the ledger's time source. Test use only.
func (e *Evictions) SetClock(now func() time.Time) { e.now = now }
