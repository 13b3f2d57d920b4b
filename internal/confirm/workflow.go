// Package confirm implements the token-gated confirmation step between a
// renter asking for a paid action and the money actually moving. A proposal
// captures the offer terms at propose time; the resolve step charges first on
// the caller's context, then commits lease and ownership state on a per-claim
// serial queue.
package confirm

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"claimlease/internal/display"
	"claimlease/internal/leasing"
	"claimlease/internal/store"
)

type ActionKind string

const (
	ActionRent ActionKind = "RENT"
	ActionBuy  ActionKind = "BUY"
)

// PendingAction is a proposed paid action awaiting confirmation. Amount is
// fixed at propose time; a later offer change does not affect an outstanding
// token.
type PendingAction struct {
	Token     string
	Requester string
	Kind      ActionKind
	ClaimID   string
	Amount    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ClaimDirectory is the slice of the registry the workflow needs.
type ClaimDirectory interface {
	FindClaim(ctx context.Context, claimID string) (leasing.Claim, error)
	GrantAccess(ctx context.Context, claimID, identity string) error
	TransferOwnership(ctx context.Context, claimID, newOwner string) error
}

// Payments moves money. Withdraw returns leasing.ErrPaymentFailed when the
// requester cannot cover the amount.
type Payments interface {
	Withdraw(ctx context.Context, identity string, amount int64, entryType, refType, refID string) error
	Deposit(ctx context.Context, identity string, amount int64, entryType, refType, refID string) error
	QueuePayout(ctx context.Context, payee string, amount int64, refType, refID string) error
}

type Presence interface {
	Online(identity string) bool
}

// Display is the projection surface plus the read-back of the last projected
// expiry, which renewal folds into its base so an externally displayed value
// never regresses.
type Display interface {
	LeaseStateChanged(claimID string, st display.State)
	ObservedExpiry(claimID string) (time.Time, bool)
}

// Outcome reports what a resolved confirmation did.
type Outcome struct {
	Kind      ActionKind
	ClaimID   string
	Amount    int64
	Declined  bool
	NewExpiry time.Time
}

type Workflow struct {
	claims     ClaimDirectory
	payments   Payments
	presence   Presence
	disp       Display
	book       *leasing.Book
	evictions  *leasing.Evictions
	dispatcher Dispatcher
	ttl        time.Duration
	now        func() time.Time

	mu     sync.Mutex
	tokens map[string]*PendingAction
}

func NewWorkflow(claims ClaimDirectory, payments Payments, presence Presence, disp Display, book *leasing.Book, evictions *leasing.Evictions, ttl time.Duration) *Workflow {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Workflow{
		claims:     claims,
		payments:   payments,
		presence:   presence,
		disp:       disp,
		book:       book,
		evictions:  evictions,
		dispatcher: NewDispatcher(),
		ttl:        ttl,
		now:        time.Now,
		tokens:     map[string]*PendingAction{},
	}
}

// Propose validates the requested action against the claim's standing offer
// and issues a single-use token. The requester's stale tokens are dropped
// first; live tokens for other proposals stay valid until the TTL passes.
func (w *Workflow) Propose(ctx context.Context, requester string, kind ActionKind, claimID string) (PendingAction, error) {
	claim, err := w.claims.FindClaim(ctx, claimID)
	if err != nil {
		return PendingAction{}, err
	}

	var amount int64
	switch kind {
	case ActionRent:
		if !claim.ForRent() {
			return PendingAction{}, leasing.ErrConflict
		}
		amount = claim.RentPrice
	case ActionBuy:
		if !claim.ForSale() {
			return PendingAction{}, leasing.ErrConflict
		}
		amount = claim.SalePrice
	default:
		return PendingAction{}, leasing.ErrNotFound
	}

	now := w.now()
	pa := &PendingAction{
		Token:     store.NewID(),
		Requester: requester,
		Kind:      kind,
		ClaimID:   claimID,
		Amount:    amount,
		CreatedAt: now,
		ExpiresAt: now.Add(w.ttl),
	}

	w.mu.Lock()
	for tok, old := range w.tokens {
		if old.Requester == requester && now.After(old.ExpiresAt) {
			delete(w.tokens, tok)
		}
	}
	w.tokens[pa.Token] = pa
	w.mu.Unlock()

	return *pa, nil
}

// Resolve consumes a token. A wrong-identity call is rejected without
// consuming it; every other path removes the token first. Accepting runs two
// phases: the charge happens on the caller's context and aborts cleanly, the
// commit runs on the claim's serial queue and is not rolled back if a late
// step fails (the charge already happened; the discrepancy is logged for
// reconciliation and the requester still sees success).
func (w *Workflow) Resolve(ctx context.Context, requester, token string, accept bool) (Outcome, error) {
	w.mu.Lock()
	pa, ok := w.tokens[token]
	if !ok {
		w.mu.Unlock()
		return Outcome{}, leasing.ErrNotFound
	}
	if pa.Requester != requester {
		w.mu.Unlock()
		return Outcome{}, leasing.ErrForbidden
	}
	delete(w.tokens, token)
	w.mu.Unlock()

	if w.now().After(pa.ExpiresAt) {
		return Outcome{}, leasing.ErrTokenExpired
	}
	if !accept {
		return Outcome{Kind: pa.Kind, ClaimID: pa.ClaimID, Declined: true}, nil
	}

	claim, err := w.claims.FindClaim(ctx, pa.ClaimID)
	if err != nil {
		return Outcome{}, err
	}

	switch pa.Kind {
	case ActionRent:
		return w.acceptRent(ctx, pa, claim)
	case ActionBuy:
		return w.acceptBuy(ctx, pa, claim)
	}
	return Outcome{}, leasing.ErrNotFound
}

func (w *Workflow) acceptRent(ctx context.Context, pa *PendingAction, claim leasing.Claim) (Outcome, error) {
	// Pre-flight before money moves: renewal is blocked for a claim under
	// eviction or actively leased to someone else. A lapsed record does not
	// block a new renter.
	if rec, ok := w.book.Get(pa.ClaimID); ok {
		if rec.UnderEviction || (rec.Holder != pa.Requester && rec.Active(w.now())) {
			return Outcome{}, leasing.ErrConflict
		}
	}

	if err := w.payments.Withdraw(ctx, pa.Requester, pa.Amount, "rent_charge", "claim", pa.ClaimID); err != nil {
		return Outcome{}, err
	}

	out := Outcome{Kind: ActionRent, ClaimID: pa.ClaimID, Amount: pa.Amount}
	w.dispatcher.Do(pa.ClaimID, func() {
		var observed time.Time
		if exp, ok := w.disp.ObservedExpiry(pa.ClaimID); ok {
			observed = exp
		}
		rec, err := w.book.Extend(ctx, pa.ClaimID, pa.Requester, observed, claim.RentPeriod, claim.RentMaxCap)
		if err != nil {
			w.logPartialFailure(pa, "extend lease", err)
			return
		}
		out.NewExpiry = rec.LeaseExpiry

		if err := w.claims.GrantAccess(ctx, pa.ClaimID, pa.Requester); err != nil {
			w.logPartialFailure(pa, "grant access", err)
		}
		w.payOwner(ctx, pa, claim.Owner, "rent_proceeds")
		w.disp.LeaseStateChanged(pa.ClaimID, display.State{
			Kind:      display.StateLeased,
			Holder:    pa.Requester,
			Expiry:    rec.LeaseExpiry,
			Remaining: rec.Remaining(w.now()),
		})
	})
	return out, nil
}

func (w *Workflow) acceptBuy(ctx context.Context, pa *PendingAction, claim leasing.Claim) (Outcome, error) {
	// A sale goes through only when the claim is unleased, lapsed, or leased
	// to the buyer; an active third-party lease blocks it.
	if rec, ok := w.book.Get(pa.ClaimID); ok && rec.Holder != pa.Requester && rec.Active(w.now()) {
		return Outcome{}, leasing.ErrConflict
	}

	if err := w.payments.Withdraw(ctx, pa.Requester, pa.Amount, "sale_charge", "claim", pa.ClaimID); err != nil {
		return Outcome{}, err
	}

	out := Outcome{Kind: ActionBuy, ClaimID: pa.ClaimID, Amount: pa.Amount}
	w.dispatcher.Do(pa.ClaimID, func() {
		if err := w.claims.TransferOwnership(ctx, pa.ClaimID, pa.Requester); err != nil {
			w.logPartialFailure(pa, "transfer ownership", err)
			return
		}
		if err := w.book.Clear(ctx, pa.ClaimID); err != nil && err != leasing.ErrNotFound {
			w.logPartialFailure(pa, "clear lease", err)
		}
		if err := w.evictions.Discard(ctx, pa.ClaimID); err != nil {
			w.logPartialFailure(pa, "discard eviction notice", err)
		}
		w.payOwner(ctx, pa, claim.Owner, "sale_proceeds")
		w.disp.LeaseStateChanged(pa.ClaimID, display.State{
			Kind:   display.StateSold,
			Holder: pa.Requester,
		})
	})
	return out, nil
}

// payOwner delivers proceeds immediately when the payee is reachable and
// queues a pending payout otherwise.
func (w *Workflow) payOwner(ctx context.Context, pa *PendingAction, owner, entryType string) {
	var err error
	if w.presence.Online(owner) {
		err = w.payments.Deposit(ctx, owner, pa.Amount, entryType, "claim", pa.ClaimID)
	} else {
		err = w.payments.QueuePayout(ctx, owner, pa.Amount, "claim", pa.ClaimID)
	}
	if err != nil {
		w.logPartialFailure(pa, "owner proceeds", err)
	}
}

func (w *Workflow) logPartialFailure(pa *PendingAction, step string, err error) {
	log.Error().Err(err).
		Str("token", pa.Token).
		Str("requester", pa.Requester).
		Str("claim_id", pa.ClaimID).
		Str("kind", string(pa.Kind)).
		Int64("amount", pa.Amount).
		Str("step", step).
		Msg("confirmation commit failed after charge, needs reconcile")
}

// StartJanitor sweeps expired tokens in the background until ctx is done.
func (w *Workflow) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				w.sweep(now)
			}
		}
	}()
}

func (w *Workflow) sweep(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for tok, pa := range w.tokens {
		if now.After(pa.ExpiresAt) {
			delete(w.tokens, tok)
		}
	}
}

// Pending reports the outstanding token count. Test use only.
func (w *Workflow) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.tokens)
}

// SetClock overrides the workflow's time source. Test use only.
func (w *Workflow) SetClock(now func() time.Time) { w.now = now }
