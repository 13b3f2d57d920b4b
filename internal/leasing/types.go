package leasing

import (
	"sort"
	"time"
)

// Claim is the externally-owned resource leases are granted over. Geometry
// and entry rights live with the resource authority; this carries identity,
// ownership and the standing offer.
type Claim struct {
	ID    string
	Owner string

	// Rental offer: price buys RentPeriod more lease time, capped so the
	// expiry never exceeds now+RentMaxCap. RentPeriod == 0 means not for rent.
	RentPrice  int64
	RentPeriod time.Duration
	RentMaxCap time.Duration

	// SalePrice == 0 means not for sale.
	SalePrice int64
}

func (c Claim) ForRent() bool { return c.RentPeriod > 0 && c.RentPrice > 0 }
func (c Claim) ForSale() bool { return c.SalePrice > 0 }

// LeaseRecord is the durable state of one active lease, keyed by claim ID.
type LeaseRecord struct {
	ClaimID     string
	Holder      string
	LeaseStart  time.Time
	LeaseExpiry time.Time

	// FiredReminders holds reminder identifiers already delivered during the
	// current lease instance. Reset whenever LeaseStart changes.
	FiredReminders map[string]bool

	// PendingExpiryNotice is set when the lease expired while the holder was
	// unreachable; the expiry notice is delivered on next presence.
	PendingExpiryNotice bool

	// UnderEviction blocks renewal while an eviction notice exists.
	UnderEviction bool
}

func (r LeaseRecord) Active(now time.Time) bool {
	return now.Before(r.LeaseExpiry)
}

func (r LeaseRecord) Remaining(now time.Time) time.Duration {
	if d := r.LeaseExpiry.Sub(now); d > 0 {
		return d
	}
	return 0
}

// FiredList returns the fired reminder identifiers in stable order, for
// persistence.
func (r LeaseRecord) FiredList() []string {
	out := make([]string, 0, len(r.FiredReminders))
	for id := range r.FiredReminders {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func FiredSetFromList(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func (r LeaseRecord) clone() LeaseRecord {
	cp := r
	cp.FiredReminders = make(map[string]bool, len(r.FiredReminders))
	for id := range r.FiredReminders {
		cp.FiredReminders[id] = true
	}
	return cp
}

// EvictionNotice is an owner-initiated, time-delayed authorization to
// terminate an active lease. It gates when termination is permitted; removing
// the lease record is what actually ends the lease.
type EvictionNotice struct {
	ClaimID     string
	Owner       string
	Renter      string
	InitiatedAt time.Time
	EffectiveAt time.Time
}

func (n EvictionNotice) Effective(now time.Time) bool {
	return !now.Before(n.EffectiveAt)
}

func (n EvictionNotice) Remaining(now time.Time) time.Duration {
	if d := n.EffectiveAt.Sub(now); d > 0 {
		return d
	}
	return 0
}
