// Package display projects lease state onto the physical surface attached to
// a claim. The projection is write-only state, never a second source of
// truth; the last projected expiry is kept only so renewal can reconcile an
// externally-held value that ran ahead of the store.
package display

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type StateKind string

const (
	StateAvailable         StateKind = "available"
	StateLeased            StateKind = "leased"
	StateRenewableByHolder StateKind = "renewable_by_holder"
	StateEvictionPending   StateKind = "eviction_pending"
	StateEvictionEffective StateKind = "eviction_effective"
	StateSold              StateKind = "sold"
)

type State struct {
	Kind      StateKind
	Holder    string
	Expiry    time.Time
	Remaining time.Duration
}

// Projector receives lease state changes for a claim's display surface.
type Projector interface {
	LeaseStateChanged(claimID string, st State)
}

// LogProjector is the default surface: it logs every projection and remembers
// the latest one per claim.
type LogProjector struct {
	mu     sync.Mutex
	latest map[string]State
}

func NewLogProjector() *LogProjector {
	return &LogProjector{latest: map[string]State{}}
}

func (p *LogProjector) LeaseStateChanged(claimID string, st State) {
	p.mu.Lock()
	p.latest[claimID] = st
	p.mu.Unlock()
	log.Info().
		Str("claim_id", claimID).
		Str("state", string(st.Kind)).
		Str("holder", st.Holder).
		Time("expiry", st.Expiry).
		Dur("remaining", st.Remaining).
		Msg("lease state projected")
}

// ObservedExpiry reports the expiry last projected for a claim, if any.
func (p *LogProjector) ObservedExpiry(claimID string) (time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.latest[claimID]
	if !ok || st.Expiry.IsZero() {
		return time.Time{}, false
	}
	return st.Expiry, true
}

// Latest reports the last projected state for a claim, if any.
func (p *LogProjector) Latest(claimID string) (State, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.latest[claimID]
	return st, ok
}
