package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"claimlease/internal/leasing"
)

// Presence reports whether a holder can receive a notice right now.
type Presence interface {
	Online(identity string) bool
}

// Notifier delivers reminder notices to lease holders.
type Notifier interface {
	LeaseExpired(holder, claimID string)
	MilestoneReached(holder, claimID string, percent int, remaining time.Duration)
	ThresholdReached(holder, claimID string, remaining time.Duration)
	TimeRemaining(holder, claimID string, remaining time.Duration)
}

// Scheduler walks the lease book on a fixed tick and emits each reminder at
// most once per lease instance. Two fired sets exist on purpose: the
// per-claim set (persisted with the lease) covers expiry, percentage
// milestones and absolute-countdown thresholds; a per-holder, scheduler-
// lifetime set covers milestone catch-up on presence, so a holder who was
// offline when a milestone passed still hears about it once, without the
// rejoin re-spamming milestones already delivered live.
type Scheduler struct {
	book     *leasing.Book
	presence Presence
	notifier Notifier
	now      func() time.Time

	mu sync.Mutex
	// holder -> claimID+milestone delivered this scheduler lifetime.
	holderMilestones map[string]map[string]bool
	// holders greeted with a time-remaining notice since scheduler start.
	greeted map[string]bool
}

func New(book *leasing.Book, presence Presence, notifier Notifier) *Scheduler {
	return &Scheduler{
		book:             book,
		presence:         presence,
		notifier:         notifier,
		now:              time.Now,
		holderMilestones: map[string]map[string]bool{},
		greeted:          map[string]bool{},
	}
}

// Run ticks until the context is cancelled. Sub-minute thresholds near expiry
// need roughly one-second resolution.
func (s *Scheduler) Run(ctx context.Context, tick time.Duration) {
	if tick <= 0 {
		tick = time.Second
	}
	ticker := time.NewTicker(tick)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.tick(ctx, now)
			}
		}
	}()
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	for _, rec := range s.book.Snapshot() {
		if rec.UnderEviction {
			continue
		}
		s.tickLease(ctx, rec, now)
	}
}

func (s *Scheduler) tickLease(ctx context.Context, rec leasing.LeaseRecord, now time.Time) {
	online := s.presence.Online(rec.Holder)
	remaining := rec.LeaseExpiry.Sub(now)

	if remaining <= 0 {
		if rec.FiredReminders[ReminderExpired] {
			return
		}
		if online {
			s.notifier.LeaseExpired(rec.Holder, rec.ClaimID)
		} else if err := s.book.SetPendingExpiryNotice(ctx, rec.ClaimID, true); err != nil {
			log.Error().Err(err).Str("claim_id", rec.ClaimID).Msg("persist pending expiry notice")
			return
		}
		s.markFired(ctx, rec.ClaimID, ReminderExpired)
		return
	}

	s.tickMilestones(ctx, rec, now, online)
	if online {
		s.tickThresholds(ctx, rec, remaining)
	}
}

// tickMilestones marks crossed percentage milestones whether or not the
// holder is reachable; delivery while offline is handled by the per-holder
// catch-up on presence.
func (s *Scheduler) tickMilestones(ctx context.Context, rec leasing.LeaseRecord, now time.Time, online bool) {
	f := elapsedFraction(rec, now)
	for _, m := range Milestones {
		if rec.FiredReminders[m.ID] || f < m.Fraction {
			continue
		}
		if online && s.holderMark(rec, m.ID) {
			s.notifier.MilestoneReached(rec.Holder, rec.ClaimID, m.Percent, rec.Remaining(now))
		}
		s.markFired(ctx, rec.ClaimID, m.ID)
	}
}

// tickThresholds delivers absolute-countdown warnings. Unlike milestones,
// a threshold is skipped, not marked, while the holder is offline: it can
// still fire on a later tick if the lease is still under it, and there is no
// presence catch-up for thresholds already passed.
func (s *Scheduler) tickThresholds(ctx context.Context, rec leasing.LeaseRecord, remaining time.Duration) {
	for _, th := range Thresholds {
		if rec.FiredReminders[th.ID] || remaining > th.Remaining {
			continue
		}
		s.notifier.ThresholdReached(rec.Holder, rec.ClaimID, remaining)
		s.markFired(ctx, rec.ClaimID, th.ID)
	}
}

// HandlePresence runs the catch-up path when a holder (re)appears: a
// deferred expiry notice if one is pending, otherwise a one-time
// time-remaining greeting per scheduler lifetime, plus any percentage
// milestones this holder has not heard yet.
func (s *Scheduler) HandlePresence(ctx context.Context, holder string) {
	now := s.now()

	s.mu.Lock()
	first := !s.greeted[holder]
	s.greeted[holder] = true
	s.mu.Unlock()

	for _, rec := range s.book.HeldBy(holder) {
		if rec.PendingExpiryNotice {
			s.notifier.LeaseExpired(holder, rec.ClaimID)
			if err := s.book.SetPendingExpiryNotice(ctx, rec.ClaimID, false); err != nil {
				log.Error().Err(err).Str("claim_id", rec.ClaimID).Msg("clear pending expiry notice")
			}
			continue
		}
		if !rec.Active(now) {
			continue
		}
		if first {
			s.notifier.TimeRemaining(holder, rec.ClaimID, rec.Remaining(now))
		}
		f := elapsedFraction(rec, now)
		for _, m := range Milestones {
			if f < m.Fraction {
				continue
			}
			if s.holderMark(rec, m.ID) {
				s.notifier.MilestoneReached(holder, rec.ClaimID, m.Percent, rec.Remaining(now))
			}
		}
	}
}

// holderMark records a milestone delivery in the per-holder set, keyed by
// lease instance so a renewed lease fires milestones afresh. Returns false
// when the holder already heard this one.
func (s *Scheduler) holderMark(rec leasing.LeaseRecord, milestoneID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.holderMilestones[rec.Holder]
	if set == nil {
		set = map[string]bool{}
		s.holderMilestones[rec.Holder] = set
	}
	key := fmt.Sprintf("%s|%d|%s", rec.ClaimID, rec.LeaseStart.UnixNano(), milestoneID)
	if set[key] {
		return false
	}
	set[key] = true
	return true
}

func (s *Scheduler) markFired(ctx context.Context, claimID, reminderID string) {
	if err := s.book.MarkFired(ctx, claimID, reminderID); err != nil {
		log.Error().Err(err).Str("claim_id", claimID).Str("reminder", reminderID).Msg("persist fired reminder")
	}
}

func elapsedFraction(rec leasing.LeaseRecord, now time.Time) float64 {
	total := rec.LeaseExpiry.Sub(rec.LeaseStart)
	if total <= 0 {
		return 1
	}
	f := float64(now.Sub(rec.LeaseStart)) / float64(total)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// SetClock overrides the scheduler's time source. Test use only.
func (s *Scheduler) SetClock(now func() time.Time) { s.now = now }
