package httptransport

import (
	"encoding/json"
	"net/http"
	"time"

	"claimlease/internal/leasing"
	"claimlease/internal/presence"
	"claimlease/internal/reminder"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type LeaseHandlers struct {
	book    *leasing.Book
	sched   *reminder.Scheduler
	tracker *presence.Tracker
	ledger  Payments
}

func NewLeaseHandlers(book *leasing.Book, sched *reminder.Scheduler, tracker *presence.Tracker, led Payments) *LeaseHandlers {
	return &LeaseHandlers{book: book, sched: sched, tracker: tracker, ledger: led}
}

func (h *LeaseHandlers) Query() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claimID := chi.URLParam(r, "claim_id")
		rec, ok := h.book.Get(claimID)
		if !ok {
			WriteHTTPError(w, http.StatusNotFound, "not_found")
			return
		}
		now := time.Now()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"claim_id":              rec.ClaimID,
			"holder":                rec.Holder,
			"lease_start":           rec.LeaseStart.Format(time.RFC3339),
			"lease_expiry":          rec.LeaseExpiry.Format(time.RFC3339),
			"active":                rec.Active(now),
			"remaining_seconds":     int64(rec.Remaining(now) / time.Second),
			"pending_expiry_notice": rec.PendingExpiryNotice,
			"under_eviction":        rec.UnderEviction,
		})
	}
}

type presenceRequest struct {
	Identity string `json:"identity"`
	Online   bool   `json:"online"`
}

// Presence ingests join/leave signals. A join wakes the reminder catch-up
// path and settles any payouts queued while the identity was unreachable.
func (h *LeaseHandlers) Presence() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req presenceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if req.Identity == "" {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		if !req.Online {
			h.tracker.MarkOffline(req.Identity)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
			return
		}
		h.tracker.MarkOnline(req.Identity)
		h.sched.HandlePresence(r.Context(), req.Identity)
		settled, err := h.ledger.SettlePayouts(r.Context(), req.Identity)
		if err != nil {
			log.Error().Err(err).Str("identity", req.Identity).Msg("settle payouts on presence")
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "settled": settled})
	}
}
