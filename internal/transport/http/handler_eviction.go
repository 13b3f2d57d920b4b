package httptransport

import (
	"encoding/json"
	"net/http"
	"time"

	"claimlease/internal/display"
	"claimlease/internal/leasing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type EvictionHandlers struct {
	evictions *leasing.Evictions
	book      *leasing.Book
	registry  ClaimRegistry
	disp      display.Projector
	adminKey  string
}

func NewEvictionHandlers(ev *leasing.Evictions, book *leasing.Book, reg ClaimRegistry, disp display.Projector, adminKey string) *EvictionHandlers {
	return &EvictionHandlers{evictions: ev, book: book, registry: reg, disp: disp, adminKey: adminKey}
}

func (h *EvictionHandlers) Query() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claimID := chi.URLParam(r, "claim_id")
		n, ok := h.evictions.Get(claimID)
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			_ = json.NewEncoder(w).Encode(map[string]any{"claim_id": claimID, "state": "none"})
			return
		}
		now := time.Now()
		state := "notice_pending"
		if n.Effective(now) {
			state = "effective"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"claim_id":          n.ClaimID,
			"state":             state,
			"owner":             n.Owner,
			"renter":            n.Renter,
			"initiated_at":      n.InitiatedAt.Format(time.RFC3339),
			"effective_at":      n.EffectiveAt.Format(time.RFC3339),
			"remaining_seconds": int64(n.Remaining(now) / time.Second),
		})
	}
}

type evictionRequest struct {
	Caller  string `json:"caller"`
	AsAdmin bool   `json:"as_admin"`
}

func (h *EvictionHandlers) Initiate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claimID := chi.URLParam(r, "claim_id")
		var req evictionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if req.Caller == "" {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		owner, err := h.registry.OwnerOf(r.Context(), claimID)
		if err != nil {
			status, code := MapLeasingError(err)
			WriteHTTPError(w, status, code)
			return
		}
		n, err := h.evictions.Initiate(r.Context(), claimID, owner, req.Caller)
		if err != nil {
			status, code := MapLeasingError(err)
			WriteHTTPError(w, status, code)
			return
		}
		h.disp.LeaseStateChanged(claimID, display.State{
			Kind:      display.StateEvictionPending,
			Holder:    n.Renter,
			Remaining: n.Remaining(time.Now()),
		})
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"claim_id":     n.ClaimID,
			"effective_at": n.EffectiveAt.Format(time.RFC3339),
		})
	}
}

func (h *EvictionHandlers) Cancel() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claimID := chi.URLParam(r, "claim_id")
		var req evictionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if err := h.evictions.Cancel(r.Context(), claimID, req.Caller); err != nil {
			status, code := MapLeasingError(err)
			WriteHTTPError(w, status, code)
			return
		}
		if rec, ok := h.book.Get(claimID); ok {
			h.disp.LeaseStateChanged(claimID, display.State{
				Kind:      display.StateLeased,
				Holder:    rec.Holder,
				Expiry:    rec.LeaseExpiry,
				Remaining: rec.Remaining(time.Now()),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}
}

// Terminate ends a lease under an effective notice. The as_admin flag is a
// privileged override and requires admin credentials on the request.
func (h *EvictionHandlers) Terminate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claimID := chi.URLParam(r, "claim_id")
		var req evictionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if req.AsAdmin && h.adminKey != "" && !CheckAdminAuth(r, h.adminKey) {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "unauthorized"})
			return
		}
		holder, err := h.evictions.Terminate(r.Context(), claimID, req.Caller, req.AsAdmin)
		if err != nil {
			status, code := MapLeasingError(err)
			WriteHTTPError(w, status, code)
			return
		}
		if holder != "" {
			if err := h.registry.RevokeAccess(r.Context(), claimID, holder); err != nil {
				log.Error().Err(err).Str("claim_id", claimID).Str("holder", holder).Msg("revoke access on termination")
			}
		}
		h.disp.LeaseStateChanged(claimID, display.State{Kind: display.StateAvailable})
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "displaced_holder": holder})
	}
}
