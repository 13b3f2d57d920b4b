package httptransport

import (
	"encoding/json"
	"net/http"
	"time"

	"claimlease/internal/leasing"
	"claimlease/internal/store"
)

type AdminHandlers struct {
	store    *store.Store
	registry ClaimRegistry
	ledger   Payments
	book     *leasing.Book
}

func NewAdminHandlers(st *store.Store, reg ClaimRegistry, led Payments, book *leasing.Book) *AdminHandlers {
	return &AdminHandlers{store: st, registry: reg, ledger: led, book: book}
}

func (h *AdminHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.store.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "db": "down"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "db": "up"})
	}
}

type registerClaimRequest struct {
	ID                string `json:"id"`
	Owner             string `json:"owner"`
	RentPrice         int64  `json:"rent_price"`
	RentPeriodSeconds int64  `json:"rent_period_seconds"`
	RentMaxCapSeconds int64  `json:"rent_max_cap_seconds"`
	SalePrice         int64  `json:"sale_price"`
}

func (h *AdminHandlers) RegisterClaim() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerClaimRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if req.ID == "" || req.Owner == "" {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		c := leasing.Claim{
			ID:         req.ID,
			Owner:      req.Owner,
			RentPrice:  req.RentPrice,
			RentPeriod: time.Duration(req.RentPeriodSeconds) * time.Second,
			RentMaxCap: time.Duration(req.RentMaxCapSeconds) * time.Second,
			SalePrice:  req.SalePrice,
		}
		if err := h.registry.RegisterClaim(r.Context(), c); err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "claim_id": c.ID})
	}
}

func (h *AdminHandlers) Leases() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		items := []map[string]any{}
		for _, rec := range h.book.Snapshot() {
			items = append(items, map[string]any{
				"claim_id":          rec.ClaimID,
				"holder":            rec.Holder,
				"lease_expiry":      rec.LeaseExpiry.Format(time.RFC3339),
				"active":            rec.Active(now),
				"remaining_seconds": int64(rec.Remaining(now) / time.Second),
				"under_eviction":    rec.UnderEviction,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"items": items})
	}
}

func (h *AdminHandlers) Ledger() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := ParseLimit(r)
		identity := r.URL.Query().Get("identity")
		entries, err := h.store.ListLedgerEntries(r.Context(), identity, limit)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"items": entries, "limit": limit})
	}
}

type topupRequest struct {
	Identity string `json:"identity"`
	Amount   int64  `json:"amount"`
}

func (h *AdminHandlers) Topup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req topupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if req.Identity == "" || req.Amount <= 0 {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		if err := h.ledger.Deposit(r.Context(), req.Identity, req.Amount, "admin_topup", "admin", ""); err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		bal, err := h.ledger.Balance(r.Context(), req.Identity)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "balance": bal})
	}
}
