package httptransport

import (
	"encoding/json"
	"net/http"
	"time"

	"claimlease/internal/confirm"

	"github.com/go-chi/chi/v5"
)

type ConfirmHandlers struct {
	wf  *confirm.Workflow
	pay Payments
}

func NewConfirmHandlers(wf *confirm.Workflow, pay Payments) *ConfirmHandlers {
	return &ConfirmHandlers{wf: wf, pay: pay}
}

type proposeRequest struct {
	Requester string `json:"requester"`
	Action    string `json:"action"`
	ClaimID   string `json:"claim_id"`
}

func (h *ConfirmHandlers) Propose() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req proposeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if req.Requester == "" || req.ClaimID == "" {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		kind := confirm.ActionKind(req.Action)
		if kind != confirm.ActionRent && kind != confirm.ActionBuy {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_action")
			return
		}
		pa, err := h.wf.Propose(r.Context(), req.Requester, kind, req.ClaimID)
		if err != nil {
			status, code := MapLeasingError(err)
			WriteHTTPError(w, status, code)
			return
		}
		// The prompt shows the price and whether the requester can cover it;
		// the charge itself is only attempted on accept.
		canAfford, err := h.pay.HasFunds(r.Context(), req.Requester, pa.Amount)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token":          pa.Token,
			"claim_id":       pa.ClaimID,
			"action":         string(pa.Kind),
			"amount":         pa.Amount,
			"amount_display": h.pay.FormatAmount(pa.Amount),
			"can_afford":     canAfford,
			"expires_at":     pa.ExpiresAt.Format(time.RFC3339),
		})
	}
}

type resolveRequest struct {
	Requester string `json:"requester"`
	Accept    bool   `json:"accept"`
}

func (h *ConfirmHandlers) Resolve() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "token")
		if token == "" {
			WriteHTTPError(w, http.StatusNotFound, "not_found")
			return
		}
		var req resolveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if req.Requester == "" {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		out, err := h.wf.Resolve(r.Context(), req.Requester, token, req.Accept)
		if err != nil {
			status, code := MapLeasingError(err)
			WriteHTTPError(w, status, code)
			return
		}
		resp := map[string]any{
			"claim_id":       out.ClaimID,
			"action":         string(out.Kind),
			"declined":       out.Declined,
			"amount":         out.Amount,
			"amount_display": h.pay.FormatAmount(out.Amount),
		}
		if !out.NewExpiry.IsZero() {
			resp["lease_expiry"] = out.NewExpiry.Format(time.RFC3339)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
