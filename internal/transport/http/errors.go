package httptransport

import (
	"errors"
	"net/http"

	"claimlease/internal/leasing"
)

// MapLeasingError translates domain errors into a status and a stable error
// code for the response body.
func MapLeasingError(err error) (int, string) {
	switch {
	case errors.Is(err, leasing.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, leasing.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, leasing.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, leasing.ErrPaymentFailed):
		return http.StatusPaymentRequired, "payment_failed"
	case errors.Is(err, leasing.ErrTokenExpired):
		return http.StatusGone, "token_expired"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
