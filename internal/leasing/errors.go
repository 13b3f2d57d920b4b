package leasing

import "errors"

var (
	ErrNotFound      = errors.New("not_found")
	ErrForbidden     = errors.New("forbidden")
	ErrConflict      = errors.New("conflict")
	ErrPaymentFailed = errors.New("payment_failed")
	ErrTokenExpired  = errors.New("token_expired")
)
