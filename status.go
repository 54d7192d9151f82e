package shopAuth

import (
	"errors"
	"net/http"
)

// Result is the (success, status) pair every core operation reports.
//
// Code follows the wire contract: 200, 401, 404, 409, 429 or 500. Success is
// true for protocol-level success even when Code is not 200, as with the
// email probe.
type Result struct {
	Success bool
	Code    int
}

// OK reports whether Code is 200.
func (r Result) OK() bool {
	return r.Code == http.StatusOK
}

func ok() Result {
	return Result{Success: true, Code: http.StatusOK}
}

func failure(err error) Result {
	return Result{Success: false, Code: StatusOf(err)}
}

// StatusOf maps an engine error onto its wire status code. A nil error maps
// to 200; unknown errors map to 500.
func StatusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrOTPSessionNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrTokenNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrOTPInvalid),
		errors.Is(err, ErrOTPExpired),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrAuthorizationHeader):
		return http.StatusUnauthorized
	case errors.Is(err, ErrOTPLocked),
		errors.Is(err, ErrOTPSendRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrAccountExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrDeliveryFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
