package shopAuth

import "errors"

var (
	// ErrOTPSessionNotFound is returned when no OTP session matches the id.
	ErrOTPSessionNotFound = errors.New("otp session not found")
	// ErrOTPInvalid is returned for a wrong OTP guess below the attempt budget.
	ErrOTPInvalid = errors.New("invalid otp")
	// ErrOTPExpired is returned for a correct OTP submitted after its TTL.
	// It maps to the same status as ErrOTPInvalid.
	ErrOTPExpired = errors.New("otp expired")
	// ErrOTPLocked is returned once a session's attempt budget is exhausted.
	ErrOTPLocked = errors.New("otp session locked")
	// ErrOTPSendRateLimited is returned when a phone exceeds the send throttle.
	ErrOTPSendRateLimited = errors.New("otp send rate limited")
	// ErrOTPSessionUnbound is returned when Send is called on a session built for verification.
	ErrOTPSessionUnbound = errors.New("otp session has no phone number")
	// ErrDeliveryFailed is returned when the notifier could not deliver the
	// OTP. The session is already persisted; the returned id stays valid.
	ErrDeliveryFailed = errors.New("otp delivery failed")

	// ErrUserNotFound is returned when no credential exists for the email.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned when the password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountExists is returned when registering an email that already has a credential.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidInput is returned for empty identifiers or secrets.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTokenNotFound is returned when no auth token record matches.
	ErrTokenNotFound = errors.New("auth token not found")
	// ErrTokenInvalid is returned for an empty or malformed token.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned when a token outlives Token.TTL and TTL enforcement is on.
	ErrTokenExpired = errors.New("auth token expired")
	// ErrAuthorizationHeader is returned when the Authorization header cannot be parsed.
	ErrAuthorizationHeader = errors.New("malformed authorization header")
	// ErrGrantDisabled is returned when a phone grant is requested but Grant is not enabled.
	ErrGrantDisabled = errors.New("phone grants disabled")

	// ErrStoreUnavailable wraps record store failures.
	ErrStoreUnavailable = errors.New("record store unavailable")
	// ErrEngineNotReady is returned by methods called on a nil or closed Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
