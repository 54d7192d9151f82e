// Package shopAuth is the authentication core of a commerce backend: SMS
// one-time passcode sessions, email/password registration and login, and
// opaque bearer auth tokens that gate profile and cart access.
//
// The [Engine] is the single entry point. Build it with [New], inject a
// [store.RecordStore] and a [Notifier], then call its operations from any
// number of goroutines.
//
// # Status contract
//
// Every operation reports a [Result] whose Code is part of the wire
// contract: 200 success, 401 bad or expired credential, 404 unknown
// session/email/token, 409 duplicate registration, 429 locked out or
// throttled, 500 store failure. [StatusOf] maps returned errors onto the
// same codes.
//
// # Architecture boundaries
//
// Persistence lives behind store.RecordStore (store/redisstore,
// store/mongostore). Delivery lives behind Notifier (package notify). HTTP
// lives in httpapi. This package imports none of the boundary packages.
//
// # What this package must NOT do
//
//   - Retry store or notifier calls. Retry policy belongs to the caller.
//   - Roll back a persisted OTP session when delivery fails.
//   - Hold mutable process-wide state.
package shopAuth
