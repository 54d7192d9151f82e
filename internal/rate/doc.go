// Package rate provides the Redis-backed fixed-window counter behind the
// per-phone OTP send throttle.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Keys are
// <prefix>:<phone>, prefix defaulting to sa:otp_send.
//
// # What this package must NOT do
//
//   - Throttle verification attempts (the OTP session attempt counter owns that).
//   - Be imported outside the shopAuth module.
package rate
