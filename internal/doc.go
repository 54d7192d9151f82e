// Package internal contains helper utilities that are private to shopAuth,
// chiefly secure random generation for session ids, auth tokens and OTPs.
//
// # Sub-packages
//
//   - rate: Redis fixed-window counters for the per-phone OTP send throttle
//   - logging: zap logger construction and PII masking
//   - appconfig: viper-based file and environment loading for cmd binaries
//
// # What this package must NOT do
//
//   - Export types that appear in the public shopAuth API.
//   - Use math/rand for anything a caller might guess.
package internal
