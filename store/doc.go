// Package store defines the keyed document persistence contract used by
// shopAuth: OTP sessions, credentials, auth tokens, profiles and carts.
//
// # Implementations
//
//   - store/redisstore: one Redis hash per document, atomic insert and
//     increment through Lua, WATCH/MULTI for compound updates.
//   - store/mongostore: MongoDB collections with a unique index on the key
//     field and a TTL index for retention.
//
// # What this package must NOT do
//
//   - Import shopAuth or any backend driver.
//   - Interpret document semantics (expiry, attempt caps) beyond retention.
package store
