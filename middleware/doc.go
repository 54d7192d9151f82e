// Package middleware adapts shopAuth.Engine checks to HTTP handlers.
//
// # Guards
//
//   - [Guard] is plain net/http: it resolves the bearer auth token and puts
//     the bound email in the request context.
//   - [RequireToken] is the gin equivalent used by httpapi. Rejections are
//     written in the {success, code} body shape with HTTP 200.
//   - [RequirePhoneGrant] checks a signed phone grant without touching the
//     record store.
//   - [RequestContext] copies client IP and User-Agent into the request
//     context so audit events carry them.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself; every decision is delegated to the
// Engine.
//
// # What this package must NOT do
//
//   - Read or write the record store directly.
//   - Parse grants or tokens itself.
//   - Make authorization decisions beyond pass/reject from the Engine.
package middleware
