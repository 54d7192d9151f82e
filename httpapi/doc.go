// Package httpapi is the gin HTTP surface of the shop backend.
//
// Every response body carries "success" and "code"; code follows the
// engine's status contract while the HTTP status stays 200 for handled
// outcomes, so existing clients that read the body keep working. Malformed
// request bodies get HTTP 400.
package httpapi
