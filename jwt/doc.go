// Package jwt issues and verifies phone grants: short-lived signed tokens
// handed out after an OTP session has been verified, asserting that the
// bearer controls a phone number.
package jwt
