package internal

import (
	"encoding/hex"
	"testing"
)

func TestNewSessionIDIsHex32(t *testing.T) {
	seen := make(map[string]struct{}, 64)
	for i := 0; i < 64; i++ {
		id, err := NewSessionID()
		if err != nil {
			t.Fatalf("NewSessionID failed: %v", err)
		}
		if len(id) != 32 {
			t.Fatalf("expected 32 chars, got %d (%q)", len(id), id)
		}
		if _, err := hex.DecodeString(id); err != nil {
			t.Fatalf("session id is not hex: %q", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate session id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestNewAuthTokenIsHex64(t *testing.T) {
	tok, err := NewAuthToken()
	if err != nil {
		t.Fatalf("NewAuthToken failed: %v", err)
	}
	if len(tok) != 64 {
		t.Fatalf("expected 64 chars, got %d", len(tok))
	}
	if _, err := hex.DecodeString(tok); err != nil {
		t.Fatalf("auth token is not hex: %q", tok)
	}
}

func TestNewOTPDigits(t *testing.T) {
	for _, n := range []int{1, 4, 6, 10} {
		otp, err := NewOTP(n)
		if err != nil {
			t.Fatalf("NewOTP(%d) failed: %v", n, err)
		}
		if len(otp) != n {
			t.Fatalf("NewOTP(%d) returned %q", n, otp)
		}
		for _, c := range otp {
			if c < '0' || c > '9' {
				t.Fatalf("NewOTP(%d) returned non-digit %q", n, otp)
			}
		}
	}
}

func TestNewOTPRejectsInvalidLength(t *testing.T) {
	for _, n := range []int{0, -1, 11} {
		if _, err := NewOTP(n); err == nil {
			t.Fatalf("expected NewOTP(%d) to fail", n)
		}
	}
}
