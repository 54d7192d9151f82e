package shopAuth

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestHumanizeTTL(t *testing.T) {
	tests := map[time.Duration]string{
		30 * time.Second: "30 seconds",
		time.Minute:      "a minute",
		5 * time.Minute:  "5 minutes",
		time.Hour:        "an hour",
		3 * time.Hour:    "3 hours",
		0:                "now",
	}
	for d, want := range tests {
		if got := humanizeTTL(d); got != want {
			t.Fatalf("humanizeTTL(%v) = %q, want %q", d, got, want)
		}
	}
}

func TestRenderOTPMessage(t *testing.T) {
	got := renderOTPMessage(DefaultMessageTemplate, "0042", 5*time.Minute)
	want := "Your verification code is 0042. It expires in 5 minutes."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{ErrOTPSessionNotFound, http.StatusNotFound},
		{ErrUserNotFound, http.StatusNotFound},
		{ErrTokenNotFound, http.StatusNotFound},
		{ErrOTPInvalid, http.StatusUnauthorized},
		{ErrOTPExpired, http.StatusUnauthorized},
		{ErrInvalidCredentials, http.StatusUnauthorized},
		{ErrOTPLocked, http.StatusTooManyRequests},
		{ErrOTPSendRateLimited, http.StatusTooManyRequests},
		{ErrAccountExists, http.StatusConflict},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrDeliveryFailed, http.StatusBadGateway},
		{fmt.Errorf("%w: dial tcp", ErrStoreUnavailable), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		if got := StatusOf(tc.err); got != tc.want {
			t.Fatalf("StatusOf(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
