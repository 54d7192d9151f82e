package shopAuth

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.OTP.Length != 4 || cfg.OTP.TTL != 5*time.Minute {
		t.Fatalf("unexpected OTP defaults: %+v", cfg.OTP)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero otp ttl",
			mutate:  func(c *Config) { c.OTP.TTL = 0 },
			wantErr: "OTP TTL",
		},
		{
			name:    "zero attempts",
			mutate:  func(c *Config) { c.OTP.MaxAttempts = 0 },
			wantErr: "MaxAttempts",
		},
		{
			name:    "otp too long",
			mutate:  func(c *Config) { c.OTP.Length = 11 },
			wantErr: "OTP Length must be between 1 and 10",
		},
		{
			name:    "retention shorter than ttl",
			mutate:  func(c *Config) { c.OTP.Retention = time.Minute },
			wantErr: "OTP Retention must be >= OTP TTL",
		},
		{
			name:    "template without code",
			mutate:  func(c *Config) { c.OTP.MessageTemplate = "hello" },
			wantErr: "{otp}",
		},
		{
			name: "send limit window",
			mutate: func(c *Config) {
				c.OTP.SendLimit.Enabled = true
				c.OTP.SendLimit.Window = 0
			},
			wantErr: "SendLimit Window",
		},
		{
			name:    "weak argon2 memory",
			mutate:  func(c *Config) { c.Password.Memory = 1024 },
			wantErr: "Password Memory",
		},
		{
			name: "short hs256 secret",
			mutate: func(c *Config) {
				c.Grant.Enabled = true
				c.Grant.PrivateKey = []byte("short")
			},
			wantErr: "hs256",
		},
		{
			name: "unknown signing method",
			mutate: func(c *Config) {
				c.Grant.Enabled = true
				c.Grant.SigningMethod = "rs256"
			},
			wantErr: "unsupported Grant signing method",
		},
		{
			name:    "missing collection",
			mutate:  func(c *Config) { c.Store.TokenCollection = "" },
			wantErr: "collection names",
		},
		{
			name:    "zero delivery timeout",
			mutate:  func(c *Config) { c.Delivery.Timeout = 0 },
			wantErr: "Delivery Timeout",
		},
		{
			name:   "six digit codes",
			mutate: func(c *Config) { c.OTP.Length = 6 },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestCollectionsForRetention(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OTP.Retention = 2 * time.Hour
	cfg.Token.TTL = 3 * time.Hour

	c := CollectionsFor(cfg)
	if c.OTPSessions.Key != fieldSessionID || c.OTPSessions.Retention != 2*time.Hour {
		t.Fatalf("unexpected otp collection: %+v", c.OTPSessions)
	}
	if c.Credentials.Key != fieldEmail || c.Credentials.Retention != 0 {
		t.Fatalf("credentials must not expire: %+v", c.Credentials)
	}
	if c.AuthTokens.Retention != 6*time.Hour {
		t.Fatalf("expired tokens must outlive their TTL: %+v", c.AuthTokens)
	}
	if len(c.All()) != 3 {
		t.Fatal("expected three collections")
	}

	cfg.Token.EnforceTTL = false
	if got := CollectionsFor(cfg).AuthTokens.Retention; got != 0 {
		t.Fatalf("unenforced tokens must not be evicted, got retention %v", got)
	}
}
