package shopAuth

import (
	"errors"
	"strings"
	"time"
)

// Config holds every tunable of the engine. Obtain a populated value with
// [DefaultConfig], adjust it, and hand it to [Builder.WithConfig].
type Config struct {
	OTP      OTPConfig
	Token    TokenConfig
	Password PasswordConfig
	Grant    GrantConfig
	Delivery DeliveryConfig
	Store    StoreConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig controls OTP session issuance and verification.
//
// MessageTemplate must contain the {otp} placeholder and may contain {ttl},
// which is replaced with a humanized rendering of TTL.
type OTPConfig struct {
	TTL             time.Duration
	MaxAttempts     int
	Length          int
	Retention       time.Duration
	MessageTemplate string
	SendLimit       SendLimitConfig
}

// SendLimitConfig throttles how many OTPs one phone number may request per
// fixed window. It requires a Redis client on the Builder.
type SendLimitConfig struct {
	Enabled     bool
	MaxSends    int
	Window      time.Duration
	RedisPrefix string
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls opaque bearer auth tokens.
type TokenConfig struct {
	TTL        time.Duration
	EnforceTTL bool
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id parameters. Memory is in KB.
type PasswordConfig struct {
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
}

/*
====================================
GRANT CONFIG
====================================
*/

// GrantConfig controls the signed phone grant minted after a successful OTP
// verification.
type GrantConfig struct {
	Enabled       bool
	TTL           time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	KeyID         string
}

/*
====================================
TIMEOUTS
====================================
*/

// DeliveryConfig bounds notifier calls.
type DeliveryConfig struct {
	Timeout time.Duration
}

// StoreConfig bounds record store calls and names the collections.
type StoreConfig struct {
	OperationTimeout     time.Duration
	OTPCollection        string
	CredentialCollection string
	TokenCollection      string
}

/*
====================================
OBSERVABILITY
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters and the latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultMessageTemplate is the default OTP SMS body. {otp} and {ttl} are
// substituted at send time.
const DefaultMessageTemplate = "Your verification code is {otp}. It expires in {ttl}."

// DefaultConfig returns the configuration used by [New].
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		OTP: OTPConfig{
			TTL:             5 * time.Minute,
			MaxAttempts:     5,
			Length:          4,
			Retention:       24 * time.Hour,
			MessageTemplate: DefaultMessageTemplate,
			SendLimit: SendLimitConfig{
				Enabled:     false,
				MaxSends:    5,
				Window:      15 * time.Minute,
				RedisPrefix: "sa:otp_send",
			},
		},
		Token: TokenConfig{
			TTL:        24 * time.Hour,
			EnforceTTL: true,
		},
		Password: PasswordConfig{
			Memory:           65536,
			Time:             3,
			Parallelism:      2,
			SaltLength:       16,
			KeyLength:        32,
			MaxPasswordBytes: 1024,
		},
		Grant: GrantConfig{
			Enabled:       false,
			TTL:           10 * time.Minute,
			SigningMethod: "hs256",
			Issuer:        "shopauth",
		},
		Delivery: DeliveryConfig{
			Timeout: 10 * time.Second,
		},
		Store: StoreConfig{
			OperationTimeout:     3 * time.Second,
			OTPCollection:        "otp_sessions",
			CredentialCollection: "user_credentials",
			TokenCollection:      "auth_tokens",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Grant.PrivateKey = cloneBytes(cfg.Grant.PrivateKey)
	out.Grant.PublicKey = cloneBytes(cfg.Grant.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration error, or nil.
func (c *Config) Validate() error {
	// OTP
	if c.OTP.TTL <= 0 {
		return errors.New("OTP TTL must be > 0")
	}
	if c.OTP.MaxAttempts < 1 {
		return errors.New("OTP MaxAttempts must be >= 1")
	}
	if c.OTP.Length < 1 || c.OTP.Length > 10 {
		return errors.New("OTP Length must be between 1 and 10")
	}
	if c.OTP.Retention < c.OTP.TTL {
		return errors.New("OTP Retention must be >= OTP TTL")
	}
	if !strings.Contains(c.OTP.MessageTemplate, otpPlaceholder) {
		return errors.New("OTP MessageTemplate must contain {otp}")
	}
	if c.OTP.SendLimit.Enabled {
		if c.OTP.SendLimit.MaxSends < 1 {
			return errors.New("OTP SendLimit MaxSends must be >= 1")
		}
		if c.OTP.SendLimit.Window <= 0 {
			return errors.New("OTP SendLimit Window must be > 0")
		}
	}

	// Token
	if c.Token.TTL <= 0 {
		return errors.New("Token TTL must be > 0")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MaxPasswordBytes < 0 {
		return errors.New("Password MaxPasswordBytes must be >= 0")
	}

	// Grant
	if c.Grant.Enabled {
		if c.Grant.TTL <= 0 {
			return errors.New("Grant TTL must be > 0")
		}
		switch c.Grant.SigningMethod {
		case "hs256":
			if len(c.Grant.PrivateKey) < 16 {
				return errors.New("hs256 grants require PrivateKey of at least 16 bytes")
			}
		case "ed25519":
			if len(c.Grant.PrivateKey) == 0 {
				return errors.New("ed25519 grants require PrivateKey")
			}
		default:
			return errors.New("unsupported Grant signing method")
		}
	}

	// Timeouts
	if c.Delivery.Timeout <= 0 {
		return errors.New("Delivery Timeout must be > 0")
	}
	if c.Store.OperationTimeout <= 0 {
		return errors.New("Store OperationTimeout must be > 0")
	}
	if c.Store.OTPCollection == "" || c.Store.CredentialCollection == "" || c.Store.TokenCollection == "" {
		return errors.New("Store collection names must be set")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
