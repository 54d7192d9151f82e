package shopAuth

import (
	"time"

	"github.com/MrEthical07/shopAuth/store"
)

// Stored document field names used in filters and updates.
const (
	fieldSessionID = "session_id"
	fieldEmail     = "email"
	fieldAuthToken = "auth_token"
	fieldAttempts  = "attempts"
)

type otpSessionRecord struct {
	SessionID   string    `json:"session_id" bson:"session_id"`
	PhoneNumber string    `json:"phone_number" bson:"phone_number"`
	OTP         string    `json:"otp" bson:"otp"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	Attempts    int64     `json:"attempts" bson:"attempts"`
}

type credentialRecord struct {
	Email     string    `json:"email" bson:"email"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Password  string    `json:"password" bson:"password"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

type authTokenRecord struct {
	AuthToken string    `json:"auth_token" bson:"auth_token"`
	Email     string    `json:"email" bson:"email"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Collections is the set of collections the engine reads and writes.
type Collections struct {
	OTPSessions store.Collection
	Credentials store.Collection
	AuthTokens  store.Collection
}

// All returns the collections in a stable order, for index setup.
func (c Collections) All() []store.Collection {
	return []store.Collection{c.OTPSessions, c.Credentials, c.AuthTokens}
}

// tokenRetentionFactor keeps expired tokens in the store long enough for
// the logical TTL check to report them as expired rather than unknown.
const tokenRetentionFactor = 2

// CollectionsFor derives collection descriptors from cfg. OTP sessions are
// physically retained for OTP.Retention and credentials never expire. Auth
// tokens are retained for tokenRetentionFactor * Token.TTL when the TTL is
// enforced and kept forever when it is not.
func CollectionsFor(cfg Config) Collections {
	var tokenRetention time.Duration
	if cfg.Token.EnforceTTL {
		tokenRetention = tokenRetentionFactor * cfg.Token.TTL
	}

	return Collections{
		OTPSessions: store.Collection{
			Name:      cfg.Store.OTPCollection,
			Key:       fieldSessionID,
			Retention: cfg.OTP.Retention,
		},
		Credentials: store.Collection{
			Name: cfg.Store.CredentialCollection,
			Key:  fieldEmail,
		},
		AuthTokens: store.Collection{
			Name:      cfg.Store.TokenCollection,
			Key:       fieldAuthToken,
			Retention: tokenRetention,
		},
	}
}
