package commerce

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/shopAuth/store"
)

var (
	// ErrProfileNotFound is returned when no profile exists for the email.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrProfileExists is returned when creating a second profile for an email.
	ErrProfileExists = errors.New("profile already exists")
	// ErrInvalidInput is returned for an empty email or product id.
	ErrInvalidInput = errors.New("invalid input")
)

const (
	fieldEmail    = "email"
	fieldFullName = "full_name"
	fieldPhone    = "phone"
	fieldProducts = "products"

	defaultTimeout = 3 * time.Second
)

// Collections names the profile and cart collections.
type Collections struct {
	Profiles store.Collection
	Carts    store.Collection
}

// DefaultCollections returns user_profiles and carts, both keyed by email
// and never expiring.
func DefaultCollections() Collections {
	return Collections{
		Profiles: store.Collection{Name: "user_profiles", Key: fieldEmail},
		Carts:    store.Collection{Name: "carts", Key: fieldEmail},
	}
}

// All returns the collections for index setup.
func (c Collections) All() []store.Collection {
	return []store.Collection{c.Profiles, c.Carts}
}

// Option tunes a manager.
type Option func(*options)

type options struct {
	timeout time.Duration
	clock   func() time.Time
}

// WithTimeout bounds every store call. Defaults to 3s.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithClock overrides time.Now.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{timeout: defaultTimeout, clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
