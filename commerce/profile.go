package commerce

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/shopAuth/store"
)

// Profile is the public part of a user record.
type Profile struct {
	Email     string    `json:"email" bson:"email"`
	FullName  string    `json:"full_name" bson:"full_name"`
	Phone     string    `json:"phone,omitempty" bson:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// ProfileUpdate lists the mutable profile fields. Nil fields are left alone.
type ProfileUpdate struct {
	FullName *string `json:"full_name,omitempty"`
}

// ProfileManager creates, reads and updates profiles.
type ProfileManager struct {
	records store.RecordStore
	coll    store.Collection
	opts    options
}

// NewProfileManager returns a manager over coll.
func NewProfileManager(records store.RecordStore, coll store.Collection, opts ...Option) *ProfileManager {
	return &ProfileManager{records: records, coll: coll, opts: buildOptions(opts)}
}

// Create stores a profile for email. A second call for the same email
// returns ErrProfileExists.
func (m *ProfileManager) Create(ctx context.Context, email, fullName string) error {
	email = normalizeEmail(email)
	if email == "" {
		return ErrInvalidInput
	}

	ctx, cancel := context.WithTimeout(ctx, m.opts.timeout)
	defer cancel()

	err := m.records.InsertOne(ctx, m.coll, Profile{
		Email:     email,
		FullName:  strings.TrimSpace(fullName),
		CreatedAt: m.opts.clock().UTC(),
	})
	if errors.Is(err, store.ErrDuplicate) {
		return ErrProfileExists
	}
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// Get returns the profile for email or ErrProfileNotFound.
func (m *ProfileManager) Get(ctx context.Context, email string) (*Profile, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, ErrProfileNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, m.opts.timeout)
	defer cancel()

	var p Profile
	err := m.records.FindOne(ctx, m.coll, store.Filter{fieldEmail: email}, &p)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

// Update applies u and reports whether anything changed.
func (m *ProfileManager) Update(ctx context.Context, email string, u ProfileUpdate) (bool, error) {
	set := map[string]any{}
	if u.FullName != nil {
		set[fieldFullName] = strings.TrimSpace(*u.FullName)
	}
	return m.set(ctx, email, set, "update profile")
}

// AttachPhone records phone on the profile for email. Callers are expected
// to have proven ownership of phone, typically through an OTP phone grant.
func (m *ProfileManager) AttachPhone(ctx context.Context, email, phone string) (bool, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return false, ErrInvalidInput
	}
	return m.set(ctx, email, map[string]any{fieldPhone: phone}, "attach phone")
}

func (m *ProfileManager) set(ctx context.Context, email string, set map[string]any, op string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" {
		return false, ErrInvalidInput
	}
	if len(set) == 0 {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.opts.timeout)
	defer cancel()

	res, err := m.records.UpdateOne(ctx, m.coll, store.Filter{fieldEmail: email}, store.Update{Set: set}, false)
	if errors.Is(err, store.ErrNotFound) {
		return false, ErrProfileNotFound
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return res.Modified > 0, nil
}
