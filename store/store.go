package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no record matches the filter.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert collides with an existing key.
	ErrDuplicate = errors.New("duplicate record key")
	// ErrUnavailable wraps backend failures (network, timeouts, decode errors).
	ErrUnavailable = errors.New("record store unavailable")
	// ErrInvalidFilter is returned when a filter omits the collection key.
	ErrInvalidFilter = errors.New("filter must include the collection key")
)

// Collection describes a keyed document collection.
//
// Key names the unique field every document carries and every filter must
// include. Retention, when > 0, bounds how long a document is physically kept
// after insertion; it is independent of any logical expiry the caller checks.
type Collection struct {
	Name      string
	Key       string
	Retention time.Duration
}

// Filter is an equality match on document fields. It must contain the
// collection key; extra fields narrow the match.
type Filter map[string]any

// Update describes the mutations applied by UpdateOne.
type Update struct {
	Set      map[string]any
	Inc      map[string]int64
	AddToSet map[string]any
	Pull     map[string]any
}

// Empty reports whether the update carries no mutation.
func (u Update) Empty() bool {
	return len(u.Set) == 0 && len(u.Inc) == 0 && len(u.AddToSet) == 0 && len(u.Pull) == 0
}

// UpdateResult reports the outcome of UpdateOne.
type UpdateResult struct {
	Matched  int64
	Modified int64
	Upserted bool
}

// RecordStore is the document persistence contract the authentication core
// depends on. Implementations must make IncrementOne atomic: concurrent
// increments on the same record never lose an update.
type RecordStore interface {
	InsertOne(ctx context.Context, coll Collection, doc any) error
	FindOne(ctx context.Context, coll Collection, filter Filter, out any) error
	UpdateOne(ctx context.Context, coll Collection, filter Filter, update Update, upsert bool) (UpdateResult, error)
	IncrementOne(ctx context.Context, coll Collection, filter Filter, field string, by int64) (int64, error)
	DeleteOne(ctx context.Context, coll Collection, filter Filter) error
}

// KeyValue extracts the collection key from filter as a string.
func KeyValue(coll Collection, filter Filter) (string, error) {
	v, ok := filter[coll.Key]
	if !ok {
		return "", ErrInvalidFilter
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", ErrInvalidFilter
	}
	return s, nil
}
