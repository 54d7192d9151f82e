// Package mongostore implements store.RecordStore on MongoDB.
//
// Each collection gets a unique index on its key field, so concurrent inserts
// of the same key resolve to exactly one winner. Retention is a TTL index on
// created_at. Increments use FindOneAndUpdate with $inc and return the
// post-update value.
package mongostore
