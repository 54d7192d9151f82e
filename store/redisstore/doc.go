// Package redisstore implements store.RecordStore on Redis.
//
// Documents live at <prefix>:<collection>:<key> as hashes whose fields hold
// JSON-encoded values. Inserts, increments and deletes run as Lua scripts so
// the existence check and the write are a single atomic step; compound
// updates (set, add-to-set, pull, upsert) use WATCH/MULTI with bounded retry.
// Collection retention maps to a PEXPIRE set once at creation.
package redisstore
