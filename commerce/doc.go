// Package commerce holds the per-user shop records gated by auth tokens:
// profiles and carts. Both live in a store.RecordStore keyed by email.
package commerce
