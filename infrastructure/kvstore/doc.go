// Package kvstore implements the key-value backends of the "db" host
// namespace: an in-memory radix tree and a bbolt file store.
//
// Both backends address items by a compound key built from (table, key) with
// EncodeKey, so that no table/key pair can collide with another.
package kvstore
