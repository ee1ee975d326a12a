// Package store persists listings. The ListingStore interface itself lives
// in the parent package next to its consumers.
package store

import "carteret/internal/listing"

var (
	_ listing.ListingStore = (*MemoryStore)(nil)
	_ listing.ListingStore = (*PostgresStore)(nil)
)
