// Package store persists photo records.
package store

import (
	"context"

	"carteret/internal/photo"
	id "carteret/pkg/domain"
)

// PhotoStore persists photo rows. Deleting a listing cascades to its photo
// rows at the database level; DeleteByListing exists for the in-memory
// store and for cleaning object storage.
type PhotoStore interface {
	Insert(ctx context.Context, p *photo.Photo) error
	ListByListing(ctx context.Context, listingID id.ListingID) ([]*photo.Photo, error)
	DeleteByListing(ctx context.Context, listingID id.ListingID) error
}
