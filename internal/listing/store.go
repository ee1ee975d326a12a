package listing

import (
	"context"

	id "carteret/pkg/domain"
)

// Filter narrows List results. Zero values mean no constraint.
type Filter struct {
	Status Status
	City   string
	Query  string
	Limit  int
}

// ListingStore persists listings. Implementations live in the store
// subpackage.
//
// Insert rejects nonexistent owners with CodeStaleSession, because the only
// way to present an owner the users table does not know is a session that
// outlived its account. UpdateStatus is a compare-and-set: it succeeds only
// when the row still holds the expected status, and reports CodeConflict
// when it does not (CodeNotFound when the row is gone entirely).
type ListingStore interface {
	Insert(ctx context.Context, l *Listing) error
	FindByID(ctx context.Context, listingID id.ListingID) (*Listing, error)
	List(ctx context.Context, filter Filter) ([]*Listing, error)
	UpdateStatus(ctx context.Context, listingID id.ListingID, from, to Status) error
	SetBadge(ctx context.Context, listingID id.ListingID, badge Badge) error
	Delete(ctx context.Context, listingID id.ListingID) error
}
