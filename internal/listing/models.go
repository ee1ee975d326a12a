// Package listing owns the business listing record and its moderation
// lifecycle. Status moves only along whitelisted edges and every move is a
// compare-and-set on the current status, so concurrent moderators cannot
// double-apply a decision.
package listing

import (
	"time"

	id "carteret/pkg/domain"
	dErrors "carteret/pkg/domain-errors"
)

// Status is the moderation state of a listing.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusRejected  Status = "rejected"
	StatusSuspended Status = "suspended"
)

// Badge is the verification badge shown next to a listing.
type Badge string

const (
	BadgeUnverified Badge = "unverified"
	BadgeVerified   Badge = "verified"
)

// ParseStatus validates a stored status value.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusActive, StatusRejected, StatusSuspended:
		return Status(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown listing status %q", s)
	}
}

// ParseBadge validates a stored badge value.
func ParseBadge(s string) (Badge, error) {
	switch Badge(s) {
	case BadgeUnverified, BadgeVerified:
		return Badge(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown listing badge %q", s)
	}
}

// transitions whitelists the legal status edges. Anything absent here is a
// conflict, including self-loops.
var transitions = map[Status][]Status{
	StatusPending:   {StatusActive, StatusRejected},
	StatusActive:    {StatusSuspended},
	StatusSuspended: {StatusActive},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Listing is one business listing in the directory.
type Listing struct {
	ID           id.ListingID
	Name         string
	Description  string
	City         string
	AddressLine1 string
	Phone        string
	Website      string
	Email        string
	Hours        map[string]string
	Attributes   map[string]bool
	PriceLevel   int
	Status       Status
	Badge        Badge
	OwnerID      *id.UserID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewListingInput is what a submitter provides. Everything except the name
// and city is optional.
type NewListingInput struct {
	Name         string
	Description  string
	City         string
	AddressLine1 string
	Phone        string
	Website      string
	Email        string
	Hours        map[string]string
	Attributes   map[string]bool
	PriceLevel   int
	OwnerID      *id.UserID
}

// Validate checks the input at the trust boundary.
func (in *NewListingInput) Validate() error {
	if in.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "listing name is required")
	}
	if len(in.Name) > 200 {
		return dErrors.New(dErrors.CodeValidation, "listing name is too long")
	}
	if in.City == "" {
		return dErrors.New(dErrors.CodeValidation, "listing city is required")
	}
	if in.PriceLevel < 0 || in.PriceLevel > 4 {
		return dErrors.New(dErrors.CodeValidation, "price level must be between 0 and 4")
	}
	return nil
}
