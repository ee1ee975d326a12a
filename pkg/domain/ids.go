// Package domain holds identifier types and small value objects shared across
// feature packages. Typed IDs keep a ListingID from ever being passed where a
// UserID belongs; the compiler enforces what code review would miss.
package domain

import (
	"github.com/google/uuid"

	dErrors "carteret/pkg/domain-errors"
)

// UserID identifies an authenticated account (and its role record).
type UserID uuid.UUID

// ListingID identifies one directory entry.
type ListingID uuid.UUID

// VerificationID identifies one ownership-proof request.
type VerificationID uuid.UUID

// PhotoID identifies one stored listing photo row.
type PhotoID uuid.UUID

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id ListingID) String() string      { return uuid.UUID(id).String() }
func (id VerificationID) String() string { return uuid.UUID(id).String() }
func (id PhotoID) String() string        { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id ListingID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id VerificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id PhotoID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }

// NewUserID returns a fresh random identifier.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewListingID returns a fresh random identifier.
func NewListingID() ListingID { return ListingID(uuid.New()) }

// NewVerificationID returns a fresh random identifier.
func NewVerificationID() VerificationID { return VerificationID(uuid.New()) }

// NewPhotoID returns a fresh random identifier.
func NewPhotoID() PhotoID { return PhotoID(uuid.New()) }

// parseUUID enforces the shared invariant: IDs crossing a trust boundary must
// be valid, non-nil UUIDs.
func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return u, nil
}

// ParseUserID constructs a UserID from external input.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

// ParseListingID constructs a ListingID from external input.
func ParseListingID(s string) (ListingID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ListingID{}, err
	}
	return ListingID(u), nil
}

// ParseVerificationID constructs a VerificationID from external input.
func ParseVerificationID(s string) (VerificationID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return VerificationID{}, err
	}
	return VerificationID(u), nil
}

// ParsePhotoID constructs a PhotoID from external input.
func ParsePhotoID(s string) (PhotoID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return PhotoID{}, err
	}
	return PhotoID(u), nil
}
