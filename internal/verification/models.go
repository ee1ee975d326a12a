// Package verification handles requests to verify the legitimacy of a
// listing. Approving a request flips the listing badge in the same database
// transaction, so a verified badge can never outrun its approval record.
package verification

import (
	"time"

	id "carteret/pkg/domain"
	dErrors "carteret/pkg/domain-errors"
)

// Status of a verification request.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

// ParseStatus validates a stored status value.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusSubmitted, StatusApproved, StatusRejected:
		return Status(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown verification status %q", s)
	}
}

// Verification is one request to verify a listing.
type Verification struct {
	ID            id.VerificationID
	ListingID     id.ListingID
	RequesterID   id.UserID
	EntityType    string
	Notes         string
	DocumentPaths []string
	Status        Status
	ReviewerID    *id.UserID
	ReviewedAt    *time.Time
	CreatedAt     time.Time
}

// SubmitInput is what a requester provides.
type SubmitInput struct {
	ListingID     id.ListingID
	EntityType    string
	Notes         string
	DocumentPaths []string
}

// Validate checks the input at the trust boundary. At least one supporting
// document is required; a verification request with nothing to review is
// rejected up front.
func (in *SubmitInput) Validate() error {
	if in.ListingID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "listing id is required")
	}
	if in.EntityType == "" {
		return dErrors.New(dErrors.CodeValidation, "entity type is required")
	}
	if len(in.DocumentPaths) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one supporting document is required")
	}
	return nil
}
