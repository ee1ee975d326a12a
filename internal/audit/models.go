// Package audit records the actions taken through the directory into an
// outbox table and relays them to Kafka. The write path never blocks on the
// broker: events are enqueued transactionally close to the action and
// shipped by a background relay.
package audit

import (
	"time"

	"github.com/google/uuid"

	id "carteret/pkg/domain"
)

// Action identifies what happened.
type Action string

const (
	ActionListingCreated       Action = "listing.created"
	ActionListingApproved      Action = "listing.approved"
	ActionListingRejected      Action = "listing.rejected"
	ActionListingSuspended     Action = "listing.suspended"
	ActionListingReactivated   Action = "listing.reactivated"
	ActionListingActivated     Action = "listing.activated"
	ActionListingDeleted       Action = "listing.deleted"
	ActionVerificationSubmit   Action = "verification.submitted"
	ActionVerificationApproved Action = "verification.approved"
	ActionVerificationRejected Action = "verification.rejected"
	ActionUserRoleChanged      Action = "user.role_changed"
	ActionUserDeleted          Action = "user.deleted"
)

// Event is one audit record. ActorID is nil for anonymous submissions.
type Event struct {
	ID          uuid.UUID         `json:"id"`
	Action      Action            `json:"action"`
	ActorID     *id.UserID        `json:"actor_id,omitempty"`
	SubjectType string            `json:"subject_type"`
	SubjectID   string            `json:"subject_id"`
	Detail      map[string]string `json:"detail,omitempty"`
	OccurredAt  time.Time         `json:"occurred_at"`
	PublishedAt *time.Time        `json:"-"`
}
