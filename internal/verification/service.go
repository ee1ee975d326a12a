package verification

import (
	"context"
	"log/slog"
	"time"

	"carteret/internal/audit"
	"carteret/internal/authz"
	"carteret/internal/identity"
	"carteret/internal/platform/metrics"
	id "carteret/pkg/domain"
	dErrors "carteret/pkg/domain-errors"
)

// VerificationStore persists verification requests. Implementations live in
// the store subpackage.
//
// Approve and Reject are compare-and-sets on the submitted status; a request
// already decided answers CodeConflict. Approve additionally flips the
// listing badge to verified atomically with the status change and returns
// the affected listing.
type VerificationStore interface {
	Insert(ctx context.Context, v *Verification) error
	FindByID(ctx context.Context, verificationID id.VerificationID) (*Verification, error)
	List(ctx context.Context, limit int) ([]*Verification, error)
	Approve(ctx context.Context, verificationID id.VerificationID, reviewerID id.UserID, reviewedAt time.Time) (id.ListingID, error)
	Reject(ctx context.Context, verificationID id.VerificationID, reviewerID id.UserID, notes string, reviewedAt time.Time) error
}

// Service drives the verification workflow: owners submit requests with
// supporting documents, admins decide them.
type Service struct {
	store   VerificationStore
	gate    *authz.Gate
	audit   audit.Recorder
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(st VerificationStore, gate *authz.Gate, recorder audit.Recorder, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:   st,
		gate:    gate,
		audit:   recorder,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Submit files a verification request on behalf of the acting identity. The
// requester is always the caller; there is no submitting on someone else's
// behalf. Anonymous callers cannot request verification.
func (s *Service) Submit(ctx context.Context, ident *identity.Identity, in SubmitInput) (*Verification, error) {
	if ident == nil {
		return nil, dErrors.New(dErrors.CodePermissionDenied, "not allowed")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	v := &Verification{
		ID:            id.NewVerificationID(),
		ListingID:     in.ListingID,
		RequesterID:   ident.ID,
		EntityType:    in.EntityType,
		Notes:         in.Notes,
		DocumentPaths: in.DocumentPaths,
		Status:        StatusSubmitted,
	}

	if err := s.store.Insert(ctx, v); err != nil {
		return nil, err
	}

	requesterID := ident.ID
	s.audit.Record(ctx, audit.ActionVerificationSubmit, &requesterID, "verification", v.ID.String(), map[string]string{
		"listing_id":  v.ListingID.String(),
		"entity_type": v.EntityType,
	})
	s.logger.Info("verification submitted",
		"verification_id", v.ID.String(), "listing_id", v.ListingID.String())
	return s.store.FindByID(ctx, v.ID)
}

// Approve decides a submitted request and marks the listing verified. The
// badge flip rides in the same transaction as the decision.
func (s *Service) Approve(ctx context.Context, ident *identity.Identity, verificationID id.VerificationID) error {
	if err := s.gate.Require(ident, authz.ActionReviewVerification); err != nil {
		return err
	}

	listingID, err := s.store.Approve(ctx, verificationID, ident.ID, s.now().UTC())
	if err != nil {
		return err
	}

	s.metrics.VerificationReviews.WithLabelValues("approved").Inc()
	reviewerID := ident.ID
	s.audit.Record(ctx, audit.ActionVerificationApproved, &reviewerID, "verification", verificationID.String(), map[string]string{
		"listing_id": listingID.String(),
	})
	s.logger.Info("verification approved",
		"verification_id", verificationID.String(), "listing_id", listingID.String())
	return nil
}

// Reject decides a submitted request without touching the listing.
func (s *Service) Reject(ctx context.Context, ident *identity.Identity, verificationID id.VerificationID, notes string) error {
	if err := s.gate.Require(ident, authz.ActionReviewVerification); err != nil {
		return err
	}

	if err := s.store.Reject(ctx, verificationID, ident.ID, notes, s.now().UTC()); err != nil {
		return err
	}

	s.metrics.VerificationReviews.WithLabelValues("rejected").Inc()
	reviewerID := ident.ID
	s.audit.Record(ctx, audit.ActionVerificationRejected, &reviewerID, "verification", verificationID.String(), nil)
	s.logger.Info("verification rejected", "verification_id", verificationID.String())
	return nil
}

// AdminList returns the most recent verification requests.
func (s *Service) AdminList(ctx context.Context, ident *identity.Identity, limit int) ([]*Verification, error) {
	if err := s.gate.Require(ident, authz.ActionViewDashboard); err != nil {
		return nil, err
	}
	return s.store.List(ctx, limit)
}
