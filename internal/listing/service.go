package listing

import (
	"context"
	"log/slog"

	"carteret/internal/audit"
	"carteret/internal/authz"
	"carteret/internal/identity"
	"carteret/internal/platform/metrics"
	id "carteret/pkg/domain"
	dErrors "carteret/pkg/domain-errors"
)

const browseLimit = 100

// Service drives the listing lifecycle. New listings always start pending
// regardless of who submits them; moving between statuses goes through the
// moderation gate and a compare-and-set in the store.
type Service struct {
	store   ListingStore
	cache   *Cache
	gate    *authz.Gate
	audit   audit.Recorder
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewService(st ListingStore, cache *Cache, gate *authz.Gate, recorder audit.Recorder, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:   st,
		cache:   cache,
		gate:    gate,
		audit:   recorder,
		logger:  logger,
		metrics: m,
	}
}

// Create inserts a new pending, unverified listing. The owner may be nil;
// anonymous submissions are legal and simply have nobody to notify later.
func (s *Service) Create(ctx context.Context, in NewListingInput) (*Listing, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	l := &Listing{
		ID:           id.NewListingID(),
		Name:         in.Name,
		Description:  in.Description,
		City:         in.City,
		AddressLine1: in.AddressLine1,
		Phone:        in.Phone,
		Website:      in.Website,
		Email:        in.Email,
		Hours:        in.Hours,
		Attributes:   in.Attributes,
		PriceLevel:   in.PriceLevel,
		Status:       StatusPending,
		Badge:        BadgeUnverified,
		OwnerID:      in.OwnerID,
	}

	if err := s.store.Insert(ctx, l); err != nil {
		return nil, err
	}

	s.metrics.ListingsCreated.Inc()
	s.audit.Record(ctx, audit.ActionListingCreated, in.OwnerID, "listing", l.ID.String(), map[string]string{
		"name": l.Name,
		"city": l.City,
	})
	s.logger.Info("listing created", "listing_id", l.ID.String(), "city", l.City)
	return s.store.FindByID(ctx, l.ID)
}

// Get returns a listing regardless of status. Used by owners and admins.
func (s *Service) Get(ctx context.Context, listingID id.ListingID) (*Listing, error) {
	return s.store.FindByID(ctx, listingID)
}

// GetPublic returns a listing only when it is publicly visible. Pending,
// rejected and suspended listings answer not found, never their status.
func (s *Service) GetPublic(ctx context.Context, listingID id.ListingID) (*Listing, error) {
	l, err := s.store.FindByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if l.Status != StatusActive {
		return nil, dErrors.New(dErrors.CodeNotFound, "listing not found")
	}
	return l, nil
}

// Browse returns active listings, optionally narrowed by city and a free
// text query. Results are served from cache when possible.
func (s *Service) Browse(ctx context.Context, city, query string) ([]*Listing, error) {
	if cached := s.cache.Get(ctx, city, query); cached != nil {
		return cached, nil
	}

	listings, err := s.store.List(ctx, Filter{
		Status: StatusActive,
		City:   city,
		Query:  query,
		Limit:  browseLimit,
	})
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, city, query, listings)
	return listings, nil
}

// AdminList returns the most recent listings in any status.
func (s *Service) AdminList(ctx context.Context, ident *identity.Identity, limit int) ([]*Listing, error) {
	if err := s.gate.Require(ident, authz.ActionViewDashboard); err != nil {
		return nil, err
	}
	return s.store.List(ctx, Filter{Limit: limit})
}

// Approve moves a pending listing to active.
func (s *Service) Approve(ctx context.Context, ident *identity.Identity, listingID id.ListingID) error {
	return s.transition(ctx, ident, authz.ActionApproveListing, listingID,
		StatusPending, StatusActive, audit.ActionListingApproved)
}

// Reject moves a pending listing to rejected.
func (s *Service) Reject(ctx context.Context, ident *identity.Identity, listingID id.ListingID) error {
	return s.transition(ctx, ident, authz.ActionRejectListing, listingID,
		StatusPending, StatusRejected, audit.ActionListingRejected)
}

// Suspend moves an active listing to suspended.
func (s *Service) Suspend(ctx context.Context, ident *identity.Identity, listingID id.ListingID) error {
	return s.transition(ctx, ident, authz.ActionSuspendListing, listingID,
		StatusActive, StatusSuspended, audit.ActionListingSuspended)
}

// Reactivate moves a suspended listing back to active.
func (s *Service) Reactivate(ctx context.Context, ident *identity.Identity, listingID id.ListingID) error {
	return s.transition(ctx, ident, authz.ActionReactivateListing, listingID,
		StatusSuspended, StatusActive, audit.ActionListingReactivated)
}

func (s *Service) transition(ctx context.Context, ident *identity.Identity, action authz.Action,
	listingID id.ListingID, from, to Status, auditAction audit.Action) error {
	if err := s.gate.Require(ident, action); err != nil {
		return err
	}
	if !CanTransition(from, to) {
		return dErrors.Newf(dErrors.CodeConflict, "illegal transition %s -> %s", from, to)
	}

	if err := s.store.UpdateStatus(ctx, listingID, from, to); err != nil {
		return err
	}

	s.metrics.ListingTransitions.WithLabelValues(string(from), string(to)).Inc()
	actorID := ident.ID
	s.audit.Record(ctx, auditAction, &actorID, "listing", listingID.String(), nil)
	s.logger.Info("listing status changed",
		"listing_id", listingID.String(), "from", string(from), "to", string(to))
	s.cache.Invalidate(ctx)
	return nil
}

// Delete removes a listing and everything hanging off it.
func (s *Service) Delete(ctx context.Context, ident *identity.Identity, listingID id.ListingID) error {
	if err := s.gate.Require(ident, authz.ActionDeleteListing); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, listingID); err != nil {
		return err
	}

	actorID := ident.ID
	s.audit.Record(ctx, audit.ActionListingDeleted, &actorID, "listing", listingID.String(), nil)
	s.cache.Invalidate(ctx)
	return nil
}

// ConfirmPayment activates a pending listing after its fee clears. The
// callback can arrive more than once; an already active listing is success,
// any other state is a real conflict.
func (s *Service) ConfirmPayment(ctx context.Context, listingID id.ListingID) error {
	err := s.store.UpdateStatus(ctx, listingID, StatusPending, StatusActive)
	if err == nil {
		s.metrics.ListingTransitions.WithLabelValues(string(StatusPending), string(StatusActive)).Inc()
		s.audit.Record(ctx, audit.ActionListingActivated, nil, "listing", listingID.String(), nil)
		s.cache.Invalidate(ctx)
		return nil
	}

	if dErrors.HasCode(err, dErrors.CodeConflict) {
		current, findErr := s.store.FindByID(ctx, listingID)
		if findErr == nil && current.Status == StatusActive {
			return nil
		}
	}
	return err
}
