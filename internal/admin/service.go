// Package admin backs the moderation dashboard: recent activity across
// listings, verifications and accounts, plus user management.
package admin

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"carteret/internal/audit"
	"carteret/internal/authz"
	"carteret/internal/identity"
	identitystore "carteret/internal/identity/store"
	"carteret/internal/listing"
	"carteret/internal/objectstore"
	photostore "carteret/internal/photo/store"
	"carteret/internal/verification"
	id "carteret/pkg/domain"
	dErrors "carteret/pkg/domain-errors"
)

// recentLimit caps each dashboard panel.
const recentLimit = 50

// Dashboard is the landing view for moderators.
type Dashboard struct {
	Listings      []*listing.Listing
	Verifications []*verification.Verification
	Users         []*identity.User
}

// Service exposes the admin surface. Every entry point goes through the
// moderation gate with the caller's freshly resolved identity.
type Service struct {
	users         identitystore.UserStore
	listings      *listing.Service
	verifications *verification.Service
	photos        photostore.PhotoStore
	objects       objectstore.Store
	gate          *authz.Gate
	audit         audit.Recorder
	logger        *slog.Logger
}

func NewService(users identitystore.UserStore, listings *listing.Service, verifications *verification.Service,
	photos photostore.PhotoStore, objects objectstore.Store, gate *authz.Gate, recorder audit.Recorder, logger *slog.Logger) *Service {
	return &Service{
		users:         users,
		listings:      listings,
		verifications: verifications,
		photos:        photos,
		objects:       objects,
		gate:          gate,
		audit:         recorder,
		logger:        logger,
	}
}

// Dashboard loads the three recent-activity panels concurrently.
func (s *Service) Dashboard(ctx context.Context, ident *identity.Identity) (*Dashboard, error) {
	if err := s.gate.Require(ident, authz.ActionViewDashboard); err != nil {
		return nil, err
	}

	var dash Dashboard
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		listings, err := s.listings.AdminList(ctx, ident, recentLimit)
		dash.Listings = listings
		return err
	})
	g.Go(func() error {
		verifications, err := s.verifications.AdminList(ctx, ident, recentLimit)
		dash.Verifications = verifications
		return err
	})
	g.Go(func() error {
		users, err := s.users.List(ctx, recentLimit)
		dash.Users = users
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &dash, nil
}

// ChangeRole sets a user's role.
func (s *Service) ChangeRole(ctx context.Context, ident *identity.Identity, userID id.UserID, role identity.Role) error {
	if err := s.gate.Require(ident, authz.ActionManageUsers); err != nil {
		return err
	}
	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		return err
	}

	actorID := ident.ID
	s.audit.Record(ctx, audit.ActionUserRoleChanged, &actorID, "user", userID.String(), map[string]string{
		"role": string(role),
	})
	s.logger.Info("user role changed", "user_id", userID.String(), "role", string(role))
	return nil
}

// DeleteUser removes an account. Admin accounts cannot be deleted; demote
// first, then delete.
func (s *Service) DeleteUser(ctx context.Context, ident *identity.Identity, userID id.UserID) error {
	if err := s.gate.Require(ident, authz.ActionManageUsers); err != nil {
		return err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Role == identity.RoleAdmin {
		return dErrors.New(dErrors.CodeConflict, "admin accounts cannot be deleted")
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}

	actorID := ident.ID
	s.audit.Record(ctx, audit.ActionUserDeleted, &actorID, "user", userID.String(), nil)
	s.logger.Info("user deleted", "user_id", userID.String())
	return nil
}

// DeleteListing removes a listing together with its photo rows and stored
// objects. Object cleanup is best effort; a leaked object is cheaper than a
// half-deleted listing.
func (s *Service) DeleteListing(ctx context.Context, ident *identity.Identity, listingID id.ListingID) error {
	if err := s.gate.Require(ident, authz.ActionDeleteListing); err != nil {
		return err
	}

	photos, err := s.photos.ListByListing(ctx, listingID)
	if err != nil {
		return err
	}

	if err := s.listings.Delete(ctx, ident, listingID); err != nil {
		return err
	}
	if err := s.photos.DeleteByListing(ctx, listingID); err != nil {
		s.logger.Warn("failed to delete photo rows", "listing_id", listingID.String(), "error", err)
	}
	for _, p := range photos {
		if err := s.objects.Delete(ctx, p.StoragePath); err != nil {
			s.logger.Warn("failed to delete stored object", "key", p.StoragePath, "error", err)
		}
	}
	return nil
}
