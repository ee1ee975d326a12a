//go:build integration

package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"carteret/internal/identity"
	idstore "carteret/internal/identity/store"
	"carteret/internal/listing"
	liststore "carteret/internal/listing/store"
	"carteret/internal/verification"
	"carteret/internal/verification/store"
	id "carteret/pkg/domain"
	dErrors "carteret/pkg/domain-errors"
	"carteret/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	listings *liststore.PostgresStore
	users    *idstore.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgresStore(s.postgres.DB)
	s.listings = liststore.NewPostgresStore(s.postgres.DB)
	s.users = idstore.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "audit_outbox", "verifications", "photos", "listings", "users")
	s.Require().NoError(err)
}

// seed creates a user, an owned pending listing, and a submitted
// verification for it.
func (s *PostgresStoreSuite) seed() (*identity.User, *listing.Listing, *verification.Verification) {
	ctx := context.Background()

	user := &identity.User{ID: id.NewUserID(), Email: "owner@example.com", Role: identity.RoleUser}
	s.Require().NoError(s.users.Insert(ctx, user))

	l := &listing.Listing{
		ID:      id.NewListingID(),
		Name:    "Harbor Grill",
		City:    "Carteret",
		Status:  listing.StatusPending,
		Badge:   listing.BadgeUnverified,
		OwnerID: &user.ID,
	}
	s.Require().NoError(s.listings.Insert(ctx, l))

	v := &verification.Verification{
		ID:            id.NewVerificationID(),
		ListingID:     l.ID,
		RequesterID:   user.ID,
		EntityType:    "restaurant",
		DocumentPaths: []string{"docs/license.pdf"},
		Status:        verification.StatusSubmitted,
	}
	s.Require().NoError(s.store.Insert(ctx, v))

	return user, l, v
}

// TestApproveFlipsBadge verifies that approval and the badge change land
// together: after Approve the listing is verified and the request carries
// the reviewer.
func (s *PostgresStoreSuite) TestApproveFlipsBadge() {
	ctx := context.Background()
	reviewer, l, v := s.seed()

	listingID, err := s.store.Approve(ctx, v.ID, reviewer.ID, time.Now())
	s.Require().NoError(err)
	s.Equal(l.ID, listingID)

	decided, err := s.store.FindByID(ctx, v.ID)
	s.Require().NoError(err)
	s.Equal(verification.StatusApproved, decided.Status)
	s.Require().NotNil(decided.ReviewerID)
	s.Equal(reviewer.ID, *decided.ReviewerID)
	s.NotNil(decided.ReviewedAt)

	badged, err := s.listings.FindByID(ctx, l.ID)
	s.Require().NoError(err)
	s.Equal(listing.BadgeVerified, badged.Badge)
}

// TestConcurrentDecisions verifies that an approve racing a reject admits
// exactly one winner, and the badge matches whoever won.
func (s *PostgresStoreSuite) TestConcurrentDecisions() {
	ctx := context.Background()
	reviewer, l, v := s.seed()

	var wg sync.WaitGroup
	var approveErr, rejectErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, approveErr = s.store.Approve(ctx, v.ID, reviewer.ID, time.Now())
	}()
	go func() {
		defer wg.Done()
		rejectErr = s.store.Reject(ctx, v.ID, reviewer.ID, "cannot confirm ownership", time.Now())
	}()
	wg.Wait()

	s.True((approveErr == nil) != (rejectErr == nil), "exactly one decision should win")

	decided, err := s.store.FindByID(ctx, v.ID)
	s.Require().NoError(err)

	badged, err := s.listings.FindByID(ctx, l.ID)
	s.Require().NoError(err)

	if approveErr == nil {
		s.True(dErrors.HasCode(rejectErr, dErrors.CodeConflict))
		s.Equal(verification.StatusApproved, decided.Status)
		s.Equal(listing.BadgeVerified, badged.Badge)
	} else {
		s.True(dErrors.HasCode(approveErr, dErrors.CodeConflict))
		s.Equal(verification.StatusRejected, decided.Status)
		s.Equal(listing.BadgeUnverified, badged.Badge)
	}
}

func (s *PostgresStoreSuite) TestRejectKeepsNotesWhenEmpty() {
	ctx := context.Background()
	reviewer, _, v := s.seed()

	_, err := s.postgres.DB.ExecContext(ctx,
		`UPDATE verifications SET notes = 'submitted with lease agreement' WHERE id = $1`,
		v.ID.String())
	s.Require().NoError(err)

	s.Require().NoError(s.store.Reject(ctx, v.ID, reviewer.ID, "", time.Now()))

	decided, err := s.store.FindByID(ctx, v.ID)
	s.Require().NoError(err)
	s.Equal(verification.StatusRejected, decided.Status)
	s.Equal("submitted with lease agreement", decided.Notes)
}

func (s *PostgresStoreSuite) TestDecideAlreadyDecided() {
	ctx := context.Background()
	reviewer, _, v := s.seed()

	_, err := s.store.Approve(ctx, v.ID, reviewer.ID, time.Now())
	s.Require().NoError(err)

	_, err = s.store.Approve(ctx, v.ID, reviewer.ID, time.Now())
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Contains(err.Error(), "approved")

	err = s.store.Reject(ctx, v.ID, reviewer.ID, "", time.Now())
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *PostgresStoreSuite) TestInsertForeignKeys() {
	ctx := context.Background()
	user, l, _ := s.seed()

	// Unknown listing.
	err := s.store.Insert(ctx, &verification.Verification{
		ID:            id.NewVerificationID(),
		ListingID:     id.NewListingID(),
		RequesterID:   user.ID,
		EntityType:    "restaurant",
		DocumentPaths: []string{"docs/license.pdf"},
		Status:        verification.StatusSubmitted,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	// Unknown requester.
	err = s.store.Insert(ctx, &verification.Verification{
		ID:            id.NewVerificationID(),
		ListingID:     l.ID,
		RequesterID:   id.NewUserID(),
		EntityType:    "restaurant",
		DocumentPaths: []string{"docs/license.pdf"},
		Status:        verification.StatusSubmitted,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeStaleSession))
}
