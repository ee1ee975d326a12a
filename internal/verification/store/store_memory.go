package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"carteret/internal/listing"
	liststore "carteret/internal/listing/store"
	"carteret/internal/verification"
	id "carteret/pkg/domain"
	dErrors "carteret/pkg/domain-errors"
)

// MemoryStore is an in-memory VerificationStore for tests. It shares the
// in-memory listing store so approvals can flip the badge the way the
// Postgres transaction does.
type MemoryStore struct {
	mu       sync.Mutex
	requests map[id.VerificationID]*verification.Verification
	listings *liststore.MemoryStore
}

func NewMemoryStore(listings *liststore.MemoryStore) *MemoryStore {
	return &MemoryStore{
		requests: make(map[id.VerificationID]*verification.Verification),
		listings: listings,
	}
}

func (s *MemoryStore) Insert(ctx context.Context, v *verification.Verification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[v.ID]; ok {
		return dErrors.New(dErrors.CodeConflict, "verification already exists")
	}
	if s.listings != nil {
		if _, err := s.listings.FindByID(ctx, v.ListingID); err != nil {
			return dErrors.New(dErrors.CodeNotFound, "listing not found")
		}
	}

	cp := cloneVerification(v)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.requests[cp.ID] = cp
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, verificationID id.VerificationID) (*verification.Verification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.requests[verificationID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "verification not found")
	}
	return cloneVerification(v), nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]*verification.Verification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*verification.Verification, 0, len(s.requests))
	for _, v := range s.requests {
		out = append(out, cloneVerification(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Approve(ctx context.Context, verificationID id.VerificationID, reviewerID id.UserID, reviewedAt time.Time) (id.ListingID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.requests[verificationID]
	if !ok {
		return id.ListingID{}, dErrors.New(dErrors.CodeNotFound, "verification not found")
	}
	if v.Status != verification.StatusSubmitted {
		return id.ListingID{}, dErrors.Newf(dErrors.CodeConflict, "verification is already %s", v.Status)
	}

	if s.listings != nil {
		if err := s.listings.SetBadge(ctx, v.ListingID, listing.BadgeVerified); err != nil {
			return id.ListingID{}, err
		}
	}
	v.Status = verification.StatusApproved
	v.ReviewerID = &reviewerID
	ts := reviewedAt
	v.ReviewedAt = &ts
	return v.ListingID, nil
}

func (s *MemoryStore) Reject(_ context.Context, verificationID id.VerificationID, reviewerID id.UserID, notes string, reviewedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.requests[verificationID]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "verification not found")
	}
	if v.Status != verification.StatusSubmitted {
		return dErrors.Newf(dErrors.CodeConflict, "verification is already %s", v.Status)
	}

	v.Status = verification.StatusRejected
	v.ReviewerID = &reviewerID
	if notes != "" {
		v.Notes = notes
	}
	ts := reviewedAt
	v.ReviewedAt = &ts
	return nil
}

func cloneVerification(v *verification.Verification) *verification.Verification {
	cp := *v
	if v.DocumentPaths != nil {
		cp.DocumentPaths = append([]string(nil), v.DocumentPaths...)
	}
	if v.ReviewerID != nil {
		reviewerID := *v.ReviewerID
		cp.ReviewerID = &reviewerID
	}
	if v.ReviewedAt != nil {
		ts := *v.ReviewedAt
		cp.ReviewedAt = &ts
	}
	return &cp
}
