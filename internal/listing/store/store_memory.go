package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"carteret/internal/listing"
	id "carteret/pkg/domain"
	dErrors "carteret/pkg/domain-errors"
)

// MemoryStore is an in-memory ListingStore for tests and local development.
// Owner existence is checked against an optional owner set so the stale
// session behavior of the Postgres store can be exercised.
type MemoryStore struct {
	mu       sync.RWMutex
	listings map[id.ListingID]*listing.Listing
	owners   map[id.UserID]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		listings: make(map[id.ListingID]*listing.Listing),
	}
}

// RequireOwners makes Insert enforce owner existence against the given set,
// mirroring the foreign key on the Postgres store.
func (s *MemoryStore) RequireOwners(ownerIDs ...id.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owners == nil {
		s.owners = make(map[id.UserID]struct{})
	}
	for _, ownerID := range ownerIDs {
		s.owners[ownerID] = struct{}{}
	}
}

func (s *MemoryStore) Insert(_ context.Context, l *listing.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.listings[l.ID]; ok {
		return dErrors.New(dErrors.CodeConflict, "listing already exists")
	}
	if l.OwnerID != nil && s.owners != nil {
		if _, ok := s.owners[*l.OwnerID]; !ok {
			return dErrors.New(dErrors.CodeStaleSession, "listing owner does not exist")
		}
	}

	cp := cloneListing(l)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	cp.UpdatedAt = cp.CreatedAt
	s.listings[cp.ID] = cp
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, listingID id.ListingID) (*listing.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.listings[listingID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "listing not found")
	}
	return cloneListing(l), nil
}

func (s *MemoryStore) List(_ context.Context, filter listing.Filter) ([]*listing.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*listing.Listing
	for _, l := range s.listings {
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		if filter.City != "" && !strings.EqualFold(l.City, filter.City) {
			continue
		}
		if filter.Query != "" {
			q := strings.ToLower(filter.Query)
			if !strings.Contains(strings.ToLower(l.Name), q) &&
				!strings.Contains(strings.ToLower(l.Description), q) {
				continue
			}
		}
		out = append(out, cloneListing(l))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, listingID id.ListingID, from, to listing.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.listings[listingID]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "listing not found")
	}
	if l.Status != from {
		return dErrors.Newf(dErrors.CodeConflict, "listing is %s, expected %s", l.Status, from)
	}
	l.Status = to
	l.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) SetBadge(_ context.Context, listingID id.ListingID, badge listing.Badge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.listings[listingID]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "listing not found")
	}
	l.Badge = badge
	l.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, listingID id.ListingID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.listings[listingID]; !ok {
		return dErrors.New(dErrors.CodeNotFound, "listing not found")
	}
	delete(s.listings, listingID)
	return nil
}

func cloneListing(l *listing.Listing) *listing.Listing {
	cp := *l
	if l.Hours != nil {
		cp.Hours = make(map[string]string, len(l.Hours))
		for k, v := range l.Hours {
			cp.Hours[k] = v
		}
	}
	if l.Attributes != nil {
		cp.Attributes = make(map[string]bool, len(l.Attributes))
		for k, v := range l.Attributes {
			cp.Attributes[k] = v
		}
	}
	if l.OwnerID != nil {
		ownerID := *l.OwnerID
		cp.OwnerID = &ownerID
	}
	return &cp
}
