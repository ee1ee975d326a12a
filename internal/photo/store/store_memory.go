package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"carteret/internal/photo"
	id "carteret/pkg/domain"
	dErrors "carteret/pkg/domain-errors"
)

// MemoryStore is an in-memory PhotoStore for tests.
type MemoryStore struct {
	mu     sync.Mutex
	photos map[id.PhotoID]*photo.Photo
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{photos: make(map[id.PhotoID]*photo.Photo)}
}

func (s *MemoryStore) Insert(_ context.Context, p *photo.Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.photos[p.ID]; ok {
		return dErrors.New(dErrors.CodeConflict, "photo already exists")
	}
	cp := *p
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.photos[cp.ID] = &cp
	return nil
}

func (s *MemoryStore) ListByListing(_ context.Context, listingID id.ListingID) ([]*photo.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*photo.Photo
	for _, p := range s.photos {
		if p.ListingID == listingID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) DeleteByListing(_ context.Context, listingID id.ListingID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for photoID, p := range s.photos {
		if p.ListingID == listingID {
			delete(s.photos, photoID)
		}
	}
	return nil
}
