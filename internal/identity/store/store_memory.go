package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"carteret/internal/identity"
	id "carteret/pkg/domain"
	dErrors "carteret/pkg/domain-errors"
)

// MemoryStore is an in-memory UserStore for tests and local development.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[id.UserID]*identity.User
}

// NewMemoryStore creates an empty in-memory user store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[id.UserID]*identity.User)}
}

func (s *MemoryStore) Insert(_ context.Context, user *identity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return dErrors.New(dErrors.CodeConflict, "user already exists")
	}

	cp := *user
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	cp.UpdatedAt = cp.CreatedAt
	s.users[cp.ID] = &cp
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, userID id.UserID) (*identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	cp := *user
	return &cp, nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]*identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*identity.User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) UpdateRole(_ context.Context, userID id.UserID, role identity.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	user.Role = role
	user.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	delete(s.users, userID)
	return nil
}
