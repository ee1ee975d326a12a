package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"carteret/internal/audit"
)

// MemoryStore is an in-memory outbox for tests.
type MemoryStore struct {
	mu     sync.Mutex
	events []*audit.Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Enqueue(_ context.Context, event *audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *event
	s.events = append(s.events, &cp)
	return nil
}

func (s *MemoryStore) FetchUnpublished(_ context.Context, limit int) ([]*audit.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*audit.Event
	for _, e := range s.events {
		if e.PublishedAt != nil {
			continue
		}
		cp := *e
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) MarkPublished(_ context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, eventID := range ids {
		set[eventID] = struct{}{}
	}
	for _, e := range s.events {
		if _, ok := set[e.ID]; ok {
			ts := now
			e.PublishedAt = &ts
		}
	}
	return nil
}

// All returns every enqueued event, for assertions.
func (s *MemoryStore) All() []*audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*audit.Event, 0, len(s.events))
	for _, e := range s.events {
		cp := *e
		out = append(out, &cp)
	}
	return out
}
