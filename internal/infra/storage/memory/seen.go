package memory

import (
	"context"
	"sync"

	"rentboard/internal/app/policies"
)

// SeenStore remembers consumed event ids for the process lifetime.
type SeenStore struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func NewSeenStore() *SeenStore {
	return &SeenStore{ids: make(map[string]struct{})}
}

func (s *SeenStore) Seen(ctx context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[eventID]
	return ok, nil
}

func (s *SeenStore) MarkSeen(ctx context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[eventID] = struct{}{}
	return nil
}

var _ policies.Deduplicator = (*SeenStore)(nil)
