package dedupe

import (
	"context"
	"sync"
)

const defaultMemoryCapacity = 4096

// MemoryStore is an in-process SeenStore with a hard capacity. Once the
// capacity is reached the oldest identifiers are evicted first, so memory
// stays bounded over a long-running watch. Size the capacity to exceed
// the largest window a single poll can return by a comfortable margin.
type MemoryStore struct {
	mu       sync.Mutex
	capacity int
	ids      map[string]struct{}
	order    []string
}

// NewMemoryStore creates a store holding at most capacity identifiers.
// Zero or negative capacity falls back to a default of 4096.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &MemoryStore{
		capacity: capacity,
		ids:      make(map[string]struct{}, capacity),
	}
}

func (s *MemoryStore) HasSeen(ctx context.Context, id string) (bool, error) {
	_ = ctx
	if id == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok, nil
}

func (s *MemoryStore) MarkSeen(ctx context.Context, id string) error {
	_ = ctx
	if id == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insert(id)
	return nil
}

func (s *MemoryStore) MarkSeenBatch(ctx context.Context, ids []string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if id == "" {
			continue
		}
		s.insert(id)
	}
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// Len reports the current number of tracked identifiers.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

func (s *MemoryStore) insert(id string) {
	if _, ok := s.ids[id]; ok {
		return
	}
	for len(s.ids) >= s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.ids, oldest)
	}
	s.ids[id] = struct{}{}
	s.order = append(s.order, id)
}
