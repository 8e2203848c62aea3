package portfolio

import (
	"context"
	"sync"
)

// Store persists Holdings per owner (the authenticated user's email).
// Unknown owners have empty holdings. Add and Remove return the holdings
// after the change.
type Store interface {
	Get(ctx context.Context, owner string) (Holdings, error)
	Add(ctx context.Context, owner, symbol string) (Holdings, error)
	Remove(ctx context.Context, owner, symbol string) (Holdings, error)
}

// MemoryStore keeps holdings in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	owners map[string]Holdings
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{owners: make(map[string]Holdings)}
}

func (s *MemoryStore) Get(_ context.Context, owner string) (Holdings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owners[owner], nil
}

func (s *MemoryStore) Add(_ context.Context, owner, symbol string) (Holdings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.owners[owner].Add(symbol)
	if err != nil {
		return Holdings{}, err
	}
	s.owners[owner] = next
	return next, nil
}

func (s *MemoryStore) Remove(_ context.Context, owner, symbol string) (Holdings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.owners[owner].Remove(symbol)
	if err != nil {
		return Holdings{}, err
	}
	s.owners[owner] = next
	return next, nil
}
