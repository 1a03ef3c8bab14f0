package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/hmm/pkg/domain"
)

// Store implements ports.ModelStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.ModelSpec
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.ModelSpec),
	}
}

// Save persists a copy of the spec in memory.
func (s *Store) Save(ctx context.Context, name string, spec *domain.ModelSpec) error {
	copied := spec.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = copied
	return nil
}

// Load retrieves a copy of the spec so callers can't mutate the stored one.
func (s *Store) Load(ctx context.Context, name string) (*domain.ModelSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	spec, ok := s.data[name]
	if !ok {
		return nil, domain.ErrModelNotFound
	}
	return spec.Clone(), nil
}

// Delete removes the spec.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, name)
	return nil
}

// List returns the stored model names in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
