// Package isocache memoizes per-(category, location) load results so a
// repeated query never repeats source or layer setup.
package isocache

import (
	"context"
	"sync"

	"github.com/PhilipMathieu/coffee-milk-beer/internal/core/model"
)

// Store persists result descriptors for one map session. Entries never
// expire; eviction happens only through Clear.
type Store interface {
	Get(ctx context.Context, key string) (model.ResultDescriptor, bool, error)
	Set(ctx context.Context, key string, desc model.ResultDescriptor) error
	Entries(ctx context.Context) ([]model.ResultDescriptor, error)
	Clear(ctx context.Context) error
}

// MemoryStore is the default session-scoped store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]model.ResultDescriptor
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]model.ResultDescriptor)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (model.ResultDescriptor, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.entries[key]
	return d, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, desc model.ResultDescriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = desc
	return nil
}

func (s *MemoryStore) Entries(_ context.Context) ([]model.ResultDescriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ResultDescriptor, 0, len(s.entries))
	for _, d := range s.entries {
		out = append(out, d)
	}
	return out, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]model.ResultDescriptor)
	return nil
}
