package settings

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory flags store for tests and local dev.
type MemoryStore struct {
	mu    sync.RWMutex
	flags Flags
}

// NewMemoryStore returns a store with extraction enabled.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{flags: Flags{ExtractionEnabled: true}}
}

// Set replaces the flags.
func (s *MemoryStore) Set(f Flags) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags = f
}

// Flags returns the current flags.
func (s *MemoryStore) Flags(ctx context.Context) (Flags, error) {
	if err := ctx.Err(); err != nil {
		return Flags{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags, nil
}

var _ Store = (*MemoryStore)(nil)
