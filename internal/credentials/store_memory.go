package credentials

import (
	"context"
	"sync"
)

// MemoryStore holds a single credentials set, for tests and local dev.
type MemoryStore struct {
	mu    sync.RWMutex
	creds *Credentials
}

// Set installs the active credentials.
func (s *MemoryStore) Set(c Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = &c
}

// Active returns the installed credentials or ErrNotConfigured.
func (s *MemoryStore) Active(ctx context.Context) (Credentials, error) {
	if err := ctx.Err(); err != nil {
		return Credentials{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds == nil {
		return Credentials{}, ErrNotConfigured
	}
	return *s.creds, nil
}

var _ Store = (*MemoryStore)(nil)
