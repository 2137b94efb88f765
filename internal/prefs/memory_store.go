package prefs

import (
	"context"
	"sync"

	"github.com/serhatipek/choreline/internal/domain"
)

// MemoryStore is an in-process Store for development and tests. Production
// deployments plug the household data store in behind the Store interface.
type MemoryStore struct {
	mu    sync.RWMutex
	byUID map[string]domain.Preferences
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byUID: make(map[string]domain.Preferences)}
}

func (s *MemoryStore) Set(userID string, preferences domain.Preferences) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUID[userID] = preferences
}

func (s *MemoryStore) Get(ctx context.Context, userID string) (domain.Preferences, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	preferences, ok := s.byUID[userID]
	return preferences, ok, nil
}
