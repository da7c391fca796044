// Package memory provides an in-process preferences store.
package memory

import (
	"context"
	"sync"

	"github.com/xenking/product-detail/internal/domain/prefs"
)

var _ prefs.Store = (*PrefsStore)(nil)

// PrefsStore keeps preferences in a map. Contents are lost on exit.
type PrefsStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewPrefsStore returns a store seeded with a copy of initial.
func NewPrefsStore(initial map[string]string) *PrefsStore {
	values := make(map[string]string, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &PrefsStore{values: values}
}

// Get returns the value for key or prefs.ErrNotFound.
func (s *PrefsStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return "", prefs.ErrNotFound
	}
	return v, nil
}

// Set stores value under key.
func (s *PrefsStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *PrefsStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}
