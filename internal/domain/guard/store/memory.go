package store

import (
	"context"
	"sync"
	"time"
)

type memoryStore struct {
	mutex    sync.RWMutex
	failures map[string][]time.Time
}

// NewMemory builds an in-memory failure store. Suitable for single
// process deployments and tests.
func NewMemory() FailureStore {
	return &memoryStore{failures: make(map[string][]time.Time)}
}

func (s *memoryStore) Append(_ context.Context, identifier string, at time.Time) error {
	s.mutex.Lock()
	s.failures[identifier] = append(s.failures[identifier], at)
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) List(_ context.Context, identifier string) ([]time.Time, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	stamps := s.failures[identifier]
	out := make([]time.Time, len(stamps))
	copy(out, stamps)
	return out, nil
}

func (s *memoryStore) Prune(_ context.Context, identifier string, cutoff time.Time) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	stamps := s.failures[identifier]
	kept := stamps[:0]
	for _, at := range stamps {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	if len(kept) == 0 {
		delete(s.failures, identifier)
		return nil
	}
	s.failures[identifier] = kept
	return nil
}

func (s *memoryStore) Clear(_ context.Context, identifier string) error {
	s.mutex.Lock()
	delete(s.failures, identifier)
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Close(_ context.Context) error {
	return nil
}
