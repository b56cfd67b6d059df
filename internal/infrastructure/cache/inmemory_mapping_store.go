package cache

import (
	"context"
	"sync"
	"time"
)

// storeEntry is a cached value with expiration
type storeEntry struct {
	value     []byte
	expiresAt time.Time
}

// InMemoryMappingStore implements MappingStore using an in-memory map.
// Suitable for single-instance deployments and testing; expired entries are
// swept by a background goroutine.
type InMemoryMappingStore struct {
	mu        sync.RWMutex
	entries   map[string]storeEntry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ MappingStore = (*InMemoryMappingStore)(nil)

// NewInMemoryMappingStore creates an in-memory store and starts its cleanup
// goroutine
func NewInMemoryMappingStore() *InMemoryMappingStore {
	store := &InMemoryMappingStore{
		entries:  make(map[string]storeEntry),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// Get implements MappingStore
func (s *InMemoryMappingStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.entries[key]
	if !exists || time.Now().After(e.expiresAt) {
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set implements MappingStore
func (s *InMemoryMappingStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = storeEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Delete implements MappingStore
func (s *InMemoryMappingStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// Close stops the cleanup goroutine
func (s *InMemoryMappingStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
	return nil
}

// Len returns the number of entries including expired ones not yet swept
func (s *InMemoryMappingStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// cleanupLoop periodically removes expired entries
func (s *InMemoryMappingStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopChan:
			return
		}
	}
}

// cleanup removes all expired entries
func (s *InMemoryMappingStore) cleanup() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}
