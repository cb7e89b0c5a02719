package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store: an LRU list bounded by capacity where
// every entry also carries its own expiry.
type MemoryStore struct {
	entries  map[string]*memoryEntry
	order    *list.List
	capacity int
	now      func() time.Time
	mu       sync.Mutex
}

type memoryEntry struct {
	expiresAt time.Time
	element   *list.Element
	key       string
	value     string
}

// NewMemoryStore creates a store holding at most capacity entries
// (default 10000).
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = 10000
	}
	return &MemoryStore{
		entries:  make(map[string]*memoryEntry),
		order:    list.New(),
		capacity: capacity,
		now:      time.Now,
	}
}

var _ Store = (*MemoryStore)(nil)

// Get implements Store. Expired entries are removed on access.
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return "", false, nil
	}
	if !s.now().Before(e.expiresAt) {
		s.removeEntry(e)
		return "", false, nil
	}
	s.order.MoveToFront(e.element)
	return e.value, true, nil
}

// SetEX implements Store. A non-positive ttl stores nothing, matching
// Redis, which rejects such writes.
func (s *MemoryStore) SetEX(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt := s.now().Add(ttl)
	if e, ok := s.entries[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		s.order.MoveToFront(e.element)
		return nil
	}

	for len(s.entries) >= s.capacity {
		s.evictOldest()
	}

	e := &memoryEntry{key: key, value: value, expiresAt: expiresAt}
	e.element = s.order.PushFront(e)
	s.entries[key] = e
	return nil
}

// Ping implements Pinger; an in-process store is always reachable.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Len returns the number of stored entries, expired ones included until
// they are touched or cleaned up.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// CleanupExpired drops every expired entry and returns how many were removed.
func (s *MemoryStore) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for _, e := range s.entries {
		if !now.Before(e.expiresAt) {
			s.removeEntry(e)
			removed++
		}
	}
	return removed
}

// Must be called with lock held.
func (s *MemoryStore) evictOldest() {
	oldest := s.order.Back()
	if oldest == nil {
		return
	}
	if e, ok := oldest.Value.(*memoryEntry); ok {
		s.removeEntry(e)
	}
}

// Must be called with lock held.
func (s *MemoryStore) removeEntry(e *memoryEntry) {
	s.order.Remove(e.element)
	delete(s.entries, e.key)
}
