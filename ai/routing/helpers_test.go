package routing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hrygo/triage/ai/cache"
)

// countingStore wraps a store and counts round-trips.
type countingStore struct {
	cache.Store
	mu   sync.Mutex
	gets int
	sets int
}

func newCountingStore() *countingStore {
	return &countingStore{Store: cache.NewMemoryStore(100)}
}

func (s *countingStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	s.gets++
	s.mu.Unlock()
	return s.Store.Get(ctx, key)
}

func (s *countingStore) SetEX(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	s.sets++
	s.mu.Unlock()
	return s.Store.SetEX(ctx, key, value, ttl)
}

func (s *countingStore) counts() (gets, sets int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets, s.sets
}

var errStoreDown = errors.New("connection refused")

// failingStore is a store whose backend is unreachable.
type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errStoreDown
}

func (failingStore) SetEX(context.Context, string, string, time.Duration) error {
	return errStoreDown
}

// slowStore blocks until the lookup context is done.
type slowStore struct{}

func (slowStore) Get(ctx context.Context, _ string) (string, bool, error) {
	<-ctx.Done()
	return "", false, ctx.Err()
}

func (slowStore) SetEX(ctx context.Context, _, _ string, _ time.Duration) error {
	<-ctx.Done()
	return ctx.Err()
}

// ttlStore records the ttl of every write.
type ttlStore struct {
	cache.Store
	ttls []time.Duration
}

func (s *ttlStore) SetEX(ctx context.Context, key, value string, ttl time.Duration) error {
	s.ttls = append(s.ttls, ttl)
	return s.Store.SetEX(ctx, key, value, ttl)
}

type cacheEvent struct {
	op     string
	intent Intent
	result CacheResult
}

type recordingCacheObserver struct {
	mu     sync.Mutex
	events []cacheEvent
}

func (o *recordingCacheObserver) ObserveCacheLookup(intent Intent, result CacheResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, cacheEvent{"lookup", intent, result})
}

func (o *recordingCacheObserver) ObserveCacheWrite(intent Intent, result CacheResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, cacheEvent{"write", intent, result})
}

func (o *recordingCacheObserver) last() cacheEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.events) == 0 {
		return cacheEvent{}
	}
	return o.events[len(o.events)-1]
}
