// Package cache provides the key-value stores behind the response cache.
//
// A Store only needs GET and SETEX semantics: string keys, string values and
// a per-write expiry. Redis satisfies it in production; MemoryStore backs
// tests and single-node deployments.
package cache

import (
	"context"
	"errors"
	"time"
)

// Store is a key-value store with per-entry expiry.
type Store interface {
	// Get returns the value stored under key. A missing or expired key
	// returns found=false and a nil error.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// SetEX stores value under key for ttl, replacing any previous value.
	SetEX(ctx context.Context, key, value string, ttl time.Duration) error
}

// Pinger is implemented by stores that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Backend names accepted by the process profile.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// ErrInvalidTTL is returned by SetEX for a non-positive expiry.
var ErrInvalidTTL = errors.New("cache: ttl must be positive")
