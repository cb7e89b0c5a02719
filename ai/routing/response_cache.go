package routing

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/hrygo/triage/ai/cache"
	"github.com/hrygo/triage/ai/filter"
	"github.com/hrygo/triage/ai/internal/strutil"
	"github.com/hrygo/triage/ai/observability/logging"
)

// ResponseCache is the cache-first layer in front of the workflows.
// Only cacheable intents ever reach the store; store failures degrade to
// misses and are never returned to the caller.
type ResponseCache struct {
	store         cache.Store
	observer      CacheObserver
	logger        *slog.Logger
	cacheable     map[Intent]struct{}
	warn          *rate.Sometimes
	group         singleflight.Group
	namespace     string
	defaultTTL    time.Duration
	lookupTimeout time.Duration
	writeTimeout  time.Duration
	keyMaxLen     int
}

// CacheOption configures a ResponseCache.
type CacheOption func(*ResponseCache)

// WithCacheObserver reports lookups and writes to o.
func WithCacheObserver(o CacheObserver) CacheOption {
	return func(c *ResponseCache) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithCacheLogger sets the logger used when the request context carries none.
func WithCacheLogger(l *slog.Logger) CacheOption {
	return func(c *ResponseCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewResponseCache builds a cache over store using the table's allow-list
// and cache policy. A nil store disables caching: every lookup misses and
// every write is skipped.
func NewResponseCache(store cache.Store, table IntentTable, opts ...CacheOption) *ResponseCache {
	policy := table.Cache
	c := &ResponseCache{
		store:         store,
		observer:      nopCacheObserver{},
		logger:        slog.Default(),
		cacheable:     make(map[Intent]struct{}, len(table.Cacheable)),
		warn:          &rate.Sometimes{Interval: 30 * time.Second},
		namespace:     policy.Namespace,
		defaultTTL:    policy.DefaultTTL,
		lookupTimeout: policy.LookupTimeout,
		writeTimeout:  policy.WriteTimeout,
		keyMaxLen:     policy.KeyMaxLen,
	}
	if c.namespace == "" {
		c.namespace = DefaultCacheNamespace
	}
	if c.defaultTTL <= 0 {
		c.defaultTTL = DefaultCacheTTL
	}
	if c.lookupTimeout <= 0 {
		c.lookupTimeout = DefaultLookupTimeout
	}
	if c.writeTimeout <= 0 {
		c.writeTimeout = DefaultWriteTimeout
	}
	if c.keyMaxLen <= 0 {
		c.keyMaxLen = DefaultCacheKeyMaxLen
	}
	for _, code := range table.Cacheable {
		c.cacheable[code] = struct{}{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CacheKey derives the store key for (intent, transcript): the transcript is
// lowercased, trimmed, whitespace runs become "_", and only the first maxLen
// runes are kept. Transcripts sharing that prefix share an entry.
func CacheKey(namespace string, intent Intent, transcript string, maxLen int) string {
	text := strutil.CollapseSpace(normalizeInput(transcript), "_")
	var b strings.Builder
	b.WriteString(namespace)
	b.WriteByte(':')
	b.WriteString(string(intent))
	b.WriteByte(':')
	b.WriteString(strutil.Prefix(text, maxLen))
	return b.String()
}

// Key returns the store key this cache uses for (intent, transcript).
func (c *ResponseCache) Key(intent Intent, transcript string) string {
	return CacheKey(c.namespace, intent, transcript, c.keyMaxLen)
}

// Cacheable reports whether intent may be served from or written to the cache.
func (c *ResponseCache) Cacheable(intent Intent) bool {
	if c == nil || c.store == nil || !intent.Present() {
		return false
	}
	_, ok := c.cacheable[intent]
	return ok
}

// Get looks up a cached response. Concurrent lookups of the same key share
// one store round-trip. A store error, a timeout or an empty value is a miss.
func (c *ResponseCache) Get(ctx context.Context, intent Intent, transcript string) (string, bool) {
	if !c.Cacheable(intent) {
		if c != nil {
			c.observer.ObserveCacheLookup(intent, CacheSkipped)
		}
		return "", false
	}

	key := c.Key(intent, transcript)
	ch := c.group.DoChan(key, func() (any, error) {
		// Detached from the first caller so its cancellation does not fail
		// the callers sharing this flight.
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.lookupTimeout)
		defer cancel()

		value, found, err := c.store.Get(lctx, key)
		if err != nil {
			return "", err
		}
		if !found {
			return "", nil
		}
		return value, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		c.observer.ObserveCacheLookup(intent, CacheError)
		return "", false
	}

	if res.Err != nil {
		c.observer.ObserveCacheLookup(intent, CacheError)
		c.warn.Do(func() {
			logging.FromContextOr(ctx, c.logger).Warn("response cache lookup failed, treating as miss",
				"intent", intent,
				"key", strutil.Truncate(filter.Mask(key), 80),
				"error", res.Err,
			)
		})
		return "", false
	}

	value, _ := res.Val.(string)
	if value == "" {
		c.observer.ObserveCacheLookup(intent, CacheMiss)
		return "", false
	}

	c.observer.ObserveCacheLookup(intent, CacheHit)
	logging.FromContextOr(ctx, c.logger).Debug("response cache hit",
		"intent", intent,
		"input", strutil.Truncate(filter.Mask(transcript), 50),
		"shared", res.Shared,
	)
	return value, true
}

// Put stores response for (intent, transcript), bounded by the write
// timeout. A non-positive ttl uses the default TTL. Non-cacheable intents and empty responses are skipped; store
// errors are logged and dropped.
func (c *ResponseCache) Put(ctx context.Context, intent Intent, transcript, response string, ttl time.Duration) {
	if !c.Cacheable(intent) || response == "" {
		if c != nil {
			c.observer.ObserveCacheWrite(intent, CacheSkipped)
		}
		return
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	key := c.Key(intent, transcript)
	wctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()
	if err := c.store.SetEX(wctx, key, response, ttl); err != nil {
		c.observer.ObserveCacheWrite(intent, CacheError)
		c.warn.Do(func() {
			logging.FromContextOr(ctx, c.logger).Warn("response cache write failed",
				"intent", intent,
				"key", strutil.Truncate(filter.Mask(key), 80),
				"error", err,
			)
		})
		return
	}
	c.observer.ObserveCacheWrite(intent, CacheStored)
}
