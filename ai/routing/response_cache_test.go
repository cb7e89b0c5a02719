package routing

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/triage/ai/cache"
)

func TestCacheKey(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		want       string
	}{
		{"simple", "where is parking", "intent:I7:where_is_parking"},
		{"trim and lower", "  Where IS Parking \n", "intent:I7:where_is_parking"},
		{"whitespace runs collapse", "where \t is\n\nparking", "intent:I7:where_is_parking"},
		{"empty", "", "intent:I7:"},
		{
			"truncated to 50 runes",
			"what are your opening time and closing time on saturdays and sundays",
			"intent:I7:what_are_your_opening_time_and_closing_time_on_sat",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CacheKey("intent", "I7", tt.transcript, 50))
		})
	}
}

func TestCacheKey_PrefixCollision(t *testing.T) {
	base := strings.Repeat("a", 50)
	k1 := CacheKey("intent", "I8", base+" first question", 50)
	k2 := CacheKey("intent", "I8", base+" second question", 50)
	assert.Equal(t, k1, k2)

	// Different intents never share a key.
	assert.NotEqual(t, k1, CacheKey("intent", "I6", base, 50))
}

func TestResponseCache_PutGet(t *testing.T) {
	ctx := context.Background()
	rc := NewResponseCache(cache.NewMemoryStore(100), DefaultTable())

	rc.Put(ctx, "I7", "where is your parking", "Parking is in basement B2.", 0)

	got, ok := rc.Get(ctx, "I7", "where is your parking")
	require.True(t, ok)
	assert.Equal(t, "Parking is in basement B2.", got)

	got, ok = rc.Get(ctx, "I7", "  WHERE is   your parking ")
	require.True(t, ok, "normalized transcripts share the entry")
	assert.Equal(t, "Parking is in basement B2.", got)

	_, ok = rc.Get(ctx, "I7", "what is your address")
	assert.False(t, ok)
}

func TestResponseCache_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	rc := NewResponseCache(cache.NewMemoryStore(100), DefaultTable())

	rc.Put(ctx, "I6", "how much is cleaning", "1500", time.Hour)
	rc.Put(ctx, "I6", "how much is cleaning", "1800", time.Hour)

	got, ok := rc.Get(ctx, "I6", "how much is cleaning")
	require.True(t, ok)
	assert.Equal(t, "1800", got)
}

func TestResponseCache_NonCacheableNeverTouchesStore(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	obs := &recordingCacheObserver{}
	rc := NewResponseCache(store, DefaultTable(), WithCacheObserver(obs))

	for _, intent := range []Intent{"I1", "I3", "I5", "I99", "I15", IntentNone} {
		rc.Put(ctx, intent, "some transcript", "answer", time.Hour)
		assert.Equal(t, cacheEvent{"write", intent, CacheSkipped}, obs.last())

		_, ok := rc.Get(ctx, intent, "some transcript")
		assert.False(t, ok)
		assert.Equal(t, cacheEvent{"lookup", intent, CacheSkipped}, obs.last())
		assert.False(t, rc.Cacheable(intent))
	}

	gets, sets := store.counts()
	assert.Zero(t, gets)
	assert.Zero(t, sets)
}

func TestResponseCache_DefaultTTL(t *testing.T) {
	ctx := context.Background()
	store := &ttlStore{Store: cache.NewMemoryStore(10)}
	rc := NewResponseCache(store, DefaultTable())

	rc.Put(ctx, "I8", "is it covered", "yes", 0)
	rc.Put(ctx, "I8", "is it covered", "yes", -time.Minute)
	rc.Put(ctx, "I8", "is it covered", "yes", time.Minute)

	assert.Equal(t, []time.Duration{24 * time.Hour, 24 * time.Hour, time.Minute}, store.ttls)
}

func TestResponseCache_EmptyValueIsMiss(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemoryStore(10)
	obs := &recordingCacheObserver{}
	rc := NewResponseCache(mem, DefaultTable(), WithCacheObserver(obs))

	require.NoError(t, mem.SetEX(ctx, rc.Key("I7", "parking"), "", time.Hour))
	_, ok := rc.Get(ctx, "I7", "parking")
	assert.False(t, ok)
	assert.Equal(t, cacheEvent{"lookup", "I7", CacheMiss}, obs.last())

	rc.Put(ctx, "I7", "parking", "", time.Hour)
	assert.Equal(t, cacheEvent{"write", "I7", CacheSkipped}, obs.last())
}

func TestResponseCache_StoreFailureIsMiss(t *testing.T) {
	ctx := context.Background()
	obs := &recordingCacheObserver{}
	rc := NewResponseCache(failingStore{}, DefaultTable(), WithCacheObserver(obs))

	assert.NotPanics(t, func() {
		rc.Put(ctx, "I7", "parking", "B2", time.Hour)
	})
	assert.Equal(t, cacheEvent{"write", "I7", CacheError}, obs.last())

	_, ok := rc.Get(ctx, "I7", "parking")
	assert.False(t, ok)
	assert.Equal(t, cacheEvent{"lookup", "I7", CacheError}, obs.last())
}

func TestResponseCache_LookupTimeout(t *testing.T) {
	table := DefaultTable()
	table.Cache.LookupTimeout = 20 * time.Millisecond
	obs := &recordingCacheObserver{}
	rc := NewResponseCache(slowStore{}, table, WithCacheObserver(obs))

	start := time.Now()
	_, ok := rc.Get(context.Background(), "I7", "parking")
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, cacheEvent{"lookup", "I7", CacheError}, obs.last())
}

func TestResponseCache_WriteTimeout(t *testing.T) {
	table := DefaultTable()
	table.Cache.WriteTimeout = 20 * time.Millisecond
	obs := &recordingCacheObserver{}
	rc := NewResponseCache(slowStore{}, table, WithCacheObserver(obs))

	start := time.Now()
	rc.Put(context.Background(), "I7", "parking", "Basement B2", time.Hour)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, cacheEvent{"write", "I7", CacheError}, obs.last())
}

func TestResponseCache_CallerCancellation(t *testing.T) {
	table := DefaultTable()
	table.Cache.LookupTimeout = time.Second
	rc := NewResponseCache(slowStore{}, table)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, ok := rc.Get(ctx, "I7", "parking")
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestResponseCache_NilStoreDisablesCache(t *testing.T) {
	rc := NewResponseCache(nil, DefaultTable())

	rc.Put(context.Background(), "I7", "parking", "B2", time.Hour)
	_, ok := rc.Get(context.Background(), "I7", "parking")
	assert.False(t, ok)
	assert.False(t, rc.Cacheable("I7"))
}

func TestResponseCache_ConcurrentGets(t *testing.T) {
	ctx := context.Background()
	rc := NewResponseCache(cache.NewMemoryStore(100), DefaultTable())
	rc.Put(ctx, "I9", "do you have emi option", "Yes, 0% EMI for 6 months.", time.Hour)

	var wg sync.WaitGroup
	results := make([]string, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = rc.Get(ctx, "I9", "do you have emi option")
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "Yes, 0% EMI for 6 months.", r)
	}
}
