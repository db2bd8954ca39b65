package cardkit

import (
	"bytes"
	"fmt"
	"testing"
	"time"
)

// fakeClock gives tests direct control over cache time.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newTestCache(cfg CacheConfig) (*ResourceCache, *fakeClock) {
	clock := newFakeClock()
	cache := NewResourceCache(cfg)
	cache.now = clock.now
	return cache, clock
}

func TestResourceCacheGetSet(t *testing.T) {
	cache, _ := newTestCache(CacheConfig{MaxSize: 1024, MaxEntries: 16})

	if _, _, ok := cache.Get("card:a.txt"); ok {
		t.Fatal("expected miss on empty cache")
	}

	payload := []byte("hello")
	cache.Set("card:a.txt", payload, MIMETypeTextPlain)

	data, contentType, ok := cache.Get("card:a.txt")
	if !ok {
		t.Fatal("expected hit after set")
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("payload changed: got %q, want %q", data, payload)
	}
	if contentType != MIMETypeTextPlain {
		t.Errorf("content type = %q, want %q", contentType, MIMETypeTextPlain)
	}
}

func TestResourceCacheBoundsAfterEverySet(t *testing.T) {
	const maxSize = 100
	const maxEntries = 5
	cache, clock := newTestCache(CacheConfig{MaxSize: maxSize, MaxEntries: maxEntries})

	// Arbitrary sequence of sets with varying sizes; bounds must hold
	// after every single call.
	for i := 0; i < 50; i++ {
		size := (i*7)%40 + 1
		cache.Set(fmt.Sprintf("card:%d", i), make([]byte, size), MIMETypeOctetStream)
		clock.advance(time.Millisecond)

		if got := cache.Size(); got > maxSize {
			t.Fatalf("after set %d: size %d exceeds max %d", i, got, maxSize)
		}
		if got := cache.Len(); got > maxEntries {
			t.Fatalf("after set %d: %d entries exceeds max %d", i, got, maxEntries)
		}
	}
}

func TestResourceCacheOversizePayloadRefused(t *testing.T) {
	cache, _ := newTestCache(CacheConfig{MaxSize: 100, MaxEntries: 10})

	// Strictly larger than maxSize/2 must be refused.
	cache.Set("card:big", make([]byte, 51), MIMETypeOctetStream)
	if _, _, ok := cache.Get("card:big"); ok {
		t.Error("payload above maxSize/2 should not be cached")
	}

	// Exactly maxSize/2 is allowed.
	cache.Set("card:half", make([]byte, 50), MIMETypeOctetStream)
	if _, _, ok := cache.Get("card:half"); !ok {
		t.Error("payload of exactly maxSize/2 should be cached")
	}
}

func TestResourceCacheLRUEviction(t *testing.T) {
	cache, clock := newTestCache(CacheConfig{MaxSize: 30, MaxEntries: 16})

	cache.Set("card:a", make([]byte, 10), MIMETypeOctetStream)
	clock.advance(time.Second)
	cache.Set("card:b", make([]byte, 10), MIMETypeOctetStream)
	clock.advance(time.Second)
	cache.Set("card:c", make([]byte, 10), MIMETypeOctetStream)
	clock.advance(time.Second)

	// Touch "a" so "b" becomes the least recently accessed.
	if _, _, ok := cache.Get("card:a"); !ok {
		t.Fatal("expected a to be cached")
	}
	clock.advance(time.Second)

	cache.Set("card:d", make([]byte, 10), MIMETypeOctetStream)

	if _, _, ok := cache.Get("card:b"); ok {
		t.Error("b should have been evicted as least recently accessed")
	}
	for _, key := range []string{"card:a", "card:c", "card:d"} {
		if _, _, ok := cache.Get(key); !ok {
			t.Errorf("%s should have survived eviction", key)
		}
	}
}

func TestResourceCacheTTLExpiry(t *testing.T) {
	ttl := 10 * time.Second
	cache, clock := newTestCache(CacheConfig{MaxSize: 1024, MaxEntries: 16, TTL: ttl})

	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	cache.Set("card:x", payload, MIMETypeOctetStream)

	clock.advance(ttl - time.Second)
	data, _, ok := cache.Get("card:x")
	if !ok {
		t.Fatal("entry expired before its TTL")
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("payload changed before TTL: got %x, want %x", data, payload)
	}

	clock.advance(2 * time.Second)
	if _, _, ok := cache.Get("card:x"); ok {
		t.Error("entry should be absent after TTL elapsed")
	}
	// The expired lookup purges the entry as a side effect.
	if got := cache.Len(); got != 0 {
		t.Errorf("expired entry not purged: %d entries remain", got)
	}
	if got := cache.Size(); got != 0 {
		t.Errorf("expired entry not released: size %d", got)
	}
}

func TestResourceCacheAccessRefreshDoesNotExtendTTL(t *testing.T) {
	ttl := 10 * time.Second
	cache, clock := newTestCache(CacheConfig{MaxSize: 1024, MaxEntries: 16, TTL: ttl})

	cache.Set("card:x", []byte("v"), MIMETypeTextPlain)

	// Repeated hits refresh recency, not creation time.
	for i := 0; i < 3; i++ {
		clock.advance(3 * time.Second)
		cache.Get("card:x")
	}
	clock.advance(2 * time.Second)

	if _, _, ok := cache.Get("card:x"); ok {
		t.Error("TTL measured from creation, hits must not extend it")
	}
}

func TestResourceCacheEvictCard(t *testing.T) {
	cache, _ := newTestCache(CacheConfig{MaxSize: 1024, MaxEntries: 16})

	cache.Set(cacheKey("card-1", "a.txt"), []byte("a"), MIMETypeTextPlain)
	cache.Set(cacheKey("card-1", "b.txt"), []byte("b"), MIMETypeTextPlain)
	cache.Set(cacheKey("card-2", "a.txt"), []byte("c"), MIMETypeTextPlain)

	cache.EvictCard("card-1")

	if _, _, ok := cache.Get(cacheKey("card-1", "a.txt")); ok {
		t.Error("card-1 entry a.txt should be purged")
	}
	if _, _, ok := cache.Get(cacheKey("card-1", "b.txt")); ok {
		t.Error("card-1 entry b.txt should be purged")
	}
	if _, _, ok := cache.Get(cacheKey("card-2", "a.txt")); !ok {
		t.Error("card-2 entry should be untouched")
	}
}

func TestResourceCacheEvictCardPrefixIsExact(t *testing.T) {
	cache, _ := newTestCache(CacheConfig{MaxSize: 1024, MaxEntries: 16})

	// "card-10" must not be caught by purging "card-1".
	cache.Set(cacheKey("card-1", "a.txt"), []byte("a"), MIMETypeTextPlain)
	cache.Set(cacheKey("card-10", "a.txt"), []byte("b"), MIMETypeTextPlain)

	cache.EvictCard("card-1")

	if _, _, ok := cache.Get(cacheKey("card-10", "a.txt")); !ok {
		t.Error("card-10 entry evicted by card-1 purge")
	}
}

func TestResourceCacheClear(t *testing.T) {
	cache, _ := newTestCache(CacheConfig{MaxSize: 1024, MaxEntries: 16})

	cache.Set("card:a", []byte("a"), MIMETypeTextPlain)
	cache.Set("card:b", []byte("b"), MIMETypeTextPlain)
	cache.Clear()

	if got := cache.Len(); got != 0 {
		t.Errorf("entries after clear = %d, want 0", got)
	}
	if got := cache.Size(); got != 0 {
		t.Errorf("size after clear = %d, want 0", got)
	}
}

func TestResourceCacheStats(t *testing.T) {
	cache, _ := newTestCache(CacheConfig{MaxSize: 30, MaxEntries: 2})

	cache.Set("card:a", make([]byte, 10), MIMETypeOctetStream)
	cache.Get("card:a")
	cache.Get("card:missing")
	cache.Set("card:b", make([]byte, 10), MIMETypeOctetStream)
	cache.Set("card:c", make([]byte, 10), MIMETypeOctetStream) // evicts one

	stats := cache.Stats()
	if stats.Hits != 1 {
		t.Errorf("hits = %d, want 1", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("misses = %d, want 1", stats.Misses)
	}
	if stats.Evictions != 1 {
		t.Errorf("evictions = %d, want 1", stats.Evictions)
	}
	if stats.Entries != 2 {
		t.Errorf("entries = %d, want 2", stats.Entries)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("hit rate = %v, want 0.5", stats.HitRate)
	}
}
