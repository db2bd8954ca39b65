package cardkit

import (
	"strings"
	"sync"
	"time"
)

// CacheConfig bounds the resource cache.
type CacheConfig struct {
	// MaxSize is the total payload budget in bytes.
	MaxSize int64

	// MaxEntries caps the number of cached resources.
	MaxEntries int

	// TTL is how long an entry stays valid after creation. Zero means
	// entries never expire.
	TTL time.Duration
}

// DefaultCacheConfig returns the cache bounds used when none are configured:
// 64 MiB, 256 entries, 30 minute TTL.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxSize:    64 << 20,
		MaxEntries: 256,
		TTL:        30 * time.Minute,
	}
}

// CacheStatistics contains cache performance counters.
type CacheStatistics struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Entries   int
	Size      int64
	HitRate   float64
}

// resourceEntry is one cached extraction result.
type resourceEntry struct {
	data           []byte
	contentType    string
	size           int64
	createdAt      time.Time
	lastAccessedAt time.Time
}

// ResourceCache is a bounded mapping from "card:path" keys to extracted
// resource bytes. Eviction is least-recently-accessed; expiry is lazy,
// enforced on the lookup that observes it. After every mutation the
// total size stays within MaxSize and the entry count within MaxEntries.
type ResourceCache struct {
	mu      sync.Mutex
	cfg     CacheConfig
	entries map[string]*resourceEntry
	size    int64

	hits      int64
	misses    int64
	evictions int64

	// now is replaceable for deterministic TTL tests.
	now func() time.Time
}

// NewResourceCache creates a resource cache with the given bounds.
// Non-positive bounds fall back to DefaultCacheConfig values.
func NewResourceCache(cfg CacheConfig) *ResourceCache {
	def := DefaultCacheConfig()
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = def.MaxSize
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = def.MaxEntries
	}
	return &ResourceCache{
		cfg:     cfg,
		entries: make(map[string]*resourceEntry),
		now:     time.Now,
	}
}

// cacheKey builds the composite cache key for a resource.
func cacheKey(cardID, resourcePath string) string {
	return cardID + ":" + resourcePath
}

// Get returns the cached payload and MIME type for a key. An entry past
// its TTL is treated as absent and purged as a side effect of this
// lookup. A hit refreshes the entry's access time only.
func (c *ResourceCache) Get(key string) ([]byte, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, "", false
	}

	if c.cfg.TTL > 0 && c.now().Sub(entry.createdAt) > c.cfg.TTL {
		c.removeLocked(key)
		c.misses++
		return nil, "", false
	}

	entry.lastAccessedAt = c.now()
	c.hits++
	return entry.data, entry.contentType, true
}

// Set inserts a payload under a key, evicting least-recently-accessed
// entries until both bounds hold. A payload larger than MaxSize/2 is
// silently refused so no single resource can dominate the cache.
func (c *ResourceCache) Set(key string, data []byte, contentType string) {
	incoming := int64(len(data))
	if incoming > c.cfg.MaxSize/2 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Replacing an existing key frees its budget first.
	if _, ok := c.entries[key]; ok {
		c.removeLocked(key)
	}

	for (c.size+incoming > c.cfg.MaxSize || len(c.entries) >= c.cfg.MaxEntries) && len(c.entries) > 0 {
		c.evictOldestLocked()
	}

	now := c.now()
	c.entries[key] = &resourceEntry{
		data:           data,
		contentType:    contentType,
		size:           incoming,
		createdAt:      now,
		lastAccessedAt: now,
	}
	c.size += incoming
}

// Delete removes a single entry.
func (c *ResourceCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
}

// EvictCard removes every entry belonging to a card. Invoked on unmount
// so no cache entry outlives its owning mount.
func (c *ResourceCache) EvictCard(cardID string) {
	prefix := cardID + ":"

	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			c.removeLocked(key)
		}
	}
}

// Clear drops all entries and resets size accounting.
func (c *ResourceCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*resourceEntry)
	c.size = 0
}

// Len returns the current entry count.
func (c *ResourceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Size returns the current total payload size in bytes.
func (c *ResourceCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Stats returns cache performance counters.
func (c *ResourceCache) Stats() CacheStatistics {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}

	return CacheStatistics{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Entries:   len(c.entries),
		Size:      c.size,
		HitRate:   hitRate,
	}
}

// removeLocked deletes an entry and releases its budget. Caller holds the lock.
func (c *ResourceCache) removeLocked(key string) {
	if entry, ok := c.entries[key]; ok {
		c.size -= entry.size
		delete(c.entries, key)
	}
}

// evictOldestLocked evicts the least-recently-accessed entry, breaking
// access-time ties by key order so eviction is deterministic. Caller
// holds the lock and has checked the cache is non-empty.
func (c *ResourceCache) evictOldestLocked() {
	var oldestKey string
	var oldest *resourceEntry

	for key, entry := range c.entries {
		if oldest == nil ||
			entry.lastAccessedAt.Before(oldest.lastAccessedAt) ||
			(entry.lastAccessedAt.Equal(oldest.lastAccessedAt) && key < oldestKey) {
			oldestKey = key
			oldest = entry
		}
	}

	c.removeLocked(oldestKey)
	c.evictions++
}
