package catalog

import (
	"sort"
	"sync"
	"time"
)

const defaultCacheMaxEntries = 2000

type cachedPayload struct {
	data      []byte
	updatedAt time.Time
	expiresAt time.Time
}

// MemoryCache holds raw upstream payloads with a per-entry TTL. When full it
// drops expired entries first, then the oldest ones.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]*cachedPayload
	maxEntries int
	now        func() time.Time
}

func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = defaultCacheMaxEntries
	}
	return &MemoryCache{
		entries:    make(map[string]*cachedPayload),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return append([]byte(nil), entry.data...), true
}

func (c *MemoryCache) Set(key string, data []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &cachedPayload{
		data:      append([]byte(nil), data...),
		updatedAt: now,
		expiresAt: now.Add(ttl),
	}
	c.trimLocked(now)
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryCache) trimLocked(now time.Time) {
	if len(c.entries) <= c.maxEntries {
		return
	}

	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
	if len(c.entries) <= c.maxEntries {
		return
	}

	type pair struct {
		key   string
		entry *cachedPayload
	}
	items := make([]pair, 0, len(c.entries))
	for key, entry := range c.entries {
		items = append(items, pair{key: key, entry: entry})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].entry.updatedAt.Before(items[j].entry.updatedAt)
	})
	for i := 0; i < len(items)-c.maxEntries; i++ {
		delete(c.entries, items[i].key)
	}
}
