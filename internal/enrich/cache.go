package enrich

import (
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"kandarr/internal/models"
)

// DefaultCacheTTL is the freshness window for ad-hoc enrichment lookups
const DefaultCacheTTL = time.Hour

// Cache is the in-process enrichment cache. Entries expire after the
// configured TTL; reads inside the window return the stored data
// unchanged.
type Cache struct {
	store *gocache.Cache
}

// NewCache creates an enrichment cache with the given TTL
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		store: gocache.New(ttl, 10*time.Minute),
	}
}

// Key builds the cache key for one enrichment request
func Key(contentType models.ContentType, title string, year int) string {
	return fmt.Sprintf("%s|%s|%d", contentType, strings.ToLower(strings.TrimSpace(title)), year)
}

// Get returns the cached enrichment for a key, or nil when absent or
// expired
func (c *Cache) Get(key string) *models.EnrichedData {
	if entry, found := c.store.Get(key); found {
		if data, ok := entry.(*models.EnrichedData); ok {
			return data
		}
	}
	return nil
}

// Set stores an enrichment under a key for the cache's TTL
func (c *Cache) Set(key string, data *models.EnrichedData) {
	c.store.SetDefault(key, data)
}

// Invalidate drops one entry, used when the user overrides the
// detected content type
func (c *Cache) Invalidate(key string) {
	c.store.Delete(key)
}

// Len returns the number of live entries
func (c *Cache) Len() int {
	return c.store.ItemCount()
}
