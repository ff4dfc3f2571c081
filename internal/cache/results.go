// Package cache keeps recent extraction records in memory, keyed by the
// sha256 of the source document.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/joseph-ayodele/rod-records/internal/entity"
)

// ResultCache is safe for concurrent use.
type ResultCache struct {
	cache *gocache.Cache
}

// NewResultCache creates a cache whose entries expire after ttl. A zero ttl
// keeps entries until they are deleted.
func NewResultCache(ttl, cleanupInterval time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &ResultCache{cache: gocache.New(ttl, cleanupInterval)}
}

// Get returns a copy of the cached record for a content hash.
func (c *ResultCache) Get(hash string) (*entity.Record, bool) {
	if c == nil || hash == "" {
		return nil, false
	}
	v, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}
	rec := v.(entity.Record)
	rec.Result.Warnings = append([]string{}, rec.Result.Warnings...)
	return &rec, true
}

// Put stores rec under its content hash. Failed records are not cached so
// a retry reprocesses the document.
func (c *ResultCache) Put(rec *entity.Record) {
	if c == nil || rec == nil || rec.ContentHash == "" || rec.Result.Error != "" {
		return
	}
	cp := *rec
	cp.Result.Warnings = append([]string{}, rec.Result.Warnings...)
	c.cache.SetDefault(rec.ContentHash, cp)
}

// Delete removes the entry for hash.
func (c *ResultCache) Delete(hash string) {
	if c != nil {
		c.cache.Delete(hash)
	}
}

// Len is the number of entries, including expired ones not yet cleaned up.
func (c *ResultCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.ItemCount()
}

// Clear removes all entries.
func (c *ResultCache) Clear() {
	if c != nil {
		c.cache.Flush()
	}
}
