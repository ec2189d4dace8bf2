package imagebase

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cachedBase struct {
	base uint64
	err  error
}

// CachingProvider memoizes another Provider by path. Failures are cached
// too, so an unreadable object is probed once per eviction cycle.
type CachingProvider struct {
	next  Provider
	cache *lru.Cache[string, cachedBase]
}

func NewCachingProvider(next Provider, size int) (*CachingProvider, error) {
	cache, err := lru.New[string, cachedBase](size)
	if err != nil {
		return nil, fmt.Errorf("create image base cache: %w", err)
	}
	return &CachingProvider{next: next, cache: cache}, nil
}

func (c *CachingProvider) ImageBase(path string) (uint64, error) {
	if entry, ok := c.cache.Get(path); ok {
		return entry.base, entry.err
	}
	base, err := c.next.ImageBase(path)
	c.cache.Add(path, cachedBase{base: base, err: err})
	return base, err
}

// Purge drops every cached entry, e.g. after objects were replaced on disk.
func (c *CachingProvider) Purge() {
	c.cache.Purge()
}

func (c *CachingProvider) Len() int {
	return c.cache.Len()
}
