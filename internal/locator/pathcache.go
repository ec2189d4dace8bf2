package locator

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// PathCache maps module handles to file paths. Failed queries are cached as
// empty paths and never retried. Entries are never invalidated: if the loader
// unloads a module and reuses its handle for another, the old path is served.
//
// The mutex is only held around map access, never across the platform query,
// but callers running in a signal handler can still deadlock if the
// interrupted thread holds it.
type PathCache struct {
	namer ModuleNamer

	mu    sync.Mutex
	paths map[Handle]string

	inflight singleflight.Group
}

func NewPathCache(namer ModuleNamer) *PathCache {
	return &PathCache{namer: namer, paths: make(map[Handle]string)}
}

func (c *PathCache) PathFor(h Handle) string {
	if path, ok := c.cached(h); ok {
		return path
	}
	v, _, _ := c.inflight.Do(strconv.FormatUint(uint64(h), 16), func() (any, error) {
		// A query that finished between our miss and Do has already filled the entry.
		if path, ok := c.cached(h); ok {
			return path, nil
		}
		path, err := c.namer.ModuleFileName(h)
		if err != nil {
			slog.Warn("Failed to query module file name", "handle", fmt.Sprintf("%#x", uintptr(h)), "error", err)
			path = ""
		}
		c.mu.Lock()
		c.paths[h] = path
		c.mu.Unlock()
		return path, nil
	})
	return v.(string)
}

func (c *PathCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.paths)
}

func (c *PathCache) cached(h Handle) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	path, ok := c.paths[h]
	return path, ok
}
