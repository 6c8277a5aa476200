package topology

import "sync"

// pathCache is a two-level src -> (dst -> Path) mapping over vertex
// indices. It grows monotonically within a run and is only cleared
// explicitly. Readers take the RLock; writers serialize on the full
// Lock.
type pathCache struct {
	mu    sync.RWMutex
	inner map[int64]map[int64]Path
}

func newPathCache() *pathCache {
	return &pathCache{inner: make(map[int64]map[int64]Path)}
}

func (c *pathCache) get(src, dst int64) (Path, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	row, ok := c.inner[src]
	if !ok {
		return Path{}, false
	}
	p, ok := row[dst]
	return p, ok
}

// put inserts p for (src, dst). A concurrent insert for the same pair
// is benign, Paths being functionally equal for the same endpoints, so
// the last writer simply wins.
func (c *pathCache) put(src, dst int64, p Path) {
	c.mu.Lock()
	defer c.mu.Unlock()
	row, ok := c.inner[src]
	if !ok {
		row = make(map[int64]Path)
		c.inner[src] = row
	}
	row[dst] = p
}

func (c *pathCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner = make(map[int64]map[int64]Path)
}
