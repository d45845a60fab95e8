package blocktime

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/greymass/workutils/libraries/logger"
	"golang.org/x/sync/singleflight"
)

// Cache memoizes a Source. Block timestamps never change, so entries are
// kept for the life of the process and written at most once. Concurrent
// misses for one height share a single upstream call.
type Cache struct {
	source Source

	mu      sync.Mutex
	entries map[uint64]int64

	group  singleflight.Group
	hits   atomic.Uint64
	misses atomic.Uint64
}

func NewCache(source Source) *Cache {
	return &Cache{
		source:  source,
		entries: make(map[uint64]int64),
	}
}

// BlockTime answers from the cache or asks the source. The upstream call
// does not inherit ctx's cancellation, since other callers may be waiting
// on it; ctx only bounds how long this caller waits.
func (c *Cache) BlockTime(ctx context.Context, height uint64) (int64, error) {
	if ts, ok := c.Get(height); ok {
		c.hits.Add(1)
		logger.Printf("debug-cache", "hit block=%d timestamp=%d", height, ts)
		return ts, nil
	}
	c.misses.Add(1)

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(strconv.FormatUint(height, 10), func() (interface{}, error) {
		ts, err := c.source.BlockTime(shared, height)
		if err != nil {
			return nil, err
		}
		return c.store(height, ts), nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return 0, res.Err
		}
		return res.Val.(int64), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Get returns a cached timestamp without calling the source.
func (c *Cache) Get(height uint64) (int64, bool) {
	c.mu.Lock()
	ts, ok := c.entries[height]
	c.mu.Unlock()
	return ts, ok
}

// store inserts ts unless height is already known and returns the kept value.
func (c *Cache) store(height uint64, ts int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[height]; ok {
		return existing
	}
	c.entries[height] = ts
	logger.Printf("debug-cache", "stored block=%d timestamp=%d", height, ts)
	return ts
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns the hit and miss counts since creation.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
