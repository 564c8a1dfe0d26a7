package tilecache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/smatkovi/valhalla-bike-router/internal/graphid"
	"github.com/smatkovi/valhalla-bike-router/internal/metrics"
	"github.com/smatkovi/valhalla-bike-router/internal/routerr"
	"github.com/smatkovi/valhalla-bike-router/internal/tile"
)

type key struct {
	level  graphid.Level
	tileID uint32
}

func (k key) String() string { return fmt.Sprintf("%d/%d", k.level, k.tileID) }

// Cache is the C3 tile cache: a bounded in-memory LRU of parsed tiles
// backed by an optional on-disk scratch layer, with singleflight
// coalescing of concurrent misses for the same key.
//
// Eviction only drops the cache's own reference; a *tile.Tile already
// handed to a caller is an ordinary Go value kept alive by the
// caller's reference for as long as it's reachable — Go's GC, not an
// explicit pin/refcount, satisfies spec.md §4.3's reference discipline.
type Cache struct {
	source  Source
	lru     *lru.Cache[key, *tile.Tile]
	group   singleflight.Group
	scratch *scratch
	metrics *metrics.Metrics
}

// Option configures a Cache at construction.
type Option func(*Cache)

// WithScratchPath enables the on-disk scratch layer at path.
func WithScratchPath(path string) Option {
	return func(c *Cache) {
		s, err := openScratch(path)
		if err == nil {
			c.scratch = s
		}
	}
}

// WithMetrics records hit/miss counts on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// New builds a Cache bounded to capacity parsed tiles, loading misses
// through source.
func New(source Source, capacity int, opts ...Option) (*Cache, error) {
	if capacity <= 0 {
		capacity = 100
	}
	l, err := lru.New[key, *tile.Tile](capacity)
	if err != nil {
		return nil, fmt.Errorf("init tile lru: %w", err)
	}
	c := &Cache{source: source, lru: l}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns the parsed tile for (level, tileID), loading and
// parsing it on a miss. Concurrent Get calls for the same key share a
// single parse.
func (c *Cache) Get(ctx context.Context, level graphid.Level, tileID uint32) (*tile.Tile, error) {
	k := key{level: level, tileID: tileID}
	if t, ok := c.lru.Get(k); ok {
		c.recordHit()
		return t, nil
	}

	result, err, _ := c.group.Do(k.String(), func() (interface{}, error) {
		if t, ok := c.lru.Get(k); ok {
			c.recordHit()
			return t, nil
		}
		c.recordMiss()
		return c.load(ctx, level, tileID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*tile.Tile), nil
}

func (c *Cache) recordHit() {
	if c.metrics != nil {
		c.metrics.TileCacheHits.Inc()
	}
}

func (c *Cache) recordMiss() {
	if c.metrics != nil {
		c.metrics.TileCacheMisses.Inc()
	}
}

func (c *Cache) load(ctx context.Context, level graphid.Level, tileID uint32) (*tile.Tile, error) {
	raw, mtime, err := c.source.Load(ctx, level, tileID)
	if err != nil {
		return nil, err
	}

	if c.scratch != nil {
		if payload, ok := c.scratch.get(level, tileID, mtime); ok {
			t, err := tile.Deserialize(payload)
			if err == nil {
				c.lru.Add(key{level: level, tileID: tileID}, t)
				return t, nil
			}
			// fall through to reparse on a corrupt scratch entry
		}
	}

	t, err := tile.Decode(raw)
	if err != nil {
		return nil, err
	}
	if t.ID.Level() != level || t.ID.TileID() != tileID {
		return nil, routerr.NewTileCorrupt(level, tileID, "decoded tile id does not match requested key")
	}

	if c.scratch != nil {
		if payload, err := tile.Serialize(t); err == nil {
			c.scratch.put(level, tileID, mtime, payload)
		}
	}

	c.lru.Add(key{level: level, tileID: tileID}, t)
	return t, nil
}

// Close releases the on-disk scratch database, if any.
func (c *Cache) Close() error {
	if c.scratch != nil {
		return c.scratch.Close()
	}
	return nil
}
