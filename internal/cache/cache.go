// Package cache is the layered, in-memory coherence aid described in the
// ports.Cache contract: five bounded TTL+LRU maps plus a concurrent
// rate-limit bucket map. It generalizes the pack's hashicorp/golang-lru
// usage (jeongkyun-oh-klaytn/common/cache.go wraps lru.Cache for a single
// untyped LRU) to the v2 expirable variant, which gives us TTL eviction for
// free instead of hand-rolling a sweep goroutine.
package cache

import (
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/ghostnet/indexer/internal/entities"
	"github.com/ghostnet/indexer/internal/ports"
	"github.com/ghostnet/indexer/internal/primitives"
)

const (
	positionCapacity    = 10_000
	positionTTL         = 5 * time.Minute
	globalStatsCapacity = 1
	globalStatsTTL      = 1 * time.Minute
	levelStatsCapacity  = 5
	levelStatsTTL       = 1 * time.Minute
	leaderboardCapacity = 20
	leaderboardTTL      = 5 * time.Minute
	blockHashCapacity   = 128
	blockHashTTL        = 5 * time.Minute

	globalStatsKey = "global"
)

// positionEntry wraps an optional position so a confirmed "no active
// position" (negative cache) is distinguishable from "not cached at all".
type positionEntry struct {
	pos *entities.Position
}

type rateBucket struct {
	mu          sync.Mutex
	windowStart int64
	count       int
}

// Cache is the concrete ports.Cache implementation. Zero value is not
// usable; construct with New.
type Cache struct {
	positions    *lru.LRU[string, positionEntry]
	globalStats  *lru.LRU[string, entities.GlobalStats]
	levelStats   *lru.LRU[uint8, entities.LevelStats]
	leaderboards *lru.LRU[string, []any]
	blockHashes  *lru.LRU[uint64, [32]byte]

	rateLimits sync.Map // string -> *rateBucket

	hits   atomic.Uint64
	misses atomic.Uint64
}

var _ ports.Cache = (*Cache)(nil)

// New constructs a Cache with the fixed capacities and TTLs the ports
// contract specifies.
func New() *Cache {
	return &Cache{
		positions:    lru.NewLRU[string, positionEntry](positionCapacity, nil, positionTTL),
		globalStats:  lru.NewLRU[string, entities.GlobalStats](globalStatsCapacity, nil, globalStatsTTL),
		levelStats:   lru.NewLRU[uint8, entities.LevelStats](levelStatsCapacity, nil, levelStatsTTL),
		leaderboards: lru.NewLRU[string, []any](leaderboardCapacity, nil, leaderboardTTL),
		blockHashes:  lru.NewLRU[uint64, [32]byte](blockHashCapacity, nil, blockHashTTL),
	}
}

func (c *Cache) GetPosition(addr primitives.Address) (*entities.Position, bool) {
	entry, ok := c.positions.Get(addr.String())
	c.record(ok)
	if !ok {
		return nil, false
	}
	return entry.pos, true
}

func (c *Cache) SetPosition(addr primitives.Address, pos *entities.Position) {
	c.positions.Add(addr.String(), positionEntry{pos: pos})
}

func (c *Cache) InvalidatePosition(addr primitives.Address) {
	c.positions.Remove(addr.String())
}

func (c *Cache) InvalidateAllPositions() {
	c.positions.Purge()
}

// InvalidateLevel is the one O(n) operation in the contract: it scans
// cached positions for the given level and drops them, then drops the
// level-stats entry.
func (c *Cache) InvalidateLevel(level primitives.RiskLevel) {
	for _, key := range c.positions.Keys() {
		entry, ok := c.positions.Peek(key)
		if ok && entry.pos != nil && entry.pos.Level == level {
			c.positions.Remove(key)
		}
	}
	c.levelStats.Remove(uint8(level))
}

func (c *Cache) GetGlobalStats() (entities.GlobalStats, bool) {
	stats, ok := c.globalStats.Get(globalStatsKey)
	c.record(ok)
	return stats, ok
}

func (c *Cache) SetGlobalStats(stats entities.GlobalStats) {
	c.globalStats.Add(globalStatsKey, stats)
}

func (c *Cache) GetLevelStats(level primitives.RiskLevel) (entities.LevelStats, bool) {
	stats, ok := c.levelStats.Get(uint8(level))
	c.record(ok)
	return stats, ok
}

func (c *Cache) SetLevelStats(level primitives.RiskLevel, stats entities.LevelStats) {
	c.levelStats.Add(uint8(level), stats)
}

func (c *Cache) GetLeaderboard(name string) ([]any, bool) {
	entries, ok := c.leaderboards.Get(name)
	c.record(ok)
	return entries, ok
}

func (c *Cache) SetLeaderboard(name string, entries []any) {
	c.leaderboards.Add(name, entries)
}

func (c *Cache) GetBlockHash(block primitives.BlockNumber) ([32]byte, bool) {
	hash, ok := c.blockHashes.Get(uint64(block))
	c.record(ok)
	return hash, ok
}

func (c *Cache) SetBlockHash(block primitives.BlockNumber, hash [32]byte) {
	c.blockHashes.Add(uint64(block), hash)
}

func (c *Cache) InvalidateBlocksFrom(block primitives.BlockNumber) {
	for _, key := range c.blockHashes.Keys() {
		if key >= uint64(block) {
			c.blockHashes.Remove(key)
		}
	}
}

// CheckRateLimit implements the sliding-window bucket algorithm: buckets
// are aligned to now - (now mod window), and a bucket is reset the moment
// its window has rolled over.
func (c *Cache) CheckRateLimit(key string, limit int, windowSecs int64) bool {
	now := time.Now().Unix()
	windowStart := now - (now % windowSecs)

	val, _ := c.rateLimits.LoadOrStore(key, &rateBucket{windowStart: windowStart})
	bucket := val.(*rateBucket)

	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	if bucket.windowStart != windowStart {
		bucket.windowStart = windowStart
		bucket.count = 0
	}
	if bucket.count >= limit {
		return false
	}
	bucket.count++
	return true
}

// CleanupRateLimits removes buckets whose window started more than maxAge
// seconds ago.
func (c *Cache) CleanupRateLimits(maxAgeSecs int64) {
	cutoff := time.Now().Unix() - maxAgeSecs
	c.rateLimits.Range(func(key, val any) bool {
		bucket := val.(*rateBucket)
		bucket.mu.Lock()
		stale := bucket.windowStart < cutoff
		bucket.mu.Unlock()
		if stale {
			c.rateLimits.Delete(key)
		}
		return true
	})
}

func (c *Cache) Stats() ports.CacheStats {
	return ports.CacheStats{
		Hits:                c.hits.Load(),
		Misses:              c.misses.Load(),
		PositionEntries:     c.positions.Len(),
		LevelStatsEntries:   c.levelStats.Len(),
		LeaderboardEntries:  c.leaderboards.Len(),
		BlockEntries:        c.blockHashes.Len(),
	}
}

// ClearAll drops every cache and resets the hit/miss counters.
func (c *Cache) ClearAll() {
	c.positions.Purge()
	c.globalStats.Purge()
	c.levelStats.Purge()
	c.leaderboards.Purge()
	c.blockHashes.Purge()
	c.rateLimits.Range(func(key, _ any) bool {
		c.rateLimits.Delete(key)
		return true
	})
	c.hits.Store(0)
	c.misses.Store(0)
}

func (c *Cache) record(hit bool) {
	if hit {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
}
