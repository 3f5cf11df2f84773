package ports

import (
	"github.com/ghostnet/indexer/internal/entities"
	"github.com/ghostnet/indexer/internal/primitives"
)

// CacheStats reports hit/miss counters and current entry counts across the
// layered cache, for the metrics surface.
type CacheStats struct {
	Hits, Misses                                                       uint64
	PositionEntries, LevelStatsEntries, LeaderboardEntries, BlockEntries int
}

// Cache is the layered, in-memory coherence aid in front of the stores.
// Every read must tolerate a miss by falling back to the store — the cache
// is never the system of record.
type Cache interface {
	GetPosition(addr primitives.Address) (pos *entities.Position, found bool)
	SetPosition(addr primitives.Address, pos *entities.Position)
	InvalidatePosition(addr primitives.Address)
	InvalidateAllPositions()
	// InvalidateLevel drops every cached position at level plus the level
	// stats entry for it.
	InvalidateLevel(level primitives.RiskLevel)

	GetGlobalStats() (stats entities.GlobalStats, found bool)
	SetGlobalStats(stats entities.GlobalStats)

	GetLevelStats(level primitives.RiskLevel) (stats entities.LevelStats, found bool)
	SetLevelStats(level primitives.RiskLevel, stats entities.LevelStats)

	GetLeaderboard(name string) (entries []any, found bool)
	SetLeaderboard(name string, entries []any)

	GetBlockHash(block primitives.BlockNumber) (hash [32]byte, found bool)
	SetBlockHash(block primitives.BlockNumber, hash [32]byte)
	// InvalidateBlocksFrom drops every cached block hash >= block, used on
	// reorg rollback.
	InvalidateBlocksFrom(block primitives.BlockNumber)

	// CheckRateLimit applies a sliding-window rate limit for key, accepting
	// up to limit calls per window. Returns true if this call is accepted.
	CheckRateLimit(key string, limit int, window int64) bool
	CleanupRateLimits(maxAge int64)

	Stats() CacheStats
	ClearAll()
}

// EventPublisher optionally forwards decoded events to an external,
// log-structured broker partitioned by domain topic. Topics are created
// lazily on first publish. NoopPublisher satisfies this port for
// development and test.
type EventPublisher interface {
	Publish(topic string, payload []byte) error
}

// NoopPublisher discards every publish; the default when no external
// broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(string, []byte) error { return nil }
