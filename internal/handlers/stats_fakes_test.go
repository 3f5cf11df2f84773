package handlers

import (
	"context"

	"github.com/ghostnet/indexer/internal/entities"
	"github.com/ghostnet/indexer/internal/ports"
	"github.com/ghostnet/indexer/internal/primitives"
)

// fakeStatsStore records every delta applied to it; RefreshGlobalStats and
// the per-level methods are unused by token/fee/emissions handlers and
// left as no-ops.
type fakeStatsStore struct {
	deltas []entities.GlobalStatsDelta
}

func (s *fakeStatsStore) GetGlobalStats(ctx context.Context) (entities.GlobalStats, error) {
	return entities.GlobalStats{}, nil
}

func (s *fakeStatsStore) GetLevelStats(ctx context.Context, level primitives.RiskLevel) (entities.LevelStats, error) {
	return entities.LevelStats{}, nil
}

func (s *fakeStatsStore) UpdateLevelStats(ctx context.Context, level primitives.RiskLevel, delta entities.LevelStatsDelta) error {
	return nil
}

func (s *fakeStatsStore) GetAllLevelStats(ctx context.Context) ([]entities.LevelStats, error) {
	return nil, nil
}

func (s *fakeStatsStore) RefreshGlobalStats(ctx context.Context) error { return nil }

func (s *fakeStatsStore) ApplyGlobalDelta(ctx context.Context, delta entities.GlobalStatsDelta) error {
	s.deltas = append(s.deltas, delta)
	return nil
}

// fakeCache records invalidations; reads always miss so handler logic is
// exercised against the store fakes alone.
type fakeCache struct {
	invalidatedPositions []primitives.Address
	invalidatedLevels    []primitives.RiskLevel
	clearedAllPositions  bool
}

func (c *fakeCache) GetPosition(addr primitives.Address) (*entities.Position, bool) { return nil, false }
func (c *fakeCache) SetPosition(addr primitives.Address, pos *entities.Position)    {}

func (c *fakeCache) InvalidatePosition(addr primitives.Address) {
	c.invalidatedPositions = append(c.invalidatedPositions, addr)
}

func (c *fakeCache) InvalidateAllPositions() { c.clearedAllPositions = true }

func (c *fakeCache) InvalidateLevel(level primitives.RiskLevel) {
	c.invalidatedLevels = append(c.invalidatedLevels, level)
}

func (c *fakeCache) GetGlobalStats() (entities.GlobalStats, bool)      { return entities.GlobalStats{}, false }
func (c *fakeCache) SetGlobalStats(stats entities.GlobalStats)         {}
func (c *fakeCache) GetLevelStats(level primitives.RiskLevel) (entities.LevelStats, bool) {
	return entities.LevelStats{}, false
}
func (c *fakeCache) SetLevelStats(level primitives.RiskLevel, stats entities.LevelStats) {}
func (c *fakeCache) GetLeaderboard(name string) ([]any, bool)                            { return nil, false }
func (c *fakeCache) SetLeaderboard(name string, entries []any)                           {}
func (c *fakeCache) GetBlockHash(block primitives.BlockNumber) ([32]byte, bool) {
	return [32]byte{}, false
}
func (c *fakeCache) SetBlockHash(block primitives.BlockNumber, hash [32]byte)     {}
func (c *fakeCache) InvalidateBlocksFrom(block primitives.BlockNumber)            {}
func (c *fakeCache) CheckRateLimit(key string, limit int, window int64) bool      { return true }
func (c *fakeCache) CleanupRateLimits(maxAge int64)                               {}
func (c *fakeCache) Stats() ports.CacheStats                                      { return ports.CacheStats{} }
func (c *fakeCache) ClearAll()                                                    {}

func (c *fakeCache) levelInvalidated(level primitives.RiskLevel) bool {
	for _, l := range c.invalidatedLevels {
		if l == level {
			return true
		}
	}
	return false
}

// fakePublisher records every published (topic, payload) pair.
type fakePublisher struct {
	published []publishedMessage
}

type publishedMessage struct {
	topic   string
	payload []byte
}

func (p *fakePublisher) Publish(topic string, payload []byte) error {
	p.published = append(p.published, publishedMessage{topic: topic, payload: payload})
	return nil
}
