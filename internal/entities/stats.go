package entities

import (
	"time"

	"github.com/ghostnet/indexer/internal/primitives"
)

// LevelStats is a per-level aggregate rollup, maintained via deltas to
// preserve concurrency under multi-writer handlers.
type LevelStats struct {
	Level               primitives.RiskLevel    `db:"level"`
	TotalStaked         primitives.Amount       `db:"total_staked"`
	AliveCount          uint32                  `db:"alive_count"`
	TotalDeaths         uint32                  `db:"total_deaths"`
	TotalExtracted      uint32                  `db:"total_extracted"`
	TotalBurned         primitives.Amount       `db:"total_burned"`
	TotalDistributed    primitives.Amount       `db:"total_distributed"`
	HighestGhostStreak  primitives.GhostStreak  `db:"highest_ghost_streak"`
	UpdatedAt           time.Time               `db:"updated_at"`
}

// LevelStatsDelta is applied atomically by StatsStore.UpdateLevelStats. Nil
// fields are left unchanged.
type LevelStatsDelta struct {
	StakedDelta        *primitives.Amount
	AliveDelta         *int32
	DeathsDelta        *uint32
	ExtractedDelta     *uint32
	BurnedDelta        *primitives.Amount
	DistributedDelta   *primitives.Amount
	NewHighestStreak   *primitives.GhostStreak
}

// GlobalStatsDelta is applied atomically by StatsStore.ApplyGlobalDelta.
// Nil fields leave the corresponding column unchanged. This exists
// alongside the whole-table RefreshGlobalStats recompute because the
// token/fee/emissions handlers (§4.2.5) touch counters (toll collected,
// buyback burned, emissions distributed, burned) that RefreshGlobalStats
// derives only from level_stats and cannot see.
type GlobalStatsDelta struct {
	BurnedDelta     *primitives.Amount
	EmissionsDelta  *primitives.Amount
	TollDelta       *primitives.Amount
	BuybackDelta    *primitives.Amount
}

// GlobalStats is the protocol-wide rollup.
type GlobalStats struct {
	TotalValueLocked          primitives.Amount  `db:"total_value_locked"`
	TotalPositions            uint32             `db:"total_positions"`
	TotalDeaths               uint32             `db:"total_deaths"`
	TotalBurned               primitives.Amount  `db:"total_burned"`
	TotalEmissionsDistributed primitives.Amount  `db:"total_emissions_distributed"`
	TotalTollCollected        primitives.Amount  `db:"total_toll_collected"`
	TotalBuybackBurned        primitives.Amount  `db:"total_buyback_burned"`
	SystemResetCount          uint32             `db:"system_reset_count"`
	UpdatedAt                 time.Time          `db:"updated_at"`
}

// BlockHashRecord is a retained (block number, hash, parent hash,
// timestamp) tuple used by the reorg handler.
type BlockHashRecord struct {
	BlockNumber primitives.BlockNumber `db:"block_number"`
	BlockHash   [32]byte               `db:"block_hash"`
	ParentHash  [32]byte               `db:"parent_hash"`
	Timestamp   time.Time              `db:"timestamp"`
}

// Checkpoint is the last successfully processed block and its hash. The
// empty checkpoint is (0, nil).
type Checkpoint struct {
	LastBlock primitives.BlockNumber
	LastHash  *[32]byte
}

// IsEmpty reports whether this is the starting (0, nil) checkpoint.
func (c Checkpoint) IsEmpty() bool { return c.LastBlock == 0 && c.LastHash == nil }
