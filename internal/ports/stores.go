// Package ports declares the interface contracts handlers depend on: the
// six store ports, the layered cache, and the optional event publisher.
// Handlers and the runtime hold these, never a concrete store or cache
// type, so the Postgres implementation in internal/store/postgres can be
// swapped for a test double without touching handler code — the same
// dependency-direction the teacher's ethclient.Client interface gives
// callers over a concrete RPC transport.
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ghostnet/indexer/internal/entities"
	"github.com/ghostnet/indexer/internal/primitives"
)

// PositionStore owns Position and PositionHistory rows. Handlers mutate
// positions exclusively through this port.
type PositionStore interface {
	GetActivePosition(ctx context.Context, addr primitives.Address) (*entities.Position, error)
	SavePosition(ctx context.Context, p *entities.Position) error
	GetAtRiskPositions(ctx context.Context, level primitives.RiskLevel, threshold primitives.Amount) ([]entities.Position, error)
	RecordHistory(ctx context.Context, h entities.PositionHistory) error
	GetPositionByID(ctx context.Context, id uuid.UUID) (*entities.Position, error)
	GetPositionsByLevel(ctx context.Context, level primitives.RiskLevel) ([]entities.Position, error)
	CountPositionsByLevel(ctx context.Context, level primitives.RiskLevel) (uint32, error)
}

// ScanStore owns Scan rows, keyed by on-chain scan id for idempotence.
type ScanStore interface {
	SaveScan(ctx context.Context, s entities.Scan) error
	FinalizeScan(ctx context.Context, onChainScanID string, data entities.ScanFinalizationData) error
	GetRecentScans(ctx context.Context, level primitives.RiskLevel, limit int) ([]entities.Scan, error)
	GetScanByID(ctx context.Context, onChainScanID string) (*entities.Scan, error)
	GetPendingScans(ctx context.Context) ([]entities.Scan, error)
}

// DeathStore owns Death rows, append-only and batch-inserted.
type DeathStore interface {
	RecordDeaths(ctx context.Context, batch []entities.Death) error
	GetDeathsForScan(ctx context.Context, onChainScanID string) ([]entities.Death, error)
	GetUserDeaths(ctx context.Context, addr primitives.Address, limit int) ([]entities.Death, error)
	CountDeathsByLevel(ctx context.Context, level primitives.RiskLevel) (uint32, error)
	GetRecentDeaths(ctx context.Context, limit int) ([]entities.Death, error)
}

// MarketStore owns Round and Bet rows.
type MarketStore interface {
	SaveRound(ctx context.Context, r entities.Round) error
	RecordBet(ctx context.Context, b entities.Bet) error
	ResolveRound(ctx context.Context, onChainRoundID string, outcome bool, totalBurned primitives.Amount, resolveTime time.Time) error
	GetActiveRounds(ctx context.Context) ([]entities.Round, error)
	GetRoundByID(ctx context.Context, onChainRoundID string) (*entities.Round, error)
	GetBetsForRound(ctx context.Context, roundID uuid.UUID) ([]entities.Bet, error)
	GetUserBets(ctx context.Context, addr primitives.Address, limit int) ([]entities.Bet, error)
	MarkBetClaimed(ctx context.Context, betID uuid.UUID, winnings primitives.Amount, claimTime time.Time) error
}

// StatsStore owns the per-level and global rollups.
type StatsStore interface {
	GetGlobalStats(ctx context.Context) (entities.GlobalStats, error)
	GetLevelStats(ctx context.Context, level primitives.RiskLevel) (entities.LevelStats, error)
	UpdateLevelStats(ctx context.Context, level primitives.RiskLevel, delta entities.LevelStatsDelta) error
	GetAllLevelStats(ctx context.Context) ([]entities.LevelStats, error)
	RefreshGlobalStats(ctx context.Context) error
	// ApplyGlobalDelta atomically increments the global counters the
	// token/fee/emissions handlers touch but RefreshGlobalStats's
	// level_stats recompute cannot see (toll, buyback, emissions, burn).
	ApplyGlobalDelta(ctx context.Context, delta entities.GlobalStatsDelta) error
}

// IndexerStateStore owns the checkpoint and the retained block-hash window.
type IndexerStateStore interface {
	GetLastBlock(ctx context.Context) (entities.Checkpoint, error)
	SetLastBlock(ctx context.Context, block primitives.BlockNumber, hash [32]byte) error
	InsertBlockHash(ctx context.Context, block primitives.BlockNumber, hash, parent [32]byte, timestamp time.Time) error
	GetBlockHash(ctx context.Context, block primitives.BlockNumber) (*entities.BlockHashRecord, error)
	ExecuteReorgRollback(ctx context.Context, forkPoint primitives.BlockNumber) error
	PruneOldBlocks(ctx context.Context, keep primitives.BlockNumber) error
}
