package entities

import (
	"time"

	"github.com/google/uuid"

	"github.com/ghostnet/indexer/internal/primitives"
)

// Scan is a periodic death-selection pass over a level. It has two phases:
// execution (ScanExecuted, selects who is at risk) and finalization
// (ScanFinalized, records the outcome). Idempotent by on-chain scan id.
type Scan struct {
	ID                     uuid.UUID             `db:"id"`
	ScanID                 string                `db:"scan_id"`
	Level                  primitives.RiskLevel  `db:"level"`
	Seed                   string                `db:"seed"`
	ExecutedAt             time.Time             `db:"executed_at"`
	FinalizedAt            *time.Time            `db:"finalized_at"`
	DeathCount             *uint32               `db:"death_count"`
	TotalDead              *primitives.Amount    `db:"total_dead"`
	Burned                 *primitives.Amount    `db:"burned"`
	DistributedSameLevel   *primitives.Amount    `db:"distributed_same_level"`
	DistributedUpstream    *primitives.Amount    `db:"distributed_upstream"`
	ProtocolFee            *primitives.Amount    `db:"protocol_fee"`
	SurvivorCount          *uint32               `db:"survivor_count"`
}

// IsFinalized reports whether finalize fields have been populated.
func (s *Scan) IsFinalized() bool { return s.FinalizedAt != nil }

// ScanFinalizationData is the typed delta applied by ScanStore.FinalizeScan.
type ScanFinalizationData struct {
	FinalizedAt           time.Time
	DeathCount            uint32
	TotalDead             primitives.Amount
	Burned                primitives.Amount
	DistributedSameLevel  primitives.Amount
	DistributedUpstream   primitives.Amount
	ProtocolFee           primitives.Amount
	SurvivorCount         uint32
}

// Death is an append-only record of a position's death, optionally linked
// to the scan that killed it.
type Death struct {
	ID                 uuid.UUID               `db:"id"`
	ScanID             *uuid.UUID              `db:"scan_id"`
	UserAddress        primitives.Address      `db:"user_address"`
	PositionID         *uuid.UUID              `db:"position_id"`
	AmountLost         primitives.Amount       `db:"amount_lost"`
	Level              primitives.RiskLevel    `db:"level"`
	GhostStreakAtDeath *primitives.GhostStreak `db:"ghost_streak_at_death"`
	CreatedAt          time.Time               `db:"created_at"`
}
