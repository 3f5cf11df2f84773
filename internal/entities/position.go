// Package entities holds the persisted domain records: positions, scans,
// deaths, prediction-market rounds and bets, stats, block hash records, and
// checkpoint state. These represent current and historical state, as
// opposed to the decoded on-chain events in package events that produce
// them.
package entities

import (
	"time"

	"github.com/google/uuid"

	"github.com/ghostnet/indexer/internal/primitives"
)

// Position is an active or historical staking position. A user can have at
// most one active (is_alive && !is_extracted) position at a time; a new
// entry for an address that already has one closes the prior one with
// ExitSuperseded first.
type Position struct {
	ID                uuid.UUID               `db:"id"`
	UserAddress       primitives.Address      `db:"user_address"`
	Level             primitives.RiskLevel    `db:"level"`
	Amount            primitives.Amount       `db:"amount"`
	RewardDebt        primitives.Amount       `db:"reward_debt"`
	EntryTimestamp    time.Time               `db:"entry_timestamp"`
	LastAddTimestamp  *time.Time              `db:"last_add_timestamp"`
	GhostStreak       primitives.GhostStreak  `db:"ghost_streak"`
	IsAlive           bool                    `db:"is_alive"`
	IsExtracted       bool                    `db:"is_extracted"`
	ExitReason        *primitives.ExitReason  `db:"exit_reason"`
	ExitTimestamp     *time.Time              `db:"exit_timestamp"`
	ExtractedAmount   *primitives.Amount      `db:"extracted_amount"`
	ExtractedRewards  *primitives.Amount      `db:"extracted_rewards"`
	CreatedAtBlock    primitives.BlockNumber  `db:"created_at_block"`
	UpdatedAt         time.Time               `db:"updated_at"`
}

// IsActive reports whether this position is currently live.
func (p *Position) IsActive() bool {
	return p.IsAlive && !p.IsExtracted
}

// PositionHistory is an append-only record of a single mutation to a
// position, keyed by (position id, block).
type PositionHistory struct {
	ID          uuid.UUID                  `db:"id"`
	PositionID  uuid.UUID                  `db:"position_id"`
	UserAddress primitives.Address         `db:"user_address"`
	Action      primitives.PositionAction  `db:"action"`
	AmountChange primitives.Amount         `db:"amount_change"`
	NewTotal    primitives.Amount          `db:"new_total"`
	BlockNumber primitives.BlockNumber     `db:"block_number"`
	Timestamp   time.Time                  `db:"timestamp"`
}
