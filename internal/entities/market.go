package entities

import (
	"time"

	"github.com/google/uuid"

	"github.com/ghostnet/indexer/internal/primitives"
)

// Round is a prediction-market round. TargetLevel is nil for the sentinel
// "global" round (on-chain value 0); values 1-5 map onto RiskLevel.
type Round struct {
	ID          uuid.UUID                `db:"id"`
	RoundID     string                   `db:"round_id"`
	RoundType   primitives.RoundType     `db:"round_type"`
	TargetLevel *primitives.RiskLevel    `db:"target_level"`
	Line        primitives.Amount        `db:"line"`
	Deadline    time.Time                `db:"deadline"`
	OverPool    primitives.Amount        `db:"over_pool"`
	UnderPool   primitives.Amount        `db:"under_pool"`
	IsResolved  bool                     `db:"is_resolved"`
	Outcome     *bool                    `db:"outcome"`
	ResolveTime *time.Time               `db:"resolve_time"`
	TotalBurned *primitives.Amount       `db:"total_burned"`
}

// TotalPot returns the sum of both pools.
func (r *Round) TotalPot() primitives.Amount { return r.OverPool.Add(r.UnderPool) }

// IsBettingOpen reports whether bets may still be placed as of now.
func (r *Round) IsBettingOpen(now time.Time) bool {
	return !r.IsResolved && now.Before(r.Deadline)
}

// Bet is a single wager on a round.
type Bet struct {
	ID          uuid.UUID           `db:"id"`
	RoundID     uuid.UUID           `db:"round_id"`
	UserAddress primitives.Address  `db:"user_address"`
	Amount      primitives.Amount  `db:"amount"`
	IsOver      bool                `db:"is_over"`
	IsClaimed   bool                `db:"is_claimed"`
	Winnings    *primitives.Amount `db:"winnings"`
	ClaimedAt   *time.Time          `db:"claimed_at"`
}

// IsWinner reports whether this bet won, given the round's resolved
// outcome. Returns nil if the round isn't resolved yet.
func (b *Bet) IsWinner(roundOutcome *bool) *bool {
	if roundOutcome == nil {
		return nil
	}
	won := b.IsOver == *roundOutcome
	return &won
}
