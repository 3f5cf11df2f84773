// Package events holds the decoded, strongly-typed representation of every
// on-chain event the indexer understands: a metadata envelope common to all
// of them, and a tagged union (via the Event interface) over the 27 event
// variants across six contracts.
package events

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ghostnet/indexer/internal/primitives"
)

// Meta is attached to every decoded event: where and when it was emitted.
type Meta struct {
	BlockNumber primitives.BlockNumber
	BlockHash   common.Hash
	TxHash      common.Hash
	TxIndex     uint64
	LogIndex    uint64
	Timestamp   time.Time
	Contract    primitives.Address
}

// Event is the tagged-union marker every decoded event variant implements.
// Callers type-switch on the concrete type to dispatch; Name and
// ContractName give router/logging code a label without a type switch when
// only identification is needed.
type Event interface {
	Meta() Meta
	Name() string
	ContractName() string
}

// Base carries the metadata envelope common to every event variant.
type Base struct {
	At Meta
}

// Meta returns the metadata envelope.
func (b Base) Meta() Meta { return b.At }

// ─── GhostCore ──────────────────────────────────────────────────────────────

type JackedIn struct {
	Base
	User     primitives.Address
	Amount   primitives.Amount
	Level    primitives.RiskLevel
	NewTotal primitives.Amount
}

func (JackedIn) Name() string         { return "JackedIn" }
func (JackedIn) ContractName() string { return "GhostCore" }

type StakeAdded struct {
	Base
	User     primitives.Address
	Amount   primitives.Amount
	NewTotal primitives.Amount
}

func (StakeAdded) Name() string         { return "StakeAdded" }
func (StakeAdded) ContractName() string { return "GhostCore" }

type Extracted struct {
	Base
	User    primitives.Address
	Amount  primitives.Amount
	Rewards primitives.Amount
}

func (Extracted) Name() string         { return "Extracted" }
func (Extracted) ContractName() string { return "GhostCore" }

type BoostApplied struct {
	Base
	User      primitives.Address
	BoostType primitives.BoostType
	ValueBps  uint16
	Expiry    uint64
}

func (BoostApplied) Name() string         { return "BoostApplied" }
func (BoostApplied) ContractName() string { return "GhostCore" }

type PositionCulled struct {
	Base
	Victim          primitives.Address
	PenaltyAmount   primitives.Amount
	ReturnedAmount  primitives.Amount
	NewEntrant      primitives.Address
}

func (PositionCulled) Name() string         { return "PositionCulled" }
func (PositionCulled) ContractName() string { return "GhostCore" }

type DeathsProcessed struct {
	Base
	Level      primitives.RiskLevel
	Count      uint64
	TotalDead  primitives.Amount
	Burned     primitives.Amount
	Distributed primitives.Amount
}

func (DeathsProcessed) Name() string         { return "DeathsProcessed" }
func (DeathsProcessed) ContractName() string { return "GhostCore" }

type SurvivorsUpdated struct {
	Base
	Level primitives.RiskLevel
	Count uint64
}

func (SurvivorsUpdated) Name() string         { return "SurvivorsUpdated" }
func (SurvivorsUpdated) ContractName() string { return "GhostCore" }

type CascadeDistributed struct {
	Base
	SourceLevel     primitives.RiskLevel
	SameLevelAmount primitives.Amount
	UpstreamAmount  primitives.Amount
	BurnAmount      primitives.Amount
	ProtocolAmount  primitives.Amount
}

func (CascadeDistributed) Name() string         { return "CascadeDistributed" }
func (CascadeDistributed) ContractName() string { return "GhostCore" }

type EmissionsAdded struct {
	Base
	Level  primitives.RiskLevel
	Amount primitives.Amount
}

func (EmissionsAdded) Name() string         { return "EmissionsAdded" }
func (EmissionsAdded) ContractName() string { return "GhostCore" }

type SystemResetTriggered struct {
	Base
	TotalPenalty   primitives.Amount
	JackpotWinner  primitives.Address
	JackpotAmount  primitives.Amount
}

func (SystemResetTriggered) Name() string         { return "SystemResetTriggered" }
func (SystemResetTriggered) ContractName() string { return "GhostCore" }

// ─── TraceScan ──────────────────────────────────────────────────────────────

type ScanExecuted struct {
	Base
	Level      primitives.RiskLevel
	ScanID     string
	Seed       string
	ExecutedAt uint64
}

func (ScanExecuted) Name() string         { return "ScanExecuted" }
func (ScanExecuted) ContractName() string { return "TraceScan" }

type DeathsSubmitted struct {
	Base
	Level     primitives.RiskLevel
	ScanID    string
	Count     uint64
	TotalDead primitives.Amount
	Submitter primitives.Address
}

func (DeathsSubmitted) Name() string         { return "DeathsSubmitted" }
func (DeathsSubmitted) ContractName() string { return "TraceScan" }

type ScanFinalized struct {
	Base
	Level       primitives.RiskLevel
	ScanID      string
	DeathCount  uint64
	TotalDead   primitives.Amount
	FinalizedAt uint64
}

func (ScanFinalized) Name() string         { return "ScanFinalized" }
func (ScanFinalized) ContractName() string { return "TraceScan" }

// ─── DeadPool ───────────────────────────────────────────────────────────────

type RoundCreated struct {
	Base
	RoundID     string
	RoundType   primitives.RoundType
	TargetLevel primitives.RiskLevel
	Line        primitives.Amount
	Deadline    uint64
}

func (RoundCreated) Name() string         { return "RoundCreated" }
func (RoundCreated) ContractName() string { return "DeadPool" }

type BetPlaced struct {
	Base
	RoundID string
	User    primitives.Address
	IsOver  bool
	Amount  primitives.Amount
}

func (BetPlaced) Name() string         { return "BetPlaced" }
func (BetPlaced) ContractName() string { return "DeadPool" }

type RoundResolved struct {
	Base
	RoundID  string
	Outcome  bool
	TotalPot primitives.Amount
	Burned   primitives.Amount
}

func (RoundResolved) Name() string         { return "RoundResolved" }
func (RoundResolved) ContractName() string { return "DeadPool" }

type WinningsClaimed struct {
	Base
	RoundID string
	User    primitives.Address
	Amount  primitives.Amount
}

func (WinningsClaimed) Name() string         { return "WinningsClaimed" }
func (WinningsClaimed) ContractName() string { return "DeadPool" }

// ─── DataToken ──────────────────────────────────────────────────────────────

type Transfer struct {
	Base
	From  primitives.Address
	To    primitives.Address
	Value primitives.Amount
}

func (Transfer) Name() string         { return "Transfer" }
func (Transfer) ContractName() string { return "DataToken" }

type TaxBurned struct {
	Base
	From   primitives.Address
	Amount primitives.Amount
}

func (TaxBurned) Name() string         { return "TaxBurned" }
func (TaxBurned) ContractName() string { return "DataToken" }

type TaxCollected struct {
	Base
	From   primitives.Address
	Amount primitives.Amount
}

func (TaxCollected) Name() string         { return "TaxCollected" }
func (TaxCollected) ContractName() string { return "DataToken" }

type TaxExclusionSet struct {
	Base
	Account  primitives.Address
	Excluded bool
}

func (TaxExclusionSet) Name() string         { return "TaxExclusionSet" }
func (TaxExclusionSet) ContractName() string { return "DataToken" }

// ─── FeeRouter ──────────────────────────────────────────────────────────────

type TollCollected struct {
	Base
	From   primitives.Address
	Amount primitives.Amount
	Reason common.Hash
}

func (TollCollected) Name() string         { return "TollCollected" }
func (TollCollected) ContractName() string { return "FeeRouter" }

type BuybackExecuted struct {
	Base
	EthSpent     primitives.Amount
	DataReceived primitives.Amount
	DataBurned   primitives.Amount
}

func (BuybackExecuted) Name() string         { return "BuybackExecuted" }
func (BuybackExecuted) ContractName() string { return "FeeRouter" }

type OperationsWithdrawn struct {
	Base
	To     primitives.Address
	Amount primitives.Amount
}

func (OperationsWithdrawn) Name() string         { return "OperationsWithdrawn" }
func (OperationsWithdrawn) ContractName() string { return "FeeRouter" }

// ─── RewardsDistributor ─────────────────────────────────────────────────────

type EmissionsDistributed struct {
	Base
	TotalAmount primitives.Amount
	Timestamp   uint64
}

func (EmissionsDistributed) Name() string         { return "EmissionsDistributed" }
func (EmissionsDistributed) ContractName() string { return "RewardsDistributor" }

type WeightsUpdated struct {
	Base
	NewWeights [5]uint16
}

func (WeightsUpdated) Name() string         { return "WeightsUpdated" }
func (WeightsUpdated) ContractName() string { return "RewardsDistributor" }

type TokensClaimed struct {
	Base
	Member primitives.Address
	Amount primitives.Amount
}

func (TokensClaimed) Name() string         { return "TokensClaimed" }
func (TokensClaimed) ContractName() string { return "RewardsDistributor" }
