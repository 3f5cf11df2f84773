package abi

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ghostnet/indexer/internal/events"
	"github.com/ghostnet/indexer/internal/primitives"
)

// TokenDecimals is the fixed-point scale every on-chain uint256 amount in
// this system is denominated in, matching DataToken's ERC20 decimals().
const TokenDecimals = 18

// Decode turns a raw log plus the timestamp of the block it was mined in
// into a concrete events.Event. The bool return is false for a log whose
// topic0 isn't in the registry, so callers (the router) can tell "not
// ours" apart from a decode failure.
func Decode(log types.Log, blockTime uint64) (events.Event, bool, error) {
	if len(log.Topics) == 0 {
		return nil, false, nil
	}
	desc, ok := Lookup(log.Topics[0])
	if !ok {
		return nil, false, nil
	}

	meta := events.Meta{
		BlockNumber: primitives.BlockNumber(log.BlockNumber),
		BlockHash:   log.BlockHash,
		TxHash:      log.TxHash,
		TxIndex:     uint64(log.TxIndex),
		LogIndex:    uint64(log.Index),
		Timestamp:   unixToTime(blockTime),
		Contract:    primitives.FromCommon(log.Address),
	}

	values, err := desc.Event.Inputs.NonIndexed().UnpackValues(log.Data)
	if err != nil {
		return nil, true, fmt.Errorf("abi: unpack %s.%s: %w", desc.Contract, desc.Event.Name, err)
	}

	ev, err := build(desc, meta, log.Topics, values)
	if err != nil {
		return nil, true, fmt.Errorf("abi: build %s.%s: %w", desc.Contract, desc.Event.Name, err)
	}
	return ev, true, nil
}

func unixToTime(sec uint64) time.Time { return time.Unix(int64(sec), 0).UTC() }

// build dispatches on (contract, event name) to a concrete events.Event.
// topics[0] is always topic0; topics[1:] are the indexed arguments in
// declaration order. values holds the non-indexed arguments, also in
// declaration order, as unpacked by go-ethereum's abi package.
func build(d Descriptor, meta events.Meta, topics []common.Hash, values []interface{}) (events.Event, error) {
	base := events.Base{At: meta}
	idx := topics[1:]

	switch d.Contract {
	case GhostCore:
		switch d.Event.Name {
		case "JackedIn":
			return events.JackedIn{
				Base:     base,
				User:     topicAddress(idx, 0),
				Amount:   amountArg(values, 0),
				Level:    levelArg(values, 1),
				NewTotal: amountArg(values, 2),
			}, nil
		case "StakeAdded":
			return events.StakeAdded{
				Base:     base,
				User:     topicAddress(idx, 0),
				Amount:   amountArg(values, 0),
				NewTotal: amountArg(values, 1),
			}, nil
		case "Extracted":
			return events.Extracted{
				Base:    base,
				User:    topicAddress(idx, 0),
				Amount:  amountArg(values, 0),
				Rewards: amountArg(values, 1),
			}, nil
		case "BoostApplied":
			boostType, err := primitives.NewBoostType(uint8(toBigInt(values[0]).Uint64()))
			if err != nil {
				return nil, err
			}
			return events.BoostApplied{
				Base:      base,
				User:      topicAddress(idx, 0),
				BoostType: boostType,
				ValueBps:  uint16(toBigInt(values[1]).Uint64()),
				Expiry:    toBigInt(values[2]).Uint64(),
			}, nil
		case "PositionCulled":
			return events.PositionCulled{
				Base:           base,
				Victim:         topicAddress(idx, 0),
				PenaltyAmount:  amountArg(values, 0),
				ReturnedAmount: amountArg(values, 1),
				NewEntrant:     addressArg(values, 2),
			}, nil
		case "DeathsProcessed":
			return events.DeathsProcessed{
				Base:        base,
				Level:       topicLevel(idx, 0),
				Count:       toBigInt(values[0]).Uint64(),
				TotalDead:   amountArg(values, 1),
				Burned:      amountArg(values, 2),
				Distributed: amountArg(values, 3),
			}, nil
		case "SurvivorsUpdated":
			return events.SurvivorsUpdated{
				Base:  base,
				Level: topicLevel(idx, 0),
				Count: toBigInt(values[0]).Uint64(),
			}, nil
		case "CascadeDistributed":
			return events.CascadeDistributed{
				Base:            base,
				SourceLevel:     topicLevel(idx, 0),
				SameLevelAmount: amountArg(values, 0),
				UpstreamAmount:  amountArg(values, 1),
				BurnAmount:      amountArg(values, 2),
				ProtocolAmount:  amountArg(values, 3),
			}, nil
		case "EmissionsAdded":
			return events.EmissionsAdded{
				Base:   base,
				Level:  topicLevel(idx, 0),
				Amount: amountArg(values, 0),
			}, nil
		case "SystemResetTriggered":
			return events.SystemResetTriggered{
				Base:          base,
				TotalPenalty:  amountArg(values, 0),
				JackpotWinner: topicAddress(idx, 0),
				JackpotAmount: amountArg(values, 1),
			}, nil
		}
	case TraceScan:
		switch d.Event.Name {
		case "ScanExecuted":
			return events.ScanExecuted{
				Base:       base,
				Level:      topicLevel(idx, 0),
				ScanID:     topicBigInt(idx, 1).String(),
				Seed:       toBigInt(values[0]).String(),
				ExecutedAt: toBigInt(values[1]).Uint64(),
			}, nil
		case "DeathsSubmitted":
			return events.DeathsSubmitted{
				Base:      base,
				Level:     topicLevel(idx, 0),
				ScanID:    topicBigInt(idx, 1).String(),
				Count:     toBigInt(values[0]).Uint64(),
				TotalDead: amountArg(values, 1),
				Submitter: addressArg(values, 2),
			}, nil
		case "ScanFinalized":
			return events.ScanFinalized{
				Base:        base,
				Level:       topicLevel(idx, 0),
				ScanID:      topicBigInt(idx, 1).String(),
				DeathCount:  toBigInt(values[0]).Uint64(),
				TotalDead:   amountArg(values, 1),
				FinalizedAt: toBigInt(values[2]).Uint64(),
			}, nil
		}
	case DeadPool:
		switch d.Event.Name {
		case "RoundCreated":
			roundType, err := primitives.NewRoundType(uint8(toBigInt(values[0]).Uint64()))
			if err != nil {
				return nil, err
			}
			level, err := primitives.NewRiskLevel(uint8(toBigInt(values[1]).Uint64()))
			if err != nil {
				return nil, err
			}
			return events.RoundCreated{
				Base:        base,
				RoundID:     topicBigInt(idx, 0).String(),
				RoundType:   roundType,
				TargetLevel: level,
				Line:        amountArg(values, 2),
				Deadline:    toBigInt(values[3]).Uint64(),
			}, nil
		case "BetPlaced":
			return events.BetPlaced{
				Base:    base,
				RoundID: topicBigInt(idx, 0).String(),
				User:    topicAddress(idx, 1),
				IsOver:  boolArg(values, 0),
				Amount:  amountArg(values, 1),
			}, nil
		case "RoundResolved":
			return events.RoundResolved{
				Base:     base,
				RoundID:  topicBigInt(idx, 0).String(),
				Outcome:  boolArg(values, 0),
				TotalPot: amountArg(values, 1),
				Burned:   amountArg(values, 2),
			}, nil
		case "WinningsClaimed":
			return events.WinningsClaimed{
				Base:    base,
				RoundID: topicBigInt(idx, 0).String(),
				User:    topicAddress(idx, 1),
				Amount:  amountArg(values, 0),
			}, nil
		}
	case DataToken:
		switch d.Event.Name {
		case "Transfer":
			return events.Transfer{
				Base:  base,
				From:  topicAddress(idx, 0),
				To:    topicAddress(idx, 1),
				Value: amountArg(values, 0),
			}, nil
		case "TaxBurned":
			return events.TaxBurned{
				Base:   base,
				From:   topicAddress(idx, 0),
				Amount: amountArg(values, 0),
			}, nil
		case "TaxCollected":
			return events.TaxCollected{
				Base:   base,
				From:   topicAddress(idx, 0),
				Amount: amountArg(values, 0),
			}, nil
		case "TaxExclusionSet":
			return events.TaxExclusionSet{
				Base:     base,
				Account:  topicAddress(idx, 0),
				Excluded: boolArg(values, 0),
			}, nil
		}
	case FeeRouter:
		switch d.Event.Name {
		case "TollCollected":
			return events.TollCollected{
				Base:   base,
				From:   topicAddress(idx, 0),
				Amount: amountArg(values, 0),
				Reason: bytes32Arg(values, 1),
			}, nil
		case "BuybackExecuted":
			return events.BuybackExecuted{
				Base:         base,
				EthSpent:     amountArg(values, 0),
				DataReceived: amountArg(values, 1),
				DataBurned:   amountArg(values, 2),
			}, nil
		case "OperationsWithdrawn":
			return events.OperationsWithdrawn{
				Base:   base,
				To:     topicAddress(idx, 0),
				Amount: amountArg(values, 0),
			}, nil
		}
	case RewardsDistributor:
		switch d.Event.Name {
		case "EmissionsDistributed":
			return events.EmissionsDistributed{
				Base:        base,
				TotalAmount: amountArg(values, 0),
				Timestamp:   toBigInt(values[1]).Uint64(),
			}, nil
		case "WeightsUpdated":
			return events.WeightsUpdated{
				Base:       base,
				NewWeights: weightsArg(values, 0),
			}, nil
		case "TokensClaimed":
			return events.TokensClaimed{
				Base:   base,
				Member: topicAddress(idx, 0),
				Amount: amountArg(values, 0),
			}, nil
		}
	}
	return nil, fmt.Errorf("abi: no decoder wired for %s.%s", d.Contract, d.Event.Name)
}

func toBigInt(v interface{}) *big.Int {
	switch n := v.(type) {
	case *big.Int:
		return n
	case uint8:
		return new(big.Int).SetUint64(uint64(n))
	case uint16:
		return new(big.Int).SetUint64(uint64(n))
	case uint64:
		return new(big.Int).SetUint64(n)
	default:
		return big.NewInt(0)
	}
}

func amountArg(values []interface{}, i int) primitives.Amount {
	amt, _ := primitives.FromWei(toBigInt(values[i]), TokenDecimals)
	return amt
}

func addressArg(values []interface{}, i int) primitives.Address {
	addr, _ := values[i].(common.Address)
	return primitives.FromCommon(addr)
}

func boolArg(values []interface{}, i int) bool {
	b, _ := values[i].(bool)
	return b
}

func bytes32Arg(values []interface{}, i int) common.Hash {
	b, _ := values[i].([32]byte)
	return common.Hash(b)
}

func weightsArg(values []interface{}, i int) [5]uint16 {
	var out [5]uint16
	arr, ok := values[i].([5]uint16)
	if ok {
		return arr
	}
	if slice, ok := values[i].([]uint16); ok {
		copy(out[:], slice)
	}
	return out
}

func topicAddress(topics []common.Hash, i int) primitives.Address {
	return primitives.FromCommon(common.BytesToAddress(topics[i].Bytes()))
}

func topicBigInt(topics []common.Hash, i int) *big.Int {
	return new(big.Int).SetBytes(topics[i].Bytes())
}

func levelArg(values []interface{}, i int) primitives.RiskLevel {
	lvl, err := primitives.NewRiskLevel(uint8(toBigInt(values[i]).Uint64()))
	if err != nil {
		return primitives.LevelSafest
	}
	return lvl
}

func topicLevel(topics []common.Hash, i int) primitives.RiskLevel {
	lvl, err := primitives.NewRiskLevel(uint8(topicBigInt(topics, i).Uint64()))
	if err != nil {
		return primitives.LevelSafest
	}
	return lvl
}
