// Package reorg maintains the invariant that, for every indexed block
// n > first_indexed, the stored block hash at n-1 equals block n's parent
// hash, detecting and rolling back chain reorganizations.
package reorg

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ghostnet/indexer/internal/errs"
	"github.com/ghostnet/indexer/internal/ports"
	"github.com/ghostnet/indexer/internal/primitives"
)

// DefaultMaxReorgDepth bounds how far back the fork search may walk before
// giving up with a fatal error.
const DefaultMaxReorgDepth = 256

// DefaultBlockRetention is how many trailing block hashes are kept once
// retention pruning runs; strictly greater than DefaultMaxReorgDepth.
const DefaultBlockRetention = 512

// Result classifies the outcome of Check.
type Result int

const (
	// FirstBlock means this is the first block the indexer has ever seen;
	// there is nothing to compare against.
	FirstBlock Result = iota
	// NoReorg means the stored parent hash matches.
	NoReorg
	// ParentNotFound means the parent hash was pruned or never recorded;
	// treated as no-reorg for processing purposes, but the new hash is
	// still recorded.
	ParentNotFound
	// ReorgDetected means the stored hash diverges from the incoming
	// chain's parent hash; ForkPoint and Depth on the Outcome describe it.
	ReorgDetected
)

// Outcome is the full result of a Check call.
type Outcome struct {
	Result    Result
	ForkPoint primitives.BlockNumber
	Depth     uint64
}

// ChainHashFetcher fetches the hash and parent hash of a remote block, used
// to walk back the incoming chain during fork-point search.
type ChainHashFetcher interface {
	BlockHashAt(ctx context.Context, block primitives.BlockNumber) (hash, parent [32]byte, err error)
}

// Handler detects and rolls back reorganizations using the retained window
// of block hashes in the indexer-state store.
type Handler struct {
	store    ports.IndexerStateStore
	cache    ports.Cache
	chain    ChainHashFetcher
	maxDepth uint64
	log      *logrus.Entry
}

// New constructs a Handler. maxDepth of 0 selects DefaultMaxReorgDepth.
func New(store ports.IndexerStateStore, cache ports.Cache, chain ChainHashFetcher, maxDepth uint64, log *logrus.Entry) *Handler {
	if maxDepth == 0 {
		maxDepth = DefaultMaxReorgDepth
	}
	return &Handler{store: store, cache: cache, chain: chain, maxDepth: maxDepth, log: log}
}

// Check compares the incoming block's parent hash against the stored hash
// at blockNumber-1 and classifies the result.
func (h *Handler) Check(ctx context.Context, blockNumber primitives.BlockNumber, parentHash [32]byte) (Outcome, error) {
	if blockNumber == primitives.GenesisBlock {
		return Outcome{Result: FirstBlock}, nil
	}

	prevNumber := blockNumber.Prev()
	rec, err := h.store.GetBlockHash(ctx, prevNumber)
	if err != nil {
		return Outcome{}, errs.Wrap(errs.KindDatabase, "reorg check: get previous block hash", err)
	}
	if rec == nil {
		if prevNumber == primitives.GenesisBlock {
			return Outcome{Result: FirstBlock}, nil
		}
		h.log.WithField("block", prevNumber.Uint64()).Warn("reorg check: parent hash not found, treating as no-reorg")
		return Outcome{Result: ParentNotFound}, nil
	}
	if rec.BlockHash == parentHash {
		return Outcome{Result: NoReorg}, nil
	}

	forkPoint, err := h.findForkPoint(ctx, prevNumber)
	if err != nil {
		return Outcome{}, err
	}
	depth := blockNumber.Uint64() - forkPoint.Uint64()
	if depth > h.maxDepth {
		return Outcome{}, errs.Wrap(errs.KindReorgTooDeep, "reorg exceeds max depth", errs.ErrReorgTooDeep)
	}
	return Outcome{Result: ReorgDetected, ForkPoint: forkPoint, Depth: depth}, nil
}

// findForkPoint walks backward from startBlock until the stored hash at some
// block equals the incoming chain's parent hash at that point. The walk is
// bounded by maxDepth steps; exhausting it means the divergence is deeper
// than the indexer is allowed to repair.
func (h *Handler) findForkPoint(ctx context.Context, startBlock primitives.BlockNumber) (primitives.BlockNumber, error) {
	current := startBlock
	for steps := uint64(0); steps <= h.maxDepth; steps++ {
		if current == primitives.GenesisBlock {
			return primitives.GenesisBlock, nil
		}
		candidate := current.Prev()
		rec, err := h.store.GetBlockHash(ctx, candidate)
		if err != nil {
			return 0, errs.Wrap(errs.KindDatabase, "reorg fork search: get block hash", err)
		}
		if rec == nil {
			return candidate, nil
		}

		_, remoteParent, err := h.chain.BlockHashAt(ctx, current)
		if err != nil {
			return 0, errs.Wrap(errs.KindRPC, "reorg fork search: fetch remote block hash", err)
		}
		if rec.BlockHash == remoteParent {
			return candidate, nil
		}
		current = candidate
	}
	return 0, errs.Wrap(errs.KindReorgTooDeep, "reorg fork search exhausted max depth", errs.ErrReorgTooDeep)
}

// Rollback retracts all indexed state strictly after forkPoint in a single
// transaction, then invalidates the cache broadly: every level and every
// block hash at or after forkPoint+1.
func (h *Handler) Rollback(ctx context.Context, forkPoint primitives.BlockNumber) error {
	if err := h.store.ExecuteReorgRollback(ctx, forkPoint); err != nil {
		return errs.Wrap(errs.KindDatabase, "reorg rollback", err)
	}
	for _, lvl := range primitives.AllLevels {
		h.cache.InvalidateLevel(lvl)
	}
	h.cache.InvalidateBlocksFrom(forkPoint.Next())
	h.log.WithField("fork_point", forkPoint.Uint64()).Warn("reorg rollback complete, caches invalidated")
	return nil
}

// Retain prunes block hashes older than retention blocks behind the current
// head, called after every 100 successfully processed blocks.
func (h *Handler) Retain(ctx context.Context, retention primitives.BlockNumber) error {
	if retention == 0 {
		retention = DefaultBlockRetention
	}
	if err := h.store.PruneOldBlocks(ctx, retention); err != nil {
		return errs.Wrap(errs.KindDatabase, "reorg retention prune", err)
	}
	return nil
}
