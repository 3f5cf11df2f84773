// Package checkpoint owns the indexer's "last successfully processed block"
// and the four recovery modes that pick a start block on launch.
package checkpoint

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ghostnet/indexer/internal/ports"
	"github.com/ghostnet/indexer/internal/primitives"
)

// Mode selects how the start block is computed on launch.
type Mode int

const (
	// Resume continues from the last persisted checkpoint, or MinBlock if
	// none exists. The default.
	Resume Mode = iota
	// ReindexFrom restarts from a specific block, discarding nothing (the
	// operator is expected to have already rolled back any state).
	ReindexFrom
	// Genesis restarts from block 0.
	Genesis
	// StartFrom pins the start block, ignoring any existing checkpoint.
	StartFrom
)

// Config selects the recovery mode and its parameters.
type Config struct {
	Mode Mode
	// TargetBlock is used by ReindexFrom and StartFrom.
	TargetBlock primitives.BlockNumber
	// MinBlock is the contract-deployment block; every mode clamps to it.
	MinBlock primitives.BlockNumber
}

// Manager mediates checkpoint reads/writes through the indexer-state store.
type Manager struct {
	store ports.IndexerStateStore
	cfg   Config
	log   *logrus.Entry
}

// New constructs a Manager.
func New(store ports.IndexerStateStore, cfg Config, log *logrus.Entry) *Manager {
	return &Manager{store: store, cfg: cfg, log: log}
}

func clamp(block, min primitives.BlockNumber) primitives.BlockNumber {
	if block < min {
		return min
	}
	return block
}

// Start computes the block the indexer should begin processing from,
// applying the configured recovery mode.
func (m *Manager) Start(ctx context.Context) (primitives.BlockNumber, error) {
	switch m.cfg.Mode {
	case Genesis:
		start := clamp(primitives.GenesisBlock, m.cfg.MinBlock)
		m.log.WithField("start_block", start).Info("checkpoint: genesis recovery")
		return start, nil

	case StartFrom:
		start := clamp(m.cfg.TargetBlock, m.cfg.MinBlock)
		m.log.WithField("start_block", start).Info("checkpoint: start-from recovery")
		return start, nil

	case ReindexFrom:
		start := clamp(m.cfg.TargetBlock, m.cfg.MinBlock)
		m.log.WithField("start_block", start).Info("checkpoint: reindex-from recovery")
		return start, nil

	default: // Resume
		cp, err := m.store.GetLastBlock(ctx)
		if err != nil {
			return 0, err
		}
		var start primitives.BlockNumber
		if cp.IsEmpty() {
			start = m.cfg.MinBlock
		} else {
			start = cp.LastBlock.Next()
		}
		start = clamp(start, m.cfg.MinBlock)
		m.log.WithField("start_block", start).Info("checkpoint: resume recovery")
		return start, nil
	}
}

// Update persists the newly processed block as the checkpoint.
func (m *Manager) Update(ctx context.Context, block primitives.BlockNumber, hash [32]byte) error {
	return m.store.SetLastBlock(ctx, block, hash)
}

// ResetTo rewrites the checkpoint to forkPoint after a reorg rollback.
func (m *Manager) ResetTo(ctx context.Context, forkPoint primitives.BlockNumber, hash [32]byte) error {
	return m.store.SetLastBlock(ctx, forkPoint, hash)
}
