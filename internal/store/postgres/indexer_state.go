package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ghostnet/indexer/internal/entities"
	"github.com/ghostnet/indexer/internal/errs"
	"github.com/ghostnet/indexer/internal/primitives"
)

func hashBytes(h [32]byte) []byte { return h[:] }

func toHash(b []byte) ([32]byte, error) {
	var h [32]byte
	if len(b) != 32 {
		return h, fmt.Errorf("postgres: expected 32-byte hash, got %d", len(b))
	}
	copy(h[:], b)
	return h, nil
}

// GetLastBlock returns the empty Checkpoint (per entities.Checkpoint.IsEmpty)
// if indexer_state has never been written.
func (s *Store) GetLastBlock(ctx context.Context) (entities.Checkpoint, error) {
	var (
		lastBlock int64
		hashBlob  []byte
	)
	err := s.db.QueryRowContext(ctx, `SELECT last_block, last_hash FROM indexer_state WHERE id = 1`).
		Scan(&lastBlock, &hashBlob)
	if isNoRows(err) {
		return entities.Checkpoint{}, nil
	}
	if err != nil {
		return entities.Checkpoint{}, errs.Wrap(errs.KindDatabase, "get last block", err)
	}
	cp := entities.Checkpoint{LastBlock: primitives.BlockNumber(lastBlock)}
	if hashBlob != nil {
		h, err := toHash(hashBlob)
		if err != nil {
			return entities.Checkpoint{}, errs.Wrap(errs.KindDatabase, "get last block hash", err)
		}
		cp.LastHash = &h
	}
	return cp, nil
}

func (s *Store) SetLastBlock(ctx context.Context, block primitives.BlockNumber, hash [32]byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO indexer_state (id, last_block, last_hash, updated_at)
		VALUES (1, $1, $2, now())
		ON CONFLICT (id) DO UPDATE SET
			last_block = EXCLUDED.last_block,
			last_hash = EXCLUDED.last_hash,
			updated_at = EXCLUDED.updated_at`,
		int64(block), hashBytes(hash))
	if err != nil {
		return errs.Wrap(errs.KindDatabase, "set last block", err)
	}
	return nil
}

func (s *Store) InsertBlockHash(ctx context.Context, block primitives.BlockNumber, hash, parent [32]byte, timestamp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO block_hashes (block_number, block_hash, parent_hash, timestamp)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (block_number) DO UPDATE SET
			block_hash = EXCLUDED.block_hash,
			parent_hash = EXCLUDED.parent_hash,
			timestamp = EXCLUDED.timestamp`,
		int64(block), hashBytes(hash), hashBytes(parent), timestamp)
	if err != nil {
		return errs.Wrap(errs.KindDatabase, "insert block hash", err)
	}
	return nil
}

func (s *Store) GetBlockHash(ctx context.Context, block primitives.BlockNumber) (*entities.BlockHashRecord, error) {
	var (
		blockNumber int64
		blockHash   []byte
		parentHash  []byte
		timestamp   sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT block_number, block_hash, parent_hash, timestamp
		FROM block_hashes WHERE block_number = $1`, int64(block)).
		Scan(&blockNumber, &blockHash, &parentHash, &timestamp)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindDatabase, "get block hash", err)
	}
	h, err := toHash(blockHash)
	if err != nil {
		return nil, errs.Wrap(errs.KindDatabase, "get block hash decode", err)
	}
	p, err := toHash(parentHash)
	if err != nil {
		return nil, errs.Wrap(errs.KindDatabase, "get block hash decode parent", err)
	}
	return &entities.BlockHashRecord{
		BlockNumber: primitives.BlockNumber(blockNumber),
		BlockHash:   h,
		ParentHash:  p,
		Timestamp:   timestamp.Time,
	}, nil
}

// ExecuteReorgRollback deletes every block_hashes row after forkPoint and
// resets indexer_state to forkPoint, then cascades the rollback into every
// entity table keyed (directly or transitively) by created-block so a
// re-processed chain segment doesn't leave orphaned post-fork rows behind —
// the gap the upstream rollback left unaddressed.
func (s *Store) ExecuteReorgRollback(ctx context.Context, forkPoint primitives.BlockNumber) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.KindDatabase, "reorg rollback begin tx", err)
	}
	defer tx.Rollback()

	stmts := []struct {
		name string
		sql  string
	}{
		{"position_history", `DELETE FROM position_history WHERE block_number > $1`},
		{"positions", `DELETE FROM positions WHERE created_at_block > $1`},
		{"deaths", `DELETE FROM deaths WHERE created_at > (SELECT timestamp FROM block_hashes WHERE block_number = $1)`},
		{"scans", `DELETE FROM scans WHERE executed_at > (SELECT timestamp FROM block_hashes WHERE block_number = $1)`},
		{"block_hashes", `DELETE FROM block_hashes WHERE block_number > $1`},
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt.sql, int64(forkPoint)); err != nil {
			return errs.Wrap(errs.KindDatabase, "reorg rollback delete "+stmt.name, err)
		}
	}

	var forkHash []byte
	err = tx.QueryRowContext(ctx, `SELECT block_hash FROM block_hashes WHERE block_number = $1`, int64(forkPoint)).Scan(&forkHash)
	if err != nil && !isNoRows(err) {
		return errs.Wrap(errs.KindDatabase, "reorg rollback lookup fork hash", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO indexer_state (id, last_block, last_hash, updated_at)
		VALUES (1, $1, $2, now())
		ON CONFLICT (id) DO UPDATE SET
			last_block = EXCLUDED.last_block,
			last_hash = EXCLUDED.last_hash,
			updated_at = EXCLUDED.updated_at`,
		int64(forkPoint), forkHash)
	if err != nil {
		return errs.Wrap(errs.KindDatabase, "reorg rollback reset checkpoint", err)
	}

	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.KindDatabase, "reorg rollback commit", err)
	}
	s.log.WithField("fork_point", forkPoint.Uint64()).Warn("reorg rollback executed")
	return nil
}

func (s *Store) PruneOldBlocks(ctx context.Context, keep primitives.BlockNumber) error {
	var maxBlock sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(block_number) FROM block_hashes`).Scan(&maxBlock); err != nil {
		return errs.Wrap(errs.KindDatabase, "prune old blocks max", err)
	}
	if !maxBlock.Valid || maxBlock.Int64 <= int64(keep) {
		return nil
	}
	cutoff := maxBlock.Int64 - int64(keep)
	_, err := s.db.ExecContext(ctx, `DELETE FROM block_hashes WHERE block_number < $1`, cutoff)
	if err != nil {
		return errs.Wrap(errs.KindDatabase, "prune old blocks", err)
	}
	return nil
}
