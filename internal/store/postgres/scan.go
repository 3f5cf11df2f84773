package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/ghostnet/indexer/internal/entities"
	"github.com/ghostnet/indexer/internal/errs"
	"github.com/ghostnet/indexer/internal/primitives"
)

const scanColumns = `id, scan_id, level, seed, executed_at, finalized_at,
	death_count, total_dead, burned, distributed_same_level,
	distributed_upstream, protocol_fee, survivor_count`

func scanScanRow(row interface {
	Scan(dest ...any) error
}) (entities.Scan, error) {
	var (
		id                   uuid.UUID
		scanID               string
		level                int16
		seed                 string
		executedAt           sql.NullTime
		finalizedAt          sql.NullTime
		deathCount           sql.NullInt32
		totalDead            sql.NullString
		burned               sql.NullString
		distributedSameLevel sql.NullString
		distributedUpstream  sql.NullString
		protocolFee          sql.NullString
		survivorCount        sql.NullInt32
	)
	if err := row.Scan(&id, &scanID, &level, &seed, &executedAt, &finalizedAt,
		&deathCount, &totalDead, &burned, &distributedSameLevel,
		&distributedUpstream, &protocolFee, &survivorCount); err != nil {
		return entities.Scan{}, err
	}

	lvl, err := primitives.NewRiskLevel(uint8(level))
	if err != nil {
		return entities.Scan{}, err
	}
	totalDeadAmt, err := nullAmount(totalDead)
	if err != nil {
		return entities.Scan{}, err
	}
	burnedAmt, err := nullAmount(burned)
	if err != nil {
		return entities.Scan{}, err
	}
	sameLevelAmt, err := nullAmount(distributedSameLevel)
	if err != nil {
		return entities.Scan{}, err
	}
	upstreamAmt, err := nullAmount(distributedUpstream)
	if err != nil {
		return entities.Scan{}, err
	}
	feeAmt, err := nullAmount(protocolFee)
	if err != nil {
		return entities.Scan{}, err
	}

	return entities.Scan{
		ID:                   id,
		ScanID:               scanID,
		Level:                lvl,
		Seed:                 seed,
		ExecutedAt:           executedAt.Time,
		FinalizedAt:          nullTime(finalizedAt),
		DeathCount:           nullUint32(deathCount),
		TotalDead:            totalDeadAmt,
		Burned:               burnedAmt,
		DistributedSameLevel: sameLevelAmt,
		DistributedUpstream:  upstreamAmt,
		ProtocolFee:          feeAmt,
		SurvivorCount:        nullUint32(survivorCount),
	}, nil
}

func (s *Store) SaveScan(ctx context.Context, sc entities.Scan) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scans (id, scan_id, level, seed, executed_at, finalized_at,
			death_count, total_dead, burned, distributed_same_level,
			distributed_upstream, protocol_fee, survivor_count)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (scan_id) DO UPDATE SET
			finalized_at = EXCLUDED.finalized_at,
			death_count = EXCLUDED.death_count,
			total_dead = EXCLUDED.total_dead,
			burned = EXCLUDED.burned,
			distributed_same_level = EXCLUDED.distributed_same_level,
			distributed_upstream = EXCLUDED.distributed_upstream,
			protocol_fee = EXCLUDED.protocol_fee,
			survivor_count = EXCLUDED.survivor_count`,
		sc.ID, sc.ScanID, int16(sc.Level), sc.Seed, sc.ExecutedAt, nullTimeValue(sc.FinalizedAt),
		nullInt32Value(sc.DeathCount), nullAmountValue(sc.TotalDead), nullAmountValue(sc.Burned),
		nullAmountValue(sc.DistributedSameLevel), nullAmountValue(sc.DistributedUpstream),
		nullAmountValue(sc.ProtocolFee), nullInt32Value(sc.SurvivorCount))
	if err != nil {
		return errs.Wrap(errs.KindDatabase, "save scan", err)
	}
	return nil
}

func (s *Store) FinalizeScan(ctx context.Context, onChainScanID string, data entities.ScanFinalizationData) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE scans SET
			finalized_at = $2,
			death_count = $3,
			total_dead = $4,
			burned = $5,
			distributed_same_level = $6,
			distributed_upstream = $7,
			protocol_fee = $8,
			survivor_count = $9
		WHERE scan_id = $1`,
		onChainScanID, data.FinalizedAt, int32(data.DeathCount), amountValue(data.TotalDead),
		amountValue(data.Burned), amountValue(data.DistributedSameLevel), amountValue(data.DistributedUpstream),
		amountValue(data.ProtocolFee), int32(data.SurvivorCount))
	if err != nil {
		return errs.Wrap(errs.KindDatabase, "finalize scan", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errs.Wrap(errs.KindDatabase, "finalize scan rows affected", err)
	}
	if n == 0 {
		return errs.New(errs.KindRoundNotFound, "scan "+onChainScanID+" not found for finalization")
	}
	return nil
}

func (s *Store) GetRecentScans(ctx context.Context, level primitives.RiskLevel, limit int) ([]entities.Scan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+scanColumns+`
		FROM scans
		WHERE level = $1
		ORDER BY executed_at DESC
		LIMIT $2`, int16(level), limit)
	if err != nil {
		return nil, errs.Wrap(errs.KindDatabase, "get recent scans", err)
	}
	defer rows.Close()

	var out []entities.Scan
	for rows.Next() {
		sc, err := scanScanRow(rows)
		if err != nil {
			return nil, errs.Wrap(errs.KindDatabase, "scan recent scan row", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *Store) GetScanByID(ctx context.Context, onChainScanID string) (*entities.Scan, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+scanColumns+` FROM scans WHERE scan_id = $1`, onChainScanID)
	sc, err := scanScanRow(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindDatabase, "get scan by id", err)
	}
	return &sc, nil
}

func (s *Store) GetPendingScans(ctx context.Context) ([]entities.Scan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+scanColumns+`
		FROM scans
		WHERE finalized_at IS NULL
		ORDER BY executed_at ASC`)
	if err != nil {
		return nil, errs.Wrap(errs.KindDatabase, "get pending scans", err)
	}
	defer rows.Close()

	var out []entities.Scan
	for rows.Next() {
		sc, err := scanScanRow(rows)
		if err != nil {
			return nil, errs.Wrap(errs.KindDatabase, "scan pending scan row", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}
