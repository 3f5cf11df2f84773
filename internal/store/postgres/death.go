package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/ghostnet/indexer/internal/entities"
	"github.com/ghostnet/indexer/internal/errs"
	"github.com/ghostnet/indexer/internal/primitives"
)

const deathColumns = `id, scan_id, user_address, position_id, amount_lost,
	level, ghost_streak_at_death, created_at`

func scanDeathRow(row interface {
	Scan(dest ...any) error
}) (entities.Death, error) {
	var (
		id               uuid.UUID
		scanID           uuid.NullUUID
		addr             primitives.Address
		positionID       uuid.NullUUID
		amountLost       primitives.Amount
		level            int16
		ghostStreakDeath sql.NullInt32
		createdAt        sql.NullTime
	)
	if err := row.Scan(&id, &scanID, &addr, &positionID, &amountLost,
		&level, &ghostStreakDeath, &createdAt); err != nil {
		return entities.Death{}, err
	}

	lvl, err := primitives.NewRiskLevel(uint8(level))
	if err != nil {
		return entities.Death{}, err
	}
	streak, err := nullStreak(ghostStreakDeath)
	if err != nil {
		return entities.Death{}, err
	}

	d := entities.Death{
		ID:                 id,
		UserAddress:        addr,
		AmountLost:         amountLost,
		Level:              lvl,
		GhostStreakAtDeath: streak,
		CreatedAt:          createdAt.Time,
	}
	if scanID.Valid {
		d.ScanID = &scanID.UUID
	}
	if positionID.Valid {
		d.PositionID = &positionID.UUID
	}
	return d, nil
}

func nullUUIDValue(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func (s *Store) RecordDeaths(ctx context.Context, batch []entities.Death) error {
	if len(batch) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.KindDatabase, "record deaths begin tx", err)
	}
	defer tx.Rollback()

	for _, d := range batch {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO deaths (id, scan_id, user_address, position_id, amount_lost,
				level, ghost_streak_at_death, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			d.ID, nullUUIDValue(d.ScanID), addressBytes(d.UserAddress), nullUUIDValue(d.PositionID),
			amountValue(d.AmountLost), int16(d.Level), nullStreakValue(d.GhostStreakAtDeath), d.CreatedAt)
		if err != nil {
			return errs.Wrap(errs.KindDatabase, "insert death", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.KindDatabase, "record deaths commit", err)
	}
	s.log.WithField("count", len(batch)).Debug("deaths recorded")
	return nil
}

func (s *Store) GetDeathsForScan(ctx context.Context, onChainScanID string) ([]entities.Death, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.scan_id, d.user_address, d.position_id, d.amount_lost,
			d.level, d.ghost_streak_at_death, d.created_at
		FROM deaths d
		JOIN scans sc ON sc.id = d.scan_id
		WHERE sc.scan_id = $1
		ORDER BY d.created_at ASC`, onChainScanID)
	if err != nil {
		return nil, errs.Wrap(errs.KindDatabase, "get deaths for scan", err)
	}
	defer rows.Close()

	var out []entities.Death
	for rows.Next() {
		d, err := scanDeathRow(rows)
		if err != nil {
			return nil, errs.Wrap(errs.KindDatabase, "scan death row", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) GetUserDeaths(ctx context.Context, addr primitives.Address, limit int) ([]entities.Death, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+deathColumns+`
		FROM deaths
		WHERE user_address = $1
		ORDER BY created_at DESC
		LIMIT $2`, addressBytes(addr), limit)
	if err != nil {
		return nil, errs.Wrap(errs.KindDatabase, "get user deaths", err)
	}
	defer rows.Close()

	var out []entities.Death
	for rows.Next() {
		d, err := scanDeathRow(rows)
		if err != nil {
			return nil, errs.Wrap(errs.KindDatabase, "scan user death row", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) CountDeathsByLevel(ctx context.Context, level primitives.RiskLevel) (uint32, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM deaths WHERE level = $1`, int16(level)).Scan(&count)
	if err != nil {
		return 0, errs.Wrap(errs.KindDatabase, "count deaths by level", err)
	}
	return uint32(count), nil
}

func (s *Store) GetRecentDeaths(ctx context.Context, limit int) ([]entities.Death, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+deathColumns+`
		FROM deaths
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, errs.Wrap(errs.KindDatabase, "get recent deaths", err)
	}
	defer rows.Close()

	var out []entities.Death
	for rows.Next() {
		d, err := scanDeathRow(rows)
		if err != nil {
			return nil, errs.Wrap(errs.KindDatabase, "scan recent death row", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
