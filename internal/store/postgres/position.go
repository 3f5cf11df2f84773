package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/ghostnet/indexer/internal/entities"
	"github.com/ghostnet/indexer/internal/errs"
	"github.com/ghostnet/indexer/internal/primitives"
)

const positionColumns = `id, user_address, level, amount, reward_debt, entry_timestamp,
	last_add_timestamp, ghost_streak, is_alive, is_extracted,
	exit_reason, exit_timestamp, extracted_amount, extracted_rewards,
	created_at_block, updated_at`

func scanPosition(row interface {
	Scan(dest ...any) error
}) (*entities.Position, error) {
	var (
		id               uuid.UUID
		addr             primitives.Address
		level            int16
		amount           primitives.Amount
		rewardDebt       primitives.Amount
		entryTS          sql.NullTime
		lastAddTS        sql.NullTime
		ghostStreak      int32
		isAlive          bool
		isExtracted      bool
		exitReason       sql.NullString
		exitTS           sql.NullTime
		extractedAmount  sql.NullString
		extractedRewards sql.NullString
		createdAtBlock   int64
		updatedAt        sql.NullTime
	)
	if err := row.Scan(&id, &addr, &level, &amount, &rewardDebt, &entryTS,
		&lastAddTS, &ghostStreak, &isAlive, &isExtracted,
		&exitReason, &exitTS, &extractedAmount, &extractedRewards,
		&createdAtBlock, &updatedAt); err != nil {
		return nil, err
	}

	lvl, err := primitives.NewRiskLevel(uint8(level))
	if err != nil {
		return nil, fmt.Errorf("postgres: position row: %w", err)
	}
	streak, err := primitives.NewGhostStreak(ghostStreak)
	if err != nil {
		return nil, fmt.Errorf("postgres: position row: %w", err)
	}
	extAmt, err := nullAmount(extractedAmount)
	if err != nil {
		return nil, err
	}
	extRew, err := nullAmount(extractedRewards)
	if err != nil {
		return nil, err
	}

	return &entities.Position{
		ID:               id,
		UserAddress:      addr,
		Level:            lvl,
		Amount:           amount,
		RewardDebt:       rewardDebt,
		EntryTimestamp:   entryTS.Time,
		LastAddTimestamp: nullTime(lastAddTS),
		GhostStreak:      streak,
		IsAlive:          isAlive,
		IsExtracted:      isExtracted,
		ExitReason:       nullExitReason(exitReason),
		ExitTimestamp:    nullTime(exitTS),
		ExtractedAmount:  extAmt,
		ExtractedRewards: extRew,
		CreatedAtBlock:   primitives.BlockNumber(createdAtBlock),
		UpdatedAt:        updatedAt.Time,
	}, nil
}

func (s *Store) GetActivePosition(ctx context.Context, addr primitives.Address) (*entities.Position, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+positionColumns+`
		FROM positions
		WHERE user_address = $1 AND is_alive = true AND is_extracted = false
		ORDER BY entry_timestamp DESC
		LIMIT 1`, addressBytes(addr))

	pos, err := scanPosition(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindDatabase, "get active position", err)
	}
	return pos, nil
}

func (s *Store) SavePosition(ctx context.Context, p *entities.Position) error {
	// Primary key is (id, entry_timestamp) so upsert targets that pair —
	// hypertables require the partitioning column in ON CONFLICT, but
	// positions is a regular table here; the compound key still matches
	// supersede-then-reinsert semantics for the same address.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO positions (
			id, user_address, level, amount, reward_debt, entry_timestamp,
			last_add_timestamp, ghost_streak, is_alive, is_extracted,
			exit_reason, exit_timestamp, extracted_amount, extracted_rewards,
			created_at_block, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (id, entry_timestamp) DO UPDATE SET
			amount = EXCLUDED.amount,
			reward_debt = EXCLUDED.reward_debt,
			last_add_timestamp = EXCLUDED.last_add_timestamp,
			ghost_streak = EXCLUDED.ghost_streak,
			is_alive = EXCLUDED.is_alive,
			is_extracted = EXCLUDED.is_extracted,
			exit_reason = EXCLUDED.exit_reason,
			exit_timestamp = EXCLUDED.exit_timestamp,
			extracted_amount = EXCLUDED.extracted_amount,
			extracted_rewards = EXCLUDED.extracted_rewards,
			updated_at = EXCLUDED.updated_at`,
		p.ID, addressBytes(p.UserAddress), int16(p.Level), amountValue(p.Amount), amountValue(p.RewardDebt),
		p.EntryTimestamp, nullTimeValue(p.LastAddTimestamp), p.GhostStreak.Int32(), p.IsAlive, p.IsExtracted,
		nullExitReasonValue(p.ExitReason), nullTimeValue(p.ExitTimestamp), nullAmountValue(p.ExtractedAmount),
		nullAmountValue(p.ExtractedRewards), int64(p.CreatedAtBlock), p.UpdatedAt)
	if err != nil {
		return errs.Wrap(errs.KindDatabase, "save position", err)
	}
	s.log.WithField("position_id", p.ID).Debug("position saved")
	return nil
}

func (s *Store) GetAtRiskPositions(ctx context.Context, level primitives.RiskLevel, threshold primitives.Amount) ([]entities.Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+positionColumns+`
		FROM positions
		WHERE level = $1 AND is_alive = true AND is_extracted = false AND amount >= $2
		ORDER BY entry_timestamp ASC`, int16(level), amountValue(threshold))
	if err != nil {
		return nil, errs.Wrap(errs.KindDatabase, "get at-risk positions", err)
	}
	defer rows.Close()

	var out []entities.Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, errs.Wrap(errs.KindDatabase, "scan at-risk position", err)
		}
		out = append(out, *pos)
	}
	return out, rows.Err()
}

func (s *Store) RecordHistory(ctx context.Context, h entities.PositionHistory) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO position_history (
			id, position_id, user_address, action, amount_change, new_total,
			block_number, timestamp
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		h.ID, h.PositionID, addressBytes(h.UserAddress), string(h.Action),
		amountValue(h.AmountChange), amountValue(h.NewTotal), int64(h.BlockNumber), h.Timestamp)
	if err != nil {
		return errs.Wrap(errs.KindDatabase, "record position history", err)
	}
	return nil
}

func (s *Store) GetPositionByID(ctx context.Context, id uuid.UUID) (*entities.Position, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+positionColumns+` FROM positions WHERE id = $1`, id)
	pos, err := scanPosition(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindDatabase, "get position by id", err)
	}
	return pos, nil
}

func (s *Store) GetPositionsByLevel(ctx context.Context, level primitives.RiskLevel) ([]entities.Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+positionColumns+`
		FROM positions
		WHERE level = $1 AND is_alive = true AND is_extracted = false
		ORDER BY entry_timestamp DESC`, int16(level))
	if err != nil {
		return nil, errs.Wrap(errs.KindDatabase, "get positions by level", err)
	}
	defer rows.Close()

	var out []entities.Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, errs.Wrap(errs.KindDatabase, "scan position by level", err)
		}
		out = append(out, *pos)
	}
	return out, rows.Err()
}

func (s *Store) CountPositionsByLevel(ctx context.Context, level primitives.RiskLevel) (uint32, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM positions
		WHERE level = $1 AND is_alive = true AND is_extracted = false`, int16(level)).Scan(&count)
	if err != nil {
		return 0, errs.Wrap(errs.KindDatabase, "count positions by level", err)
	}
	return uint32(count), nil
}
