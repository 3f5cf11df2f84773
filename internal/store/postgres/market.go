package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/ghostnet/indexer/internal/entities"
	"github.com/ghostnet/indexer/internal/errs"
	"github.com/ghostnet/indexer/internal/primitives"
)

// MarketStore and StatsStore have no original reference implementation to
// port from — both are built directly from the canonical event/operation
// descriptions, following the same row-DTO and upsert conventions the
// position/scan/death stores establish.

const roundColumns = `id, round_id, round_type, target_level, line, deadline,
	over_pool, under_pool, is_resolved, outcome, resolve_time, total_burned`

func scanRoundRow(row interface {
	Scan(dest ...any) error
}) (entities.Round, error) {
	var (
		id          uuid.UUID
		roundID     string
		roundType   int16
		targetLevel sql.NullInt16
		line        primitives.Amount
		deadline    sql.NullTime
		overPool    primitives.Amount
		underPool   primitives.Amount
		isResolved  bool
		outcome     sql.NullBool
		resolveTime sql.NullTime
		totalBurned sql.NullString
	)
	if err := row.Scan(&id, &roundID, &roundType, &targetLevel, &line, &deadline,
		&overPool, &underPool, &isResolved, &outcome, &resolveTime, &totalBurned); err != nil {
		return entities.Round{}, err
	}

	rt, err := primitives.NewRoundType(uint8(roundType))
	if err != nil {
		return entities.Round{}, err
	}
	lvl, err := nullLevel(targetLevel)
	if err != nil {
		return entities.Round{}, err
	}
	burned, err := nullAmount(totalBurned)
	if err != nil {
		return entities.Round{}, err
	}

	return entities.Round{
		ID:          id,
		RoundID:     roundID,
		RoundType:   rt,
		TargetLevel: lvl,
		Line:        line,
		Deadline:    deadline.Time,
		OverPool:    overPool,
		UnderPool:   underPool,
		IsResolved:  isResolved,
		Outcome:     nullBool(outcome),
		ResolveTime: nullTime(resolveTime),
		TotalBurned: burned,
	}, nil
}

func (s *Store) SaveRound(ctx context.Context, r entities.Round) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rounds (id, round_id, round_type, target_level, line, deadline,
			over_pool, under_pool, is_resolved, outcome, resolve_time, total_burned)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (round_id) DO UPDATE SET
			over_pool = EXCLUDED.over_pool,
			under_pool = EXCLUDED.under_pool,
			is_resolved = EXCLUDED.is_resolved,
			outcome = EXCLUDED.outcome,
			resolve_time = EXCLUDED.resolve_time,
			total_burned = EXCLUDED.total_burned`,
		r.ID, r.RoundID, int16(r.RoundType), nullLevelValue(r.TargetLevel), amountValue(r.Line), r.Deadline,
		amountValue(r.OverPool), amountValue(r.UnderPool), r.IsResolved, nullBoolValue(r.Outcome),
		nullTimeValue(r.ResolveTime), nullAmountValue(r.TotalBurned))
	if err != nil {
		return errs.Wrap(errs.KindDatabase, "save round", err)
	}
	return nil
}

// RecordBet inserts the bet and bumps the round's over/under pool total in
// one transaction, per §4.2.4's atomicity requirement.
func (s *Store) RecordBet(ctx context.Context, b entities.Bet) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.KindDatabase, "record bet begin tx", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO bets (id, round_id, user_address, amount, is_over, is_claimed,
			winnings, claimed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		b.ID, b.RoundID, addressBytes(b.UserAddress), amountValue(b.Amount), b.IsOver, b.IsClaimed,
		nullAmountValue(b.Winnings), nullTimeValue(b.ClaimedAt)); err != nil {
		return errs.Wrap(errs.KindDatabase, "record bet insert", err)
	}

	poolColumn := "under_pool"
	if b.IsOver {
		poolColumn = "over_pool"
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE rounds SET `+poolColumn+` = `+poolColumn+` + $2::numeric WHERE id = $1`,
		b.RoundID, amountValue(b.Amount)); err != nil {
		return errs.Wrap(errs.KindDatabase, "record bet update pool", err)
	}

	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.KindDatabase, "record bet commit", err)
	}
	return nil
}

func (s *Store) ResolveRound(ctx context.Context, onChainRoundID string, outcome bool, totalBurned primitives.Amount, resolveTime time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE rounds SET is_resolved = true, outcome = $2, resolve_time = $3, total_burned = $4
		WHERE round_id = $1 AND is_resolved = false`,
		onChainRoundID, outcome, resolveTime, amountValue(totalBurned))
	if err != nil {
		return errs.Wrap(errs.KindDatabase, "resolve round", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errs.Wrap(errs.KindDatabase, "resolve round rows affected", err)
	}
	if n == 0 {
		return errs.New(errs.KindAlreadyFinalized, "round "+onChainRoundID+" already resolved or missing")
	}
	return nil
}

func (s *Store) GetActiveRounds(ctx context.Context) ([]entities.Round, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+roundColumns+`
		FROM rounds
		WHERE is_resolved = false
		ORDER BY deadline ASC`)
	if err != nil {
		return nil, errs.Wrap(errs.KindDatabase, "get active rounds", err)
	}
	defer rows.Close()

	var out []entities.Round
	for rows.Next() {
		r, err := scanRoundRow(rows)
		if err != nil {
			return nil, errs.Wrap(errs.KindDatabase, "scan active round", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) GetRoundByID(ctx context.Context, onChainRoundID string) (*entities.Round, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+roundColumns+` FROM rounds WHERE round_id = $1`, onChainRoundID)
	r, err := scanRoundRow(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindDatabase, "get round by id", err)
	}
	return &r, nil
}

const betColumns = `id, round_id, user_address, amount, is_over, is_claimed, winnings, claimed_at`

func scanBetRow(row interface {
	Scan(dest ...any) error
}) (entities.Bet, error) {
	var (
		id        uuid.UUID
		roundID   uuid.UUID
		addr      primitives.Address
		amount    primitives.Amount
		isOver    bool
		isClaimed bool
		winnings  sql.NullString
		claimedAt sql.NullTime
	)
	if err := row.Scan(&id, &roundID, &addr, &amount, &isOver, &isClaimed, &winnings, &claimedAt); err != nil {
		return entities.Bet{}, err
	}
	w, err := nullAmount(winnings)
	if err != nil {
		return entities.Bet{}, err
	}
	return entities.Bet{
		ID:          id,
		RoundID:     roundID,
		UserAddress: addr,
		Amount:      amount,
		IsOver:      isOver,
		IsClaimed:   isClaimed,
		Winnings:    w,
		ClaimedAt:   nullTime(claimedAt),
	}, nil
}

func (s *Store) GetBetsForRound(ctx context.Context, roundID uuid.UUID) ([]entities.Bet, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+betColumns+` FROM bets WHERE round_id = $1 ORDER BY id ASC`, roundID)
	if err != nil {
		return nil, errs.Wrap(errs.KindDatabase, "get bets for round", err)
	}
	defer rows.Close()

	var out []entities.Bet
	for rows.Next() {
		b, err := scanBetRow(rows)
		if err != nil {
			return nil, errs.Wrap(errs.KindDatabase, "scan bet for round", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) GetUserBets(ctx context.Context, addr primitives.Address, limit int) ([]entities.Bet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+betColumns+`
		FROM bets
		WHERE user_address = $1
		ORDER BY id DESC
		LIMIT $2`, addressBytes(addr), limit)
	if err != nil {
		return nil, errs.Wrap(errs.KindDatabase, "get user bets", err)
	}
	defer rows.Close()

	var out []entities.Bet
	for rows.Next() {
		b, err := scanBetRow(rows)
		if err != nil {
			return nil, errs.Wrap(errs.KindDatabase, "scan user bet", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) MarkBetClaimed(ctx context.Context, betID uuid.UUID, winnings primitives.Amount, claimTime time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE bets SET is_claimed = true, winnings = $2, claimed_at = $3
		WHERE id = $1 AND is_claimed = false`,
		betID, amountValue(winnings), claimTime)
	if err != nil {
		return errs.Wrap(errs.KindDatabase, "mark bet claimed", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errs.Wrap(errs.KindDatabase, "mark bet claimed rows affected", err)
	}
	if n == 0 {
		return errs.New(errs.KindAlreadyFinalized, "bet already claimed or missing")
	}
	return nil
}
