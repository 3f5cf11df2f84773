package postgres

import (
	"database/sql"
	"time"

	"github.com/ghostnet/indexer/internal/primitives"
)

// The conversions below mirror original_source's PositionRow/ScanRow/DeathRow
// pattern of scanning into nullable SQL primitives and converting to the
// domain's Option-shaped fields, adapted to Go's *T-for-optional idiom.

func amountValue(a primitives.Amount) string { return a.String() }

func nullAmountValue(a *primitives.Amount) sql.NullString {
	if a == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: a.String(), Valid: true}
}

func nullAmount(ns sql.NullString) (*primitives.Amount, error) {
	if !ns.Valid {
		return nil, nil
	}
	amt, err := primitives.NewAmount(ns.String)
	if err != nil {
		return nil, err
	}
	return &amt, nil
}

func addressBytes(a primitives.Address) []byte { return a.Bytes() }

func nullTimeValue(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func nullInt32Value(n *uint32) sql.NullInt32 {
	if n == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*n), Valid: true}
}

func nullUint32(ni sql.NullInt32) *uint32 {
	if !ni.Valid {
		return nil
	}
	v := uint32(ni.Int32)
	return &v
}

func nullExitReasonValue(r *primitives.ExitReason) sql.NullString {
	if r == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*r), Valid: true}
}

func nullExitReason(ns sql.NullString) *primitives.ExitReason {
	if !ns.Valid {
		return nil
	}
	r := primitives.ExitReason(ns.String)
	return &r
}

func nullStreakValue(g *primitives.GhostStreak) sql.NullInt32 {
	if g == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: g.Int32(), Valid: true}
}

func nullStreak(ni sql.NullInt32) (*primitives.GhostStreak, error) {
	if !ni.Valid {
		return nil, nil
	}
	s, err := primitives.NewGhostStreak(ni.Int32)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func nullLevelValue(l *primitives.RiskLevel) sql.NullInt16 {
	if l == nil {
		return sql.NullInt16{}
	}
	return sql.NullInt16{Int16: int16(*l), Valid: true}
}

func nullLevel(ni sql.NullInt16) (*primitives.RiskLevel, error) {
	if !ni.Valid {
		return nil, nil
	}
	l, err := primitives.NewRiskLevel(uint8(ni.Int16))
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func nullBoolValue(outcome *bool) sql.NullBool {
	if outcome == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *outcome, Valid: true}
}

func nullBool(nb sql.NullBool) *bool {
	if !nb.Valid {
		return nil
	}
	b := nb.Bool
	return &b
}
