package postgres

import (
	"context"
	"database/sql"

	"github.com/ghostnet/indexer/internal/entities"
	"github.com/ghostnet/indexer/internal/errs"
	"github.com/ghostnet/indexer/internal/primitives"
)

func (s *Store) GetGlobalStats(ctx context.Context) (entities.GlobalStats, error) {
	var (
		tvl        primitives.Amount
		positions  int64
		deaths     int64
		burned     primitives.Amount
		emissions  primitives.Amount
		toll       primitives.Amount
		buyback    primitives.Amount
		resetCount int64
		updatedAt  sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT total_value_locked, total_positions, total_deaths, total_burned,
			total_emissions_distributed, total_toll_collected, total_buyback_burned,
			system_reset_count, updated_at
		FROM global_stats WHERE id = 1`).Scan(
		&tvl, &positions, &deaths, &burned, &emissions, &toll, &buyback, &resetCount, &updatedAt)
	if isNoRows(err) {
		return entities.GlobalStats{}, nil
	}
	if err != nil {
		return entities.GlobalStats{}, errs.Wrap(errs.KindDatabase, "get global stats", err)
	}
	return entities.GlobalStats{
		TotalValueLocked:          tvl,
		TotalPositions:            uint32(positions),
		TotalDeaths:               uint32(deaths),
		TotalBurned:               burned,
		TotalEmissionsDistributed: emissions,
		TotalTollCollected:        toll,
		TotalBuybackBurned:        buyback,
		SystemResetCount:          uint32(resetCount),
		UpdatedAt:                 updatedAt.Time,
	}, nil
}

func (s *Store) GetLevelStats(ctx context.Context, level primitives.RiskLevel) (entities.LevelStats, error) {
	var (
		totalStaked    primitives.Amount
		aliveCount     int64
		totalDeaths    int64
		totalExtracted int64
		totalBurned    primitives.Amount
		distributed    primitives.Amount
		highestStreak  int32
		updatedAt      sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT total_staked, alive_count, total_deaths, total_extracted, total_burned,
			total_distributed, highest_ghost_streak, updated_at
		FROM level_stats WHERE level = $1`, int16(level)).Scan(
		&totalStaked, &aliveCount, &totalDeaths, &totalExtracted, &totalBurned,
		&distributed, &highestStreak, &updatedAt)
	if isNoRows(err) {
		return entities.LevelStats{Level: level}, nil
	}
	if err != nil {
		return entities.LevelStats{}, errs.Wrap(errs.KindDatabase, "get level stats", err)
	}
	streak, err := primitives.NewGhostStreak(highestStreak)
	if err != nil {
		return entities.LevelStats{}, errs.Wrap(errs.KindDatabase, "get level stats streak", err)
	}
	return entities.LevelStats{
		Level:              level,
		TotalStaked:        totalStaked,
		AliveCount:         uint32(aliveCount),
		TotalDeaths:        uint32(totalDeaths),
		TotalExtracted:     uint32(totalExtracted),
		TotalBurned:        totalBurned,
		TotalDistributed:   distributed,
		HighestGhostStreak: streak,
		UpdatedAt:          updatedAt.Time,
	}, nil
}

// UpdateLevelStats applies a delta atomically. Nil delta fields leave the
// corresponding column unchanged, expressed with COALESCE over the
// to-be-added value so a nil delta contributes zero/false rather than
// clobbering the existing row.
func (s *Store) UpdateLevelStats(ctx context.Context, level primitives.RiskLevel, delta entities.LevelStatsDelta) error {
	var stakedDelta, burnedDelta, distributedDelta string
	if delta.StakedDelta != nil {
		stakedDelta = delta.StakedDelta.String()
	} else {
		stakedDelta = "0"
	}
	if delta.BurnedDelta != nil {
		burnedDelta = delta.BurnedDelta.String()
	} else {
		burnedDelta = "0"
	}
	if delta.DistributedDelta != nil {
		distributedDelta = delta.DistributedDelta.String()
	} else {
		distributedDelta = "0"
	}
	var aliveDelta int32
	if delta.AliveDelta != nil {
		aliveDelta = *delta.AliveDelta
	}
	var deathsDelta, extractedDelta uint32
	if delta.DeathsDelta != nil {
		deathsDelta = *delta.DeathsDelta
	}
	if delta.ExtractedDelta != nil {
		extractedDelta = *delta.ExtractedDelta
	}
	var newHighest sql.NullInt32
	if delta.NewHighestStreak != nil {
		newHighest = sql.NullInt32{Int32: delta.NewHighestStreak.Int32(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO level_stats (level, total_staked, alive_count, total_deaths,
			total_extracted, total_burned, total_distributed, highest_ghost_streak, updated_at)
		VALUES ($1, $2, GREATEST($3, 0), $4, $5, $6, $7, COALESCE($8, 0), now())
		ON CONFLICT (level) DO UPDATE SET
			total_staked = level_stats.total_staked + $2,
			alive_count = GREATEST(level_stats.alive_count + $3, 0),
			total_deaths = level_stats.total_deaths + $4,
			total_extracted = level_stats.total_extracted + $5,
			total_burned = level_stats.total_burned + $6,
			total_distributed = level_stats.total_distributed + $7,
			highest_ghost_streak = GREATEST(level_stats.highest_ghost_streak, COALESCE($8, level_stats.highest_ghost_streak)),
			updated_at = now()`,
		int16(level), stakedDelta, aliveDelta, deathsDelta, extractedDelta, burnedDelta, distributedDelta, newHighest)
	if err != nil {
		return errs.Wrap(errs.KindDatabase, "update level stats", err)
	}
	return nil
}

func (s *Store) GetAllLevelStats(ctx context.Context) ([]entities.LevelStats, error) {
	var out []entities.LevelStats
	for _, lvl := range primitives.AllLevels {
		ls, err := s.GetLevelStats(ctx, lvl)
		if err != nil {
			return nil, err
		}
		out = append(out, ls)
	}
	return out, nil
}

// ApplyGlobalDelta atomically bumps the global counters the token/fee/
// emissions handlers touch (§4.2.5) — toll collected, buyback burned,
// emissions distributed, and burn — which RefreshGlobalStats's
// level_stats-only recompute does not source.
func (s *Store) ApplyGlobalDelta(ctx context.Context, delta entities.GlobalStatsDelta) error {
	burned := "0"
	if delta.BurnedDelta != nil {
		burned = delta.BurnedDelta.String()
	}
	emissions := "0"
	if delta.EmissionsDelta != nil {
		emissions = delta.EmissionsDelta.String()
	}
	toll := "0"
	if delta.TollDelta != nil {
		toll = delta.TollDelta.String()
	}
	buyback := "0"
	if delta.BuybackDelta != nil {
		buyback = delta.BuybackDelta.String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO global_stats (id, total_value_locked, total_positions, total_deaths,
			total_burned, total_emissions_distributed, total_toll_collected,
			total_buyback_burned, system_reset_count, updated_at)
		VALUES (1, 0, 0, 0, $1::numeric, $2::numeric, $3::numeric, $4::numeric, 0, now())
		ON CONFLICT (id) DO UPDATE SET
			total_burned = global_stats.total_burned + $1::numeric,
			total_emissions_distributed = global_stats.total_emissions_distributed + $2::numeric,
			total_toll_collected = global_stats.total_toll_collected + $3::numeric,
			total_buyback_burned = global_stats.total_buyback_burned + $4::numeric,
			updated_at = now()`,
		burned, emissions, toll, buyback)
	if err != nil {
		return errs.Wrap(errs.KindDatabase, "apply global delta", err)
	}
	return nil
}

// RefreshGlobalStats recomputes TVL, position count, and death count from
// the per-level rollups. The burn/emissions/toll/buyback counters are
// delta-maintained by ApplyGlobalDelta and deliberately left untouched
// here — level_stats has no view of them.
func (s *Store) RefreshGlobalStats(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO global_stats (id, total_value_locked, total_positions, total_deaths,
			total_burned, total_emissions_distributed, total_toll_collected,
			total_buyback_burned, system_reset_count, updated_at)
		SELECT 1,
			COALESCE(SUM(total_staked), 0),
			COALESCE(SUM(alive_count), 0),
			COALESCE(SUM(total_deaths), 0),
			0, 0, 0, 0, 0, now()
		FROM level_stats
		ON CONFLICT (id) DO UPDATE SET
			total_value_locked = EXCLUDED.total_value_locked,
			total_positions = EXCLUDED.total_positions,
			total_deaths = EXCLUDED.total_deaths,
			updated_at = EXCLUDED.updated_at`)
	if err != nil {
		return errs.Wrap(errs.KindDatabase, "refresh global stats", err)
	}
	return nil
}
