package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ghostnet/indexer/internal/entities"
	"github.com/ghostnet/indexer/internal/events"
	"github.com/ghostnet/indexer/internal/primitives"
)

type fakeDeathStore struct {
	deaths  []entities.Death
	batches int
}

func (s *fakeDeathStore) RecordDeaths(ctx context.Context, batch []entities.Death) error {
	s.deaths = append(s.deaths, batch...)
	s.batches++
	return nil
}

func (s *fakeDeathStore) GetDeathsForScan(ctx context.Context, onChainScanID string) ([]entities.Death, error) {
	return nil, nil
}

func (s *fakeDeathStore) GetUserDeaths(ctx context.Context, addr primitives.Address, limit int) ([]entities.Death, error) {
	var out []entities.Death
	for _, d := range s.deaths {
		if d.UserAddress == addr {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *fakeDeathStore) CountDeathsByLevel(ctx context.Context, level primitives.RiskLevel) (uint32, error) {
	var n uint32
	for _, d := range s.deaths {
		if d.Level == level {
			n++
		}
	}
	return n, nil
}

func (s *fakeDeathStore) GetRecentDeaths(ctx context.Context, limit int) ([]entities.Death, error) {
	return s.deaths, nil
}

func jackIn(t *testing.T, positions *fakePositionStore, user primitives.Address, level primitives.RiskLevel, amount string, block uint64, ts time.Time) {
	t.Helper()
	h := NewPositionHandler(positions, &fakeCache{}, testLog())
	require.NoError(t, h.HandleJackedIn(context.Background(), events.JackedIn{
		Base: metaAt(block, ts), User: user,
		Amount: primitives.MustAmount(amount), Level: level, NewTotal: primitives.MustAmount(amount),
	}))
}

func TestSystemResetClosesEveryActivePosition(t *testing.T) {
	positions := newFakePositionStore()
	deaths := &fakeDeathStore{}
	cache := &fakeCache{}
	h := NewDeathHandler(deaths, positions, cache, testLog())

	t0 := time.Unix(1_700_000_000, 0).UTC()
	userA, userB := testUser(t), testUser2(t)
	jackIn(t, positions, userA, primitives.Level2, "100", 10, t0)
	jackIn(t, positions, userB, primitives.Level4, "200", 11, t0)

	tReset := t0.Add(time.Minute)
	require.NoError(t, h.HandleSystemResetTriggered(context.Background(), events.SystemResetTriggered{
		Base:          metaAt(20, tReset),
		TotalPenalty:  primitives.MustAmount("300"),
		JackpotWinner: userA,
		JackpotAmount: primitives.MustAmount("150"),
	}))

	for _, user := range []primitives.Address{userA, userB} {
		active, err := positions.GetActivePosition(context.Background(), user)
		require.NoError(t, err)
		require.Nil(t, active)
	}
	for _, p := range positions.positions {
		require.False(t, p.IsAlive)
		require.Equal(t, primitives.ExitSystemReset, *p.ExitReason)
		require.Equal(t, tReset, *p.ExitTimestamp)
	}

	require.Len(t, deaths.deaths, 2)
	byUser := map[primitives.Address]entities.Death{}
	for _, d := range deaths.deaths {
		byUser[d.UserAddress] = d
		require.Nil(t, d.ScanID)
		require.NotNil(t, d.PositionID)
	}
	require.Equal(t, 0, byUser[userA].AmountLost.Cmp(primitives.MustAmount("100")))
	require.Equal(t, primitives.Level2, byUser[userA].Level)
	require.Equal(t, 0, byUser[userB].AmountLost.Cmp(primitives.MustAmount("200")))
	require.Equal(t, primitives.Level4, byUser[userB].Level)

	// One system_reset history row per closed position, zero new total.
	var resetRows int
	for _, hrow := range positions.history {
		if hrow.Action == primitives.ActionSystemReset {
			resetRows++
			require.True(t, hrow.NewTotal.IsZero())
		}
	}
	require.Equal(t, 2, resetRows)

	for _, lvl := range primitives.AllLevels {
		require.True(t, cache.levelInvalidated(lvl))
	}
}

func TestSystemResetOnEmptyStateIsANoOp(t *testing.T) {
	positions := newFakePositionStore()
	deaths := &fakeDeathStore{}
	h := NewDeathHandler(deaths, positions, &fakeCache{}, testLog())

	ev := events.SystemResetTriggered{
		Base:          metaAt(30, time.Unix(1_700_000_000, 0).UTC()),
		TotalPenalty:  primitives.MustAmount("300"),
		JackpotWinner: testUser(t),
		JackpotAmount: primitives.MustAmount("150"),
	}
	require.NoError(t, h.HandleSystemResetTriggered(context.Background(), ev))

	// Jack in a fresh position and reset it; a further reset against that
	// already-reset state then produces nothing new.
	jackIn(t, positions, testUser(t), primitives.Level1, "50", 31, time.Unix(1_700_000_100, 0).UTC())
	require.NoError(t, h.HandleSystemResetTriggered(context.Background(), ev))
	historyAfterFirst := len(positions.history)
	deathsAfterFirst := len(deaths.deaths)

	require.NoError(t, h.HandleSystemResetTriggered(context.Background(), ev))
	require.Len(t, positions.history, historyAfterFirst)
	require.Len(t, deaths.deaths, deathsAfterFirst)
}

func TestCascadeDistributedInvalidatesSourceAndSaferLevels(t *testing.T) {
	cache := &fakeCache{}
	h := NewDeathHandler(&fakeDeathStore{}, newFakePositionStore(), cache, testLog())

	require.NoError(t, h.HandleCascadeDistributed(context.Background(), events.CascadeDistributed{
		SourceLevel:     primitives.Level3,
		SameLevelAmount: primitives.MustAmount("60"),
		UpstreamAmount:  primitives.MustAmount("25"),
		BurnAmount:      primitives.MustAmount("10"),
		ProtocolAmount:  primitives.MustAmount("5"),
	}))

	for _, lvl := range []primitives.RiskLevel{primitives.LevelSafest, primitives.Level1, primitives.Level2, primitives.Level3} {
		require.True(t, cache.levelInvalidated(lvl), "level %s should be invalidated", lvl)
	}
	require.False(t, cache.levelInvalidated(primitives.Level4))
	require.False(t, cache.levelInvalidated(primitives.LevelMax))
}

func TestAggregateOnlyDeathEventsTouchNoRows(t *testing.T) {
	positions := newFakePositionStore()
	deaths := &fakeDeathStore{}
	cache := &fakeCache{}
	h := NewDeathHandler(deaths, positions, cache, testLog())

	require.NoError(t, h.HandleDeathsProcessed(context.Background(), events.DeathsProcessed{
		Level: primitives.Level2, Count: 4,
		TotalDead: primitives.MustAmount("400"), Burned: primitives.MustAmount("40"), Distributed: primitives.MustAmount("360"),
	}))
	require.NoError(t, h.HandleSurvivorsUpdated(context.Background(), events.SurvivorsUpdated{
		Level: primitives.Level2, Count: 12,
	}))
	require.NoError(t, h.HandleEmissionsAdded(context.Background(), events.EmissionsAdded{
		Level: primitives.Level2, Amount: primitives.MustAmount("7"),
	}))

	require.Empty(t, deaths.deaths)
	require.Empty(t, positions.history)
	require.True(t, cache.levelInvalidated(primitives.Level2))
}
