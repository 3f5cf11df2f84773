package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ghostnet/indexer/internal/entities"
	"github.com/ghostnet/indexer/internal/errs"
	"github.com/ghostnet/indexer/internal/events"
	"github.com/ghostnet/indexer/internal/primitives"
)

type fakeScanStore struct {
	scans map[string]*entities.Scan
}

func newFakeScanStore() *fakeScanStore {
	return &fakeScanStore{scans: map[string]*entities.Scan{}}
}

func (s *fakeScanStore) SaveScan(ctx context.Context, sc entities.Scan) error {
	cp := sc
	s.scans[sc.ScanID] = &cp
	return nil
}

func (s *fakeScanStore) FinalizeScan(ctx context.Context, onChainScanID string, data entities.ScanFinalizationData) error {
	sc, ok := s.scans[onChainScanID]
	if !ok {
		return errs.New(errs.KindDatabase, "scan "+onChainScanID+" not found")
	}
	finalizedAt := data.FinalizedAt
	deathCount := data.DeathCount
	totalDead := data.TotalDead
	burned := data.Burned
	sameLevel := data.DistributedSameLevel
	upstream := data.DistributedUpstream
	protocolFee := data.ProtocolFee
	survivors := data.SurvivorCount
	sc.FinalizedAt = &finalizedAt
	sc.DeathCount = &deathCount
	sc.TotalDead = &totalDead
	sc.Burned = &burned
	sc.DistributedSameLevel = &sameLevel
	sc.DistributedUpstream = &upstream
	sc.ProtocolFee = &protocolFee
	sc.SurvivorCount = &survivors
	return nil
}

func (s *fakeScanStore) GetRecentScans(ctx context.Context, level primitives.RiskLevel, limit int) ([]entities.Scan, error) {
	return nil, nil
}

func (s *fakeScanStore) GetScanByID(ctx context.Context, onChainScanID string) (*entities.Scan, error) {
	sc, ok := s.scans[onChainScanID]
	if !ok {
		return nil, nil
	}
	cp := *sc
	return &cp, nil
}

func (s *fakeScanStore) GetPendingScans(ctx context.Context) ([]entities.Scan, error) {
	var out []entities.Scan
	for _, sc := range s.scans {
		if !sc.IsFinalized() {
			out = append(out, *sc)
		}
	}
	return out, nil
}

func TestScanLifecycleExecuteThenFinalize(t *testing.T) {
	store := newFakeScanStore()
	cache := &fakeCache{}
	h := NewScanHandler(store, &fakeStatsStore{}, cache, testLog())

	t1 := uint64(1_700_000_000)
	t2 := t1 + 300

	require.NoError(t, h.HandleScanExecuted(context.Background(), events.ScanExecuted{
		Level: primitives.Level3, ScanID: "S1", Seed: "0xdead", ExecutedAt: t1,
	}))
	require.NoError(t, h.HandleDeathsSubmitted(context.Background(), events.DeathsSubmitted{
		Level: primitives.Level3, ScanID: "S1", Count: 3, TotalDead: primitives.MustAmount("300"), Submitter: testUser(t),
	}))
	require.NoError(t, h.HandleDeathsSubmitted(context.Background(), events.DeathsSubmitted{
		Level: primitives.Level3, ScanID: "S1", Count: 2, TotalDead: primitives.MustAmount("200"), Submitter: testUser(t),
	}))
	require.NoError(t, h.HandleScanFinalized(context.Background(), events.ScanFinalized{
		Level: primitives.Level3, ScanID: "S1", DeathCount: 5, TotalDead: primitives.MustAmount("500"), FinalizedAt: t2,
	}))

	sc, err := store.GetScanByID(context.Background(), "S1")
	require.NoError(t, err)
	require.NotNil(t, sc)
	require.Equal(t, "0xdead", sc.Seed)
	require.True(t, sc.IsFinalized())
	require.Equal(t, time.Unix(int64(t2), 0).UTC(), *sc.FinalizedAt)
	require.Equal(t, uint32(5), *sc.DeathCount)
	require.Equal(t, 0, sc.TotalDead.Cmp(primitives.MustAmount("500")))

	// Distribution fields are written as zero on finalization.
	require.True(t, sc.Burned.IsZero())
	require.True(t, sc.DistributedSameLevel.IsZero())
	require.True(t, sc.DistributedUpstream.IsZero())

	require.True(t, cache.levelInvalidated(primitives.Level3))
}

func TestScanExecutedIsIdempotent(t *testing.T) {
	store := newFakeScanStore()
	h := NewScanHandler(store, &fakeStatsStore{}, &fakeCache{}, testLog())

	ev := events.ScanExecuted{Level: primitives.Level1, ScanID: "S2", Seed: "0xbeef", ExecutedAt: 1_700_000_000}
	require.NoError(t, h.HandleScanExecuted(context.Background(), ev))
	firstID := store.scans["S2"].ID

	require.NoError(t, h.HandleScanExecuted(context.Background(), ev))
	require.Len(t, store.scans, 1)
	require.Equal(t, firstID, store.scans["S2"].ID)
}

func TestScanFinalizedIsIdempotent(t *testing.T) {
	store := newFakeScanStore()
	h := NewScanHandler(store, &fakeStatsStore{}, &fakeCache{}, testLog())

	require.NoError(t, h.HandleScanExecuted(context.Background(), events.ScanExecuted{
		Level: primitives.Level2, ScanID: "S3", Seed: "0x01", ExecutedAt: 1_700_000_000,
	}))
	fin := events.ScanFinalized{
		Level: primitives.Level2, ScanID: "S3", DeathCount: 1,
		TotalDead: primitives.MustAmount("10"), FinalizedAt: 1_700_000_100,
	}
	require.NoError(t, h.HandleScanFinalized(context.Background(), fin))

	fin.DeathCount = 99
	require.NoError(t, h.HandleScanFinalized(context.Background(), fin))
	require.Equal(t, uint32(1), *store.scans["S3"].DeathCount)
}

func TestScanFinalizedWithoutExecutionCreatesPartialRecord(t *testing.T) {
	store := newFakeScanStore()
	h := NewScanHandler(store, &fakeStatsStore{}, &fakeCache{}, testLog())

	t2 := uint64(1_700_000_500)
	require.NoError(t, h.HandleScanFinalized(context.Background(), events.ScanFinalized{
		Level: primitives.Level4, ScanID: "orphan", DeathCount: 7,
		TotalDead: primitives.MustAmount("700"), FinalizedAt: t2,
	}))

	sc, err := store.GetScanByID(context.Background(), "orphan")
	require.NoError(t, err)
	require.NotNil(t, sc)
	require.Equal(t, "unknown", sc.Seed)
	require.Equal(t, time.Unix(int64(t2), 0).UTC(), sc.ExecutedAt)
	require.True(t, sc.IsFinalized())
	require.Equal(t, uint32(7), *sc.DeathCount)
}
