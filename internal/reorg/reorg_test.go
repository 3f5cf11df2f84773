package reorg

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/ghostnet/indexer/internal/cache"
	"github.com/ghostnet/indexer/internal/entities"
	"github.com/ghostnet/indexer/internal/errs"
	"github.com/ghostnet/indexer/internal/primitives"
)

type fakeIndexerStateStore struct {
	hashes          map[uint64]entities.BlockHashRecord
	rollbackCalls   []primitives.BlockNumber
	pruneCalls      []primitives.BlockNumber
}

func newFakeIndexerStateStore() *fakeIndexerStateStore {
	return &fakeIndexerStateStore{hashes: map[uint64]entities.BlockHashRecord{}}
}

func (s *fakeIndexerStateStore) GetLastBlock(ctx context.Context) (entities.Checkpoint, error) {
	return entities.Checkpoint{}, nil
}

func (s *fakeIndexerStateStore) SetLastBlock(ctx context.Context, block primitives.BlockNumber, hash [32]byte) error {
	return nil
}

func (s *fakeIndexerStateStore) InsertBlockHash(ctx context.Context, block primitives.BlockNumber, hash, parent [32]byte, timestamp time.Time) error {
	s.hashes[block.Uint64()] = entities.BlockHashRecord{BlockNumber: block, BlockHash: hash, ParentHash: parent, Timestamp: timestamp}
	return nil
}

func (s *fakeIndexerStateStore) GetBlockHash(ctx context.Context, block primitives.BlockNumber) (*entities.BlockHashRecord, error) {
	rec, ok := s.hashes[block.Uint64()]
	if !ok {
		return nil, nil
	}
	cp := rec
	return &cp, nil
}

func (s *fakeIndexerStateStore) ExecuteReorgRollback(ctx context.Context, forkPoint primitives.BlockNumber) error {
	s.rollbackCalls = append(s.rollbackCalls, forkPoint)
	return nil
}

func (s *fakeIndexerStateStore) PruneOldBlocks(ctx context.Context, keep primitives.BlockNumber) error {
	s.pruneCalls = append(s.pruneCalls, keep)
	return nil
}

type fakeChainHashFetcher struct {
	hashes map[uint64][2][32]byte // block -> (hash, parent)
}

func (f *fakeChainHashFetcher) BlockHashAt(ctx context.Context, block primitives.BlockNumber) (hash, parent [32]byte, err error) {
	pair := f.hashes[block.Uint64()]
	return pair[0], pair[1], nil
}

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestCheckFirstBlockAtGenesis(t *testing.T) {
	store := newFakeIndexerStateStore()
	h := New(store, cache.New(), &fakeChainHashFetcher{}, 0, testLog())

	outcome, err := h.Check(context.Background(), primitives.GenesisBlock, [32]byte{})
	require.NoError(t, err)
	require.Equal(t, FirstBlock, outcome.Result)
}

func TestCheckParentNotFoundWhenNoRecord(t *testing.T) {
	store := newFakeIndexerStateStore()
	h := New(store, cache.New(), &fakeChainHashFetcher{}, 0, testLog())

	outcome, err := h.Check(context.Background(), primitives.BlockNumber(50), [32]byte{1})
	require.NoError(t, err)
	require.Equal(t, ParentNotFound, outcome.Result)
}

func TestCheckNoReorgWhenHashesMatch(t *testing.T) {
	store := newFakeIndexerStateStore()
	parentHash := [32]byte{7}
	require.NoError(t, store.InsertBlockHash(context.Background(), 9, parentHash, [32]byte{}, time.Unix(0, 0)))
	h := New(store, cache.New(), &fakeChainHashFetcher{}, 0, testLog())

	outcome, err := h.Check(context.Background(), primitives.BlockNumber(10), parentHash)
	require.NoError(t, err)
	require.Equal(t, NoReorg, outcome.Result)
}

func TestCheckDetectsReorgAndFindsForkPoint(t *testing.T) {
	store := newFakeIndexerStateStore()
	// Indexed chain: block 8 hash=A, block 9 hash=B (parent A).
	require.NoError(t, store.InsertBlockHash(context.Background(), 8, [32]byte{0xA}, [32]byte{}, time.Unix(0, 0)))
	require.NoError(t, store.InsertBlockHash(context.Background(), 9, [32]byte{0xB}, [32]byte{0xA}, time.Unix(0, 0)))

	// Incoming block 10's parent hash is C, which diverges from stored B.
	fetcher := &fakeChainHashFetcher{hashes: map[uint64][2][32]byte{
		// Remote block 9's parent (as seen by the new canonical chain) is A,
		// matching what's stored at block 8 — so the fork point is block 8.
		9: {[32]byte{0xB2}, [32]byte{0xA}},
	}}
	h := New(store, cache.New(), fetcher, 0, testLog())

	outcome, err := h.Check(context.Background(), primitives.BlockNumber(10), [32]byte{0xC})
	require.NoError(t, err)
	require.Equal(t, ReorgDetected, outcome.Result)
	require.Equal(t, primitives.BlockNumber(8), outcome.ForkPoint)
	// depth is detected-at minus fork point: 10 - 8.
	require.Equal(t, uint64(2), outcome.Depth)
}

func TestCheckReportsReorgTooDeep(t *testing.T) {
	store := newFakeIndexerStateStore()
	// Stored hashes at 7..9 with every remote comparison mismatching: the
	// fork search walks past them to the unrecorded block 6, a depth of
	// 10-6=4 that exceeds maxDepth=2.
	require.NoError(t, store.InsertBlockHash(context.Background(), 9, [32]byte{0xB}, [32]byte{0xA}, time.Unix(0, 0)))
	require.NoError(t, store.InsertBlockHash(context.Background(), 8, [32]byte{0xA}, [32]byte{0x9}, time.Unix(0, 0)))
	require.NoError(t, store.InsertBlockHash(context.Background(), 7, [32]byte{0x9}, [32]byte{0x8}, time.Unix(0, 0)))
	fetcher := &fakeChainHashFetcher{hashes: map[uint64][2][32]byte{
		9: {[32]byte{0xFF}, [32]byte{0xEE}},
		8: {[32]byte{0xFF}, [32]byte{0xEE}},
	}}
	h := New(store, cache.New(), fetcher, 2, testLog())

	_, err := h.Check(context.Background(), primitives.BlockNumber(10), [32]byte{0xC})
	require.Error(t, err)
}

func TestCheckDepthBoundary(t *testing.T) {
	// Stored chain 5..9; incoming block 10 diverges. With maxDepth=4 a fork
	// at block 6 (depth 10-6=4) is repairable; a fork at block 5 (depth 5)
	// is not.
	build := func(forkAt uint64) (*fakeIndexerStateStore, *fakeChainHashFetcher) {
		store := newFakeIndexerStateStore()
		for b := uint64(5); b <= 9; b++ {
			require.NoError(t, store.InsertBlockHash(context.Background(),
				primitives.BlockNumber(b), [32]byte{byte(b)}, [32]byte{byte(b - 1)}, time.Unix(0, 0)))
		}
		fetcher := &fakeChainHashFetcher{hashes: map[uint64][2][32]byte{}}
		for b := uint64(6); b <= 9; b++ {
			parent := [32]byte{0xEE} // diverging
			if b == forkAt+1 {
				parent = [32]byte{byte(forkAt)} // rejoins the stored chain
			}
			fetcher.hashes[b] = [2][32]byte{{0xF0 + byte(b)}, parent}
		}
		return store, fetcher
	}

	store, fetcher := build(6)
	h := New(store, cache.New(), fetcher, 4, testLog())
	outcome, err := h.Check(context.Background(), primitives.BlockNumber(10), [32]byte{0xC})
	require.NoError(t, err)
	require.Equal(t, ReorgDetected, outcome.Result)
	require.Equal(t, primitives.BlockNumber(6), outcome.ForkPoint)
	require.Equal(t, uint64(4), outcome.Depth)

	store, fetcher = build(5)
	h = New(store, cache.New(), fetcher, 4, testLog())
	_, err = h.Check(context.Background(), primitives.BlockNumber(10), [32]byte{0xC})
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindReorgTooDeep))
}

func TestRollbackInvalidatesCacheAndCallsStore(t *testing.T) {
	store := newFakeIndexerStateStore()
	c := cache.New()
	h := New(store, c, &fakeChainHashFetcher{}, 0, testLog())
	c.SetBlockHash(primitives.BlockNumber(6), [32]byte{6})

	require.NoError(t, h.Rollback(context.Background(), primitives.BlockNumber(5)))
	require.Equal(t, []primitives.BlockNumber{5}, store.rollbackCalls)
	_, found := c.GetBlockHash(primitives.BlockNumber(6))
	require.False(t, found)
}

func TestRetainDefaultsRetentionWhenZero(t *testing.T) {
	store := newFakeIndexerStateStore()
	h := New(store, cache.New(), &fakeChainHashFetcher{}, 0, testLog())

	require.NoError(t, h.Retain(context.Background(), 0))
	require.Equal(t, []primitives.BlockNumber{DefaultBlockRetention}, store.pruneCalls)
}
