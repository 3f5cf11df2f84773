package checkpoint

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/ghostnet/indexer/internal/entities"
	"github.com/ghostnet/indexer/internal/primitives"
)

type fakeIndexerStateStore struct {
	checkpoint entities.Checkpoint
	setCalls   []primitives.BlockNumber
}

func (s *fakeIndexerStateStore) GetLastBlock(ctx context.Context) (entities.Checkpoint, error) {
	return s.checkpoint, nil
}

func (s *fakeIndexerStateStore) SetLastBlock(ctx context.Context, block primitives.BlockNumber, hash [32]byte) error {
	s.setCalls = append(s.setCalls, block)
	h := hash
	s.checkpoint = entities.Checkpoint{LastBlock: block, LastHash: &h}
	return nil
}

func (s *fakeIndexerStateStore) InsertBlockHash(ctx context.Context, block primitives.BlockNumber, hash, parent [32]byte, timestamp time.Time) error {
	return nil
}

func (s *fakeIndexerStateStore) GetBlockHash(ctx context.Context, block primitives.BlockNumber) (*entities.BlockHashRecord, error) {
	return nil, nil
}

func (s *fakeIndexerStateStore) ExecuteReorgRollback(ctx context.Context, forkPoint primitives.BlockNumber) error {
	return nil
}

func (s *fakeIndexerStateStore) PruneOldBlocks(ctx context.Context, keep primitives.BlockNumber) error {
	return nil
}

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestStartGenesisClampsToMinBlock(t *testing.T) {
	store := &fakeIndexerStateStore{}
	m := New(store, Config{Mode: Genesis, MinBlock: 100}, testLog())

	start, err := m.Start(context.Background())
	require.NoError(t, err)
	require.Equal(t, primitives.BlockNumber(100), start)
}

func TestStartFromUsesTargetBlockClamped(t *testing.T) {
	store := &fakeIndexerStateStore{}
	m := New(store, Config{Mode: StartFrom, TargetBlock: 50, MinBlock: 100}, testLog())

	start, err := m.Start(context.Background())
	require.NoError(t, err)
	require.Equal(t, primitives.BlockNumber(100), start)
}

func TestStartResumeWithNoCheckpointUsesMinBlock(t *testing.T) {
	store := &fakeIndexerStateStore{}
	m := New(store, Config{Mode: Resume, MinBlock: 42}, testLog())

	start, err := m.Start(context.Background())
	require.NoError(t, err)
	require.Equal(t, primitives.BlockNumber(42), start)
}

func TestStartResumeContinuesAfterLastBlock(t *testing.T) {
	hash := [32]byte{1}
	store := &fakeIndexerStateStore{checkpoint: entities.Checkpoint{LastBlock: 200, LastHash: &hash}}
	m := New(store, Config{Mode: Resume, MinBlock: 0}, testLog())

	start, err := m.Start(context.Background())
	require.NoError(t, err)
	require.Equal(t, primitives.BlockNumber(201), start)
}

func TestUpdateAndResetToPersistCheckpoint(t *testing.T) {
	store := &fakeIndexerStateStore{}
	m := New(store, Config{Mode: Resume}, testLog())

	require.NoError(t, m.Update(context.Background(), 10, [32]byte{9}))
	require.NoError(t, m.ResetTo(context.Background(), 5, [32]byte{5}))

	require.Equal(t, []primitives.BlockNumber{10, 5}, store.setCalls)
	require.Equal(t, primitives.BlockNumber(5), store.checkpoint.LastBlock)
}
