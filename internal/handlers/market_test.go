package handlers

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/ghostnet/indexer/internal/entities"
	"github.com/ghostnet/indexer/internal/errs"
	"github.com/ghostnet/indexer/internal/events"
	"github.com/ghostnet/indexer/internal/primitives"
)

type fakeMarketStore struct {
	rounds map[string]*entities.Round
	bets   map[uuid.UUID][]entities.Bet
}

func newFakeMarketStore() *fakeMarketStore {
	return &fakeMarketStore{rounds: map[string]*entities.Round{}, bets: map[uuid.UUID][]entities.Bet{}}
}

func (s *fakeMarketStore) SaveRound(ctx context.Context, r entities.Round) error {
	cp := r
	s.rounds[r.RoundID] = &cp
	return nil
}

func (s *fakeMarketStore) RecordBet(ctx context.Context, b entities.Bet) error {
	s.bets[b.RoundID] = append(s.bets[b.RoundID], b)
	return nil
}

func (s *fakeMarketStore) ResolveRound(ctx context.Context, onChainRoundID string, outcome bool, totalBurned primitives.Amount, resolveTime time.Time) error {
	r, ok := s.rounds[onChainRoundID]
	if !ok {
		return errs.ErrRoundNotFound
	}
	if r.IsResolved {
		return errs.ErrAlreadyFinalized
	}
	r.IsResolved = true
	r.Outcome = &outcome
	r.TotalBurned = &totalBurned
	r.ResolveTime = &resolveTime
	return nil
}

func (s *fakeMarketStore) GetActiveRounds(ctx context.Context) ([]entities.Round, error) {
	var out []entities.Round
	for _, r := range s.rounds {
		if !r.IsResolved {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *fakeMarketStore) GetRoundByID(ctx context.Context, onChainRoundID string) (*entities.Round, error) {
	r, ok := s.rounds[onChainRoundID]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *fakeMarketStore) GetBetsForRound(ctx context.Context, roundID uuid.UUID) ([]entities.Bet, error) {
	return s.bets[roundID], nil
}

func (s *fakeMarketStore) GetUserBets(ctx context.Context, addr primitives.Address, limit int) ([]entities.Bet, error) {
	return nil, nil
}

func (s *fakeMarketStore) MarkBetClaimed(ctx context.Context, betID uuid.UUID, winnings primitives.Amount, claimTime time.Time) error {
	for roundID, bets := range s.bets {
		for i := range bets {
			if bets[i].ID == betID {
				if bets[i].IsClaimed {
					return errs.ErrAlreadyFinalized
				}
				bets[i].IsClaimed = true
				bets[i].Winnings = &winnings
				bets[i].ClaimedAt = &claimTime
				s.bets[roundID] = bets
				return nil
			}
		}
	}
	return errs.New(errs.KindBetNotFound, "bet not found")
}

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func testUser(t *testing.T) primitives.Address {
	t.Helper()
	addr, err := primitives.ParseAddress("0x0000000000000000000000000000000000000001")
	require.NoError(t, err)
	return addr
}

func TestHandleRoundCreatedIsIdempotent(t *testing.T) {
	store := newFakeMarketStore()
	h := NewMarketHandler(store, nil, testLog())

	ev := events.RoundCreated{
		RoundID:     "round-1",
		RoundType:   primitives.RoundTypeClassic,
		TargetLevel: primitives.Level2,
		Line:        primitives.MustAmount("100"),
		Deadline:    uint64(time.Now().Add(time.Hour).Unix()),
	}

	require.NoError(t, h.HandleRoundCreated(context.Background(), ev))
	require.NoError(t, h.HandleRoundCreated(context.Background(), ev))

	require.Len(t, store.rounds, 1)
	r := store.rounds["round-1"]
	require.NotNil(t, r.TargetLevel)
	require.Equal(t, primitives.Level2, *r.TargetLevel)
}

func TestHandleRoundCreatedGlobalSentinelHasNilTargetLevel(t *testing.T) {
	store := newFakeMarketStore()
	h := NewMarketHandler(store, nil, testLog())

	ev := events.RoundCreated{RoundID: "round-global", TargetLevel: primitives.LevelSafest, Line: primitives.ZeroAmount}
	require.NoError(t, h.HandleRoundCreated(context.Background(), ev))

	require.Nil(t, store.rounds["round-global"].TargetLevel)
}

func TestHandleBetPlacedIgnoresMissingRound(t *testing.T) {
	store := newFakeMarketStore()
	h := NewMarketHandler(store, nil, testLog())

	ev := events.BetPlaced{RoundID: "missing", User: testUser(t), Amount: primitives.MustAmount("5"), IsOver: true}
	require.NoError(t, h.HandleBetPlaced(context.Background(), ev))
	require.Empty(t, store.bets)
}

func TestHandleBetPlacedRecordsBetOnOpenRound(t *testing.T) {
	store := newFakeMarketStore()
	h := NewMarketHandler(store, nil, testLog())
	require.NoError(t, h.HandleRoundCreated(context.Background(), events.RoundCreated{
		RoundID: "round-2", TargetLevel: primitives.Level1, Line: primitives.ZeroAmount,
		Deadline: uint64(time.Now().Add(time.Hour).Unix()),
	}))

	user := testUser(t)
	ev := events.BetPlaced{RoundID: "round-2", User: user, Amount: primitives.MustAmount("10"), IsOver: true}
	require.NoError(t, h.HandleBetPlaced(context.Background(), ev))

	round := store.rounds["round-2"]
	bets := store.bets[round.ID]
	require.Len(t, bets, 1)
	require.Equal(t, user, bets[0].UserAddress)
}

func TestHandleRoundResolvedRequiresExistingRound(t *testing.T) {
	store := newFakeMarketStore()
	h := NewMarketHandler(store, nil, testLog())

	err := h.HandleRoundResolved(context.Background(), events.RoundResolved{RoundID: "missing"})
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindRoundNotFound))
}

func TestHandleWinningsClaimedRequiresUnclaimedBet(t *testing.T) {
	store := newFakeMarketStore()
	h := NewMarketHandler(store, nil, testLog())
	require.NoError(t, h.HandleRoundCreated(context.Background(), events.RoundCreated{
		RoundID: "round-3", TargetLevel: primitives.Level1, Line: primitives.ZeroAmount,
		Deadline: uint64(time.Now().Add(time.Hour).Unix()),
	}))
	user := testUser(t)
	require.NoError(t, h.HandleBetPlaced(context.Background(), events.BetPlaced{
		RoundID: "round-3", User: user, Amount: primitives.MustAmount("10"), IsOver: true,
	}))

	err := h.HandleWinningsClaimed(context.Background(), events.WinningsClaimed{RoundID: "round-3", User: testUser2(t)})
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindBetNotFound))

	require.NoError(t, h.HandleWinningsClaimed(context.Background(), events.WinningsClaimed{
		RoundID: "round-3", User: user, Amount: primitives.MustAmount("20"),
	}))

	round := store.rounds["round-3"]
	require.True(t, store.bets[round.ID][0].IsClaimed)
}

func testUser2(t *testing.T) primitives.Address {
	t.Helper()
	addr, err := primitives.ParseAddress("0x0000000000000000000000000000000000000002")
	require.NoError(t, err)
	return addr
}
