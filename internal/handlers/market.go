package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ghostnet/indexer/internal/entities"
	"github.com/ghostnet/indexer/internal/errs"
	"github.com/ghostnet/indexer/internal/events"
	"github.com/ghostnet/indexer/internal/ports"
	"github.com/ghostnet/indexer/internal/primitives"
)

// MarketHandler owns Round and Bet rows. On-chain target_level 0 is the
// "global" sentinel and is stored as a nil TargetLevel; 1-5 map directly
// onto the RiskLevel enum, matching §4.2.4 exactly.
type MarketHandler struct {
	store ports.MarketStore
	cache ports.Cache
	log   *logrus.Entry
}

// NewMarketHandler constructs a MarketHandler.
func NewMarketHandler(store ports.MarketStore, cache ports.Cache, log *logrus.Entry) *MarketHandler {
	return &MarketHandler{store: store, cache: cache, log: log}
}

// HandleRoundCreated is idempotent on the on-chain round id.
func (h *MarketHandler) HandleRoundCreated(ctx context.Context, ev events.RoundCreated) error {
	existing, err := h.store.GetRoundByID(ctx, ev.RoundID)
	if err != nil {
		return errs.Wrap(errs.KindDatabase, "round_created: lookup existing round", err)
	}
	if existing != nil {
		h.log.WithField("round_id", ev.RoundID).Warn("round already exists, skipping")
		return nil
	}

	var targetLevel *primitives.RiskLevel
	if ev.TargetLevel != primitives.LevelSafest {
		lvl := ev.TargetLevel
		targetLevel = &lvl
	}

	round := entities.Round{
		ID:          uuid.New(),
		RoundID:     ev.RoundID,
		RoundType:   ev.RoundType,
		TargetLevel: targetLevel,
		Line:        ev.Line,
		Deadline:    unixToTime(ev.Deadline),
		OverPool:    primitives.ZeroAmount,
		UnderPool:   primitives.ZeroAmount,
		IsResolved:  false,
	}
	if err := h.store.SaveRound(ctx, round); err != nil {
		return errs.Wrap(errs.KindDatabase, "round_created: save round", err)
	}

	h.log.WithFields(logrus.Fields{"round_uuid": round.ID, "round_id": ev.RoundID, "round_type": ev.RoundType}).Info("round created")
	return nil
}

// HandleBetPlaced requires an existing, unresolved round (the betting
// deadline is not checked); otherwise it warns and no-ops rather than
// erroring. The store inserts the bet and bumps the
// round's pool total atomically.
func (h *MarketHandler) HandleBetPlaced(ctx context.Context, ev events.BetPlaced) error {
	round, err := h.store.GetRoundByID(ctx, ev.RoundID)
	if err != nil {
		return errs.Wrap(errs.KindDatabase, "bet_placed: lookup round", err)
	}
	if round == nil || round.IsResolved {
		h.log.WithFields(logrus.Fields{"round_id": ev.RoundID, "user": ev.User.String()}).Warn("bet placed on missing or resolved round, ignoring")
		return nil
	}

	bet := entities.Bet{
		ID:          uuid.New(),
		RoundID:     round.ID,
		UserAddress: ev.User,
		Amount:      ev.Amount,
		IsOver:      ev.IsOver,
		IsClaimed:   false,
	}
	if err := h.store.RecordBet(ctx, bet); err != nil {
		return errs.Wrap(errs.KindDatabase, "bet_placed: record bet", err)
	}

	h.log.WithFields(logrus.Fields{"round_id": ev.RoundID, "user": ev.User.String(), "amount": ev.Amount.String(), "is_over": ev.IsOver}).Info("bet placed")
	return nil
}

// HandleRoundResolved is idempotent; it requires the round to exist.
func (h *MarketHandler) HandleRoundResolved(ctx context.Context, ev events.RoundResolved) error {
	meta := ev.Meta()

	round, err := h.store.GetRoundByID(ctx, ev.RoundID)
	if err != nil {
		return errs.Wrap(errs.KindDatabase, "round_resolved: lookup round", err)
	}
	if round == nil {
		return errs.New(errs.KindRoundNotFound, "round "+ev.RoundID+" not found")
	}
	if round.IsResolved {
		h.log.WithField("round_id", ev.RoundID).Warn("round already resolved, skipping")
		return nil
	}

	if err := h.store.ResolveRound(ctx, ev.RoundID, ev.Outcome, ev.Burned, meta.Timestamp); err != nil {
		if errs.Is(err, errs.KindAlreadyFinalized) {
			h.log.WithField("round_id", ev.RoundID).Warn("round resolved concurrently, skipping")
			return nil
		}
		return errs.Wrap(errs.KindDatabase, "round_resolved: resolve round", err)
	}

	h.log.WithFields(logrus.Fields{"round_id": ev.RoundID, "outcome": ev.Outcome, "burned": ev.Burned.String()}).Info("round resolved")
	return nil
}

// HandleWinningsClaimed locates the claimant's unclaimed bet on the round
// and records the claim. Fails if no such bet exists.
func (h *MarketHandler) HandleWinningsClaimed(ctx context.Context, ev events.WinningsClaimed) error {
	meta := ev.Meta()

	round, err := h.store.GetRoundByID(ctx, ev.RoundID)
	if err != nil {
		return errs.Wrap(errs.KindDatabase, "winnings_claimed: lookup round", err)
	}
	if round == nil {
		return errs.New(errs.KindRoundNotFound, "round "+ev.RoundID+" not found")
	}

	bets, err := h.store.GetBetsForRound(ctx, round.ID)
	if err != nil {
		return errs.Wrap(errs.KindDatabase, "winnings_claimed: list bets for round", err)
	}

	var target *entities.Bet
	for i := range bets {
		if bets[i].UserAddress == ev.User && !bets[i].IsClaimed {
			target = &bets[i]
			break
		}
	}
	if target == nil {
		return errs.New(errs.KindBetNotFound, "no unclaimed bet for "+ev.User.String()+" on round "+ev.RoundID)
	}

	if err := h.store.MarkBetClaimed(ctx, target.ID, ev.Amount, meta.Timestamp); err != nil {
		if errs.Is(err, errs.KindAlreadyFinalized) {
			h.log.WithField("bet_id", target.ID).Warn("bet claimed concurrently, skipping")
			return nil
		}
		return errs.Wrap(errs.KindDatabase, "winnings_claimed: mark claimed", err)
	}

	h.log.WithFields(logrus.Fields{"round_id": ev.RoundID, "user": ev.User.String(), "winnings": ev.Amount.String()}).Info("winnings claimed")
	return nil
}
