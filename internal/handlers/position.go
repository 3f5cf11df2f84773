// Package handlers implements the seven event-to-mutation translators: each
// owns a subset of entities and writes only to its store ports plus the
// cache, grounded on original_source's handlers/*.rs hexagonal-port style
// (store + cache, no cross-handler references) generalized from Rust's
// async_trait dispatch to a plain Go method per event variant.
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

// PositionHandler owns Position and PositionHistory mutations.
type PositionHandler struct {
	store ports.PositionStore
	cache ports.Cache
	log   *logrus.Entry
}

// NewPositionHandler constructs a PositionHandler.
func NewPositionHandler(store ports.PositionStore, cache ports.Cache, log *logrus.Entry) *PositionHandler {
	return &PositionHandler{store: store, cache: cache, log: log}
}

func (h *PositionHandler) recordHistory(ctx context.Context, pos *entities.Position, action primitives.PositionAction, amountChange primitives.Amount, meta events.Meta) error {
	return h.store.RecordHistory(ctx, entities.PositionHistory{
		ID:           uuid.New(),
		PositionID:   pos.ID,
		UserAddress:  pos.UserAddress,
		Action:       action,
		AmountChange: amountChange,
		NewTotal:     pos.Amount,
		BlockNumber:  meta.BlockNumber,
		Timestamp:    meta.Timestamp,
	})
}

// HandleJackedIn creates a new position, first superseding any existing
// active one for the address.
func (h *PositionHandler) HandleJackedIn(ctx context.Context, ev events.JackedIn) error {
	meta := ev.Meta()

	if existing, err := h.store.GetActivePosition(ctx, ev.User); err != nil {
		return errs.Wrap(errs.KindDatabase, "jacked_in: lookup existing position", err)
	} else if existing != nil {
		h.log.WithFields(logrus.Fields{
			"existing_id": existing.ID,
			"user":        ev.User.String(),
		}).Warn("closing existing position due to new JackedIn event")

		existing.IsAlive = false
		reason := primitives.ExitSuperseded
		existing.ExitReason = &reason
		ts := meta.Timestamp
		existing.ExitTimestamp = &ts
		existing.UpdatedAt = meta.Timestamp

		if err := h.store.SavePosition(ctx, existing); err != nil {
			return errs.Wrap(errs.KindDatabase, "jacked_in: save superseded position", err)
		}
		if err := h.recordHistory(ctx, existing, primitives.ActionSuperseded, primitives.ZeroAmount, meta); err != nil {
			return errs.Wrap(errs.KindDatabase, "jacked_in: record superseded history", err)
		}
	}

	pos := &entities.Position{
		ID:             uuid.New(),
		UserAddress:    ev.User,
		Level:          ev.Level,
		Amount:         ev.Amount,
		RewardDebt:     primitives.ZeroAmount,
		EntryTimestamp: meta.Timestamp,
		GhostStreak:    primitives.ZeroStreak,
		IsAlive:        true,
		CreatedAtBlock: meta.BlockNumber,
		UpdatedAt:      meta.Timestamp,
	}
	if err := h.store.SavePosition(ctx, pos); err != nil {
		return errs.Wrap(errs.KindDatabase, "jacked_in: save position", err)
	}
	if err := h.recordHistory(ctx, pos, primitives.ActionJackedIn, ev.Amount, meta); err != nil {
		return errs.Wrap(errs.KindDatabase, "jacked_in: record history", err)
	}

	h.cache.InvalidatePosition(ev.User)
	h.log.WithFields(logrus.Fields{"position_id": pos.ID, "amount": ev.Amount.String()}).Info("position created")
	return nil
}

// HandleStakeAdded increases an existing active position's amount.
func (h *PositionHandler) HandleStakeAdded(ctx context.Context, ev events.StakeAdded) error {
	meta := ev.Meta()

	pos, err := h.store.GetActivePosition(ctx, ev.User)
	if err != nil {
		return errs.Wrap(errs.KindDatabase, "stake_added: lookup position", err)
	}
	if pos == nil {
		return errs.New(errs.KindPositionNotFound, "no active position for "+ev.User.String())
	}

	pos.Amount = ev.NewTotal
	ts := meta.Timestamp
	pos.LastAddTimestamp = &ts
	pos.UpdatedAt = meta.Timestamp

	if err := h.store.SavePosition(ctx, pos); err != nil {
		return errs.Wrap(errs.KindDatabase, "stake_added: save position", err)
	}
	if err := h.recordHistory(ctx, pos, primitives.ActionStakeAdded, ev.Amount, meta); err != nil {
		return errs.Wrap(errs.KindDatabase, "stake_added: record history", err)
	}

	h.cache.InvalidatePosition(ev.User)
	h.log.WithFields(logrus.Fields{"position_id": pos.ID, "added": ev.Amount.String(), "new_total": pos.Amount.String()}).Info("stake added to position")
	return nil
}

// HandleExtracted closes an active position as voluntarily exited.
func (h *PositionHandler) HandleExtracted(ctx context.Context, ev events.Extracted) error {
	meta := ev.Meta()

	pos, err := h.store.GetActivePosition(ctx, ev.User)
	if err != nil {
		return errs.Wrap(errs.KindDatabase, "extracted: lookup position", err)
	}
	if pos == nil {
		return errs.New(errs.KindPositionNotFound, "no active position for "+ev.User.String())
	}

	totalExtracted := ev.Amount.Add(ev.Rewards)

	pos.IsAlive = false
	pos.IsExtracted = true
	reason := primitives.ExitExtracted
	pos.ExitReason = &reason
	ts := meta.Timestamp
	pos.ExitTimestamp = &ts
	principal := ev.Amount
	pos.ExtractedAmount = &principal
	rewards := ev.Rewards
	pos.ExtractedRewards = &rewards
	pos.UpdatedAt = meta.Timestamp

	if err := h.store.SavePosition(ctx, pos); err != nil {
		return errs.Wrap(errs.KindDatabase, "extracted: save position", err)
	}
	if err := h.recordHistory(ctx, pos, primitives.ActionExtracted, totalExtracted, meta); err != nil {
		return errs.Wrap(errs.KindDatabase, "extracted: record history", err)
	}

	h.cache.InvalidatePosition(ev.User)
	h.log.WithFields(logrus.Fields{"position_id": pos.ID, "principal": ev.Amount.String(), "rewards": ev.Rewards.String()}).Info("position extracted")
	return nil
}

// HandleBoostApplied requires an active position for visibility but does
// not mutate it — boost effects live elsewhere.
func (h *PositionHandler) HandleBoostApplied(ctx context.Context, ev events.BoostApplied) error {
	pos, err := h.store.GetActivePosition(ctx, ev.User)
	if err != nil {
		return errs.Wrap(errs.KindDatabase, "boost_applied: lookup position", err)
	}
	if pos == nil {
		return errs.New(errs.KindPositionNotFound, "no active position for "+ev.User.String())
	}

	h.cache.InvalidatePosition(ev.User)
	h.log.WithFields(logrus.Fields{
		"position_id": pos.ID,
		"boost_type":  ev.BoostType,
		"value_bps":   ev.ValueBps,
		"expiry":      ev.Expiry,
	}).Debug("boost applied to position")
	return nil
}

// HandlePositionCulled closes a position removed for level capacity.
func (h *PositionHandler) HandlePositionCulled(ctx context.Context, ev events.PositionCulled) error {
	meta := ev.Meta()

	pos, err := h.store.GetActivePosition(ctx, ev.Victim)
	if err != nil {
		return errs.Wrap(errs.KindDatabase, "position_culled: lookup position", err)
	}
	if pos == nil {
		return errs.New(errs.KindPositionNotFound, "no active position for "+ev.Victim.String())
	}

	pos.IsAlive = false
	reason := primitives.ExitCulled
	pos.ExitReason = &reason
	ts := meta.Timestamp
	pos.ExitTimestamp = &ts
	pos.UpdatedAt = meta.Timestamp

	if err := h.store.SavePosition(ctx, pos); err != nil {
		return errs.Wrap(errs.KindDatabase, "position_culled: save position", err)
	}
	if err := h.recordHistory(ctx, pos, primitives.ActionCulled, ev.PenaltyAmount, meta); err != nil {
		return errs.Wrap(errs.KindDatabase, "position_culled: record history", err)
	}

	h.cache.InvalidatePosition(ev.Victim)
	h.log.WithFields(logrus.Fields{"position_id": pos.ID, "penalty": ev.PenaltyAmount.String(), "new_entrant": ev.NewEntrant.String()}).Info("position culled")
	return nil
}
