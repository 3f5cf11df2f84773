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

// DeathHandler owns Death rows plus the position-closing side effects of
// death-related events. It mutates positions through PositionStore directly
// (SystemResetTriggered closes every active position) rather than routing
// back through PositionHandler, matching original_source's DeathHandler
// holding both death_store and position_store.
type DeathHandler struct {
	deaths    ports.DeathStore
	positions ports.PositionStore
	cache     ports.Cache
	log       *logrus.Entry
}

// NewDeathHandler constructs a DeathHandler.
func NewDeathHandler(deaths ports.DeathStore, positions ports.PositionStore, cache ports.Cache, log *logrus.Entry) *DeathHandler {
	return &DeathHandler{deaths: deaths, positions: positions, cache: cache, log: log}
}

// HandleDeathsProcessed is aggregate-only — the emitting contract carries no
// individual addresses, so this just logs and invalidates the level cache.
func (h *DeathHandler) HandleDeathsProcessed(ctx context.Context, ev events.DeathsProcessed) error {
	h.log.WithFields(logrus.Fields{
		"level":      ev.Level,
		"count":      ev.Count,
		"total_dead": ev.TotalDead.String(),
		"burned":     ev.Burned.String(),
		"distributed": ev.Distributed.String(),
	}).Info("deaths processed for level")

	h.cache.InvalidateLevel(ev.Level)
	return nil
}

// HandleSurvivorsUpdated is aggregate-only in the same way as
// DeathsProcessed.
func (h *DeathHandler) HandleSurvivorsUpdated(ctx context.Context, ev events.SurvivorsUpdated) error {
	h.log.WithFields(logrus.Fields{"level": ev.Level, "survivor_count": ev.Count}).Info("ghost streaks updated for survivors")
	h.cache.InvalidateLevel(ev.Level)
	return nil
}

// HandleCascadeDistributed invalidates the source level and every strictly
// safer (lower-ordinal) level the distribution cascades into.
func (h *DeathHandler) HandleCascadeDistributed(ctx context.Context, ev events.CascadeDistributed) error {
	h.log.WithFields(logrus.Fields{
		"source_level": ev.SourceLevel,
		"same_level":   ev.SameLevelAmount.String(),
		"upstream":     ev.UpstreamAmount.String(),
		"burn":         ev.BurnAmount.String(),
		"protocol":     ev.ProtocolAmount.String(),
	}).Info("cascade rewards distributed")

	h.cache.InvalidateLevel(ev.SourceLevel)
	for lvl := uint8(0); lvl < uint8(ev.SourceLevel); lvl++ {
		h.cache.InvalidateLevel(primitives.RiskLevel(lvl))
	}
	return nil
}

// HandleEmissionsAdded invalidates the target level's cache entry.
func (h *DeathHandler) HandleEmissionsAdded(ctx context.Context, ev events.EmissionsAdded) error {
	h.log.WithFields(logrus.Fields{"level": ev.Level, "amount": ev.Amount.String()}).Info("emissions added to level")
	h.cache.InvalidateLevel(ev.Level)
	return nil
}

// HandleSystemResetTriggered closes every active position across all
// levels, appending a full-amount history row and a death record for each.
func (h *DeathHandler) HandleSystemResetTriggered(ctx context.Context, ev events.SystemResetTriggered) error {
	meta := ev.Meta()
	h.log.WithFields(logrus.Fields{
		"total_penalty":  ev.TotalPenalty.String(),
		"jackpot_winner": ev.JackpotWinner.String(),
		"jackpot_amount": ev.JackpotAmount.String(),
	}).Warn("system reset triggered — doomsday")

	for _, lvl := range primitives.AllLevels {
		positions, err := h.positions.GetPositionsByLevel(ctx, lvl)
		if err != nil {
			return errs.Wrap(errs.KindDatabase, "system_reset: get positions by level", err)
		}

		var batch []entities.Death
		for i := range positions {
			pos := &positions[i]
			if !pos.IsActive() {
				continue
			}

			pos.IsAlive = false
			reason := primitives.ExitSystemReset
			pos.ExitReason = &reason
			ts := meta.Timestamp
			pos.ExitTimestamp = &ts
			pos.UpdatedAt = meta.Timestamp

			if err := h.positions.SavePosition(ctx, pos); err != nil {
				return errs.Wrap(errs.KindDatabase, "system_reset: save position", err)
			}
			if err := h.positions.RecordHistory(ctx, entities.PositionHistory{
				ID:           uuid.New(),
				PositionID:   pos.ID,
				UserAddress:  pos.UserAddress,
				Action:       primitives.ActionSystemReset,
				AmountChange: pos.Amount,
				NewTotal:     primitives.ZeroAmount,
				BlockNumber:  meta.BlockNumber,
				Timestamp:    meta.Timestamp,
			}); err != nil {
				return errs.Wrap(errs.KindDatabase, "system_reset: record history", err)
			}

			posID := pos.ID
			streak := pos.GhostStreak
			batch = append(batch, entities.Death{
				ID:                 uuid.New(),
				UserAddress:        pos.UserAddress,
				PositionID:         &posID,
				AmountLost:         pos.Amount,
				Level:              lvl,
				GhostStreakAtDeath: &streak,
				CreatedAt:          meta.Timestamp,
			})
		}

		if len(batch) > 0 {
			if err := h.deaths.RecordDeaths(ctx, batch); err != nil {
				return errs.Wrap(errs.KindDatabase, "system_reset: record deaths", err)
			}
		}
	}

	for _, lvl := range primitives.AllLevels {
		h.cache.InvalidateLevel(lvl)
	}
	return nil
}
