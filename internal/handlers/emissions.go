package handlers

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/ghostnet/indexer/internal/entities"
	"github.com/ghostnet/indexer/internal/errs"
	"github.com/ghostnet/indexer/internal/events"
	"github.com/ghostnet/indexer/internal/ports"
)

const emissionsTopic = "emissions"

// EmissionsHandler translates RewardsDistributor events into a global
// emissions-distributed delta and an external-stream publish; see
// TokenHandler's doc comment for why there's no dedicated ledger table.
type EmissionsHandler struct {
	stats     ports.StatsStore
	publisher ports.EventPublisher
	log       *logrus.Entry
}

// NewEmissionsHandler constructs an EmissionsHandler.
func NewEmissionsHandler(stats ports.StatsStore, publisher ports.EventPublisher, log *logrus.Entry) *EmissionsHandler {
	return &EmissionsHandler{stats: stats, publisher: publisher, log: log}
}

func (h *EmissionsHandler) publish(name string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.WithError(err).Warn("emissions handler: marshal event payload failed")
		return
	}
	if err := h.publisher.Publish(emissionsTopic, data); err != nil {
		h.log.WithError(err).WithField("event", name).Warn("emissions handler: publish failed")
	}
}

// HandleEmissionsDistributed bumps the global emissions-distributed counter.
func (h *EmissionsHandler) HandleEmissionsDistributed(ctx context.Context, ev events.EmissionsDistributed) error {
	amt := ev.TotalAmount
	if err := h.stats.ApplyGlobalDelta(ctx, entities.GlobalStatsDelta{EmissionsDelta: &amt}); err != nil {
		return errs.Wrap(errs.KindDatabase, "emissions_distributed: apply global delta", err)
	}
	h.publish("EmissionsDistributed", ev)
	h.log.WithField("total_amount", ev.TotalAmount.String()).Info("emissions distributed")
	return nil
}

// HandleWeightsUpdated is informational only.
func (h *EmissionsHandler) HandleWeightsUpdated(ctx context.Context, ev events.WeightsUpdated) error {
	h.publish("WeightsUpdated", ev)
	h.log.WithField("new_weights", ev.NewWeights).Info("weights updated")
	return nil
}

// HandleTokensClaimed is informational only; per-member claims aren't
// rolled into any global counter.
func (h *EmissionsHandler) HandleTokensClaimed(ctx context.Context, ev events.TokensClaimed) error {
	h.publish("TokensClaimed", ev)
	h.log.WithFields(logrus.Fields{"member": ev.Member.String(), "amount": ev.Amount.String()}).Info("tokens claimed")
	return nil
}
