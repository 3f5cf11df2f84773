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

// tokenTopic is the external-publisher partition for DataToken events, per
// §6's "partitioned by domain topic (position, scan, death, market, token,
// fee, emissions)".
const tokenTopic = "token"

// TokenHandler translates DataToken's ERC20-adjacent events into global
// stats deltas and an external-stream publish. §4.8 names only six store
// ports and none of them hold a per-transfer ledger table, so the "history
// table" §4.2.5 describes is the publisher's topic stream; the durable
// aggregate effect lives in StatsStore.ApplyGlobalDelta. See DESIGN.md.
type TokenHandler struct {
	stats     ports.StatsStore
	publisher ports.EventPublisher
	log       *logrus.Entry
}

// NewTokenHandler constructs a TokenHandler.
func NewTokenHandler(stats ports.StatsStore, publisher ports.EventPublisher, log *logrus.Entry) *TokenHandler {
	return &TokenHandler{stats: stats, publisher: publisher, log: log}
}

func (h *TokenHandler) publish(name string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.WithError(err).Warn("token handler: marshal event payload failed")
		return
	}
	if err := h.publisher.Publish(tokenTopic, data); err != nil {
		h.log.WithError(err).WithField("event", name).Warn("token handler: publish failed")
	}
}

// HandleTransfer is a pure pass-through to the external stream; transfers
// don't move any global counter this system tracks.
func (h *TokenHandler) HandleTransfer(ctx context.Context, ev events.Transfer) error {
	h.publish("Transfer", ev)
	h.log.WithFields(logrus.Fields{"from": ev.From.String(), "to": ev.To.String(), "value": ev.Value.String()}).Debug("token transfer")
	return nil
}

// HandleTaxBurned bumps the global burned counter.
func (h *TokenHandler) HandleTaxBurned(ctx context.Context, ev events.TaxBurned) error {
	amt := ev.Amount
	if err := h.stats.ApplyGlobalDelta(ctx, entities.GlobalStatsDelta{BurnedDelta: &amt}); err != nil {
		return errs.Wrap(errs.KindDatabase, "tax_burned: apply global delta", err)
	}
	h.publish("TaxBurned", ev)
	h.log.WithFields(logrus.Fields{"from": ev.From.String(), "amount": ev.Amount.String()}).Info("tax burned")
	return nil
}

// HandleTaxCollected is informational — collected tax is routed through
// FeeRouter's TollCollected for the global counter; this just streams it.
func (h *TokenHandler) HandleTaxCollected(ctx context.Context, ev events.TaxCollected) error {
	h.publish("TaxCollected", ev)
	h.log.WithFields(logrus.Fields{"from": ev.From.String(), "amount": ev.Amount.String()}).Debug("tax collected")
	return nil
}

// HandleTaxExclusionSet is informational only.
func (h *TokenHandler) HandleTaxExclusionSet(ctx context.Context, ev events.TaxExclusionSet) error {
	h.publish("TaxExclusionSet", ev)
	h.log.WithFields(logrus.Fields{"account": ev.Account.String(), "excluded": ev.Excluded}).Debug("tax exclusion set")
	return nil
}
