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

const feeTopic = "fee"

// FeeHandler translates FeeRouter events into global stats deltas (toll,
// buyback burn) and an external-stream publish; see TokenHandler's doc
// comment for why there's no dedicated ledger table.
type FeeHandler struct {
	stats     ports.StatsStore
	publisher ports.EventPublisher
	log       *logrus.Entry
}

// NewFeeHandler constructs a FeeHandler.
func NewFeeHandler(stats ports.StatsStore, publisher ports.EventPublisher, log *logrus.Entry) *FeeHandler {
	return &FeeHandler{stats: stats, publisher: publisher, log: log}
}

func (h *FeeHandler) publish(name string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.WithError(err).Warn("fee handler: marshal event payload failed")
		return
	}
	if err := h.publisher.Publish(feeTopic, data); err != nil {
		h.log.WithError(err).WithField("event", name).Warn("fee handler: publish failed")
	}
}

// HandleTollCollected bumps the global toll-collected counter.
func (h *FeeHandler) HandleTollCollected(ctx context.Context, ev events.TollCollected) error {
	amt := ev.Amount
	if err := h.stats.ApplyGlobalDelta(ctx, entities.GlobalStatsDelta{TollDelta: &amt}); err != nil {
		return errs.Wrap(errs.KindDatabase, "toll_collected: apply global delta", err)
	}
	h.publish("TollCollected", ev)
	h.log.WithFields(logrus.Fields{"from": ev.From.String(), "amount": ev.Amount.String(), "reason": ev.Reason.Hex()}).Info("toll collected")
	return nil
}

// HandleBuybackExecuted bumps the global buyback-burned counter.
func (h *FeeHandler) HandleBuybackExecuted(ctx context.Context, ev events.BuybackExecuted) error {
	amt := ev.DataBurned
	if err := h.stats.ApplyGlobalDelta(ctx, entities.GlobalStatsDelta{BuybackDelta: &amt}); err != nil {
		return errs.Wrap(errs.KindDatabase, "buyback_executed: apply global delta", err)
	}
	h.publish("BuybackExecuted", ev)
	h.log.WithFields(logrus.Fields{
		"eth_spent":     ev.EthSpent.String(),
		"data_received": ev.DataReceived.String(),
		"data_burned":   ev.DataBurned.String(),
	}).Info("buyback executed")
	return nil
}

// HandleOperationsWithdrawn is informational only.
func (h *FeeHandler) HandleOperationsWithdrawn(ctx context.Context, ev events.OperationsWithdrawn) error {
	h.publish("OperationsWithdrawn", ev)
	h.log.WithFields(logrus.Fields{"to": ev.To.String(), "amount": ev.Amount.String()}).Info("operations withdrawn")
	return nil
}
