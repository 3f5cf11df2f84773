package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ghostnet/indexer/internal/events"
	"github.com/ghostnet/indexer/internal/primitives"
)

func TestHandleTollCollectedAppliesTollDelta(t *testing.T) {
	stats := &fakeStatsStore{}
	pub := &fakePublisher{}
	h := NewFeeHandler(stats, pub, testLog())

	ev := events.TollCollected{From: testUser(t), Amount: primitives.MustAmount("7")}
	require.NoError(t, h.HandleTollCollected(context.Background(), ev))

	require.Len(t, stats.deltas, 1)
	require.NotNil(t, stats.deltas[0].TollDelta)
	require.True(t, stats.deltas[0].TollDelta.Cmp(primitives.MustAmount("7")) == 0)
	require.Nil(t, stats.deltas[0].BurnedDelta)
	require.Len(t, pub.published, 1)
	require.Equal(t, "fee", pub.published[0].topic)
}

func TestHandleBuybackExecutedAppliesDataBurnedAsBuybackDelta(t *testing.T) {
	stats := &fakeStatsStore{}
	pub := &fakePublisher{}
	h := NewFeeHandler(stats, pub, testLog())

	ev := events.BuybackExecuted{
		EthSpent:     primitives.MustAmount("1"),
		DataReceived: primitives.MustAmount("100"),
		DataBurned:   primitives.MustAmount("100"),
	}
	require.NoError(t, h.HandleBuybackExecuted(context.Background(), ev))

	require.Len(t, stats.deltas, 1)
	require.NotNil(t, stats.deltas[0].BuybackDelta)
	require.True(t, stats.deltas[0].BuybackDelta.Cmp(primitives.MustAmount("100")) == 0)
}

func TestHandleOperationsWithdrawnIsInformationalOnly(t *testing.T) {
	stats := &fakeStatsStore{}
	pub := &fakePublisher{}
	h := NewFeeHandler(stats, pub, testLog())

	ev := events.OperationsWithdrawn{To: testUser(t), Amount: primitives.MustAmount("3")}
	require.NoError(t, h.HandleOperationsWithdrawn(context.Background(), ev))

	require.Empty(t, stats.deltas)
	require.Len(t, pub.published, 1)
}
