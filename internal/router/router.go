// Package router dispatches decoded chain events to their domain handler,
// the way the teacher's tutorial dispatchers type-switch on a decoded log
// before acting on it, generalized here to the full 27-event union.
package router

import (
	"context"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/ghostnet/indexer/internal/abi"
	"github.com/ghostnet/indexer/internal/errs"
	"github.com/ghostnet/indexer/internal/events"
	"github.com/ghostnet/indexer/internal/handlers"
)

// Outcome classifies what happened to a single log.
type Outcome int

const (
	// Routed means the log decoded to a known event and its handler ran
	// without error.
	Routed Outcome = iota
	// Unknown means the log's topic0 isn't in the ABI registry; not an
	// error, just a log this system doesn't care about.
	Unknown
	// Failed means decode or the handler returned an error.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Routed:
		return "routed"
	case Unknown:
		return "unknown"
	case Failed:
		return "failed"
	default:
		return "invalid"
	}
}

// Router owns one handler per domain and dispatches every decoded event to
// the handler that owns its contract.
type Router struct {
	position  *handlers.PositionHandler
	scan      *handlers.ScanHandler
	death     *handlers.DeathHandler
	market    *handlers.MarketHandler
	token     *handlers.TokenHandler
	fee       *handlers.FeeHandler
	emissions *handlers.EmissionsHandler
	log       *logrus.Entry
}

// New constructs a Router wired to one instance of each domain handler.
func New(
	position *handlers.PositionHandler,
	scan *handlers.ScanHandler,
	death *handlers.DeathHandler,
	market *handlers.MarketHandler,
	token *handlers.TokenHandler,
	fee *handlers.FeeHandler,
	emissions *handlers.EmissionsHandler,
	log *logrus.Entry,
) *Router {
	return &Router{
		position:  position,
		scan:      scan,
		death:     death,
		market:    market,
		token:     token,
		fee:       fee,
		emissions: emissions,
		log:       log,
	}
}

// Route decodes log and dispatches it to the owning handler. blockTime is
// the Unix timestamp of the block the log was mined in, needed because
// types.Log carries no timestamp of its own.
func (r *Router) Route(ctx context.Context, log types.Log, blockTime uint64) (Outcome, error) {
	ev, ok, err := abi.Decode(log, blockTime)
	if err != nil {
		return Failed, errs.Wrap(errs.KindEventDecoding, "router: decode log", err)
	}
	if !ok {
		return Unknown, nil
	}

	if err := r.dispatch(ctx, ev); err != nil {
		return Failed, err
	}
	return Routed, nil
}

func (r *Router) dispatch(ctx context.Context, ev events.Event) error {
	switch e := ev.(type) {
	// GhostCore
	case events.JackedIn:
		return r.position.HandleJackedIn(ctx, e)
	case events.StakeAdded:
		return r.position.HandleStakeAdded(ctx, e)
	case events.Extracted:
		return r.position.HandleExtracted(ctx, e)
	case events.BoostApplied:
		return r.position.HandleBoostApplied(ctx, e)
	case events.PositionCulled:
		return r.position.HandlePositionCulled(ctx, e)
	case events.DeathsProcessed:
		return r.death.HandleDeathsProcessed(ctx, e)
	case events.SurvivorsUpdated:
		return r.death.HandleSurvivorsUpdated(ctx, e)
	case events.CascadeDistributed:
		return r.death.HandleCascadeDistributed(ctx, e)
	case events.EmissionsAdded:
		return r.death.HandleEmissionsAdded(ctx, e)
	case events.SystemResetTriggered:
		return r.death.HandleSystemResetTriggered(ctx, e)

	// TraceScan
	case events.ScanExecuted:
		return r.scan.HandleScanExecuted(ctx, e)
	case events.DeathsSubmitted:
		return r.scan.HandleDeathsSubmitted(ctx, e)
	case events.ScanFinalized:
		return r.scan.HandleScanFinalized(ctx, e)

	// DeadPool
	case events.RoundCreated:
		return r.market.HandleRoundCreated(ctx, e)
	case events.BetPlaced:
		return r.market.HandleBetPlaced(ctx, e)
	case events.RoundResolved:
		return r.market.HandleRoundResolved(ctx, e)
	case events.WinningsClaimed:
		return r.market.HandleWinningsClaimed(ctx, e)

	// DataToken
	case events.Transfer:
		return r.token.HandleTransfer(ctx, e)
	case events.TaxBurned:
		return r.token.HandleTaxBurned(ctx, e)
	case events.TaxCollected:
		return r.token.HandleTaxCollected(ctx, e)
	case events.TaxExclusionSet:
		return r.token.HandleTaxExclusionSet(ctx, e)

	// FeeRouter
	case events.TollCollected:
		return r.fee.HandleTollCollected(ctx, e)
	case events.BuybackExecuted:
		return r.fee.HandleBuybackExecuted(ctx, e)
	case events.OperationsWithdrawn:
		return r.fee.HandleOperationsWithdrawn(ctx, e)

	// RewardsDistributor
	case events.EmissionsDistributed:
		return r.emissions.HandleEmissionsDistributed(ctx, e)
	case events.WeightsUpdated:
		return r.emissions.HandleWeightsUpdated(ctx, e)
	case events.TokensClaimed:
		return r.emissions.HandleTokensClaimed(ctx, e)

	default:
		r.log.WithField("event", ev.Name()).Warn("router: decoded event with no registered handler")
		return nil
	}
}
