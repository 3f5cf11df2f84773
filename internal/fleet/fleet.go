// Package fleet declares the interface-only contract an external agent
// fleet's behavior scheduler would consume: a read-only chain view and a
// plugin registry. No implementation lives here — the scheduler itself is
// out of scope, matching original_source's fleet-core/ghost-fleet split,
// which this system only needs to expose an interface boundary for.
package fleet

import (
	"context"

	"github.com/ghostnet/indexer/internal/entities"
	"github.com/ghostnet/indexer/internal/primitives"
)

// Action is whatever decision a Plugin produces; left opaque since no
// plugin is implemented.
type Action interface{}

// ChainProvider exposes the read-only views a behavior plugin polls.
type ChainProvider interface {
	LatestPosition(ctx context.Context, owner primitives.Address) (*entities.Position, error)
	ActiveRounds(ctx context.Context) ([]entities.Round, error)
}

// Plugin is the marker interface a registered behavior strategy implements.
type Plugin interface {
	Decide(ctx context.Context, chain ChainProvider) (Action, error)
}

// PluginRegistry looks up registered plugins by name.
type PluginRegistry interface {
	Register(name string, p Plugin)
	Get(name string) (Plugin, bool)
}
