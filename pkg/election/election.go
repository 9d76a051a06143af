package election

import (
	"context"
	"fmt"
	"time"

	"github.com/parallelvirtualcluster/pvc/pkg/coord"
	"github.com/parallelvirtualcluster/pvc/pkg/log"
	"github.com/parallelvirtualcluster/pvc/pkg/metrics"
	"github.com/parallelvirtualcluster/pvc/pkg/schema"
	"github.com/parallelvirtualcluster/pvc/pkg/types"
)

// primacyPollInterval is how often Elector checks whether the session
// backing its ephemeral election node is still alive.
const primacyPollInterval = 2 * time.Second

// primaryTracker matches *localcache.Cache.SetPrimary; a Node writes its
// own coordinator_state into cache directly via pkg/entity, this just
// flags "is this process the primary" for metrics/placement decisions.
type primaryTracker interface {
	SetPrimary(bool)
}

// Hooks customize what happens around a takeover/relinquish transition.
// Both may block; Elector calls them synchronously as part of the
// transition, matching the Node State Machine's "wait=true" semantics
// for coordinator_state changes.
type Hooks struct {
	OnTakeover   func(ctx context.Context) error
	OnRelinquish func(ctx context.Context) error
}

// Elector drives one node's participation in the cluster-wide election.
type Elector struct {
	coord  *coord.Client
	cache  primaryTracker
	node   string
	hooks  Hooks
	resign chan struct{}
}

// New constructs an Elector for node, campaigning under the cluster's
// primary-lock directory.
func New(c *coord.Client, cache primaryTracker, node string, hooks Hooks) *Elector {
	return &Elector{coord: c, cache: cache, node: node, hooks: hooks, resign: make(chan struct{}, 1)}
}

// Resign asks a currently-primary Elector to voluntarily relinquish and
// re-enter the campaign queue behind every other contender, the way ZK's
// sequential-ephemeral recipe has no notion of "hand primacy to node X"
// short of the current holder stepping aside. A caller wanting a specific
// node to become primary (coordinator-state's admin API) can only ask the
// current primary to resign and rely on whichever node is next in line
// (usually the only other live contender in a two-node pair) to win the
// resulting campaign. A no-op if this node isn't currently primary or a
// resign is already pending.
func (e *Elector) Resign() {
	select {
	case e.resign <- struct{}{}:
	default:
	}
}

// Run campaigns forever until ctx is done, cycling through takeover and
// relinquish each time this node wins and then loses (or the session
// drops) the election. It returns only once ctx is done; a failed
// takeover is logged, relinquished, and followed by a new campaign.
func (e *Elector) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		handle, err := e.campaign(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error(fmt.Sprintf("election: campaign: %v", err))
			continue
		}

		// Discard any resign requested while this node was not yet primary.
		select {
		case <-e.resign:
		default:
		}

		if err := e.takeover(ctx); err != nil {
			log.Error(fmt.Sprintf("election: takeover hook failed, relinquishing: %v", err))
		} else {
			e.waitForLossOfPrimacy(ctx)
		}

		e.relinquish(ctx)
		_ = handle.Resign()
	}
}

func (e *Elector) campaign(ctx context.Context) (*coord.Election, error) {
	return e.coord.Campaign(ctx, schema.Path(schema.KindPrimaryLock))
}

func (e *Elector) takeover(ctx context.Context) error {
	log.Info("election: won campaign, taking over as primary")
	if err := e.setState(types.CoordinatorStateTakeover); err != nil {
		return err
	}
	if e.hooks.OnTakeover != nil {
		if err := e.hooks.OnTakeover(ctx); err != nil {
			return err
		}
	}
	if err := e.setState(types.CoordinatorStatePrimary); err != nil {
		return err
	}
	e.cache.SetPrimary(true)
	metrics.CoordIsPrimary.Set(1)
	return nil
}

// waitForLossOfPrimacy blocks until the session drops, a voluntary Resign
// is requested, or ctx is done. Actual contested loss of the ephemeral
// node is detected by pkg/coord's session-state tracking; this loop polls
// it rather than requiring a push channel, since relinquish is a rare,
// not latency-sensitive, event.
func (e *Elector) waitForLossOfPrimacy(ctx context.Context) {
	t := time.NewTicker(primacyPollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.resign:
			return
		case <-t.C:
			if !e.coord.IsConnected() {
				return
			}
		}
	}
}

func (e *Elector) relinquish(ctx context.Context) {
	log.Info("election: relinquishing primary")
	_ = e.setState(types.CoordinatorStateRelinquish)
	if e.hooks.OnRelinquish != nil {
		if err := e.hooks.OnRelinquish(ctx); err != nil {
			log.Error(fmt.Sprintf("election: relinquish hook: %v", err))
		}
	}
	e.cache.SetPrimary(false)
	metrics.CoordIsPrimary.Set(0)
	_ = e.setState(types.CoordinatorStateSecondary)
}

func (e *Elector) setState(s types.CoordinatorState) error {
	return e.coord.Set(schema.Path(schema.KindNodeCoordinatorState, e.node), []byte(s))
}
