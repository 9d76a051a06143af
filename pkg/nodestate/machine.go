package nodestate

import (
	"context"
	"time"

	"github.com/parallelvirtualcluster/pvc/pkg/log"
	"github.com/parallelvirtualcluster/pvc/pkg/pvcerr"
	"github.com/parallelvirtualcluster/pvc/pkg/types"
)

// StateWriter persists a node's state fields. Implemented by pkg/entity
// against pkg/coord.
type StateWriter interface {
	SaveNode(n *types.Node) error
}

// DomainMover is the slice of pkg/placement + pkg/migration a flush/
// unflush cycle needs: pick a target, then move the domain there.
type DomainMover interface {
	SelectTarget(d *types.Domain, excludeNode string) (string, error)
	Migrate(ctx context.Context, d *types.Domain, targetNode string, force, forceLive bool) error
	Unmigrate(ctx context.Context, d *types.Domain, force, forceLive bool) error
}

// pollInterval is how often Machine re-checks observed state while
// honoring wait=true.
const pollInterval = 500 * time.Millisecond

// Machine drives one node's state transitions.
type Machine struct {
	writer StateWriter
	mover  DomainMover
}

// New constructs a Machine.
func New(writer StateWriter, mover DomainMover) *Machine {
	return &Machine{writer: writer, mover: mover}
}

// Flush evacuates every domain currently on n, moving domain_state
// ready->flush->flushed. Each domain is placed on another schedulable
// node via DomainMover.SelectTarget, migrated there, and left with its
// last_node lineage pointing back to n so Unflush knows where to return
// it. If wait is true, Flush blocks until every domain has moved before
// returning; otherwise it kicks off migrations and returns once
// domain_state=flush is recorded.
func (m *Machine) Flush(ctx context.Context, n *types.Node, domains []*types.Domain, wait bool) error {
	if !CanTransitionDomainState(n.DomainState, types.DomainStateFlush) {
		return pvcerr.Precondition("node %s: cannot flush from domain_state=%s", n.Name, n.DomainState)
	}
	n.DomainState = types.DomainStateFlush
	if err := m.writer.SaveNode(n); err != nil {
		return pvcerr.CoordinationLost(err)
	}

	migrateAll := func() error {
		for _, d := range domains {
			if d.Node != n.Name {
				continue
			}
			target, err := m.mover.SelectTarget(d, n.Name)
			if err != nil {
				return err
			}
			if err := m.mover.Migrate(ctx, d, target, false, false); err != nil {
				return err
			}
		}
		n.DomainState = types.DomainStateFlushed
		return m.writer.SaveNode(n)
	}

	if !wait {
		go func() {
			if err := migrateAll(); err != nil {
				log.Error("nodestate: flush of " + n.Name + " failed: " + err.Error())
			}
		}()
		return nil
	}
	return migrateAll()
}

// Unflush restores every domain that lists n as its last_node,
// domain_state flushed->unflush->ready.
func (m *Machine) Unflush(ctx context.Context, n *types.Node, domains []*types.Domain, wait bool) error {
	if !CanTransitionDomainState(n.DomainState, types.DomainStateUnflush) {
		return pvcerr.Precondition("node %s: cannot unflush from domain_state=%s", n.Name, n.DomainState)
	}
	n.DomainState = types.DomainStateUnflush
	if err := m.writer.SaveNode(n); err != nil {
		return pvcerr.CoordinationLost(err)
	}

	restoreAll := func() error {
		for _, d := range domains {
			if d.LastNode != n.Name {
				continue
			}
			if err := m.mover.Unmigrate(ctx, d, false, false); err != nil {
				return err
			}
		}
		n.DomainState = types.DomainStateReady
		return m.writer.SaveNode(n)
	}

	if !wait {
		go func() {
			if err := restoreAll(); err != nil {
				log.Error("nodestate: unflush of " + n.Name + " failed: " + err.Error())
			}
		}()
		return nil
	}
	return restoreAll()
}

// WaitForDomainState blocks until n's observed domain_state equals want,
// or ctx is done, re-reading via refresh on each tick. Nothing in this
// tree calls it; Flush and Unflush take their own wait flag.
func WaitForDomainState(ctx context.Context, refresh func() (types.DomainState, error), want types.DomainState) error {
	t := time.NewTicker(pollInterval)
	defer t.Stop()
	for {
		state, err := refresh()
		if err != nil {
			return err
		}
		if state == want {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}
