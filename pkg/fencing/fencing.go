package fencing

import (
	"context"
	"fmt"
	"time"

	"github.com/parallelvirtualcluster/pvc/pkg/log"
	"github.com/parallelvirtualcluster/pvc/pkg/metrics"
	"github.com/parallelvirtualcluster/pvc/pkg/placement"
	"github.com/parallelvirtualcluster/pvc/pkg/types"
)

// staleAfter is how long without a heartbeat before a node is considered
// a fencing candidate.
const staleAfter = 30 * time.Second

// checkInterval is the monitor loop's tick.
const checkInterval = 5 * time.Second

// clusterDefaultSelector is used when a domain reassigned by fence
// recovery has node_selector=none.
const clusterDefaultSelector = types.SelectorLoad

// PowerControl is the slice of pkg/ipmi a Monitor needs.
type PowerControl interface {
	PowerCycle(ctx context.Context, node string) error
	PowerStatus(ctx context.Context, node string) (string, error)
}

// NodeLocker single-flights fence attempts per node so two coordinators
// racing a split-brain primary election can't both power-cycle the same
// node concurrently. Implemented by pkg/coord's write-lock recipe.
type NodeLocker interface {
	AcquireLock(ctx context.Context, dir string) (Releaser, error)
}

// Releaser matches *coord.Lock's public surface.
type Releaser interface {
	Release() error
}

// Writer persists the fenced node's daemon_state and the domains
// fence recovery cold-reassigns away from it.
type Writer interface {
	SaveNode(n *types.Node) error
	SaveDomain(d *types.Domain) error
}

// Monitor polls node heartbeats and fences stale ones.
type Monitor struct {
	power   PowerControl
	locker  NodeLocker
	writer  Writer
	lockDir func(node string) string
}

// New constructs a Monitor. lockDir builds the per-node lock directory
// path (typically schema.Path(schema.KindNodeCoordinatorState, node) plus
// a "/fence-lock" suffix, supplied by the caller to avoid an import cycle
// on pkg/schema here).
func New(power PowerControl, locker NodeLocker, writer Writer, lockDir func(string) string) *Monitor {
	return &Monitor{power: power, locker: locker, writer: writer, lockDir: lockDir}
}

// Run polls every node in nodes() on checkInterval until ctx is done,
// fencing any whose LastHeartbeat is older than staleAfter.
func (m *Monitor) Run(ctx context.Context, nodes func() []*types.Node, domains func() []*types.Domain) {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.sweep(ctx, nodes(), domains())
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) sweep(ctx context.Context, nodes []*types.Node, domains []*types.Domain) {
	now := time.Now()
	for _, n := range nodes {
		if n.DaemonState == types.DaemonStateFenced {
			continue
		}
		if now.Sub(n.LastHeartbeat) < staleAfter {
			continue
		}
		if err := m.Fence(ctx, n, nodes, domains); err != nil {
			log.Error(fmt.Sprintf("fencing: fence %s failed: %v", n.Name, err))
		}
	}
}

// Fence power-cycles n under a single-flight lock, marks it
// daemon_state=fenced, and cold-reassigns its domains via Recover. Safe
// to call concurrently for the same node from multiple coordinators;
// only one will win the lock and perform the action.
func (m *Monitor) Fence(ctx context.Context, n *types.Node, nodes []*types.Node, domains []*types.Domain) error {
	lock, err := m.locker.AcquireLock(ctx, m.lockDir(n.Name))
	if err != nil {
		return fmt.Errorf("fencing: acquire lock for %s: %w", n.Name, err)
	}
	defer lock.Release()

	log.Info("fencing: power-cycling " + n.Name)
	if err := m.power.PowerCycle(ctx, n.Name); err != nil {
		metrics.FenceAttemptsTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("fencing: power cycle %s: %w", n.Name, err)
	}
	metrics.FenceAttemptsTotal.WithLabelValues("success").Inc()

	n.DaemonState = types.DaemonStateFenced
	n.DomainState = types.DomainStateReady
	if err := m.writer.SaveNode(n); err != nil {
		return fmt.Errorf("fencing: save fenced state for %s: %w", n.Name, err)
	}

	m.Recover(n, nodes, domains)
	return nil
}

// Recover cold re-places every domain left on fenced node n whose state
// is start or migrate: it is not live-migrated (n just lost power), but
// reassigned to a node the Placement Engine picks among the other
// schedulable nodes and set to state=start there. Domains already
// stopped (including node_autostart=false domains never started in the
// first place) are untouched and remain state=stop. Errors placing an
// individual domain are logged, not returned, so one unplaceable domain
// doesn't stop the rest of the node's fleet from recovering.
func (m *Monitor) Recover(n *types.Node, nodes []*types.Node, domains []*types.Domain) {
	schedulable := placement.FilterSchedulable(nodes)
	candidates := make([]*types.Node, 0, len(schedulable))
	for _, c := range schedulable {
		if c.Name != n.Name {
			candidates = append(candidates, c)
		}
	}

	for _, d := range domains {
		if d.Node != n.Name {
			continue
		}
		if d.State != types.DomainLifecycleStart && d.State != types.DomainLifecycleMigrate {
			continue
		}
		target, err := placement.Select(d, candidates, clusterDefaultSelector)
		if err != nil {
			log.Error(fmt.Sprintf("fencing: place %s after fencing %s: %v", d.Name, n.Name, err))
			continue
		}
		d.LastNode = ""
		d.Node = target.Name
		d.State = types.DomainLifecycleStart
		if err := m.writer.SaveDomain(d); err != nil {
			log.Error(fmt.Sprintf("fencing: save reassigned domain %s: %v", d.Name, err))
		}
	}
}
