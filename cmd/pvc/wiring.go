package main

import (
	"context"
	"fmt"
	"time"

	"github.com/parallelvirtualcluster/pvc/pkg/entity"
	"github.com/parallelvirtualcluster/pvc/pkg/events"
	"github.com/parallelvirtualcluster/pvc/pkg/fault"
	"github.com/parallelvirtualcluster/pvc/pkg/fencing"
	"github.com/parallelvirtualcluster/pvc/pkg/health"
	"github.com/parallelvirtualcluster/pvc/pkg/ipmi"
	"github.com/parallelvirtualcluster/pvc/pkg/log"
	"github.com/parallelvirtualcluster/pvc/pkg/metrics"
	"github.com/parallelvirtualcluster/pvc/pkg/migration"
	"github.com/parallelvirtualcluster/pvc/pkg/placement"
	"github.com/parallelvirtualcluster/pvc/pkg/pvcconfig"
	"github.com/parallelvirtualcluster/pvc/pkg/schema"
	"github.com/parallelvirtualcluster/pvc/pkg/storageexec"
	"github.com/parallelvirtualcluster/pvc/pkg/types"
)

// clusterDefaultSelector is used whenever a domain's own node_selector is
// types.SelectorNone, matching the Placement Engine's cluster-default
// fallback.
const clusterDefaultSelector = types.SelectorLoad

// domainMover combines the Placement Engine's pure scoring functions
// with a live node list to implement pkg/nodestate.DomainMover.
// SelectTarget has no production implementation anywhere else in the
// tree (only a fake in pkg/nodestate's tests), so it lives here as the
// glue between placement and migration the daemon itself provides.
type domainMover struct {
	nodes     func() []*types.Node
	migration *migration.Controller
}

func newDomainMover(nodes func() []*types.Node, m *migration.Controller) *domainMover {
	return &domainMover{nodes: nodes, migration: m}
}

func (m *domainMover) SelectTarget(d *types.Domain, excludeNode string) (string, error) {
	schedulable := placement.FilterSchedulable(m.nodes())
	candidates := make([]*types.Node, 0, len(schedulable))
	for _, n := range schedulable {
		if n.Name != excludeNode {
			candidates = append(candidates, n)
		}
	}
	target, err := placement.Select(d, candidates, clusterDefaultSelector)
	if err != nil {
		return "", err
	}
	return target.Name, nil
}

func (m *domainMover) Migrate(ctx context.Context, d *types.Domain, targetNode string, force, forceLive bool) error {
	return m.migration.Migrate(ctx, d, targetNode, force, forceLive)
}

func (m *domainMover) Unmigrate(ctx context.Context, d *types.Domain, force, forceLive bool) error {
	return m.migration.Unmigrate(ctx, d, force, forceLive)
}

// faultSink adapts pkg/fault's pure Report helper plus pkg/entity's
// Collection/Writer pair into pkg/health.Sink, so every health plugin
// funnels through the same dedup-by-content-hash path.
type faultSink struct {
	faults *entity.Collection[types.Fault]
	writer *entity.Writer
}

func newFaultSink(faults *entity.Collection[types.Fault], writer *entity.Writer) *faultSink {
	return &faultSink{faults: faults, writer: writer}
}

func (s *faultSink) ReportHealth(kind, subject, messageTemplate, message string, delta int) {
	id := fault.ID(kind, subject, messageTemplate)
	existing := s.faults.Get(id)
	f := fault.Report(existing, kind, subject, messageTemplate, message, delta, time.Now())
	if err := s.writer.SaveFault(f); err != nil {
		log.Error(fmt.Sprintf("wiring: save fault %s: %v", f.ID, err))
	}
}

// componentHealthSink mirrors health.Runner's plugin reports into
// pkg/metrics' process-wide component registry, keyed by plugin name, so
// the metrics server's /health and /ready reflect the same probes the
// fault aggregator sees, then forwards to next (the fault sink) unchanged.
type componentHealthSink struct {
	next      health.Sink
	component map[string]string // plugin name -> metrics component name
}

func newComponentHealthSink(next health.Sink, component map[string]string) *componentHealthSink {
	return &componentHealthSink{next: next, component: component}
}

func (s *componentHealthSink) ReportHealth(kind, subject, messageTemplate, message string, delta int) {
	if name, ok := s.component[messageTemplate]; ok {
		metrics.UpdateComponent(name, delta == 0, message)
	}
	s.next.ReportHealth(kind, subject, messageTemplate, message, delta)
}

// eventPublisher narrows pkg/events.Broker to the one method the rest of
// the daemon needs, so lifecycle notifications can be wired in without
// every call site depending on the full Broker type.
type eventPublisher interface {
	Publish(e *events.Event)
}

func publishLifecycle(p eventPublisher, typ events.EventType, message string, meta map[string]string) {
	p.Publish(&events.Event{Type: typ, Message: message, Metadata: meta})
}

// nodeLockerAdapter adapts *coord.Client.AcquireLock's concrete *coord.Lock
// return into the fencing.Releaser interface fencing.NodeLocker expects,
// since a method returning a concrete type never satisfies an interface
// method signature returning an interface, even when the concrete type
// implements it.
type nodeLockerAdapter struct {
	acquire func(ctx context.Context, dir string) (releaser, error)
}

type releaser interface {
	Release() error
}

func (a nodeLockerAdapter) AcquireLock(ctx context.Context, dir string) (fencing.Releaser, error) {
	r, err := a.acquire(ctx, dir)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// fenceLockDir builds the per-node fence single-flight lock path,
// distinct from the node's own coordinator_state data node.
func fenceLockDir(node string) string {
	return schema.Path(schema.KindNodeCoordinatorState, node) + "/fence-lock"
}

// volumeResolverFor maps a domain UUID to the single RBD volume backing
// it, following the convention the Domain XML templates this cluster
// writes always use: one system disk per domain named "vm-<uuid>". A
// domain with additional data disks needs its own resolver entry; the
// XML itself (parsed by nothing in this tree, per the
// libvirt-XML-parsing non-goal) is the only other place that mapping
// could come from.
func volumeResolverFor(cfg *pvcconfig.Config) storageexec.VolumeResolver {
	return func(domainUUID string) []storageexec.VolumeRef {
		return []storageexec.VolumeRef{{Pool: cfg.CephPool, Name: "vm-" + domainUUID}}
	}
}

func bridgeNamerFor(cfg *pvcconfig.Config) func(vni int) string {
	return func(vni int) string { return cfg.BridgeForVNI(vni) }
}

func credentialResolverFor(cfg *pvcconfig.Config) ipmi.CredentialResolver {
	return func(node string) (ipmi.Credentials, error) {
		n, ok := cfg.NodeByName(node)
		if !ok {
			return ipmi.Credentials{}, fmt.Errorf("wiring: no ipmi credentials configured for node %q", node)
		}
		return ipmi.Credentials{Host: n.IPMIHost, Username: n.IPMIUsername, Password: n.IPMIPassword}, nil
	}
}
