package floating

import (
	"context"

	"github.com/parallelvirtualcluster/pvc/pkg/log"
	"github.com/parallelvirtualcluster/pvc/pkg/types"
)

// addresser is the slice of AddrManager the Manager needs.
type addresser interface {
	EnsureFloatingSet(ctx context.Context, set []FloatingAddr) error
	ReleaseFloatingSet(ctx context.Context, set []FloatingAddr) error
}

// gatewayer is the slice of GatewayManager the Manager needs.
type gatewayer interface {
	EnsureGateways(ctx context.Context, networks []*types.Network) error
	ReleaseGateways(ctx context.Context, networks []*types.Network) error
}

// FloatingService is the common Start/Stop shape of DNSAggregator,
// DHCPResponder, and MetadataResponder.
type FloatingService interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Manager coordinates every floating service this node runs only while
// it is primary, bringing them up in a fixed order
// and tearing them down in reverse. Each step is individually
// idempotent, so Takeover/Relinquish can be wired directly as
// pkg/election.Hooks and safely re-run if an earlier attempt was
// interrupted partway.
type Manager struct {
	addr     addresser
	gateway  gatewayer
	floating []FloatingAddr
	view     ClusterView

	dnsAggregators map[int]FloatingService
	dhcpResponders map[int]FloatingService
	metadata       FloatingService
	newDNS         func(vni int, n *types.Network) FloatingService
	newDHCP        func(vni int, n *types.Network) FloatingService
}

// NewManager constructs a Manager. newDNS/newDHCP build one aggregator/
// responder per managed network discovered at takeover time.
func NewManager(
	addr addresser,
	gateway gatewayer,
	floatingSet []FloatingAddr,
	view ClusterView,
	metadata FloatingService,
	newDNS func(vni int, n *types.Network) FloatingService,
	newDHCP func(vni int, n *types.Network) FloatingService,
) *Manager {
	return &Manager{
		addr:           addr,
		gateway:        gateway,
		floating:       floatingSet,
		view:           view,
		metadata:       metadata,
		newDNS:         newDNS,
		newDHCP:        newDHCP,
		dnsAggregators: make(map[int]FloatingService),
		dhcpResponders: make(map[int]FloatingService),
	}
}

// Takeover brings every floating service up, in that fixed order.
// It does not abort on a single step's failure — every step is attempted
// so a partial prior takeover (crash mid-sequence) still converges to
// fully up on retry — and returns the first error encountered, if any.
func (m *Manager) Takeover(ctx context.Context) error {
	var first error
	record := func(err error) {
		if err != nil {
			log.Error("floating: takeover step failed: " + err.Error())
			if first == nil {
				first = err
			}
		}
	}

	record(m.addr.EnsureFloatingSet(ctx, m.floating))

	managed := managedNetworks(m.view.ListNetworks())
	for _, n := range managed {
		agg, ok := m.dnsAggregators[n.VNI]
		if !ok {
			agg = m.newDNS(n.VNI, n)
			m.dnsAggregators[n.VNI] = agg
		}
		record(agg.Start(ctx))
	}

	for _, n := range managed {
		resp, ok := m.dhcpResponders[n.VNI]
		if !ok {
			resp = m.newDHCP(n.VNI, n)
			m.dhcpResponders[n.VNI] = resp
		}
		record(resp.Start(ctx))
	}

	if m.metadata != nil {
		record(m.metadata.Start(ctx))
	}

	record(m.gateway.EnsureGateways(ctx, managed))

	return first
}

// Relinquish tears every floating service back down, in reverse order,
// with the same attempt-everything semantics as Takeover.
func (m *Manager) Relinquish(ctx context.Context) error {
	var first error
	record := func(err error) {
		if err != nil {
			log.Error("floating: relinquish step failed: " + err.Error())
			if first == nil {
				first = err
			}
		}
	}

	managed := managedNetworks(m.view.ListNetworks())

	record(m.gateway.ReleaseGateways(ctx, managed))

	if m.metadata != nil {
		record(m.metadata.Stop(ctx))
	}

	for vni, resp := range m.dhcpResponders {
		record(resp.Stop(ctx))
		delete(m.dhcpResponders, vni)
	}

	for vni, agg := range m.dnsAggregators {
		record(agg.Stop(ctx))
		delete(m.dnsAggregators, vni)
	}

	record(m.addr.ReleaseFloatingSet(ctx, m.floating))

	return first
}

func managedNetworks(all []*types.Network) []*types.Network {
	out := make([]*types.Network, 0, len(all))
	for _, n := range all {
		if n.Type == types.NetworkTypeManaged {
			out = append(out, n)
		}
	}
	return out
}
