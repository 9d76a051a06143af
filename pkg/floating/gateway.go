package floating

import (
	"context"
	"fmt"

	"github.com/parallelvirtualcluster/pvc/pkg/types"
)

// BridgeNamer maps a managed network's VNI to the local bridge interface
// it is attached to (e.g. "pvc-br42"), implemented by pkg/pvcconfig.
type BridgeNamer func(vni int) string

// GatewayManager brings up/tears down the IPv4/IPv6 gateway addresses a
// managed network's bridge needs to act as that network's router, one
// per network this node is the primary for.
type GatewayManager struct {
	addr   *AddrManager
	bridge BridgeNamer
}

// NewGatewayManager constructs a GatewayManager.
func NewGatewayManager(addr *AddrManager, bridge BridgeNamer) *GatewayManager {
	return &GatewayManager{addr: addr, bridge: bridge}
}

// EnsureGateways brings up the configured gateway addresses for every
// managed network in networks; bridged networks are skipped, they are
// not PVC-routed.
func (g *GatewayManager) EnsureGateways(ctx context.Context, networks []*types.Network) error {
	var errs []error
	for _, n := range networks {
		if n.Type != types.NetworkTypeManaged {
			continue
		}
		iface := g.bridge(n.VNI)
		if n.IPv4Gateway != "" {
			if err := g.addr.EnsureAddr(ctx, iface, n.IPv4Gateway); err != nil {
				errs = append(errs, fmt.Errorf("network %d ipv4 gateway: %w", n.VNI, err))
			}
		}
		if n.IPv6Gateway != "" {
			if err := g.addr.EnsureAddr(ctx, iface, n.IPv6Gateway); err != nil {
				errs = append(errs, fmt.Errorf("network %d ipv6 gateway: %w", n.VNI, err))
			}
		}
	}
	return joinErrors(errs)
}

// ReleaseGateways tears down every managed network's gateway addresses.
func (g *GatewayManager) ReleaseGateways(ctx context.Context, networks []*types.Network) error {
	var errs []error
	for _, n := range networks {
		if n.Type != types.NetworkTypeManaged {
			continue
		}
		iface := g.bridge(n.VNI)
		if n.IPv4Gateway != "" {
			if err := g.addr.ReleaseAddr(ctx, iface, n.IPv4Gateway); err != nil {
				errs = append(errs, fmt.Errorf("network %d ipv4 gateway: %w", n.VNI, err))
			}
		}
		if n.IPv6Gateway != "" {
			if err := g.addr.ReleaseAddr(ctx, iface, n.IPv6Gateway); err != nil {
				errs = append(errs, fmt.Errorf("network %d ipv6 gateway: %w", n.VNI, err))
			}
		}
	}
	return joinErrors(errs)
}
