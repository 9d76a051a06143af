package floating

import (
	"context"
	"fmt"

	"github.com/parallelvirtualcluster/pvc/pkg/log"
	"github.com/vishvananda/netlink"
)

// linkOps is the slice of vishvananda/netlink this package needs, narrow
// enough to fake in tests without real interfaces or CAP_NET_ADMIN.
type linkOps interface {
	LinkByName(name string) (netlink.Link, error)
	AddrList(link netlink.Link, family int) ([]netlink.Addr, error)
	AddrAdd(link netlink.Link, addr *netlink.Addr) error
	AddrDel(link netlink.Link, addr *netlink.Addr) error
}

type realLinkOps struct{}

func (realLinkOps) LinkByName(name string) (netlink.Link, error) { return netlink.LinkByName(name) }
func (realLinkOps) AddrList(link netlink.Link, family int) ([]netlink.Addr, error) {
	return netlink.AddrList(link, family)
}
func (realLinkOps) AddrAdd(link netlink.Link, addr *netlink.Addr) error {
	return netlink.AddrAdd(link, addr)
}
func (realLinkOps) AddrDel(link netlink.Link, addr *netlink.Addr) error {
	return netlink.AddrDel(link, addr)
}

// AddrManager ensures/releases addresses on interfaces idempotently, the
// building block both floating IPs and per-network gateway addresses are
// implemented on top of.
type AddrManager struct {
	ops linkOps
}

// NewAddrManager constructs an AddrManager against the real kernel
// netlink socket.
func NewAddrManager() *AddrManager {
	return &AddrManager{ops: realLinkOps{}}
}

// EnsureAddr adds cidr to iface unless it is already present.
func (m *AddrManager) EnsureAddr(ctx context.Context, iface, cidr string) error {
	link, err := m.ops.LinkByName(iface)
	if err != nil {
		return fmt.Errorf("floating: lookup link %s: %w", iface, err)
	}
	addr, err := netlink.ParseAddr(cidr)
	if err != nil {
		return fmt.Errorf("floating: parse address %s: %w", cidr, err)
	}

	existing, err := m.ops.AddrList(link, netlink.FAMILY_ALL)
	if err != nil {
		return fmt.Errorf("floating: list addresses on %s: %w", iface, err)
	}
	for _, e := range existing {
		if e.Equal(*addr) {
			return nil
		}
	}

	if err := m.ops.AddrAdd(link, addr); err != nil {
		return fmt.Errorf("floating: add address %s to %s: %w", cidr, iface, err)
	}
	log.Info(fmt.Sprintf("floating: address %s brought up on %s", cidr, iface))
	return nil
}

// ReleaseAddr removes cidr from iface if present.
func (m *AddrManager) ReleaseAddr(ctx context.Context, iface, cidr string) error {
	link, err := m.ops.LinkByName(iface)
	if err != nil {
		return fmt.Errorf("floating: lookup link %s: %w", iface, err)
	}
	addr, err := netlink.ParseAddr(cidr)
	if err != nil {
		return fmt.Errorf("floating: parse address %s: %w", cidr, err)
	}

	existing, err := m.ops.AddrList(link, netlink.FAMILY_ALL)
	if err != nil {
		return fmt.Errorf("floating: list addresses on %s: %w", iface, err)
	}
	found := false
	for _, e := range existing {
		if e.Equal(*addr) {
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	if err := m.ops.AddrDel(link, addr); err != nil {
		return fmt.Errorf("floating: remove address %s from %s: %w", cidr, iface, err)
	}
	log.Info(fmt.Sprintf("floating: address %s torn down on %s", cidr, iface))
	return nil
}

// FloatingAddr names one floating address this node can hold: which
// interface it lives on and its CIDR.
type FloatingAddr struct {
	Name      string // "upstream", "cluster", or "storage"
	Interface string
	CIDR      string
}

// EnsureFloatingSet brings up every address in set, continuing past a
// single address's failure so one misconfigured interface doesn't block
// the rest of takeover; all errors are joined and returned together.
func (m *AddrManager) EnsureFloatingSet(ctx context.Context, set []FloatingAddr) error {
	var errs []error
	for _, a := range set {
		if err := m.EnsureAddr(ctx, a.Interface, a.CIDR); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.Name, err))
		}
	}
	return joinErrors(errs)
}

// ReleaseFloatingSet tears down every address in set, continuing past
// failures for the same reason EnsureFloatingSet does.
func (m *AddrManager) ReleaseFloatingSet(ctx context.Context, set []FloatingAddr) error {
	var errs []error
	for _, a := range set {
		if err := m.ReleaseAddr(ctx, a.Interface, a.CIDR); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.Name, err))
		}
	}
	return joinErrors(errs)
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	msg := errs[0].Error()
	for _, e := range errs[1:] {
		msg += "; " + e.Error()
	}
	return fmt.Errorf("floating: %s", msg)
}
