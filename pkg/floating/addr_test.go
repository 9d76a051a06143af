package floating

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vishvananda/netlink"
)

type fakeLink struct {
	netlink.LinkAttrs
}

func (f *fakeLink) Attrs() *netlink.LinkAttrs { return &f.LinkAttrs }
func (f *fakeLink) Type() string              { return "fake" }

type fakeLinkOps struct {
	links map[string]netlink.Link
	addrs map[string][]netlink.Addr // keyed by link name
}

func newFakeLinkOps(name string) *fakeLinkOps {
	return &fakeLinkOps{
		links: map[string]netlink.Link{name: &fakeLink{LinkAttrs: netlink.LinkAttrs{Name: name}}},
		addrs: map[string][]netlink.Addr{},
	}
}

func (f *fakeLinkOps) LinkByName(name string) (netlink.Link, error) {
	l, ok := f.links[name]
	if !ok {
		return nil, net.UnknownNetworkError("no such link")
	}
	return l, nil
}

func (f *fakeLinkOps) AddrList(link netlink.Link, family int) ([]netlink.Addr, error) {
	return f.addrs[link.Attrs().Name], nil
}

func (f *fakeLinkOps) AddrAdd(link netlink.Link, addr *netlink.Addr) error {
	f.addrs[link.Attrs().Name] = append(f.addrs[link.Attrs().Name], *addr)
	return nil
}

func (f *fakeLinkOps) AddrDel(link netlink.Link, addr *netlink.Addr) error {
	name := link.Attrs().Name
	out := f.addrs[name][:0]
	for _, a := range f.addrs[name] {
		if !a.Equal(*addr) {
			out = append(out, a)
		}
	}
	f.addrs[name] = out
	return nil
}

func TestEnsureAddrIsIdempotent(t *testing.T) {
	ops := newFakeLinkOps("eth0")
	m := &AddrManager{ops: ops}

	require.NoError(t, m.EnsureAddr(context.Background(), "eth0", "10.0.0.5/32"))
	require.NoError(t, m.EnsureAddr(context.Background(), "eth0", "10.0.0.5/32"))

	require.Len(t, ops.addrs["eth0"], 1)
}

func TestReleaseAddrIsIdempotent(t *testing.T) {
	ops := newFakeLinkOps("eth0")
	m := &AddrManager{ops: ops}
	require.NoError(t, m.EnsureAddr(context.Background(), "eth0", "10.0.0.5/32"))

	require.NoError(t, m.ReleaseAddr(context.Background(), "eth0", "10.0.0.5/32"))
	require.NoError(t, m.ReleaseAddr(context.Background(), "eth0", "10.0.0.5/32"))

	require.Empty(t, ops.addrs["eth0"])
}

func TestEnsureFloatingSetAttemptsEveryAddressDespiteOneMissingLink(t *testing.T) {
	ops := newFakeLinkOps("eth0")
	m := &AddrManager{ops: ops}
	set := []FloatingAddr{
		{Name: "upstream", Interface: "eth0", CIDR: "10.0.0.1/32"},
		{Name: "cluster", Interface: "nonexistent0", CIDR: "10.0.0.2/32"},
		{Name: "storage", Interface: "eth0", CIDR: "10.0.0.3/32"},
	}

	err := m.EnsureFloatingSet(context.Background(), set)

	require.Error(t, err)
	require.Len(t, ops.addrs["eth0"], 2)
}

func TestOffsetIPIncrements(t *testing.T) {
	base := net.ParseIP("10.0.0.10").To4()
	require.Equal(t, "10.0.0.10", offsetIP(base, 0).String())
	require.Equal(t, "10.0.0.11", offsetIP(base, 1).String())
	require.Equal(t, "10.0.1.0", offsetIP(net.ParseIP("10.0.0.255").To4(), 1).String())
}

func TestCompareIP(t *testing.T) {
	require.Equal(t, 0, compareIP(net.ParseIP("10.0.0.1"), net.ParseIP("10.0.0.1")))
	require.Equal(t, -1, compareIP(net.ParseIP("10.0.0.1"), net.ParseIP("10.0.0.2")))
	require.Equal(t, 1, compareIP(net.ParseIP("10.0.0.2"), net.ParseIP("10.0.0.1")))
}
