package floating

import (
	"context"
	"errors"
	"testing"

	"github.com/parallelvirtualcluster/pvc/pkg/types"
	"github.com/stretchr/testify/require"
)

type fakeAddresser struct {
	ensureCalls, releaseCalls int
	ensureErr, releaseErr     error
}

func (f *fakeAddresser) EnsureFloatingSet(ctx context.Context, set []FloatingAddr) error {
	f.ensureCalls++
	return f.ensureErr
}
func (f *fakeAddresser) ReleaseFloatingSet(ctx context.Context, set []FloatingAddr) error {
	f.releaseCalls++
	return f.releaseErr
}

type fakeGatewayer struct {
	ensureCalls, releaseCalls int
}

func (f *fakeGatewayer) EnsureGateways(ctx context.Context, networks []*types.Network) error {
	f.ensureCalls++
	return nil
}
func (f *fakeGatewayer) ReleaseGateways(ctx context.Context, networks []*types.Network) error {
	f.releaseCalls++
	return nil
}

type fakeClusterView struct {
	networks []*types.Network
}

func (v *fakeClusterView) ListNetworks() []*types.Network { return v.networks }
func (v *fakeClusterView) ListDomains() []*types.Domain   { return nil }

type fakeService struct {
	startCalls, stopCalls int
	startErr              error
}

func (f *fakeService) Start(ctx context.Context) error {
	f.startCalls++
	return f.startErr
}
func (f *fakeService) Stop(ctx context.Context) error {
	f.stopCalls++
	return nil
}

func newTestManager(addr *fakeAddresser, gw *fakeGatewayer, view *fakeClusterView, dnsSvcs, dhcpSvcs map[int]*fakeService, meta *fakeService) *Manager {
	return NewManager(
		addr, gw, []FloatingAddr{{Name: "upstream", Interface: "eth0", CIDR: "10.0.0.1/32"}}, view, meta,
		func(vni int, n *types.Network) FloatingService {
			s := dnsSvcs[vni]
			if s == nil {
				s = &fakeService{}
				dnsSvcs[vni] = s
			}
			return s
		},
		func(vni int, n *types.Network) FloatingService {
			s := dhcpSvcs[vni]
			if s == nil {
				s = &fakeService{}
				dhcpSvcs[vni] = s
			}
			return s
		},
	)
}

func TestTakeoverBringsUpEveryManagedNetworkService(t *testing.T) {
	addr := &fakeAddresser{}
	gw := &fakeGatewayer{}
	view := &fakeClusterView{networks: []*types.Network{
		{VNI: 10, Type: types.NetworkTypeManaged},
		{VNI: 20, Type: types.NetworkTypeBridged},
	}}
	dnsSvcs, dhcpSvcs := map[int]*fakeService{}, map[int]*fakeService{}
	meta := &fakeService{}
	m := newTestManager(addr, gw, view, dnsSvcs, dhcpSvcs, meta)

	err := m.Takeover(context.Background())

	require.NoError(t, err)
	require.Equal(t, 1, addr.ensureCalls)
	require.Equal(t, 1, gw.ensureCalls)
	require.Equal(t, 1, meta.startCalls)
	require.Len(t, dnsSvcs, 1) // only the managed network (VNI 10) got a service
	require.Len(t, dhcpSvcs, 1)
	require.Equal(t, 1, dnsSvcs[10].startCalls)
}

func TestTakeoverIsIdempotentAndDoesNotRecreateServices(t *testing.T) {
	addr := &fakeAddresser{}
	gw := &fakeGatewayer{}
	view := &fakeClusterView{networks: []*types.Network{{VNI: 10, Type: types.NetworkTypeManaged}}}
	dnsSvcs, dhcpSvcs := map[int]*fakeService{}, map[int]*fakeService{}
	meta := &fakeService{}
	m := newTestManager(addr, gw, view, dnsSvcs, dhcpSvcs, meta)

	require.NoError(t, m.Takeover(context.Background()))
	require.NoError(t, m.Takeover(context.Background()))

	require.Equal(t, 2, addr.ensureCalls) // AddrManager itself guards idempotency
	require.Equal(t, 2, dnsSvcs[10].startCalls)
	require.Len(t, dnsSvcs, 1) // still just one aggregator, not re-created
}

func TestTakeoverAttemptsEveryStepEvenWhenOneFails(t *testing.T) {
	addr := &fakeAddresser{ensureErr: errors.New("boom")}
	gw := &fakeGatewayer{}
	view := &fakeClusterView{networks: []*types.Network{{VNI: 10, Type: types.NetworkTypeManaged}}}
	dnsSvcs, dhcpSvcs := map[int]*fakeService{}, map[int]*fakeService{}
	meta := &fakeService{}
	m := newTestManager(addr, gw, view, dnsSvcs, dhcpSvcs, meta)

	err := m.Takeover(context.Background())

	require.Error(t, err)
	require.Equal(t, 1, dnsSvcs[10].startCalls)
	require.Equal(t, 1, meta.startCalls)
	require.Equal(t, 1, gw.ensureCalls)
}

func TestRelinquishTearsDownEverythingThatWasBroughtUp(t *testing.T) {
	addr := &fakeAddresser{}
	gw := &fakeGatewayer{}
	view := &fakeClusterView{networks: []*types.Network{{VNI: 10, Type: types.NetworkTypeManaged}}}
	dnsSvcs, dhcpSvcs := map[int]*fakeService{}, map[int]*fakeService{}
	meta := &fakeService{}
	m := newTestManager(addr, gw, view, dnsSvcs, dhcpSvcs, meta)
	require.NoError(t, m.Takeover(context.Background()))

	err := m.Relinquish(context.Background())

	require.NoError(t, err)
	require.Equal(t, 1, addr.releaseCalls)
	require.Equal(t, 1, gw.releaseCalls)
	require.Equal(t, 1, meta.stopCalls)
	require.Equal(t, 1, dnsSvcs[10].stopCalls)
	require.Equal(t, 1, dhcpSvcs[10].stopCalls)
}
