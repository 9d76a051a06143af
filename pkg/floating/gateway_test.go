package floating

import (
	"context"
	"testing"

	"github.com/parallelvirtualcluster/pvc/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestEnsureGatewaysSkipsBridgedNetworks(t *testing.T) {
	ops := newFakeLinkOps("pvc-br10")
	am := &AddrManager{ops: ops}
	gw := NewGatewayManager(am, func(vni int) string { return "pvc-br10" })
	networks := []*types.Network{
		{VNI: 10, Type: types.NetworkTypeManaged, IPv4Gateway: "10.0.10.1/24"},
		{VNI: 20, Type: types.NetworkTypeBridged, IPv4Gateway: "10.0.20.1/24"},
	}

	err := gw.EnsureGateways(context.Background(), networks)

	require.NoError(t, err)
	require.Len(t, ops.addrs["pvc-br10"], 1)
}

func TestReleaseGatewaysIsIdempotent(t *testing.T) {
	ops := newFakeLinkOps("pvc-br10")
	am := &AddrManager{ops: ops}
	gw := NewGatewayManager(am, func(vni int) string { return "pvc-br10" })
	networks := []*types.Network{{VNI: 10, Type: types.NetworkTypeManaged, IPv4Gateway: "10.0.10.1/24"}}
	require.NoError(t, gw.EnsureGateways(context.Background(), networks))

	require.NoError(t, gw.ReleaseGateways(context.Background(), networks))
	require.NoError(t, gw.ReleaseGateways(context.Background(), networks))

	require.Empty(t, ops.addrs["pvc-br10"])
}
