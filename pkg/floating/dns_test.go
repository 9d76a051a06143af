package floating

import (
	"testing"
	"time"

	"github.com/parallelvirtualcluster/pvc/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestResolveFindsLeaseByHostnameOnMatchingNetwork(t *testing.T) {
	view := &fakeClusterView{networks: []*types.Network{
		{
			VNI: 10,
			DHCPLeases: map[string]types.DHCPLease{
				"aa:bb:cc:dd:ee:ff": {MAC: "aa:bb:cc:dd:ee:ff", IP: "10.0.0.5", Hostname: "web-1", ExpiresAt: time.Now().Add(time.Hour)},
			},
		},
		{VNI: 20}, // different network, must not be searched
	}}
	a := NewDNSAggregator(view, DNSConfig{VNI: 10, Domain: "pvc"})

	rr, err := a.resolve("web-1.pvc.")

	require.NoError(t, err)
	require.NotNil(t, rr)
}

func TestResolveFailsForUnknownHostname(t *testing.T) {
	view := &fakeClusterView{networks: []*types.Network{{VNI: 10}}}
	a := NewDNSAggregator(view, DNSConfig{VNI: 10, Domain: "pvc"})

	_, err := a.resolve("nope.pvc.")

	require.Error(t, err)
}

func TestResolveIgnoresLeasesOnOtherNetworks(t *testing.T) {
	view := &fakeClusterView{networks: []*types.Network{
		{VNI: 99, DHCPLeases: map[string]types.DHCPLease{
			"aa:bb:cc:dd:ee:ff": {IP: "10.0.0.5", Hostname: "web-1"},
		}},
	}}
	a := NewDNSAggregator(view, DNSConfig{VNI: 10, Domain: "pvc"})

	_, err := a.resolve("web-1.pvc.")

	require.Error(t, err)
}
