package floating

import (
	"testing"

	"github.com/parallelvirtualcluster/pvc/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestLeaseForHonorsReservationOverRange(t *testing.T) {
	r := NewDHCPResponder(DHCPConfig{
		VNI: 10,
		Network: types.Network{
			IPv4DHCPStart: "10.0.0.100",
			IPv4DHCPEnd:   "10.0.0.200",
			DHCPReservations: map[string]types.DHCPReservation{
				"aa:bb:cc:dd:ee:ff": {MAC: "aa:bb:cc:dd:ee:ff", IP: "10.0.0.50", Hostname: "pinned"},
			},
		},
	}, nil)

	ip, hostname := r.leaseFor("aa:bb:cc:dd:ee:ff")

	require.Equal(t, "10.0.0.50", ip.String())
	require.Equal(t, "pinned", hostname)
}

func TestLeaseForAssignsFromRangeWhenNoReservation(t *testing.T) {
	r := NewDHCPResponder(DHCPConfig{
		VNI: 10,
		Network: types.Network{
			IPv4DHCPStart: "10.0.0.100",
			IPv4DHCPEnd:   "10.0.0.102",
		},
	}, nil)

	ip1, _ := r.leaseFor("aa:aa:aa:aa:aa:01")
	ip2, _ := r.leaseFor("aa:aa:aa:aa:aa:02")

	require.Equal(t, "10.0.0.100", ip1.String())
	require.Equal(t, "10.0.0.101", ip2.String())
}

func TestLeaseForWrapsAroundAtEndOfRange(t *testing.T) {
	r := NewDHCPResponder(DHCPConfig{
		VNI: 10,
		Network: types.Network{
			IPv4DHCPStart: "10.0.0.100",
			IPv4DHCPEnd:   "10.0.0.100",
		},
	}, nil)

	ip1, _ := r.leaseFor("mac-1")
	ip2, _ := r.leaseFor("mac-2")

	require.Equal(t, "10.0.0.100", ip1.String())
	require.Equal(t, "10.0.0.100", ip2.String())
}

func TestLeaseForReturnsNilWithoutConfiguredRange(t *testing.T) {
	r := NewDHCPResponder(DHCPConfig{VNI: 10, Network: types.Network{}}, nil)

	ip, _ := r.leaseFor("mac-1")

	require.Nil(t, ip)
}
