package pvcconfig

import (
	"github.com/parallelvirtualcluster/pvc/pkg/ipmi"
	"github.com/parallelvirtualcluster/pvc/pkg/pvcerr"
)

// CredentialResolver returns an ipmi.CredentialResolver backed by this
// manifest's node list, for wiring into ipmi.NewFleet.
func (c *Config) CredentialResolver() ipmi.CredentialResolver {
	return func(node string) (ipmi.Credentials, error) {
		n, ok := c.NodeByName(node)
		if !ok {
			return ipmi.Credentials{}, pvcerr.NotFound("no BMC credentials configured for node %q", node)
		}
		return ipmi.Credentials{
			Host:     n.IPMIHost,
			Username: n.IPMIUsername,
			Password: n.IPMIPassword,
		}, nil
	}
}

// BridgeNamer returns a floating.BridgeNamer backed by this manifest's
// network list, for wiring into floating.NewGatewayManager.
func (c *Config) BridgeNamer() func(vni int) string {
	return c.BridgeForVNI
}
