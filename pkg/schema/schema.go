// Package schema is the single source of truth for every ZooKeeper path
// the cluster core touches. Other packages build paths through
// Path(kind, args...); the one exception is the daemon's fence lock,
// which cmd/pvc derives by appending "/fence-lock" to a node's
// coordinator_state path. Kept deliberately dumb: this package does no
// I/O of its own.
package schema

import (
	"fmt"
	"strings"
)

// Kind names one class of coordination node.
type Kind int

const (
	// KindRoot is the cluster root, e.g. "/pvc".
	KindRoot Kind = iota
	// KindSchemaVersion holds the integer schema version, e.g. "/pvc/version".
	KindSchemaVersion
	// KindPrimaryLock is the parent of the leader-election ephemeral
	// sequential children, e.g. "/pvc/primary/lock-0000000001".
	KindPrimaryLock
	// KindNodes is the parent of per-node data nodes.
	KindNodes
	KindNode
	KindNodeDaemonState
	KindNodeCoordinatorState
	KindNodeDomainState
	KindNodeHeartbeat
	KindNodeHealth
	// KindDomains is the parent of per-domain data nodes.
	KindDomains
	KindDomain
	KindDomainState
	// KindNetworks is the parent of per-network data nodes.
	KindNetworks
	KindNetwork
	KindNetworkACL
	KindNetworkDHCPReservations
	KindNetworkDHCPLeases
	// KindCephOSDs and KindCephPools hold OSD and pool state mirrored from
	// the storage layer.
	KindCephOSDs
	KindCephOSD
	KindCephPools
	KindCephPool
	// KindFaults is the parent of fault records, keyed by content-hash id.
	KindFaults
	KindFault
	// KindTaskQueues is the parent of per-node task queues.
	KindTaskQueues
	KindTaskQueue
	KindTask
	// KindFloatingIPs holds the current holder of each floating resource.
	KindFloatingIPs
	KindFloatingIP
)

var names = map[Kind]string{
	KindRoot:                    "",
	KindSchemaVersion:           "version",
	KindPrimaryLock:             "primary",
	KindNodes:                   "nodes",
	KindNode:                    "nodes/%s",
	KindNodeDaemonState:         "nodes/%s/daemon_state",
	KindNodeCoordinatorState:    "nodes/%s/coordinator_state",
	KindNodeDomainState:         "nodes/%s/domain_state",
	KindNodeHeartbeat:           "nodes/%s/heartbeat",
	KindNodeHealth:              "nodes/%s/health",
	KindDomains:                 "domains",
	KindDomain:                  "domains/%s",
	KindDomainState:             "domains/%s/state",
	KindNetworks:                "networks",
	KindNetwork:                 "networks/%s",
	KindNetworkACL:              "networks/%s/acl/%s",
	KindNetworkDHCPReservations: "networks/%s/dhcp/reservations",
	KindNetworkDHCPLeases:       "networks/%s/dhcp/leases",
	KindCephOSDs:                "ceph/osds",
	KindCephOSD:                 "ceph/osds/%s",
	KindCephPools:               "ceph/pools",
	KindCephPool:                "ceph/pools/%s",
	KindFaults:                  "faults",
	KindFault:                   "faults/%s",
	KindTaskQueues:              "tasks",
	KindTaskQueue:               "tasks/%s",
	KindTask:                    "tasks/%s/%s",
	KindFloatingIPs:             "floating",
	KindFloatingIP:              "floating/%s",
}

// RootPrefix is prepended to every path Path() builds. It is a var, not a
// const, so a single test or a multi-cluster deployment sharing one
// ensemble can override it before any coord.Client is constructed.
var RootPrefix = "/pvc"

// Path builds the absolute ZooKeeper path for kind, interpolating args
// into the kind's template in order. Panics on an arg-count mismatch — a
// programmer error, not a runtime condition callers should handle.
func Path(kind Kind, args ...string) string {
	tmpl, ok := names[kind]
	if !ok {
		panic(fmt.Sprintf("schema: unknown kind %d", kind))
	}
	want := strings.Count(tmpl, "%s")
	if want != len(args) {
		panic(fmt.Sprintf("schema: kind %d wants %d args, got %d", kind, want, len(args)))
	}
	rel := tmpl
	if want > 0 {
		anyArgs := make([]any, len(args))
		for i, a := range args {
			anyArgs[i] = a
		}
		rel = fmt.Sprintf(tmpl, anyArgs...)
	}
	if rel == "" {
		return RootPrefix
	}
	return RootPrefix + "/" + rel
}

// TopLevelDirs is the set of first-level nodes bootstrap must create
// under RootPrefix before any entity watch is attached.
func TopLevelDirs() []string {
	return []string{
		Path(KindPrimaryLock),
		Path(KindNodes),
		Path(KindDomains),
		Path(KindNetworks),
		Path(KindCephOSDs),
		Path(KindCephPools),
		Path(KindFaults),
		Path(KindTaskQueues),
		Path(KindFloatingIPs),
	}
}
