/*
Package entity projects ZooKeeper-resident cluster state (via pkg/coord)
into typed, locally-cached Go values: Node, Domain, Network, OSD, Pool,
Fault, and Task. Each projection watches its collection's children and
each child's data; changes are written through to pkg/localcache and
fanned out to registered hooks over a bounded channel, so a slow hook can
never block the ZooKeeper event-delivery goroutine.

Registry ties the per-collection watchers together and is the
metrics.ClusterView and schema.UpgradeContext-adjacent facade the rest of
the daemon depends on instead of reaching into pkg/coord directly.
*/
package entity
