/*
Package localcache is the per-node read-copy snapshot: a BoltDB-backed
mirror of whatever pkg/entity last observed over its ZooKeeper watches.
Readers that don't need linearizable freshness — the HTTP adapter, the
placement engine, the metrics collector — read from here instead of
taking a ZooKeeper round trip per query. Nothing in this package talks to
ZooKeeper. pkg/entity writes the mirrored entities; the one other writer
is PublishLease, through which pkg/floating's DHCP responder records
leases into this node's copy only.
*/
package localcache
