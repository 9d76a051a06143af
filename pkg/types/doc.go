/*
Package types defines the entities the PVC cluster core reasons about:
Node, Domain (VM), Network, OSD/Pool/Volume/VolumeSnapshot, Fault, and
Task. These are in-memory projections of state that lives durably in
ZooKeeper (see pkg/schema and pkg/entity) — this package has no
persistence logic of its own.

Entities reference each other by name or UUID, never by pointer, so the
graph of Node ↔ Domain ↔ Network stays acyclic and trivially
serializable. A Domain's Node field is a node name; resolving it to the
live *Node goes through the pkg/entity registry.

OverallHealth, Schedulable, HasMigratedFrom, and InNodeLimit are the
small set of derived-state invariants every caller relies on rather
than recomputing inline.
*/
package types
