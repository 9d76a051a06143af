/*
Package nodestate drives the per-node state machine: daemon_state,
coordinator_state, and domain_state transitions, with a target/observed
split (a node's target domain_state is commanded by an operator or by
pkg/fencing; its observed domain_state is what the node itself reports
once it has acted) and "wait=true" semantics where a caller blocks until
the observed state catches up to the commanded one. Domain_state
flush/unflush evacuate and restore a node's domains via pkg/placement
and pkg/migration, the operation that empties a node for maintenance or
fencing recovery.
*/
package nodestate
