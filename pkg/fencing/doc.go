/*
Package fencing implements the fencing monitor: detect
a node whose heartbeat has gone stale, power-cycle it via pkg/ipmi under
a per-node write lock (so only one coordinator ever fences a given node
at a time), mark it fenced, and cold re-place its running domains with
pkg/placement directly. Recovery never goes through pkg/migration's live
path — the fenced node just lost power, so there is nothing left to
migrate from.
*/
package fencing
