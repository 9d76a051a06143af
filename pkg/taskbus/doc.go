/*
Package taskbus implements the Task Bus: short-id, opaque-payload tasks
routed to one node's queue over NATS, with every enqueued task also
durably mirrored into ZooKeeper under the node's queue key. Nothing in
this package reads the mirror back: a pending task is not re-published
after a worker restarts, so delivery rests on NATS alone. RoutingKey "primary" is resolved to the current
primary's node name at enqueue time, not at execution time, so a task
queued for "whoever is primary right now" stays pinned to that node even
if primacy changes before the task runs.
*/
package taskbus
