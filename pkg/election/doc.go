/*
Package election runs the cluster's primary-election state machine
over pkg/coord's leader-election recipe: every node
campaigns continuously; the winner writes coordinator_state=takeover,
runs the caller's OnTakeover hook (typically pkg/floating bringing up
floating services and pkg/placement/pkg/migration resuming in-flight
work), then writes coordinator_state=primary. Losing the campaign, or
losing the ZooKeeper session while primary, drives coordinator_state back
through relinquish to secondary and runs OnRelinquish.
*/
package election
