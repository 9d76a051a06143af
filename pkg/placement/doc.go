/*
Package placement chooses a target node for a domain: filter candidates
by schedulability and node_limit, score the survivors with the domain's
selector, and pick the lowest score, tying back to node name for
deterministic results — the generalization of a "fewest containers
wins" scheduler shape to the six named placement selectors.
*/
package placement
