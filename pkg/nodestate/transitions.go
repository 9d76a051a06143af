package nodestate

import "github.com/parallelvirtualcluster/pvc/pkg/types"

// validDomainStateTransitions enumerates the legal next domain_state
// values from each current one. A node's domain_state only ever moves
// along this graph; anything else is a programmer error in the caller.
var validDomainStateTransitions = map[types.DomainState][]types.DomainState{
	types.DomainStateReady:   {types.DomainStateFlush},
	types.DomainStateFlush:   {types.DomainStateFlushed},
	types.DomainStateFlushed: {types.DomainStateUnflush},
	types.DomainStateUnflush: {types.DomainStateReady},
}

// CanTransitionDomainState reports whether moving from -> to is legal.
func CanTransitionDomainState(from, to types.DomainState) bool {
	for _, allowed := range validDomainStateTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// validDaemonStateTransitions mirrors the same idea for daemon_state;
// fenced is reachable from any state (the Fencing Monitor can declare a
// node fenced regardless of what it was doing) but only init can resume
// from fenced, after an operator clears the fence.
var validDaemonStateTransitions = map[types.DaemonState][]types.DaemonState{
	types.DaemonStateInit:   {types.DaemonStateRun, types.DaemonStateFenced},
	types.DaemonStateRun:    {types.DaemonStateStop, types.DaemonStateDead, types.DaemonStateFenced},
	types.DaemonStateStop:   {types.DaemonStateDead, types.DaemonStateFenced},
	types.DaemonStateDead:   {types.DaemonStateInit, types.DaemonStateFenced},
	types.DaemonStateFenced: {types.DaemonStateInit},
}

// CanTransitionDaemonState reports whether moving from -> to is legal.
func CanTransitionDaemonState(from, to types.DaemonState) bool {
	for _, allowed := range validDaemonStateTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
