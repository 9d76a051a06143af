package placement

import (
	"sort"

	"github.com/parallelvirtualcluster/pvc/pkg/metrics"
	"github.com/parallelvirtualcluster/pvc/pkg/pvcerr"
	"github.com/parallelvirtualcluster/pvc/pkg/types"
)

// scoreFunc returns a node's score for a selector; lower always wins.
type scoreFunc func(n *types.Node) float64

var scoreFuncs = map[types.Selector]scoreFunc{
	types.SelectorMem: func(n *types.Node) float64 {
		return -float64(n.MemoryFreeMB)
	},
	types.SelectorMemProv: func(n *types.Node) float64 {
		return float64(n.MemoryProvisionedMB)
	},
	types.SelectorVCPUs: func(n *types.Node) float64 {
		return float64(n.VCPUAllocated)
	},
	types.SelectorLoad: func(n *types.Node) float64 {
		return n.Load5
	},
	types.SelectorVMs: func(n *types.Node) float64 {
		return float64(len(n.RunningDomains))
	},
}

// FilterSchedulable returns the subset of nodes eligible to receive any
// new domain placement at all (daemon_state=run, domain_state=ready).
func FilterSchedulable(nodes []*types.Node) []*types.Node {
	var out []*types.Node
	for _, n := range nodes {
		if n.Schedulable() {
			out = append(out, n)
		}
	}
	return out
}

// Select picks the best node for domain d among candidates, applying
// node_limit, resolving SelectorNone to clusterDefault, scoring with the
// resulting selector, and tie-breaking by node name ascending so repeated
// calls against identical input are reproducible (a testable
// property: placement determinism).
func Select(d *types.Domain, candidates []*types.Node, clusterDefault types.Selector) (*types.Node, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.PlacementLatency)

	selector := d.NodeSelector
	if selector == types.SelectorNone || selector == "" {
		selector = clusterDefault
	}

	var eligible []*types.Node
	for _, n := range candidates {
		if d.InNodeLimit(n.Name) {
			eligible = append(eligible, n)
		}
	}
	if len(eligible) == 0 {
		metrics.PlacementFailuresTotal.WithLabelValues(string(selector)).Inc()
		return nil, pvcerr.Precondition("no eligible node for domain %s (node_limit excludes all candidates)", d.Name)
	}

	score, ok := scoreFuncs[selector]
	if !ok {
		metrics.PlacementFailuresTotal.WithLabelValues(string(selector)).Inc()
		return nil, pvcerr.Validation("unknown placement selector %q", selector)
	}

	sort.Slice(eligible, func(i, j int) bool { return eligible[i].Name < eligible[j].Name })

	best := eligible[0]
	bestScore := score(best)
	for _, n := range eligible[1:] {
		s := score(n)
		if s < bestScore {
			best, bestScore = n, s
		}
	}
	return best, nil
}
