package metrics

import (
	"time"

	"github.com/parallelvirtualcluster/pvc/pkg/types"
)

// ClusterView is the minimal read-only surface the collector needs from
// the local entity cache (pkg/entity.Registry satisfies this structurally,
// so pkg/metrics never imports pkg/entity and there is no import cycle).
type ClusterView interface {
	ListNodes() []*types.Node
	ListDomains() []*types.Domain
	ListFaults() []*types.Fault
	ListTasks() []*types.Task
	IsPrimary() bool
}

// Collector periodically samples the local read-copy cache on a ticker
// and publishes the PVC-domain gauge series.
type Collector struct {
	view   ClusterView
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector over view.
func NewCollector(view ClusterView) *Collector {
	return &Collector{
		view:   view,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics on a fixed interval, collecting once
// immediately.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectNodeMetrics()
	c.collectDomainMetrics()
	c.collectFaultMetrics()
	c.collectTaskMetrics()
	c.collectPrimaryMetric()
}

func (c *Collector) collectNodeMetrics() {
	nodes := c.view.ListNodes()

	counts := make(map[types.DaemonState]int)
	for _, n := range nodes {
		counts[n.DaemonState]++
		NodeHealthPercent.WithLabelValues(n.Name).Set(float64(n.OverallHealth()))
	}
	for state, count := range counts {
		NodesTotal.WithLabelValues(string(state)).Set(float64(count))
	}
}

func (c *Collector) collectDomainMetrics() {
	domains := c.view.ListDomains()

	counts := make(map[types.DomainLifecycleState]int)
	for _, d := range domains {
		counts[d.State]++
	}
	for state, count := range counts {
		DomainsTotal.WithLabelValues(string(state)).Set(float64(count))
	}
}

func (c *Collector) collectFaultMetrics() {
	faults := c.view.ListFaults()

	counts := make(map[string]int)
	for _, f := range faults {
		if f.Status == types.FaultStatusNew {
			counts[f.Kind]++
		}
	}
	for kind, count := range counts {
		FaultsActiveTotal.WithLabelValues(kind).Set(float64(count))
	}
}

func (c *Collector) collectTaskMetrics() {
	tasks := c.view.ListTasks()

	stateCounts := make(map[types.TaskState]int)
	queueDepth := make(map[string]int)
	for _, t := range tasks {
		stateCounts[t.State]++
		if t.State == types.TaskPending {
			queueDepth[t.RoutingKey]++
		}
	}
	for state, count := range stateCounts {
		TasksTotal.WithLabelValues(string(state)).Set(float64(count))
	}
	for node, depth := range queueDepth {
		TaskQueueDepth.WithLabelValues(node).Set(float64(depth))
	}
}

func (c *Collector) collectPrimaryMetric() {
	if c.view.IsPrimary() {
		CoordIsPrimary.Set(1)
	} else {
		CoordIsPrimary.Set(0)
	}
}
