package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cluster metrics
	NodesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pvc_nodes_total",
			Help: "Total number of nodes by daemon_state",
		},
		[]string{"daemon_state"},
	)

	NodeHealthPercent = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pvc_node_health_percent",
			Help: "Per-node overall health percentage (100 minus summed plugin deltas)",
		},
		[]string{"node"},
	)

	DomainsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pvc_domains_total",
			Help: "Total number of domains by lifecycle state",
		},
		[]string{"state"},
	)

	FaultsActiveTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pvc_faults_active_total",
			Help: "Total number of active (unacknowledged) faults by kind",
		},
		[]string{"kind"},
	)

	// Coordination (ZooKeeper) metrics
	CoordIsPrimary = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pvc_coord_is_primary",
			Help: "Whether this node currently holds coordinator_state=primary (1) or not (0)",
		},
	)

	CoordSessionLostTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pvc_coord_session_lost_total",
			Help: "Total number of ZooKeeper session-lost events observed",
		},
	)

	CoordOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pvc_coord_op_duration_seconds",
			Help:    "Coordination client operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	// HTTP adapter metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pvc_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pvc_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Placement Engine metrics
	PlacementLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pvc_placement_latency_seconds",
			Help:    "Time taken to choose a target node for a domain",
			Buckets: prometheus.DefBuckets,
		},
	)

	PlacementFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pvc_placement_failures_total",
			Help: "Total number of placement failures by selector",
		},
		[]string{"selector"},
	)

	// Migration Controller metrics
	MigrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pvc_migrations_total",
			Help: "Total number of migrations by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	MigrationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pvc_migration_duration_seconds",
			Help:    "Migration duration in seconds by method",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"method"},
	)

	// Fencing Monitor metrics
	FenceAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pvc_fence_attempts_total",
			Help: "Total number of fence attempts by outcome",
		},
		[]string{"outcome"},
	)

	// Task Bus metrics
	TasksTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pvc_tasks_total",
			Help: "Total number of tasks by state",
		},
		[]string{"state"},
	)

	TaskQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pvc_task_queue_depth",
			Help: "Number of pending tasks queued per node",
		},
		[]string{"node"},
	)

	TaskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pvc_task_duration_seconds",
			Help:    "Task duration in seconds by task name",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"name"},
	)

	// Reconciler metrics
	ReconciliationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pvc_reconciliation_duration_seconds",
			Help:    "Time taken for an entity reconciliation cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"entity"},
	)

	ReconciliationCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pvc_reconciliation_cycles_total",
			Help: "Total number of reconciliation cycles completed by entity",
		},
		[]string{"entity"},
	)

	// Floating Services metrics
	FloatingServiceUpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pvc_floating_service_up_duration_seconds",
			Help:    "Time taken to bring up a floating service during takeover",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	DHCPLeasesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pvc_dhcp_leases_total",
			Help: "Number of observed DHCP leases per managed network",
		},
		[]string{"vni"},
	)
)

func init() {
	prometheus.MustRegister(
		NodesTotal,
		NodeHealthPercent,
		DomainsTotal,
		FaultsActiveTotal,
		CoordIsPrimary,
		CoordSessionLostTotal,
		CoordOpDuration,
		APIRequestsTotal,
		APIRequestDuration,
		PlacementLatency,
		PlacementFailuresTotal,
		MigrationsTotal,
		MigrationDuration,
		FenceAttemptsTotal,
		TasksTotal,
		TaskQueueDepth,
		TaskDuration,
		ReconciliationDuration,
		ReconciliationCyclesTotal,
		FloatingServiceUpDuration,
		DHCPLeasesTotal,
	)
}

// Handler returns the Prometheus HTTP handler, exposed unauthenticated
// at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
