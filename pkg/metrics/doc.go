/*
Package metrics provides Prometheus metrics collection and exposition for
pvcd: cluster-state gauges (node health, domain/fault counts), coordination
counters (session loss, primary flips), and operation histograms
(placement latency, migration duration, fence attempts, task duration),
all exposed at /metrics for scraping. Collector samples the local
read-copy cache (pkg/localcache, via the ClusterView interface) on a fixed
tick; health.go in this package carries a separate process
liveness/readiness endpoint.
*/
package metrics
