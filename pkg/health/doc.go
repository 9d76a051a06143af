// Package health implements node health plugins: named
// node health probes that report a (delta, message) pair, aggregated by
// pkg/fault into cluster-wide Fault records. Checker/Status/Config carry
// over an HTTP/TCP/Exec checker shape for reuse as
// building blocks; Plugin and Runner are the PVC-native layer that adapts
// them (and any other probe) to the delta-reporting contract this package
// describes, via CheckerPlugin.
package health
