// Package metric provides Prometheus-based observability for the analysis
// pipeline: a process-wide registry of core job, worker, and cache metrics,
// a registrar for subsystem-specific collectors, and an HTTP server exposing
// the scrape endpoint.
package metric
