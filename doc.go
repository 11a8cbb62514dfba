// Package fiddletunes provides a pipeline for symbolic music analysis:
// offset-indexed event series derived from scores, composable analysis
// stages, and containers that memoize every computed result.
//
// # Architecture
//
// Data flows through three layers:
//
// Stages (analyzers/):
//   - Indexers derive new event series from existing ones, preserving the
//     temporal domain: note names, vertical and melodic intervals, n-grams,
//     subsumption and offset filters.
//   - Experimenters reduce series to summary results: frequency counts,
//     predictive entropy, and cross-piece aggregation.
//
// Containers (models/):
//   - A piece container owns one score and a monotonically growing cache
//     keyed by chain-prefix fingerprints, so repeated and overlapping
//     analysis chains never recompute shared work.
//   - A collection container fans the same chain out over many pieces,
//     groups them by metadata (for example 50-year date bins), and reduces
//     each group, reporting any piece it had to exclude.
//
// Dispatch (dispatch/):
//   - All stage executions run as serializable jobs through one process-wide
//     controller with a bounded worker budget. Jobs execute in-process by
//     default or on remote workers over NATS, behind the same interface.
//
// The stage contract is introspectable: every stage declares its settings
// schema and port types through a registry, so front-ends can discover what
// is available without instantiating anything.
package fiddletunes
