// Package dispatch provides the process-wide concurrency controller for
// analysis jobs. Callers submit batches of stage jobs and collect results in
// submission order; a bounded worker pool executes them through a pluggable
// transport, either in-process or over NATS request/reply. Jobs carry only
// serializable values so both transports run the same code path.
package dispatch
