// Package executor runs a validated execution graph on a bounded pool of
// workers.
//
// A single coordinator owns the run: it hands Ready stages to the workers,
// receives their outcomes, records every status transition and releases
// dependents only after their producer has been recorded as Succeeded. On the
// first failure the run is Aborted. Stages already Running drain normally,
// their results are discarded, and nothing else is started.
package executor
